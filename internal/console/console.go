package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/nocap/internal/models"
	"github.com/lehigh-university-libraries/nocap/internal/session"
)

const (
	endCommand  = ":end"
	quitCommand = ":quit"
)

// ErrAborted is returned when the reviewer quits without exporting.
var ErrAborted = errors.New("review aborted")

// Suggester drafts a caption for an image that has none yet.
type Suggester func(ctx context.Context, img models.ImageEntry) (string, error)

type Options struct {
	Suggest Suggester
}

// Run walks the reviewer through every image of state, one line of input per
// image, and returns the final state. Closing the input ends the review early.
func Run(ctx context.Context, in io.Reader, out io.Writer, state *session.State, opts Options) (*session.State, error) {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	fmt.Fprintf(out, "Detected %d images\n", len(state.Images))
	fmt.Fprintf(out, "Enter a caption, an empty line to keep the one shown, %s to finish early or %s to abort.\n", endCommand, quitCommand)
	fmt.Fprintln(out, strings.Repeat("=", 80))

	for !state.IsReviewComplete() {
		img, _ := state.CurrentImage()
		prefill := state.CurrentCaption()
		if prefill == "" && opts.Suggest != nil {
			suggestion, err := opts.Suggest(ctx, img)
			if err != nil {
				slog.Warn("Caption suggestion failed", "image", img.Identifier, "err", err)
				fmt.Fprintf(out, "(no suggestion: %v)\n", err)
			} else {
				prefill = suggestion
			}
		}

		view := state.View()
		fmt.Fprintf(out, "\n%s\n", view.ProgressText)
		fmt.Fprintln(out, strings.Repeat("-", 80))
		fmt.Fprintf(out, "Image:   %s (%d bytes)\n", img.Identifier, img.Size())
		fmt.Fprintf(out, "Caption: %s\n", prefill)
		fmt.Fprint(out, "> ")

		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "\nReview interrupted.")
			return state, ctx.Err()
		case line, ok = <-lines:
		}

		if !ok {
			fmt.Fprintln(out)
			state = session.Apply(state, session.EndEarly{})
			break
		}

		switch strings.TrimSpace(line) {
		case quitCommand:
			return state, ErrAborted
		case endCommand:
			state = session.Apply(state, session.EndEarly{})
		case "":
			state = session.Apply(state, session.Save{Caption: prefill})
		default:
			state = session.Apply(state, session.Save{Caption: decodeCaption(line)})
		}
	}

	view := state.View()
	if view.EndedEarly {
		fmt.Fprintf(out, "\nReview ended early: %d of %d images captioned\n", view.Captioned, view.Total)
	} else {
		fmt.Fprintf(out, "\nAll %d images reviewed\n", view.Total)
	}

	return state, nil
}

// decodeCaption turns a literal `\n` into a line break.
func decodeCaption(line string) string {
	return strings.ReplaceAll(line, `\n`, "\n")
}

func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(in)
		for {
			line, err := reader.ReadString('\n')
			if line != "" || err == nil {
				select {
				case lines <- strings.TrimRight(line, "\r\n"):
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}
