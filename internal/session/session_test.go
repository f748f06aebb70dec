package session

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/nocap/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func images(n int) []models.ImageEntry {
	out := make([]models.ImageEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.ImageEntry{
			Identifier: fmt.Sprintf("dir/img%d.png", i),
			Data:       []byte(fmt.Sprintf("bytes-%d", i)),
			Extension:  "png",
		})
	}
	return out
}

func loaded(n int, seed models.CaptionMap) *State {
	s := New()
	s.InitializeOrReset("upload-1", "batch.zip", images(n), seed)
	return s
}

func TestInitializeOrReset(t *testing.T) {
	s := loaded(3, models.CaptionMap{"dir/img1.png": "seeded"})
	s.Save("first")
	s.EndEarly()

	s.InitializeOrReset("upload-2", "other.zip", images(2), nil)

	assert.Equal(t, 0, s.Cursor)
	assert.False(t, s.EarlyEnd)
	assert.Empty(t, s.Captions)
	assert.Equal(t, "upload-2", s.LastUpload)
	assert.Len(t, s.Images, 2)
	assert.False(t, s.IsReviewComplete())
}

func TestSeedIsCopied(t *testing.T) {
	seed := models.CaptionMap{"dir/img0.png": "a cat"}
	s := loaded(2, seed)

	assert.Equal(t, "a cat", s.CurrentCaption())
	s.Save("changed")
	assert.Equal(t, "a cat", seed["dir/img0.png"])
}

func TestSaveAdvancesByOne(t *testing.T) {
	s := loaded(3, nil)

	for i := 0; i < 3; i++ {
		before := len(s.Captions)
		img, ok := s.CurrentImage()
		require.True(t, ok)

		require.True(t, s.Save(fmt.Sprintf("caption %d", i)))
		assert.Equal(t, i+1, s.Cursor)
		assert.Equal(t, before+1, len(s.Captions))
		assert.Equal(t, fmt.Sprintf("caption %d", i), s.Captions[img.Identifier])
	}

	assert.True(t, s.IsReviewComplete())
	_, ok := s.CurrentImage()
	assert.False(t, ok)
}

func TestSaveOverSeededCaptionUpdatesOneEntry(t *testing.T) {
	s := loaded(2, models.CaptionMap{"dir/img0.png": "old"})

	require.True(t, s.Save(s.CurrentCaption()))
	assert.Equal(t, "old", s.Captions["dir/img0.png"])
	assert.Len(t, s.Captions, 1)
	assert.Equal(t, 1, s.Cursor)
}

func TestSaveWhenCompleteIsNoop(t *testing.T) {
	s := loaded(1, nil)
	require.True(t, s.Save("only"))

	assert.False(t, s.Save("extra"))
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, models.CaptionMap{"dir/img0.png": "only"}, s.Captions)

	s = loaded(3, nil)
	s.EndEarly()
	assert.False(t, s.Save("ignored"))
	assert.Equal(t, 0, s.Cursor)
	assert.Empty(t, s.Captions)
}

func TestEndEarlyIsIdempotent(t *testing.T) {
	once := loaded(3, nil)
	once.Save("a")
	once.EndEarly()

	twice := loaded(3, nil)
	twice.Save("a")
	twice.EndEarly()
	twice.EndEarly()

	assert.Equal(t, once, twice)
	assert.True(t, twice.IsReviewComplete())
}

func TestEndEarlyExportsOnlySaved(t *testing.T) {
	s := loaded(5, nil)
	s.Save("one")
	s.Save("two")
	s.EndEarly()

	require.True(t, s.IsReviewComplete())

	data, err := s.Export()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		rc.Close()
		names[f.Name] = string(content)
	}

	assert.Equal(t, map[string]string{
		"img0.png": "bytes-0",
		"img0.txt": "one",
		"img1.png": "bytes-1",
		"img1.txt": "two",
	}, names)
}

func TestNoImagesIsComplete(t *testing.T) {
	s := loaded(0, nil)
	assert.True(t, s.IsReviewComplete())
	assert.Equal(t, 0.0, s.Progress())
	assert.False(t, s.Save("nothing"))

	data, err := s.Export()
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestProgress(t *testing.T) {
	s := loaded(4, nil)
	assert.Equal(t, 0.0, s.Progress())
	s.Save("a")
	assert.Equal(t, 0.25, s.Progress())
	s.Save("b")
	s.Save("c")
	assert.Equal(t, 0.75, s.Progress())
}

func TestReset(t *testing.T) {
	s := loaded(2, nil)
	s.Save("a")
	s.Reset()

	assert.False(t, s.HasUpload())
	assert.Equal(t, 0, s.Cursor)
	assert.Empty(t, s.Images)
	assert.Empty(t, s.Captions)
	assert.True(t, s.IsNewUpload("upload-1"))
}

func TestApplyUploadIdentity(t *testing.T) {
	first := Upload{Identity: "a.zip:1", Name: "a.zip", Images: images(3)}

	s := Apply(New(), first)
	s = Apply(s, Save{Caption: "kept"})
	require.Equal(t, 1, s.Cursor)

	// same upload again keeps progress
	s = Apply(s, first)
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, "kept", s.Captions["dir/img0.png"])

	// a different upload starts over with the new images
	second := Upload{Identity: "b.zip:2", Name: "b.zip", Images: images(5)[3:]}
	s = Apply(s, second)
	assert.Equal(t, 0, s.Cursor)
	assert.Empty(t, s.Captions)
	assert.Equal(t, "dir/img3.png", s.Images[0].Identifier)
	assert.Equal(t, "b.zip", s.UploadName)
}

func TestApplyResetAllowsSameUploadAgain(t *testing.T) {
	up := Upload{Identity: "a.zip:1", Name: "a.zip", Images: images(2)}

	s := Apply(New(), up)
	s = Apply(s, Save{Caption: "x"})
	s = Apply(s, Reset{})
	s = Apply(s, up)

	assert.True(t, s.HasUpload())
	assert.Equal(t, 0, s.Cursor)
	assert.Empty(t, s.Captions)
}

func TestApplyDoesNotModifyInput(t *testing.T) {
	s := loaded(2, nil)

	next := Apply(s, Save{Caption: "a"})
	assert.Equal(t, 0, s.Cursor)
	assert.Empty(t, s.Captions)
	assert.Equal(t, 1, next.Cursor)

	ended := Apply(next, EndEarly{})
	assert.False(t, next.EarlyEnd)
	assert.True(t, ended.EarlyEnd)

	assert.Equal(t, 0, Apply(nil, Save{Caption: "x"}).Cursor)
}

func TestName(t *testing.T) {
	assert.Equal(t, "upload", Name(Upload{}))
	assert.Equal(t, "save", Name(Save{}))
	assert.Equal(t, "end_early", Name(EndEarly{}))
	assert.Equal(t, "reset", Name(Reset{}))
}

func TestView(t *testing.T) {
	s := loaded(2, models.CaptionMap{"dir/img1.png": "seeded"})

	view := s.View()
	assert.True(t, view.HasUpload)
	assert.False(t, view.Complete)
	assert.Equal(t, "Captioning image 1 of 2", view.ProgressText)
	require.NotNil(t, view.Current)
	assert.Equal(t, "dir/img0.png", view.Current.Identifier)
	assert.Equal(t, 7, view.Current.Size)
	assert.Equal(t, "", view.Caption)

	s.Save("first")
	view = s.View()
	assert.Equal(t, "Captioning image 2 of 2", view.ProgressText)
	assert.Equal(t, "seeded", view.Caption)
	assert.Equal(t, 0.5, view.Progress)

	s.Save(view.Caption)
	view = s.View()
	assert.True(t, view.Complete)
	assert.Nil(t, view.Current)
	assert.Equal(t, "batch_captions.zip", view.DownloadName)
	assert.Equal(t, 2, view.Captioned)
}

func TestViewWithoutUpload(t *testing.T) {
	view := New().View()
	assert.False(t, view.HasUpload)
	assert.True(t, view.Complete)
	assert.Empty(t, view.DownloadName)
}
