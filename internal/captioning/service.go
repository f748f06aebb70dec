package captioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/nocap/internal/config"
	"github.com/lehigh-university-libraries/nocap/internal/models"
	"github.com/lehigh-university-libraries/nocap/internal/providers"
	"github.com/lehigh-university-libraries/nocap/internal/providers/gemini"
	"github.com/lehigh-university-libraries/nocap/internal/providers/ollama"
	"github.com/lehigh-university-libraries/nocap/internal/providers/openai"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// breakerFailures is how many consecutive provider failures open a breaker.
const breakerFailures = 3

// Service drafts captions for images with a vision-capable LLM.
// Suggestions only prefill the caption editor; they never change review state.
type Service struct {
	cfg       config.Config
	providers map[string]providers.Provider
	limiter   *rate.Limiter

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[string]
}

func NewService(cfg config.Config) *Service {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.CaptionRatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.CaptionRatePerMinute)), 5)
	}

	return &Service{
		cfg: cfg,
		providers: map[string]providers.Provider{
			"ollama": ollama.New(cfg.OllamaURL),
			"openai": openai.New(cfg.OpenAIAPIKey),
			"gemini": gemini.New(cfg.GeminiAPIKey),
		},
		limiter:  limiter,
		breakers: make(map[string]*gobreaker.CircuitBreaker[string]),
	}
}

// WithProvider registers or replaces a provider under name.
func (s *Service) WithProvider(name string, p providers.Provider) *Service {
	s.providers[name] = p
	return s
}

// Suggest returns a draft caption for img. Empty provider and model fall back to
// the configured defaults.
func (s *Service) Suggest(ctx context.Context, img models.ImageEntry, provider, model string) (string, error) {
	if provider == "" {
		provider = s.cfg.CaptionProvider
	}
	if model == "" {
		model = s.cfg.DefaultModel(provider)
	}

	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", provider)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to wait for suggestion slot: %w", err)
	}

	if s.cfg.CaptionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CaptionTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := s.breaker(provider).Execute(func() (string, error) {
		return p.DescribeImage(ctx, providers.Config{
			Model:       model,
			Temperature: 0.2,
			Prompt:      s.cfg.CaptionPrompt,
			Image:       img.Data,
			MIMEType:    img.MIMEType(),
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe %s with %s: %w", img.Identifier, provider, err)
	}

	caption := CleanCaption(raw)
	slog.Info("Generated caption suggestion",
		"image", img.Identifier,
		"provider", provider,
		"model", model,
		"length", len(caption),
		"duration", time.Since(start))

	return caption, nil
}

func (s *Service) breaker(provider string) *gobreaker.CircuitBreaker[string] {
	s.mu.Lock()
	defer s.mu.Unlock()

	if breaker, ok := s.breakers[provider]; ok {
		return breaker
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        provider,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			slog.Warn("Caption provider circuit changed", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	s.breakers[provider] = breaker
	return breaker
}

// IsUnavailable reports whether err came from a provider that is
// temporarily cut off after repeated failures.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// CleanCaption strips markdown fences, a leading "Caption:" label and
// surrounding quotes that models like to add.
func CleanCaption(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```text")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if len(response) >= len("caption:") && strings.EqualFold(response[:len("caption:")], "caption:") {
		response = strings.TrimSpace(response[len("caption:"):])
	}

	if len(response) >= 2 {
		first, last := response[0], response[len(response)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			response = strings.TrimSpace(response[1 : len(response)-1])
		}
	}

	return response
}
