// Package report turns product features and retrieved regulatory excerpts
// into a validated compliance report.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/analysis"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/genai"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	domreport "github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
)

// Generation defaults.
const (
	DefaultTemperature = 0.2
	DefaultMaxAttempts = 2
	ResponseMIMEType   = "application/json"
)

// Config tunes the generator.
type Config struct {
	Model        string  // metrics label only
	Temperature  float32 // 0 uses DefaultTemperature
	MaxAttempts  int     // total attempts; <= 0 uses DefaultMaxAttempts
	RetryBackoff time.Duration
}

// Service generates compliance reports.
type Service struct {
	backend     Backend
	model       string
	temperature float32
	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger
}

// New creates a report generator.
func New(backend Backend, cfg Config, logger *zap.Logger) *Service {
	s := &Service{
		backend:     backend,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxAttempts: cfg.MaxAttempts,
		backoff:     max(cfg.RetryBackoff, 0),
		logger:      logger,
	}
	if s.temperature == 0 {
		s.temperature = DefaultTemperature
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	return s
}

// Generate builds the prompt, calls the backend and returns a validated report.
// Only domain.ErrModelOutputInvalid is retried, up to the configured attempt
// count with the same prompt. Timeouts and provider errors return immediately.
func (s *Service) Generate(
	ctx context.Context, features analysis.Features, m market.Market, excerpts []string,
) (*domreport.Report, error) {
	system, user := BuildPrompt(features, m, excerpts)
	req := genai.NewTextRequest(system, user, s.temperature, ResponseMIMEType)

	backoff := retry.WithMaxRetries(uint64(s.maxAttempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return s.backoff, false
	}))

	var (
		out     *domreport.Report
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		r, err := s.attempt(ctx, req)
		if err == nil {
			out = r
			s.observe("ok")
			return nil
		}
		if errors.Is(err, domain.ErrModelOutputInvalid) {
			s.observe("invalid_output")
			s.logger.Warn("Model output rejected",
				zap.String("model", s.model),
				zap.String("market", string(m)),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.maxAttempts),
				zap.Error(err),
			)
			return retry.RetryableError(err)
		}
		if errors.Is(err, domain.ErrProviderTimeout) {
			s.observe("timeout")
		} else {
			s.observe("provider_error")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate report after %d attempt(s): %w", attempt, err)
	}
	return out, nil
}

func (s *Service) attempt(ctx context.Context, req *genai.Request) (*domreport.Report, error) {
	resp, err := s.backend.GenerateContent(ctx, req)
	if err != nil {
		return nil, err
	}
	text, err := resp.Text()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelOutputInvalid, err)
	}
	return Parse(text)
}

func (s *Service) observe(outcome string) {
	metrics.GenerationAttemptsTotal.WithLabelValues(s.model, outcome).Inc()
}
