// Package gemini is a generateContent client for Gemini-compatible text generation backends.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/genai"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const maxErrorBody = 512

// Config holds the generation backend settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client calls models/{model}:generateContent. It never retries; each call
// gets its own timeout.
type Client struct {
	http    *resty.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a generation client.
func NewClient(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &Client{
		http:    hc,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateContent sends req and decodes the response envelope.
// Deadline errors wrap domain.ErrProviderTimeout, transport failures and non-2xx
// statuses wrap domain.ErrProviderError, and an undecodable body wraps
// domain.ErrModelOutputInvalid.
func (c *Client) GenerateContent(ctx context.Context, req *genai.Request) (*genai.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("model", c.model).
		SetBody(req).
		Post("/v1beta/models/{model}:generateContent")
	metrics.GenerationRequestDuration.WithLabelValues(c.model).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("generateContent after %s: %w", time.Since(start).Round(time.Millisecond), domain.ErrProviderTimeout)
		}
		c.logger.Warn("Generation transport failure", zap.String("model", c.model), zap.Error(err))
		return nil, fmt.Errorf("generateContent: %v: %w", err, domain.ErrProviderError)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		body := resp.Body()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		c.logger.Warn("Generation backend returned error status",
			zap.String("model", c.model),
			zap.Int("status", resp.StatusCode()),
			zap.ByteString("body", body),
		)
		return nil, fmt.Errorf("generateContent status %d: %w", resp.StatusCode(), domain.ErrProviderError)
	}

	var out genai.Response
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode generateContent response: %v: %w", err, domain.ErrModelOutputInvalid)
	}
	if u := out.UsageMetadata; u != nil {
		metrics.GenerationTokensTotal.WithLabelValues(c.model, "prompt").Add(float64(u.PromptTokenCount))
		metrics.GenerationTokensTotal.WithLabelValues(c.model, "candidates").Add(float64(u.CandidatesTokenCount))
	}
	return &out, nil
}
