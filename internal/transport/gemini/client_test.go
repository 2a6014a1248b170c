package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/genai"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(&Config{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "gemini-test",
		Timeout: timeout,
		Logger:  zap.NewNop(),
	})
}

func TestGenerateContent_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-test:generateContent" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("unexpected api key header: %q", r.Header.Get("x-goog-api-key"))
		}
		var req genai.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.GenerationConfig == nil || *req.GenerationConfig.Temperature != 0.2 {
			t.Errorf("temperature not forwarded: %+v", req.GenerationConfig)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{}"}]}}],
"usageMetadata":{"promptTokenCount":12,"candidatesTokenCount":3,"totalTokenCount":15}}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL, time.Second).
		GenerateContent(context.Background(), genai.NewTextRequest("sys", "user", 0.2, "application/json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := resp.Text()
	if err != nil || text != "{}" {
		t.Errorf("Text() = %q, %v", text, err)
	}
}

func TestGenerateContent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			},
			want: domain.ErrProviderError,
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: domain.ErrProviderError,
		},
		{
			name: "malformed envelope",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>oops</html>`))
			},
			want: domain.ErrModelOutputInvalid,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			_, err := newTestClient(server.URL, time.Second).
				GenerateContent(context.Background(), genai.NewTextRequest("", "u", 0, ""))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestGenerateContent_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	_, err := newTestClient(server.URL, 50*time.Millisecond).
		GenerateContent(context.Background(), genai.NewTextRequest("", "u", 0, ""))
	if !errors.Is(err, domain.ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
	if errors.Is(err, domain.ErrProviderError) {
		t.Fatal("timeout must be distinguishable from provider error")
	}
}

func TestGenerateContent_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url, time.Second).
		GenerateContent(context.Background(), genai.NewTextRequest("", "u", 0, ""))
	if !errors.Is(err, domain.ErrProviderError) {
		t.Fatalf("expected ErrProviderError, got %v", err)
	}
}
