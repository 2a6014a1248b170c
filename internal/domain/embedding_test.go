package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	calls int
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 1, TotalTokens: 2}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestBatchFallback_AggregatesUsage(t *testing.T) {
	inner := &stubEmbedder{}
	res, err := BatchFallback(context.Background(), inner, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 Embed calls, got %d", inner.calls)
	}
	if len(res.Embeddings) != 3 || res.Embeddings[2][0] != 3 {
		t.Errorf("unexpected embeddings %v", res.Embeddings)
	}
	if res.PromptTokens != 3 || res.TotalTokens != 6 {
		t.Errorf("usage = %d/%d, want 3/6", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}
	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected fail-fast after 1 call, got %d", inner.calls)
	}
}

func TestEmbedBatch_PrefersNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}
	res, err := EmbedBatch(context.Background(), inner, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || inner.calls != 0 {
		t.Errorf("batch=%d single=%d, want 1/0", inner.batchCalls, inner.calls)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("expected 2 embeddings, got %d", len(res.Embeddings))
	}
}

func TestEmbedBatch_FallsBack(t *testing.T) {
	inner := &stubEmbedder{}
	if _, err := EmbedBatch(context.Background(), inner, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 Embed calls, got %d", inner.calls)
	}
}
