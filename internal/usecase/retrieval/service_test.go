package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/index"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type fixture struct {
	market string
	vec    []float32
}

func buildIndex(t *testing.T, items []fixture) *index.Index {
	t.Helper()
	chunks := make([]chunk.Chunk, len(items))
	vecs := make([][]float32, len(items))
	for i, it := range items {
		id := chunk.ID(it.market, fmt.Sprintf("doc%d.pdf", i), 0)
		chunks[i] = chunk.Reconstruct(id, "text of "+id, it.market, fmt.Sprintf("doc%d.pdf", i), "General")
		vecs[i] = it.vec
	}
	ix, err := index.New(chunks, vecs, index.Manifest{DocCount: len(items)})
	if err != nil {
		t.Fatalf("index.New: %v", err)
	}
	return ix
}

func staticLoader(ix *index.Index, calls *atomic.Int32) Loader {
	return func(string) (*index.Index, error) {
		if calls != nil {
			calls.Add(1)
		}
		return ix, nil
	}
}

func mixedIndex(t *testing.T) *index.Index {
	return buildIndex(t, []fixture{
		{"US", []float32{1, 0}},
		{"EUROPE", []float32{0.9, 0.1}},
		{"eu", []float32{0.5, 0.5}},
		{"Global", []float32{0, 1}},
		{"MIDDLE_EAST", []float32{1, 0}},
		{"欧盟", []float32{0.8, 0.2}},
		{"EUROPE", []float32{0, 0}},
	})
}

// --- Tests ---

func TestRetrieve_FiltersToMarketAliases(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(mixedIndex(t), nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.Europe, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	allowed := market.Matcher(market.Europe)
	if len(got) != 5 {
		t.Fatalf("expected 5 EUROPE-visible chunks, got %d", len(got))
	}
	for _, r := range got {
		if _, ok := allowed[r.Market()]; !ok {
			t.Errorf("chunk %s tagged %q leaked into EUROPE results", r.ID(), r.Market())
		}
	}
}

func TestRetrieve_DescendingAndBounded(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(mixedIndex(t), nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.Europe, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected topK=3 results, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("results not descending at %d: %v < %v", i, got[i-1].Score, got[i].Score)
		}
	}
	if got[0].Market() != "EUROPE" {
		t.Errorf("best match should be the EUROPE [0.9,0.1] chunk, got %s", got[0].ID())
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	items := make([]fixture, 15)
	for i := range items {
		items[i] = fixture{"US", []float32{1, float32(i)}}
	}
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(buildIndex(t, items), nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.US, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != DefaultTopK {
		t.Fatalf("expected %d results, got %d", DefaultTopK, len(got))
	}
}

func TestRetrieve_ZeroNormScoresZero(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	ix := buildIndex(t, []fixture{{"US", []float32{0, 0}}})
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(ix, nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.US, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Score != 0 {
		t.Fatalf("expected one result with score 0, got %+v", got)
	}
}

func TestRetrieve_TiesKeepIndexOrder(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	ix := buildIndex(t, []fixture{
		{"US", []float32{2, 0}},
		{"Global", []float32{1, 0}},
		{"US", []float32{3, 0}},
	})
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(ix, nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.US, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []string{ix.Chunk(0).ID(), ix.Chunk(1).ID(), ix.Chunk(2).ID()} {
		if got[i].ID() != want {
			t.Errorf("position %d = %s, want %s", i, got[i].ID(), want)
		}
	}
}

func TestRetrieve_DimensionMismatch(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(mixedIndex(t), nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.US, 10)
	if !errors.Is(err, domain.ErrEmbeddingDimMismatch) {
		t.Fatalf("expected ErrEmbeddingDimMismatch, got %v", err)
	}
	if got != nil {
		t.Errorf("no results expected on dimension mismatch, got %d", len(got))
	}
}

func TestRetrieve_IndexMissing(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := New(t.TempDir(), emb, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), "q", market.US, 10)
	if !errors.Is(err, domain.ErrIndexMissing) {
		t.Fatalf("expected ErrIndexMissing, got %v", err)
	}
	if svc.State() != Unloaded {
		t.Errorf("state = %s, want unloaded", svc.State())
	}
	if emb.calls.Load() != 0 {
		t.Error("embedding provider must not be called without an index")
	}
}

func TestRetrieve_EmptyIndex(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{1, 0, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(buildIndex(t, nil), nil)))

	got, err := svc.Retrieve(context.Background(), "q", market.US, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestRetrieve_EmbeddingError(t *testing.T) {
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderTimeout}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(mixedIndex(t), nil)))

	_, err := svc.Retrieve(context.Background(), "q", market.US, 10)
	if !errors.Is(err, domain.ErrEmbeddingProviderTimeout) {
		t.Fatalf("expected ErrEmbeddingProviderTimeout, got %v", err)
	}
}

func TestLoad_OnceUnderConcurrency(t *testing.T) {
	var calls atomic.Int32
	emb := &mockEmbedder{vec: []float32{1, 0}}
	svc := New("unused", emb, zap.NewNop(), WithLoader(staticLoader(mixedIndex(t), &calls)))

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Retrieve(context.Background(), "q", market.US, 3); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
	if !svc.Loaded() {
		t.Errorf("state = %s, want loaded", svc.State())
	}
}

func TestLoad_FailureAllowsRetry(t *testing.T) {
	ix := mixedIndex(t)
	fail := true
	loader := func(string) (*index.Index, error) {
		if fail {
			return nil, fmt.Errorf("read: %w", domain.ErrIndexMissing)
		}
		return ix, nil
	}
	svc := New("unused", &mockEmbedder{vec: []float32{1, 0}}, zap.NewNop(), WithLoader(loader))

	if err := svc.Load(context.Background()); !errors.Is(err, domain.ErrIndexMissing) {
		t.Fatalf("expected ErrIndexMissing, got %v", err)
	}
	fail = false
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("retry load: %v", err)
	}
	if svc.Index() != ix {
		t.Error("Index() should return the loaded index")
	}
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	if err := index.Write(dir, mixedIndex(t)); err != nil {
		t.Fatalf("write index: %v", err)
	}
	svc := New(dir, &mockEmbedder{vec: []float32{1, 0}}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), "q", market.MiddleEast, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected MIDDLE_EAST + Global chunks, got %d", len(got))
	}
	if svc.Index().Format() != index.FormatSplit {
		t.Errorf("format = %s, want split", svc.Index().Format())
	}
}

func TestLoad_WarnsOnUnmatchedTags(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ix := buildIndex(t, []fixture{
		{"US", []float32{1, 0}},
		{"LATAM", []float32{1, 0}},
	})
	svc := New("unused", &mockEmbedder{}, zap.New(core), WithLoader(staticLoader(ix, nil)))

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(entries))
	}
	if tag := entries[0].ContextMap()["tag"]; tag != "LATAM" {
		t.Errorf("warned tag = %v, want LATAM", tag)
	}
}

func TestCosine(t *testing.T) {
	q := []float32{3, 4}
	if got := cosine(q, norm(q), []float32{6, 8}); got < 0.9999 || got > 1.0001 {
		t.Errorf("parallel vectors: got %v, want 1", got)
	}
	if got := cosine(q, norm(q), []float32{-4, 3}); got != 0 {
		t.Errorf("orthogonal vectors: got %v, want 0", got)
	}
	zero := []float32{0, 0}
	if got := cosine(zero, norm(zero), q); got != 0 {
		t.Errorf("zero query: got %v, want 0", got)
	}
}
