// Package retrieval scores indexed regulatory chunks against a query and
// filters them to a target market.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/index"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
)

// DefaultTopK is the result bound when the caller passes topK <= 0.
const DefaultTopK = 10

// Option configures a Service.
type Option func(*Service)

// WithLoader replaces index.Read as the index source.
func WithLoader(l Loader) Option {
	return func(s *Service) { s.load = l }
}

// WithDefaultTopK overrides DefaultTopK.
func WithDefaultTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// Service holds the loaded index and answers market-scoped similarity queries.
// Load is single-writer; Retrieve reads the loaded index without locking.
type Service struct {
	dir    string
	embed  Embedder
	load   Loader
	topK   int
	logger *zap.Logger

	mu    sync.Mutex
	state atomic.Int32
	ix    atomic.Pointer[index.Index]
}

// New creates a retrieval service over the index in dir.
func New(dir string, embed Embedder, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		dir:    dir,
		embed:  embed,
		load:   index.Read,
		topK:   DefaultTopK,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the index lifecycle state.
func (s *Service) State() State { return State(s.state.Load()) }

// Loaded reports whether the index is in memory.
func (s *Service) Loaded() bool { return s.State() == Loaded }

// Index returns the loaded index, or nil before Load succeeds.
func (s *Service) Index() *index.Index { return s.ix.Load() }

// Load reads the index into memory. It is a no-op once loaded.
// A failed load leaves the service Unloaded so a later call can retry.
func (s *Service) Load(_ context.Context) error {
	if s.Loaded() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Loaded() {
		return nil
	}

	s.state.Store(int32(Loading))
	start := time.Now()

	ix, err := s.load(s.dir)
	if err != nil {
		s.state.Store(int32(Unloaded))
		return fmt.Errorf("load index: %w", err)
	}

	s.warnUnmatchedTags(ix)

	s.ix.Store(ix)
	s.state.Store(int32(Loaded))

	s.logger.Info("Compliance index loaded",
		zap.String("dir", s.dir),
		zap.String("format", string(ix.Format())),
		zap.Int("chunks", ix.Len()),
		zap.Int("dimension", ix.Dim()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// Retrieve returns up to topK chunks tagged for m (or one of its aliases),
// ordered by descending cosine similarity to query.
func (s *Service) Retrieve(
	ctx context.Context, query string, m market.Market, topK int,
) ([]chunk.Retrieved, error) {
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	ix := s.ix.Load()

	if topK <= 0 {
		topK = s.topK
	}

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if ix.Len() == 0 {
		return []chunk.Retrieved{}, nil
	}

	q := emb.Embedding
	if len(q) != ix.Dim() {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrEmbeddingDimMismatch, len(q), ix.Dim())
	}

	start := time.Now()
	results := score(ix, q, market.Matcher(m))
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	metrics.RetrievalDuration.Observe(time.Since(start).Seconds())
	metrics.RetrievalResults.WithLabelValues(string(m)).Observe(float64(len(results)))

	return results, nil
}

func score(ix *index.Index, q []float32, allowed map[string]struct{}) []chunk.Retrieved {
	qNorm := norm(q)
	out := make([]chunk.Retrieved, 0, ix.Len())
	for i := range ix.Len() {
		c := ix.Chunk(i)
		if _, ok := allowed[c.Market()]; !ok {
			continue
		}
		out = append(out, chunk.Retrieved{Chunk: c, Score: cosine(q, qNorm, ix.Vector(i))})
	}
	return out
}

func (s *Service) warnUnmatchedTags(ix *index.Index) {
	counts := ix.MarketCounts()
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	for _, t := range market.UnmatchedTags(tags) {
		s.logger.Warn("Index market tag matches no target market; its chunks are unreachable",
			zap.String("tag", t),
			zap.Int("chunks", counts[t]),
		)
	}
}
