// Package ingest builds the compliance vector index from a tree of
// market-scoped regulatory documents.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/index"
)

var (
	// ErrSourceMissing signals a source directory that does not exist.
	ErrSourceMissing = errors.New("source directory missing")
	// ErrEmptyDocument signals a document with no extractable text.
	ErrEmptyDocument = errors.New("document has no extractable text")
)

// documentPattern selects the files ingested under each market folder.
const documentPattern = "**/*.{pdf,PDF,txt,md,markdown}"

// Builder defaults.
const (
	DefaultBatchSize  = 20
	DefaultBatchDelay = 500 * time.Millisecond
	DefaultWorkers    = 4
)

// NoBatchDelay disables the pause between embedding batches.
const NoBatchDelay time.Duration = -1

// Document is a source file assigned to a market by its top-level folder.
type Document struct {
	Path   string
	Name   string // path relative to the market folder, slash-separated
	Market market.Market
}

// Config tunes embedding batches and extraction concurrency.
type Config struct {
	BatchSize      int
	BatchDelay     time.Duration
	Workers        int
	EmbeddingModel string
}

// Stats summarizes a build.
type Stats struct {
	Documents int
	Skipped   int
	Chunks    int
	Dimension int
}

// Builder runs discovery, chunking, embedding and persistence.
type Builder struct {
	embedder  domain.Embedder
	chunker   *Chunker
	limiter   *rate.Limiter
	batchSize int
	workers   int
	model     string
	logger    *zap.Logger
	now       func() time.Time
}

// NewBuilder creates a Builder. Zero BatchSize, BatchDelay and Workers take
// the package defaults; a negative BatchDelay disables the inter-batch delay.
func NewBuilder(e domain.Embedder, c *Chunker, cfg Config, logger *zap.Logger) *Builder {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = DefaultBatchDelay
	}
	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}
	if c == nil {
		c = NewChunker()
	}
	return &Builder{
		embedder:  e,
		chunker:   c,
		limiter:   rate.NewLimiter(limit, 1),
		batchSize: cfg.BatchSize,
		workers:   cfg.Workers,
		model:     cfg.EmbeddingModel,
		logger:    logger,
		now:       time.Now,
	}
}

// Discover lists source documents under source/<market-folder>/. Folders that
// map to no market are skipped with a warning.
func Discover(source string, logger *zap.Logger) ([]Document, error) {
	st, err := os.Stat(source)
	if err != nil || !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, source)
	}
	entries, err := os.ReadDir(source)
	if err != nil {
		return nil, fmt.Errorf("read source dir %s: %w", source, err)
	}

	var docs []Document
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, ok := market.FromFolder(e.Name())
		if !ok {
			logger.Warn("Skipping unmapped folder", zap.String("folder", e.Name()))
			continue
		}
		root := filepath.Join(source, e.Name())
		matches, err := doublestar.FilepathGlob(filepath.Join(root, documentPattern))
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", root, err)
		}
		sort.Strings(matches)
		for _, p := range matches {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", p, err)
			}
			docs = append(docs, Document{Path: p, Name: filepath.ToSlash(rel), Market: m})
		}
	}
	return docs, nil
}

// ExtractAndChunk extracts one document's text and splits it into chunks.
func (b *Builder) ExtractAndChunk(ctx context.Context, doc Document) ([]chunk.Chunk, error) {
	text, err := Extract(ctx, doc.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Path)
	}
	return b.chunker.Chunk(text, string(doc.Market), doc.Name), nil
}

// ChunkAll extracts documents concurrently. Failed or empty documents are
// logged and skipped; the result keeps document order.
func (b *Builder) ChunkAll(ctx context.Context, docs []Document) ([]chunk.Chunk, Stats, error) {
	perDoc := make([][]chunk.Chunk, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, doc := range docs {
		g.Go(func() error {
			chunks, err := b.ExtractAndChunk(gctx, doc)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				b.logger.Warn("Skipping document", zap.String("path", doc.Path), zap.Error(err))
				return nil
			}
			if len(chunks) == 0 {
				b.logger.Warn("Document produced no chunks", zap.String("path", doc.Path))
			}
			perDoc[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("extract documents: %w", err)
	}

	var (
		all   []chunk.Chunk
		stats Stats
	)
	for _, chunks := range perDoc {
		if len(chunks) == 0 {
			stats.Skipped++
			continue
		}
		stats.Documents++
		all = append(all, chunks...)
	}
	stats.Chunks = len(all)
	return all, stats, nil
}

// EmbedAll embeds chunk texts in fixed-size batches, waiting on the rate
// limiter before each batch. Any batch failure aborts the run.
func (b *Builder) EmbedAll(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	out := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for batch %d: %w", start/b.batchSize, err)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text()
		}
		res, err := domain.EmbedBatch(ctx, b.embedder, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d (chunks %d-%d): %w", start/b.batchSize, start, end-1, err)
		}
		if len(res.Embeddings) != len(texts) {
			return nil, fmt.Errorf("embed batch %d: got %d embeddings for %d texts",
				start/b.batchSize, len(res.Embeddings), len(texts))
		}
		out = append(out, res.Embeddings...)
		b.logger.Info("Embedded batch",
			zap.Int("batch", start/b.batchSize),
			zap.Int("done", end),
			zap.Int("total", len(chunks)),
		)
	}
	return out, nil
}

// Persist writes the index artifacts to dir.
func (b *Builder) Persist(dir string, chunks []chunk.Chunk, embeddings [][]float32, docCount int) (*index.Index, error) {
	ix, err := index.New(chunks, embeddings, index.Manifest{
		Version:        index.Version,
		CreatedAt:      b.now().UTC(),
		DocCount:       docCount,
		EmbeddingModel: b.model,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble index: %w", err)
	}
	if err := index.Write(dir, ix); err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	return ix, nil
}

// Build runs the whole pipeline. Nothing is written unless every batch succeeds.
func (b *Builder) Build(ctx context.Context, source, out string) (Stats, error) {
	docs, err := Discover(source, b.logger)
	if err != nil {
		return Stats{}, err
	}
	b.logger.Info("Discovered documents", zap.Int("count", len(docs)), zap.String("source", source))

	chunks, stats, err := b.ChunkAll(ctx, docs)
	if err != nil {
		return Stats{}, err
	}
	embeddings, err := b.EmbedAll(ctx, chunks)
	if err != nil {
		return Stats{}, err
	}
	ix, err := b.Persist(out, chunks, embeddings, stats.Documents)
	if err != nil {
		return Stats{}, err
	}
	stats.Dimension = ix.Dim()
	return stats, nil
}
