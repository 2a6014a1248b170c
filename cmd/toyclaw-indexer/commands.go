package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/config"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/index"
	"github.com/bbbkawaii/toyclaw-sub000/internal/ingest"
	logpkg "github.com/bbbkawaii/toyclaw-sub000/internal/logger"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
	openaiEmb "github.com/bbbkawaii/toyclaw-sub000/internal/transport/openai"
	embeddinguc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/embedding"
	"github.com/bbbkawaii/toyclaw-sub000/internal/version"
)

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toyclaw-indexer",
		Short:         "Build and inspect the toy compliance vector index",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		buildCmd(),
		inspectCmd(),
	)

	return root
}

func buildCmd() *cobra.Command {
	var source, out string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Extract, chunk and embed regulatory documents into an index directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env := config.GetEnv()
			cfg, err := config.Load(env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if source == "" {
				source = cfg.Ingest.SourceDir
			}
			if out == "" {
				out = cfg.Index.Dir
			}
			if cfg.Embedding.APIKey == "" {
				return fmt.Errorf("embedding.api_key is required to build an index")
			}

			logger, err := logpkg.New(logpkg.Options{Env: env, Level: cfg.Logging.Level, Component: logpkg.ComponentIndexer})
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			metrics.Register()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runBuild(ctx, cmd.OutOrStdout(), cfg, source, out, logger)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source document tree (default: ingest.source_dir)")
	cmd.Flags().StringVar(&out, "out", "", "index output directory (default: index.dir)")

	return cmd
}

func runBuild(ctx context.Context, w io.Writer, cfg config.Config, source, out string, logger *zap.Logger) error {
	embedder := embeddinguc.NewInstrumentedEmbedder(
		openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.EmbeddingTimeout(),
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		}),
		cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.BatchSize, logger,
	)

	chunker := ingest.NewChunker(
		ingest.WithChunkSize(cfg.Ingest.ChunkSize),
		ingest.WithOverlap(cfg.Ingest.ChunkOverlap),
		ingest.WithMinLength(cfg.Ingest.MinChunkLength),
	)
	builder := ingest.NewBuilder(embedder, chunker, ingest.Config{
		BatchSize:      cfg.Embedding.BatchSize,
		BatchDelay:     time.Duration(cfg.Embedding.BatchDelayMs) * time.Millisecond,
		Workers:        cfg.Ingest.Workers,
		EmbeddingModel: cfg.Embedding.Model,
	}, logger)

	start := time.Now()
	stats, err := builder.Build(ctx, source, out)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	usage := embedder.Usage()
	logger.Info("Index built",
		zap.String("out", out),
		zap.Int("documents", stats.Documents),
		zap.Int("skipped", stats.Skipped),
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimension", stats.Dimension),
		zap.Int64("embedding_requests", usage.Requests),
		zap.Int64("embedding_tokens", usage.TotalTokens),
		zap.Duration("took", time.Since(start)),
	)
	_, _ = fmt.Fprintf(w, "indexed %d documents (%d skipped) into %d chunks, dim %d, %d tokens -> %s\n",
		stats.Documents, stats.Skipped, stats.Chunks, stats.Dimension, usage.TotalTokens, out)
	return nil
}

func inspectCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print manifest and market coverage of an index directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, err := config.Load(config.GetEnv())
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				dir = cfg.Index.Dir
			}
			return runInspect(cmd.OutOrStdout(), dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "index directory (default: index.dir)")

	return cmd
}

func runInspect(w io.Writer, dir string) error {
	ix, err := index.Read(dir)
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}

	m := ix.Manifest()
	_, _ = fmt.Fprintf(w, "format:     %s\n", ix.Format())
	_, _ = fmt.Fprintf(w, "version:    %d\n", m.Version)
	if !m.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "created:    %s\n", m.CreatedAt.Format(time.RFC3339))
	}
	if m.EmbeddingModel != "" {
		_, _ = fmt.Fprintf(w, "model:      %s\n", m.EmbeddingModel)
	}
	_, _ = fmt.Fprintf(w, "documents:  %d\n", m.DocCount)
	_, _ = fmt.Fprintf(w, "chunks:     %d\n", ix.Len())
	_, _ = fmt.Fprintf(w, "dimension:  %d\n", ix.Dim())

	counts := ix.MarketCounts()
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	_, _ = fmt.Fprintln(w, "markets:")
	for _, t := range tags {
		_, _ = fmt.Fprintf(w, "  %-16s %d\n", t, counts[t])
	}

	if unmatched := market.UnmatchedTags(tags); len(unmatched) > 0 {
		_, _ = fmt.Fprintf(w, "unreachable tags (no target market retrieves them): %v\n", unmatched)
	}
	return nil
}
