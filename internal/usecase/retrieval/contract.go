package retrieval

import (
	"context"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	"github.com/bbbkawaii/toyclaw-sub000/internal/index"
)

// Embedder vectorizes the retrieval query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Loader reads an index from a directory.
type Loader func(dir string) (*index.Index, error)
