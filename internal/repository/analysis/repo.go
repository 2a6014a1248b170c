package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bbbkawaii/toyclaw-sub000/internal/db"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domanalysis "github.com/bbbkawaii/toyclaw-sub000/internal/domain/analysis"
)

// store is the consumer interface for analysis records (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Repo reads upstream product-analysis records written by the analysis pipeline.
type Repo struct {
	store  store
	prefix string
}

// New creates an analysis repository. An empty prefix uses domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// FindByRequestID returns the analysis record or domain.ErrAnalysisNotFound.
func (r *Repo) FindByRequestID(ctx context.Context, requestID string) (domanalysis.Record, error) {
	key := r.key(requestID)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domanalysis.Record{}, domain.ErrAnalysisNotFound
		}
		return domanalysis.Record{}, fmt.Errorf("get %s: %w", key, err)
	}
	var rec domanalysis.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domanalysis.Record{}, fmt.Errorf("decode %s: %w", key, err)
	}
	if rec.RequestID == "" {
		rec.RequestID = requestID
	}
	return rec, nil
}

// Save stores an analysis record under its request ID.
func (r *Repo) Save(ctx context.Context, rec domanalysis.Record) error {
	if rec.RequestID == "" {
		return fmt.Errorf("analysis record without requestId")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	if err := r.store.Set(ctx, r.key(rec.RequestID), data); err != nil {
		return fmt.Errorf("set analysis %s: %w", rec.RequestID, err)
	}
	return nil
}

// Seed loads a JSON array of analysis records from path and saves each one.
// It returns the number of records stored.
func (r *Repo) Seed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var recs []domanalysis.Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return 0, fmt.Errorf("decode seed file %s: %w", path, err)
	}
	for i, rec := range recs {
		if err := r.Save(ctx, rec); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}

func (r *Repo) key(requestID string) string {
	return r.prefix + "analysis:" + requestID
}
