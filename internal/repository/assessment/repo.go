package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bbbkawaii/toyclaw-sub000/internal/db"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
)

// store is the consumer interface for assessments (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte) error
}

// Repo implements usecase/compliance.AssessmentRepository.
type Repo struct {
	store  store
	prefix string
}

// New creates an assessment repository. An empty prefix uses domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Create persists a new assessment. Records are write-once.
func (r *Repo) Create(ctx context.Context, a *domassess.Assessment) error {
	data, err := json.Marshal(toRecord(a))
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	key := r.key(a.ID())
	if err := r.store.SetNX(ctx, key, data); err != nil {
		if errors.Is(err, db.ErrKeyExists) {
			return fmt.Errorf("assessment %s already stored: %w", a.ID(), err)
		}
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// FindByID returns a stored assessment or domain.ErrComplianceNotFound.
func (r *Repo) FindByID(ctx context.Context, id string) (domassess.Assessment, error) {
	key := r.key(id)
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domassess.Assessment{}, domain.ErrComplianceNotFound
		}
		return domassess.Assessment{}, fmt.Errorf("get %s: %w", key, err)
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domassess.Assessment{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return rec.toDomain(), nil
}

func (r *Repo) key(id string) string {
	return r.prefix + "assessment:" + id
}
