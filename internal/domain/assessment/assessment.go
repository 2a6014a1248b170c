package assessment

import (
	"fmt"
	"time"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

// Assessment is a persisted compliance assessment (immutable value object).
type Assessment struct {
	id                string
	requestID         string
	targetMarket      market.Market
	report            report.Report
	retrievedChunkIDs []string
	createdAt         time.Time
}

// New validates and creates an Assessment. The report must pass schema validation.
func New(
	id, requestID string, m market.Market, r report.Report, chunkIDs []string, createdAt time.Time,
) (Assessment, error) {
	if id == "" {
		return Assessment{}, fmt.Errorf("assessment ID is required")
	}
	if requestID == "" {
		return Assessment{}, fmt.Errorf("request ID is required")
	}
	if err := r.Validate(); err != nil {
		return Assessment{}, err
	}
	ids := make([]string, len(chunkIDs))
	copy(ids, chunkIDs)
	return Assessment{
		id:                id,
		requestID:         requestID,
		targetMarket:      m,
		report:            r,
		retrievedChunkIDs: ids,
		createdAt:         createdAt.UTC(),
	}, nil
}

// Reconstruct creates an Assessment without validation (storage hydration).
func Reconstruct(
	id, requestID string, m market.Market, r report.Report, chunkIDs []string, createdAt time.Time,
) Assessment {
	return Assessment{
		id: id, requestID: requestID, targetMarket: m, report: r,
		retrievedChunkIDs: chunkIDs, createdAt: createdAt,
	}
}

// ID returns the assessment identifier.
func (a *Assessment) ID() string { return a.id }

// RequestID returns the upstream analysis request the assessment belongs to.
func (a *Assessment) RequestID() string { return a.requestID }

// TargetMarket returns the assessed market.
func (a *Assessment) TargetMarket() market.Market { return a.targetMarket }

// Summary returns the report summary.
func (a *Assessment) Summary() string { return a.report.Summary }

// Report returns the validated report.
func (a *Assessment) Report() report.Report { return a.report }

// RetrievedChunkIDs returns the provenance chunk IDs used for grounding.
func (a *Assessment) RetrievedChunkIDs() []string { return a.retrievedChunkIDs }

// CreatedAt returns the creation time (UTC).
func (a *Assessment) CreatedAt() time.Time { return a.createdAt }
