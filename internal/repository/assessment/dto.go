package assessment

import (
	"time"

	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

// record is the stored JSON form of an assessment.
type record struct {
	ID                string        `json:"assessmentId"`
	RequestID         string        `json:"requestId"`
	TargetMarket      string        `json:"targetMarket"`
	Summary           string        `json:"summary"`
	Report            report.Report `json:"report"`
	RetrievedChunkIDs []string      `json:"retrievedChunkIds"`
	CreatedAt         time.Time     `json:"createdAt"`
}

func toRecord(a *domassess.Assessment) record {
	return record{
		ID:                a.ID(),
		RequestID:         a.RequestID(),
		TargetMarket:      string(a.TargetMarket()),
		Summary:           a.Summary(),
		Report:            a.Report(),
		RetrievedChunkIDs: a.RetrievedChunkIDs(),
		CreatedAt:         a.CreatedAt(),
	}
}

func (r record) toDomain() domassess.Assessment {
	return domassess.Reconstruct(
		r.ID, r.RequestID, market.Market(r.TargetMarket), r.Report, r.RetrievedChunkIDs, r.CreatedAt,
	)
}
