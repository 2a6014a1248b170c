package compliance

import (
	"context"

	domanalysis "github.com/bbbkawaii/toyclaw-sub000/internal/domain/analysis"
	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/chunk"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	domreport "github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

// AnalysisReader looks up upstream product analyses.
type AnalysisReader interface {
	FindByRequestID(ctx context.Context, requestID string) (domanalysis.Record, error)
}

// Repository persists assessments.
type Repository interface {
	Create(ctx context.Context, a *domassess.Assessment) error
	FindByID(ctx context.Context, id string) (domassess.Assessment, error)
}

// Retriever returns market-scoped regulatory excerpts for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, m market.Market, topK int) ([]chunk.Retrieved, error)
}

// Generator produces a validated report from features and excerpts.
type Generator interface {
	Generate(
		ctx context.Context, features domanalysis.Features, m market.Market, excerpts []string,
	) (*domreport.Report, error)
}
