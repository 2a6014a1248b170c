// Package compliance orchestrates a compliance assessment: analysis lookup,
// retrieval, report generation and persistence.
package compliance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domanalysis "github.com/bbbkawaii/toyclaw-sub000/internal/domain/analysis"
	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/market"
	"github.com/bbbkawaii/toyclaw-sub000/internal/logger"
	"github.com/bbbkawaii/toyclaw-sub000/internal/metrics"
)

// DefaultTopK is the number of excerpts retrieved per assessment.
const DefaultTopK = 10

const queryPrefix = "toy safety compliance requirements for "

// Option configures a Service.
type Option func(*Service)

// WithTopK overrides DefaultTopK.
func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// Service runs and serves compliance assessments.
type Service struct {
	analyses  AnalysisReader
	repo      Repository
	retriever Retriever
	generator Generator
	topK      int
	now       func() time.Time
	newID     func() string
}

// New creates a compliance service.
func New(
	analyses AnalysisReader, repo Repository, retriever Retriever, generator Generator, opts ...Option,
) *Service {
	s := &Service{
		analyses:  analyses,
		repo:      repo,
		retriever: retriever,
		generator: generator,
		topK:      DefaultTopK,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assess produces and persists a new assessment for requestID in targetMarket.
// Repeated calls create new assessments.
func (s *Service) Assess(ctx context.Context, requestID, targetMarket string) (a domassess.Assessment, err error) {
	label := "INVALID"
	defer func() {
		code := "OK"
		if err != nil {
			code = string(domain.Normalize(err).Code)
		}
		metrics.AssessmentsTotal.WithLabelValues(label, code).Inc()
	}()

	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return domassess.Assessment{}, fmt.Errorf("%w: requestId is required", domain.ErrValidation)
	}
	m, err := market.Parse(targetMarket)
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	label = string(m)

	rec, err := s.analyses.FindByRequestID(ctx, requestID)
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("find analysis: %w", err)
	}
	if !rec.Ready() {
		return domassess.Assessment{}, fmt.Errorf("analysis %s is %s: %w", requestID, rec.Status, domain.ErrAnalysisNotReady)
	}
	features := *rec.Features

	retrieved, err := s.retriever.Retrieve(ctx, BuildQuery(m, features), m, s.topK)
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("retrieve excerpts: %w", err)
	}
	excerpts := make([]string, len(retrieved))
	chunkIDs := make([]string, len(retrieved))
	for i, r := range retrieved {
		excerpts[i] = r.Text()
		chunkIDs[i] = r.ID()
	}

	rep, err := s.generator.Generate(ctx, features, m, excerpts)
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("generate report: %w", err)
	}

	a, err = domassess.New(s.newID(), requestID, m, *rep, chunkIDs, s.now())
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("build assessment: %w", err)
	}
	if err = s.repo.Create(ctx, &a); err != nil {
		return domassess.Assessment{}, fmt.Errorf("save assessment: %w", err)
	}

	logger.FromContext(ctx).Info("Compliance assessment created",
		zap.String("assessment_id", a.ID()),
		zap.String("request_id", requestID),
		zap.String("market", string(m)),
		zap.Int("excerpts", len(chunkIDs)),
	)
	return a, nil
}

// Get returns a stored assessment. A stored report that no longer passes
// validation is reported as an internal error.
func (s *Service) Get(ctx context.Context, id string) (domassess.Assessment, error) {
	a, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domassess.Assessment{}, fmt.Errorf("find assessment: %w", err)
	}
	r := a.Report()
	if err := r.Validate(); err != nil {
		return domassess.Assessment{}, fmt.Errorf("stored assessment %s failed validation: %v", id, err)
	}
	return a, nil
}

// BuildQuery builds the retrieval query from the target market and product features.
func BuildQuery(m market.Market, f domanalysis.Features) string {
	parts := []string{queryPrefix + string(m)}
	if shape := strings.TrimSpace(f.Shape.Category); shape != "" {
		parts = append(parts, shape)
	}
	parts = append(parts, f.MaterialNames()...)
	parts = append(parts, f.ColorNames()...)
	parts = append(parts, f.StyleNames()...)
	return strings.Join(parts, " ")
}
