package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
	"github.com/bbbkawaii/toyclaw-sub000/internal/logger"
	healthuc "github.com/bbbkawaii/toyclaw-sub000/internal/usecase/health"
)

const (
	maxBodyBytes = 1 << 20

	headerEmbeddingTokens = "X-Embedding-Tokens"
)

// ComplianceService runs and serves assessments.
type ComplianceService interface {
	Assess(ctx context.Context, requestID, targetMarket string) (domassess.Assessment, error)
	Get(ctx context.Context, id string) (domassess.Assessment, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers for the compliance API.
type Server struct {
	compliance ComplianceService
	health     HealthChecker
	logger     *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(compliance ComplianceService, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{compliance: compliance, health: health, logger: logger}
}

// Mount registers the API routes on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1/compliance/assessments", func(r chi.Router) {
		r.Post("/", s.CreateAssessment)
		r.Get("/{assessmentId}", s.GetAssessment)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, &domain.AppError{Code: "NOT_FOUND", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, &domain.AppError{Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"})
	})
}

// CreateAssessment handles POST /api/v1/compliance/assessments.
func (s *Server) CreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssessmentRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.handleDomainError(w, r, fmt.Errorf("%w: invalid request body: %v", domain.ErrValidation, err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	a, err := s.compliance.Assess(ctx, req.RequestID, req.TargetMarket)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if usage.Used {
		w.Header().Set(headerEmbeddingTokens, strconv.Itoa(usage.TotalTokens))
	}
	w.Header().Set("Location", "/api/v1/compliance/assessments/"+a.ID())
	writeJSON(w, http.StatusCreated, assessmentToResponse(&a))
}

// GetAssessment handles GET /api/v1/compliance/assessments/{assessmentId}.
func (s *Server) GetAssessment(w http.ResponseWriter, r *http.Request) {
	a, err := s.compliance.Get(r.Context(), chi.URLParam(r, "assessmentId"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessmentToResponse(&a))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, e *domain.AppError) {
	writeJSON(w, status, ErrorResponse{Code: e.Code, Message: e.Message, Details: e.Details})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := domain.Normalize(err)
	log := logger.FromContextOr(r.Context(), s.logger)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("code", string(appErr.Code)), zap.Error(err))
	} else {
		log.Warn("domain error", zap.String("code", string(appErr.Code)), zap.Error(err))
	}
	writeError(w, appErr.Status, appErr)
}
