package chi

import (
	"time"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain"
	domassess "github.com/bbbkawaii/toyclaw-sub000/internal/domain/assessment"
	domreport "github.com/bbbkawaii/toyclaw-sub000/internal/domain/report"
)

// codeUnauthorized is the transport-only code for rejected credentials.
const codeUnauthorized domain.Code = "UNAUTHORIZED"

// CreateAssessmentRequest is the POST /api/v1/compliance/assessments body.
type CreateAssessmentRequest struct {
	RequestID    string `json:"requestId"`
	TargetMarket string `json:"targetMarket"`
}

// AssessmentResponse is the wire form of a compliance assessment.
type AssessmentResponse struct {
	AssessmentID      string           `json:"assessmentId"`
	RequestID         string           `json:"requestId"`
	TargetMarket      string           `json:"targetMarket"`
	Summary           string           `json:"summary"`
	Report            domreport.Report `json:"report"`
	RetrievedChunkIDs []string         `json:"retrievedChunkIds"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    domain.Code    `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func assessmentToResponse(a *domassess.Assessment) AssessmentResponse {
	ids := a.RetrievedChunkIDs()
	if ids == nil {
		ids = []string{}
	}
	return AssessmentResponse{
		AssessmentID:      a.ID(),
		RequestID:         a.RequestID(),
		TargetMarket:      string(a.TargetMarket()),
		Summary:           a.Summary(),
		Report:            a.Report(),
		RetrievedChunkIDs: ids,
		CreatedAt:         a.CreatedAt(),
	}
}
