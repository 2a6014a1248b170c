package report

import (
	"context"

	"github.com/bbbkawaii/toyclaw-sub000/internal/domain/genai"
)

// Backend is the text-generation contract.
type Backend interface {
	GenerateContent(ctx context.Context, req *genai.Request) (*genai.Response, error)
}
