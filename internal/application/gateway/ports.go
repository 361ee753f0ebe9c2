package gateway

import (
	"context"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
)

// Provider is an application port for the upstream generative-AI provider (e.g. Gemini).
// Implementations live in infrastructure.
type Provider interface {
	GenerateContent(ctx context.Context, payload generation.Payload) (generation.RawResponse, error)
}
