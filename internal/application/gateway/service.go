package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Service dispatches generation requests to a single provider under a fixed model.
// It should depend only on domain concepts (no HTTP / multipart / SDK types).
type Service struct {
	provider Provider
	model    string
}

func NewService(provider Provider, model string) *Service {
	if model == "" {
		model = DefaultModel
	}
	return &Service{provider: provider, model: model}
}

func (s *Service) Model() string { return s.model }

// Dispatch makes exactly one provider call. Provider failures come back as
// *generation.ProviderError carrying the cause's message.
func (s *Service) Dispatch(ctx context.Context, prompt string, att *generation.Attachment) (generation.Result, error) {
	if s.provider == nil {
		return generation.Result{}, &generation.ProviderError{Err: fmt.Errorf("no provider configured")}
	}

	raw, err := s.provider.GenerateContent(ctx, BuildPayload(s.model, prompt, att))
	if err != nil {
		return generation.Result{}, &generation.ProviderError{Err: err}
	}

	return generation.Result{
		Text:  Extract(raw),
		Model: s.model,
		Usage: ExtractUsage(raw),
	}, nil
}

// BuildPayload returns a single content item: the prompt, then the attachment
// as an inline Base64 part when present.
func BuildPayload(model, prompt string, att *generation.Attachment) generation.Payload {
	parts := make([]generation.Part, 0, 2)
	parts = append(parts, generation.Part{Text: prompt})
	if att != nil {
		parts = append(parts, generation.Part{
			InlineData: &generation.InlineData{
				MIMEType: att.MIMEType,
				Data:     base64.StdEncoding.EncodeToString(att.Data),
			},
		})
	}
	return generation.Payload{
		Model:    model,
		Contents: []generation.Content{{Parts: parts}},
	}
}
