package geminisdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"google.golang.org/api/option"
)

// generator is the slice of the genai client this driver needs.
type generator interface {
	Generate(ctx context.Context, model string, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	Close() error
}

type clientGenerator struct{ c *genai.Client }

func (g clientGenerator) Generate(ctx context.Context, model string, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return g.c.GenerativeModel(model).GenerateContent(ctx, parts...)
}

func (g clientGenerator) Close() error { return g.c.Close() }

// Provider implements application.gateway.Provider on top of the official Go SDK.
// Responses are re-encoded to the REST wire shape so extraction is driver agnostic.
type Provider struct {
	gen     generator
	timeout time.Duration
}

// NewProvider dials the SDK client. endpoint may be the same versioned base
// URL the REST driver takes; the SDK adds the API version itself.
// A zero timeout means 60s.
func NewProvider(ctx context.Context, apiKey, endpoint string, timeout time.Duration) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if ep := sdkEndpoint(endpoint); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini sdk init: %w", err)
	}
	return &Provider{gen: clientGenerator{c: c}, timeout: timeout}, nil
}

// sdkEndpoint strips a trailing API version segment.
func sdkEndpoint(endpoint string) string {
	ep := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	for _, version := range []string{"/v1beta", "/v1"} {
		if strings.HasSuffix(ep, version) {
			return strings.TrimSuffix(ep, version)
		}
	}
	return ep
}

func (p *Provider) Close() error {
	if p == nil || p.gen == nil {
		return nil
	}
	return p.gen.Close()
}

func (p *Provider) GenerateContent(ctx context.Context, payload generation.Payload) (generation.RawResponse, error) {
	if payload.Model == "" {
		return nil, generation.InvalidArgument("model is required")
	}
	parts, err := toSDKParts(payload)
	if err != nil {
		return nil, err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.gen.Generate(ctx, payload.Model, parts...)
	if err != nil {
		return nil, err
	}
	return toWire(resp)
}

func toSDKParts(payload generation.Payload) ([]genai.Part, error) {
	var parts []genai.Part
	for _, c := range payload.Contents {
		for _, p := range c.Parts {
			if p.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, generation.InvalidArgument("inline data is not base64")
				}
				parts = append(parts, genai.Blob{MIMEType: p.InlineData.MIMEType, Data: data})
				continue
			}
			parts = append(parts, genai.Text(p.Text))
		}
	}
	return parts, nil
}

type wirePart struct {
	Text       *string                `json:"text,omitempty"`
	InlineData *generation.InlineData `json:"inlineData,omitempty"`
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireCandidate struct {
	Index   int32        `json:"index"`
	Content *wireContent `json:"content,omitempty"`
}

type wireUsage struct {
	PromptTokenCount     int32 `json:"promptTokenCount"`
	CandidatesTokenCount int32 `json:"candidatesTokenCount"`
	TotalTokenCount      int32 `json:"totalTokenCount"`
}

type wireResponse struct {
	Candidates    []wireCandidate `json:"candidates"`
	UsageMetadata *wireUsage      `json:"usageMetadata,omitempty"`
}

func toWire(resp *genai.GenerateContentResponse) (generation.RawResponse, error) {
	out := wireResponse{Candidates: []wireCandidate{}}
	if resp == nil {
		return json.Marshal(out)
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		wc := wireCandidate{Index: c.Index}
		if c.Content != nil {
			content := &wireContent{Role: c.Content.Role, Parts: []wirePart{}}
			for _, part := range c.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					s := string(v)
					content.Parts = append(content.Parts, wirePart{Text: &s})
				case genai.Blob:
					content.Parts = append(content.Parts, wirePart{InlineData: &generation.InlineData{
						MIMEType: v.MIMEType,
						Data:     base64.StdEncoding.EncodeToString(v.Data),
					}})
				}
			}
			wc.Content = content
		}
		out.Candidates = append(out.Candidates, wc)
	}
	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &wireUsage{
			PromptTokenCount:     u.PromptTokenCount,
			CandidatesTokenCount: u.CandidatesTokenCount,
			TotalTokenCount:      u.TotalTokenCount,
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return generation.RawResponse(b), nil
}
