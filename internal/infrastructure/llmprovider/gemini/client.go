package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Provider implements application.gateway.Provider against the Gemini REST API.
type Provider struct {
	baseURL string
	apiKey  string

	httpClient *http.Client
}

func NewProvider(baseURL, apiKey string, timeout time.Duration) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateContent returns the response body unparsed; extraction happens in the application layer.
func (p *Provider) GenerateContent(ctx context.Context, payload generation.Payload) (generation.RawResponse, error) {
	if payload.Model == "" {
		return nil, generation.InvalidArgument("model is required")
	}
	u := p.baseURL + "/models/" + url.PathEscape(payload.Model) + ":generateContent"
	raw, err := p.doJSON(ctx, http.MethodPost, u, payload)
	if err != nil {
		return nil, err
	}
	return generation.RawResponse(raw), nil
}

func (p *Provider) doJSON(ctx context.Context, method, url string, in any) ([]byte, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}

	r, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini http %d: %s", resp.StatusCode, errorMessage(raw, resp.Status))
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("decode response: invalid json")
	}
	return raw, nil
}

// errorMessage prefers the Google API error envelope {"error":{"message":...}}.
func errorMessage(raw []byte, status string) string {
	if m := gjson.GetBytes(raw, "error.message"); m.Type == gjson.String && m.Str != "" {
		return m.Str
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return status
	}
	return msg
}
