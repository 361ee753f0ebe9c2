package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
)

func TestProvider_GenerateContent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash:generateContent" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-goog-api-key"); got != "testkey" {
			t.Fatalf("unexpected api key header: %q", got)
		}
		var req struct {
			Contents []struct {
				Parts []map[string]any `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected contents: %+v", req.Contents)
		}
		if req.Contents[0].Parts[0]["text"] != "Describe the following image:" {
			t.Fatalf("unexpected text part: %#v", req.Contents[0].Parts[0])
		}
		inline, _ := req.Contents[0].Parts[1]["inlineData"].(map[string]any)
		if inline["mimeType"] != "image/jpeg" || inline["data"] != "aGk=" {
			t.Fatalf("unexpected inline part: %#v", req.Contents[0].Parts[1])
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "candidates":[{"content":{"parts":[{"text":"A cat."}],"role":"model"},"finishReason":"STOP"}],
  "usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2,"totalTokenCount":3}
}`))
	}))
	t.Cleanup(srv.Close)

	p := NewProvider(srv.URL, "testkey", 2*time.Second)
	raw, err := p.GenerateContent(context.Background(), generation.Payload{
		Model: "gemini-2.5-flash",
		Contents: []generation.Content{{Parts: []generation.Part{
			{Text: "Describe the following image:"},
			{InlineData: &generation.InlineData{MIMEType: "image/jpeg", Data: "aGk="}},
		}}},
	})
	if err != nil {
		t.Fatalf("GenerateContent error: %v", err)
	}
	if !strings.Contains(string(raw), `"A cat."`) {
		t.Fatalf("unexpected raw response: %s", raw)
	}
}

func TestProvider_GenerateContentErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "google error envelope",
			status:  http.StatusBadRequest,
			body:    `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			wantMsg: "gemini http 400: API key not valid. Please pass a valid API key.",
		},
		{
			name:    "plain body",
			status:  http.StatusBadGateway,
			body:    "upstream down\n",
			wantMsg: "gemini http 502: upstream down",
		},
		{
			name:    "empty body",
			status:  http.StatusServiceUnavailable,
			body:    "",
			wantMsg: "gemini http 503: 503 Service Unavailable",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			_, err := NewProvider(srv.URL, "k", time.Second).GenerateContent(context.Background(), generation.Payload{Model: "m"})
			if err == nil || err.Error() != tc.wantMsg {
				t.Fatalf("unexpected error: %v, want %q", err, tc.wantMsg)
			}
		})
	}
}

func TestProvider_MissingKeyAndModel(t *testing.T) {
	t.Parallel()

	if _, err := NewProvider("http://127.0.0.1:0", "", time.Second).GenerateContent(context.Background(), generation.Payload{Model: "m"}); err == nil {
		t.Fatalf("expected error for empty api key")
	}
	if _, err := NewProvider("http://127.0.0.1:0", "k", time.Second).GenerateContent(context.Background(), generation.Payload{}); err == nil {
		t.Fatalf("expected error for empty model")
	}
}

func TestProvider_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewProvider(url, "k", time.Second).GenerateContent(context.Background(), generation.Payload{Model: "m"})
	if err == nil {
		t.Fatalf("expected network error")
	}
}
