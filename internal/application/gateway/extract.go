package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// ShapeMatcher reads the answer text from one known response layout.
type ShapeMatcher struct {
	Name string
	Path string // gjson path
}

// Matchers are tried in order; the first path that resolves to a non-null value wins.
// Add new provider layouts here.
var Matchers = []ShapeMatcher{
	{Name: "wrapped_parts", Path: "response.candidates.0.content.parts.0.text"},
	{Name: "parts", Path: "candidates.0.content.parts.0.text"},
	{Name: "wrapped_flat", Path: "response.candidates.0.content.text"},
	{Name: "flat", Path: "candidates.0.content.text"},
}

var usageRoots = []string{"usageMetadata", "response.usageMetadata"}

var fallbackOptions = &pretty.Options{Indent: "  "}

// Extract never fails. When no matcher applies it returns the whole input
// pretty-printed, so callers always get some text.
func Extract(resp any) string {
	js := toJSON(resp)
	for _, m := range Matchers {
		if r := gjson.GetBytes(js, m.Path); r.Exists() && r.Type != gjson.Null {
			return r.String()
		}
	}
	return string(bytes.TrimRight(pretty.PrettyOptions(js, fallbackOptions), "\n"))
}

// ExtractUsage reads token counts when the provider reports them. Missing fields are zero.
func ExtractUsage(resp any) generation.TokenUsage {
	js := toJSON(resp)
	for _, root := range usageRoots {
		u := gjson.GetBytes(js, root)
		if !u.IsObject() {
			continue
		}
		return generation.TokenUsage{
			PromptTokens:     uint32(u.Get("promptTokenCount").Uint()),
			CandidatesTokens: uint32(u.Get("candidatesTokenCount").Uint()),
			TotalTokens:      uint32(u.Get("totalTokenCount").Uint()),
		}
	}
	return generation.TokenUsage{}
}

func toJSON(resp any) []byte {
	switch v := resp.(type) {
	case nil:
		return []byte("null")
	case generation.RawResponse:
		return rawOrString(v)
	case json.RawMessage:
		return rawOrString(v)
	case []byte:
		return rawOrString(v)
	case string:
		return rawOrString([]byte(v))
	case proto.Message:
		if b, err := protojson.Marshal(v); err == nil {
			return b
		}
	}
	b, err := json.Marshal(resp)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%+v", resp))
	}
	return b
}

func rawOrString(b []byte) []byte {
	if gjson.ValidBytes(b) {
		return b
	}
	out, _ := json.Marshal(string(b))
	return out
}
