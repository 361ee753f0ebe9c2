package generation

import "encoding/json"

// Attachment is a single uploaded file forwarded to the provider inline.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// InlineData is a Base64 binary part tagged with its MIME type.
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// Part is one element of a content item. Exactly one of Text or InlineData is set.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// MarshalJSON keeps "text" on text parts even when the prompt is empty.
func (p Part) MarshalJSON() ([]byte, error) {
	if p.InlineData != nil {
		return json.Marshal(struct {
			InlineData *InlineData `json:"inlineData"`
		}{p.InlineData})
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{p.Text})
}

type Content struct {
	Parts []Part `json:"parts"`
}

// Payload is the provider wire request.
// Model is not serialized; drivers put it in the URL or SDK model handle.
type Payload struct {
	Model    string    `json:"-"`
	Contents []Content `json:"contents"`
}

// RawResponse is the provider response body as returned on the wire.
type RawResponse []byte

type TokenUsage struct {
	PromptTokens     uint32
	CandidatesTokens uint32
	TotalTokens      uint32
}

// Result is what survives a successful dispatch.
// Only Text is returned to the caller.
type Result struct {
	Text  string
	Model string
	Usage TokenUsage
}
