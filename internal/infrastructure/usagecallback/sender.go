package usagecallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
)

// EventUsage is the event name posted for every successful generation.
const EventUsage = "llm.usage"

type Sender struct {
	client  *http.Client
	timeout time.Duration
}

func New(client *http.Client, timeout time.Duration) *Sender {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &Sender{client: client, timeout: timeout}
}

type Payload struct {
	Event            string `json:"event"`
	Subject          string `json:"subject,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
	Operation        string `json:"operation"`
	Model            string `json:"model"`
	PromptTokens     uint32 `json:"prompt_tokens"`
	CandidatesTokens uint32 `json:"candidates_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
	OccurredAtUnix   int64  `json:"occurred_at_unix"`
}

// PayloadFrom maps one successful generation on route to a usage event.
func PayloadFrom(subject, requestID, route string, res generation.Result, at time.Time) Payload {
	return Payload{
		Event:            EventUsage,
		Subject:          subject,
		RequestID:        requestID,
		Operation:        route,
		Model:            res.Model,
		PromptTokens:     res.Usage.PromptTokens,
		CandidatesTokens: res.Usage.CandidatesTokens,
		TotalTokens:      res.Usage.TotalTokens,
		OccurredAtUnix:   at.Unix(),
	}
}

func (s *Sender) Send(ctx context.Context, url string, payload Payload) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("usage callback sender not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("usage callback non-2xx: %s", resp.Status)
	}
	return nil
}

// Notifier posts usage events to one URL in the background.
type Notifier struct {
	sender *Sender
	url    string
}

// NewNotifier returns nil when url is empty; a nil Notifier drops every event.
func NewNotifier(url string, timeout time.Duration) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{sender: New(nil, timeout), url: url}
}

// Notify sends p on its own goroutine, detached from any request context.
// done, when non-nil, receives the send result.
func (n *Notifier) Notify(p Payload, done chan<- error) {
	if n == nil {
		return
	}
	go func() {
		err := n.sender.Send(context.Background(), n.url, p)
		if err != nil {
			slog.Warn("usage callback failed", "url", n.url, "op", p.Operation, "request_id", p.RequestID, "error", err)
		}
		if done != nil {
			done <- err
		}
	}()
}
