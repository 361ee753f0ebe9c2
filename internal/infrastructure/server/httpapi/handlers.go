package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/staging"
)

const (
	RouteText     = "/generate-text"
	RouteImage    = "/generate-from-image"
	RouteDocument = "/generate-from-document"
	RouteAudio    = "/generate-from-audio"

	maxJSONBodyBytes = 1 << 20
	maxFieldBytes    = 1 << 20

	defaultMIMEType = "application/octet-stream"
)

// Dispatcher is satisfied by *gateway.Service.
type Dispatcher interface {
	Dispatch(ctx context.Context, prompt string, att *generation.Attachment) (generation.Result, error)
}

// UsageHook is called after every successful generation.
type UsageHook func(ctx context.Context, route string, res generation.Result)

// FileRoute describes one upload endpoint.
type FileRoute struct {
	Path          string
	Field         string
	DefaultPrompt string
}

var FileRoutes = []FileRoute{
	{Path: RouteImage, Field: "image", DefaultPrompt: "Describe the following image:"},
	{Path: RouteDocument, Field: "document", DefaultPrompt: "Summarize the following document:"},
	{Path: RouteAudio, Field: "audio", DefaultPrompt: "Transcribe and analyze the following audio:"},
}

type Handlers struct {
	dispatcher Dispatcher
	stager     *staging.Stager
	onUsage    UsageHook
}

func NewHandlers(dispatcher Dispatcher, stager *staging.Stager, onUsage UsageHook) *Handlers {
	return &Handlers{dispatcher: dispatcher, stager: stager, onUsage: onUsage}
}

func (h *Handlers) GenerateText(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt any `json:"prompt"`
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(&body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.fail(w, r, RouteText, generation.ErrUploadTooLarge)
		return
	}
	prompt, _ := body.Prompt.(string)
	if err != nil || prompt == "" {
		h.fail(w, r, RouteText, generation.InvalidArgument("prompt is required"))
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), prompt, nil)
	if err != nil {
		h.fail(w, r, RouteText, err)
		return
	}
	h.succeed(w, r, RouteText, res)
}

// GenerateFromFile returns the handler for one upload route.
func (h *Handlers) GenerateFromFile(route FileRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.generateFromFile(r, route)
		if err != nil {
			h.fail(w, r, route.Path, err)
			return
		}
		h.succeed(w, r, route.Path, res)
	}
}

// generateFromFile owns the staged file; it is released before the response is written.
func (h *Handlers) generateFromFile(r *http.Request, route FileRoute) (generation.Result, error) {
	prompt, f, err := h.stageUpload(r, route.Field)
	if err != nil {
		return generation.Result{}, err
	}
	if f == nil {
		return generation.Result{}, generation.InvalidArgument(route.Field + " file is required")
	}
	defer func() {
		if err := f.Release(); err != nil {
			slog.Error("release staged upload failed", "route", route.Path, "path", f.Path(), "error", err)
		}
	}()

	data, err := f.Read()
	if err != nil {
		return generation.Result{}, err
	}
	if prompt == nil {
		prompt = &route.DefaultPrompt
	}
	return h.dispatcher.Dispatch(r.Context(), *prompt, &generation.Attachment{MIMEType: f.MIMEType(), Data: data})
}

// stageUpload streams the multipart body, staging the first file under field.
// A nil prompt means the form had no prompt field. On error nothing stays staged.
func (h *Handlers) stageUpload(r *http.Request, field string) (prompt *string, f *staging.File, err error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, generation.InvalidArgument("invalid multipart form: " + err.Error())
	}
	defer func() {
		if err != nil {
			_ = f.Release()
			f = nil
		}
	}()

	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			return prompt, f, nil
		}
		if perr != nil {
			return nil, f, generation.InvalidArgument("invalid multipart form: " + perr.Error())
		}

		name := part.FormName()
		if part.FileName() != "" {
			if name != field || f != nil {
				_ = part.Close()
				return nil, f, generation.InvalidArgument("unexpected file field: " + name)
			}
			mimeType := part.Header.Get("Content-Type")
			if mimeType == "" {
				mimeType = defaultMIMEType
			}
			f, err = h.stager.Stage(part.FileName(), part, mimeType)
			_ = part.Close()
			if err != nil {
				return nil, nil, err
			}
			continue
		}

		if name == "prompt" && prompt == nil {
			b, rerr := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
			if rerr != nil {
				_ = part.Close()
				return nil, f, generation.InvalidArgument("invalid multipart form: " + rerr.Error())
			}
			if len(b) > maxFieldBytes {
				_ = part.Close()
				return nil, f, fmt.Errorf("%w: prompt field exceeds %d bytes", generation.ErrUploadTooLarge, maxFieldBytes)
			}
			s := string(b)
			prompt = &s
		}
		_ = part.Close()
	}
}

func (h *Handlers) succeed(w http.ResponseWriter, r *http.Request, route string, res generation.Result) {
	if h.onUsage != nil {
		h.onUsage(r.Context(), route, res)
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": res.Text})
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, route string, err error) {
	status, msg := statusFor(err)
	slog.Error("generate failed", "route", route, "request_id", RequestIDFromContext(r.Context()), "status", status, "error", err)
	writeError(w, status, msg)
}

// statusFor maps the error taxonomy to an HTTP status and caller-facing message.
func statusFor(err error) (int, string) {
	var pe *generation.ProviderError
	var se *generation.StagingError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.As(err, &pe):
		return http.StatusInternalServerError, pe.Error()
	case errors.As(err, &se):
		return http.StatusInternalServerError, se.Error()
	case errors.Is(err, generation.ErrInvalidArgument):
		return http.StatusBadRequest, trimSentinel(err, generation.ErrInvalidArgument)
	case errors.Is(err, generation.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, trimSentinel(err, generation.ErrUploadTooLarge)
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func trimSentinel(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
