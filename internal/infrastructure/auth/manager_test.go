package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestManager_AuthenticateServiceToken(t *testing.T) {
	t.Parallel()

	m := NewManager([]ServiceToken{
		{Name: "web", Token: "t1"},
		{Token: "t2"},
		{Name: "ignored", Token: ""},
	})
	if !m.Enabled() {
		t.Fatalf("manager with tokens should be enabled")
	}

	cases := []struct {
		token   string
		subject string
		ok      bool
	}{
		{token: "t1", subject: "web", ok: true},
		{token: "t2", subject: "service", ok: true},
		{token: "", ok: false},
		{token: "nope", ok: false},
	}
	for _, tc := range cases {
		subject, ok := m.AuthenticateServiceToken(context.Background(), tc.token)
		if ok != tc.ok || subject != tc.subject {
			t.Fatalf("token %q: got (%q,%v), want (%q,%v)", tc.token, subject, ok, tc.subject, tc.ok)
		}
	}
}

func TestManager_Disabled(t *testing.T) {
	t.Parallel()

	m := NewManager([]ServiceToken{{Name: "empty"}})
	if m.Enabled() {
		t.Fatalf("manager without usable tokens should be disabled")
	}
	if _, ok := m.AuthenticateServiceToken(context.Background(), ""); !ok {
		t.Fatalf("disabled manager should admit everyone")
	}
	var nilMgr *Manager
	if nilMgr.Enabled() {
		t.Fatalf("nil manager should be disabled")
	}
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	var gotSubject string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(NewManager([]ServiceToken{{Name: "web", Token: "secret"}}), next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate-text", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"error\":\"invalid service token\"}\n" {
		t.Fatalf("unexpected body: %q", body)
	}

	req := httptest.NewRequest(http.MethodPost, "/generate-text", nil)
	req.Header.Set(HeaderServiceToken, "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || gotSubject != "web" {
		t.Fatalf("expected pass-through with subject, got %d subject=%q", rec.Code, gotSubject)
	}

	rec = httptest.NewRecorder()
	Middleware(nil, next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("nil manager should not block, got %d", rec.Code)
	}
}
