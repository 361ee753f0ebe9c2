package auth

import (
	"encoding/json"
	"net/http"
)

const HeaderServiceToken = "X-Service-Token"

// Middleware rejects requests without a valid X-Service-Token when mgr is enabled
// and stores the authenticated subject in the request context.
func Middleware(mgr *Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mgr.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		subject, ok := mgr.AuthenticateServiceToken(r.Context(), r.Header.Get(HeaderServiceToken))
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid service token"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}
