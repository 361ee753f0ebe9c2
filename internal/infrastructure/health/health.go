package health

import (
	"context"
	"net/http"
	"time"
)

func Livez(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type ReadyzChecker func(ctx context.Context) error

func Readyz(check ReadyzChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := check(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

type Prober interface {
	Probe() error
}

// StagingReadyChecker reports ready once the upload dir accepts writes.
func StagingReadyChecker(p Prober) ReadyzChecker {
	return func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return p.Probe()
	}
}
