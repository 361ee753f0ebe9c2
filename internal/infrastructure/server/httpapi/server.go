package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/auth"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/health"
	"github.com/poly-workshop/gemini-gateway/internal/infrastructure/metrics"
)

type Server struct {
	httpListen string
	handler    http.Handler
}

func New(httpListen string, h *Handlers, authMgr *auth.Manager, ready health.ReadyzChecker) (*Server, error) {
	if httpListen == "" {
		return nil, fmt.Errorf("http listen address is empty")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are nil")
	}

	gw := runtime.NewServeMux(
		runtime.WithRoutingErrorHandler(func(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, httpStatus int) {
			writeError(w, httpStatus, http.StatusText(httpStatus))
		}),
	)
	if err := gw.HandlePath(http.MethodPost, RouteText, adapt(h.GenerateText)); err != nil {
		return nil, fmt.Errorf("register %s: %w", RouteText, err)
	}
	for _, route := range FileRoutes {
		if err := gw.HandlePath(http.MethodPost, route.Path, adapt(h.GenerateFromFile(route))); err != nil {
			return nil, fmt.Errorf("register %s: %w", route.Path, err)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", health.Livez)
	mux.HandleFunc("/readyz", health.Readyz(ready))
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", auth.Middleware(authMgr, gw))

	return &Server{httpListen: httpListen, handler: requestID(observe(mux))}, nil
}

func adapt(fn http.HandlerFunc) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		fn(w, r)
	}
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.httpListen,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", s.httpListen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
