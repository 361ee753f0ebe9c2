// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/poly-workshop/gemini-gateway/internal/application/gateway"
	"github.com/poly-workshop/gemini-gateway/internal/domain/generation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gemini_gateway"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route"},
	)

	ProviderCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_total",
			Help:      "Total number of provider generate calls",
		},
		[]string{"driver", "model", "status"},
	)

	ProviderCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Provider generate call duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"driver", "model"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "tokens_used_total",
			Help:      "Total tokens reported by the provider",
		},
		[]string{"model", "type"}, // type: prompt/candidates
	)
)

func Handler() http.Handler { return promhttp.Handler() }

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveUsage adds reported token counts for model.
func ObserveUsage(model string, u generation.TokenUsage) {
	if u.PromptTokens > 0 {
		TokensUsed.WithLabelValues(model, "prompt").Add(float64(u.PromptTokens))
	}
	if u.CandidatesTokens > 0 {
		TokensUsed.WithLabelValues(model, "candidates").Add(float64(u.CandidatesTokens))
	}
}

type instrumentedProvider struct {
	next   gateway.Provider
	driver string
}

// InstrumentProvider wraps p so each call is counted and timed.
func InstrumentProvider(p gateway.Provider, driver string) gateway.Provider {
	return &instrumentedProvider{next: p, driver: driver}
}

func (p *instrumentedProvider) GenerateContent(ctx context.Context, payload generation.Payload) (generation.RawResponse, error) {
	start := time.Now()
	raw, err := p.next.GenerateContent(ctx, payload)
	status := "ok"
	if err != nil {
		status = "error"
	}
	ProviderCallTotal.WithLabelValues(p.driver, payload.Model, status).Inc()
	ProviderCallDuration.WithLabelValues(p.driver, payload.Model).Observe(time.Since(start).Seconds())
	return raw, err
}
