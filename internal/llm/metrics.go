package llm

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for llm_requests_total.
const (
	OutcomeOK            = "ok"
	OutcomeError         = "error"
	OutcomeTimeout       = "timeout"
	OutcomeNotConfigured = "not_configured"
)

var (
	llmRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of chat-completion calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// Only calls that reached the provider are observed.
	llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of chat-completion calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(llmRequests, llmLatency)
}

type instrumented struct{ next Completer }

// Instrument wraps c so every call is counted and timed.
func Instrument(c Completer) Completer {
	if _, ok := c.(instrumented); ok {
		return c
	}
	return instrumented{next: c}
}

func (i instrumented) Provider() string { return i.next.Provider() }

func (i instrumented) Complete(ctx context.Context, msgs []Message, p Params) (string, error) {
	start := time.Now()
	out, err := i.next.Complete(ctx, msgs, p)

	outcome := classify(ctx, err)
	llmRequests.WithLabelValues(i.Provider(), outcome).Inc()
	if outcome != OutcomeNotConfigured {
		llmLatency.WithLabelValues(i.Provider()).Observe(time.Since(start).Seconds())
	}
	return out, err
}

func classify(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}
