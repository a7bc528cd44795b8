package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-ai-chat/internal/config"
)

var (
	completionReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Completion calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	// Provider latency is dominated by generation time; buckets reach past the default timeout.
	completionLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "completion_request_duration_seconds",
			Help:    "Duration of completion calls in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(completionReqs, completionLat)
}

// New builds the gateway selected by cfg.Provider, wrapped with a per-call
// timeout, Prometheus metrics, and an OpenTelemetry span.
func New(cfg config.AIConfig) (Gateway, error) {
	p, ok := LookupPreset(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
	}
	p = resolve(p, cfg)

	var inner Gateway
	switch p.Name {
	case ProviderGemini:
		inner = NewGemini(p, cfg.APIKey)
	default:
		inner = NewOpenAICompatible(p, cfg.APIKey, cfg.Referer, cfg.AppTitle, &http.Client{})
	}
	return Instrument(inner, p.Name, cfg.Timeout), nil
}

// Instrumented decorates a Gateway with a timeout, metrics, and tracing.
type Instrumented struct {
	next    Gateway
	name    string
	timeout time.Duration
}

// Instrument wraps next. A non-positive timeout leaves the caller's deadline alone.
func Instrument(next Gateway, name string, timeout time.Duration) *Instrumented {
	return &Instrumented{next: next, name: name, timeout: timeout}
}

// Provider implements Gateway.
func (g *Instrumented) Provider() string { return g.next.Provider() }

// Models implements Gateway.
func (g *Instrumented) Models() []Model { return g.next.Models() }

// Complete implements Gateway.
func (g *Instrumented) Complete(ctx context.Context, userMessage string, history []Turn, modelID string) (string, error) {
	tr := otel.Tracer("completion")
	ctx, span := tr.Start(ctx, "Complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("completion.provider", g.name),
			attribute.String("completion.model", modelID),
			attribute.Int("completion.history_len", len(history)),
		),
	)
	defer span.End()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := g.next.Complete(ctx, userMessage, history, modelID)
	completionLat.WithLabelValues(g.name).Observe(time.Since(start).Seconds())
	completionReqs.WithLabelValues(g.name, outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
		return "", err
	}
	return text, nil
}

// Close closes the wrapped gateway when it holds resources.
func (g *Instrumented) Close() error {
	if c, ok := g.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
