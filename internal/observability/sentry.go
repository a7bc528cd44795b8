package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures SetupSentry.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	// TracesSampleRate is forwarded to Sentry performance monitoring.
	TracesSampleRate float64
	// FlushTimeout bounds the final flush; 2s when zero.
	FlushTimeout time.Duration
}

// SetupSentry initializes the global Sentry hub used by middleware.Recovery.
// An empty DSN disables reporting and returns a no-op Shutdown.
func SetupSentry(opts SentryOptions) (Shutdown, error) {
	if opts.DSN == "" {
		return noopShutdown, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    opts.TracesSampleRate > 0,
		TracesSampleRate: opts.TracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return noopShutdown, err
	}

	timeout := opts.FlushTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(ctx context.Context) error {
		if deadline, ok := ctx.Deadline(); ok {
			if left := time.Until(deadline); left < timeout {
				timeout = left
			}
		}
		sentry.Flush(timeout)
		return nil
	}, nil
}
