package observability

import (
	"context"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
)

func TestSetupSentry_EmptyDSNIsNoOp(t *testing.T) {
	shutdown, err := SetupSentry(SentryOptions{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupSentry_InvalidDSN(t *testing.T) {
	if _, err := SetupSentry(SentryOptions{DSN: "not a dsn"}); err == nil {
		t.Fatalf("expected error for malformed DSN")
	}
}

func TestSetupSentry_ConfiguresHub(t *testing.T) {
	t.Cleanup(func() { _ = sentry.Init(sentry.ClientOptions{}) })

	shutdown, err := SetupSentry(SentryOptions{
		DSN:          "https://public@sentry.example.com/1",
		Environment:  "staging",
		Release:      "go-ai-chat@1.0.0",
		FlushTimeout: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	opts := sentry.CurrentHub().Client().Options()
	if opts.Environment != "staging" || opts.Release != "go-ai-chat@1.0.0" || opts.EnableTracing {
		t.Fatalf("unexpected client options: env=%q release=%q tracing=%v", opts.Environment, opts.Release, opts.EnableTracing)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
