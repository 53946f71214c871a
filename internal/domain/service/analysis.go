package service

import (
	"context"
	"time"
)

// AnalysisProvider submits a prompt to one natural-language analysis backend
// and returns its raw text response. The response is expected to contain a
// verdict-shaped JSON payload; parsing happens at the consensus boundary.
// Provider-specific quirks (model discovery, special headers) stay behind
// this interface.
type AnalysisProvider interface {
	Name() string
	// Ready reports whether the provider is usable (e.g. an API key is
	// configured). Unready providers are skipped, not counted as failures.
	Ready() bool
	Submit(ctx context.Context, prompt string) (string, error)
}

// Clock is an injectable wall-time source for deterministic tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// NotificationSink delivers best-effort, fire-and-forget notifications.
type NotificationSink interface {
	Notify(ctx context.Context, title, body string)
}
