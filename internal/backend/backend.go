// Package backend defines the capability contract every AI completion vendor
// implements, and the registry that selects between them at runtime.
package backend

import (
	"context"
	"time"
)

// Backend turns raw media into extraction text. Implementations return the raw
// model output unparsed; the normalizer owns decoding.
type Backend interface {
	// Name is the registry key of the backend, e.g. "gemini".
	Name() string

	// ExtractFromImage asks the model for transactions visible in an image.
	ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error)

	// ExtractFromText asks the model for transactions described in text.
	ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error)

	// TranscribeAudio converts a voice note on disk to plain text. Any copy
	// uploaded to the vendor must be removed before returning.
	TranscribeAudio(ctx context.Context, audioPath string) (string, error)

	// CheckHealth probes the vendor. It never returns an error; failures are
	// reported in the status.
	CheckHealth(ctx context.Context) HealthStatus
}

// HealthStatus is the result of one health probe.
type HealthStatus struct {
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Detail    string        `json:"detail,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Probe runs fn and converts its error into a HealthStatus.
func Probe(ctx context.Context, fn func(ctx context.Context) error) HealthStatus {
	start := time.Now()
	err := fn(ctx)
	status := HealthStatus{
		Healthy:   err == nil,
		Latency:   time.Since(start),
		CheckedAt: start.UTC(),
	}
	if err != nil {
		status.Detail = err.Error()
	}
	return status
}
