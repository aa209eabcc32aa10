package backend

import (
	"context"
	"sync"
)

// Fake is a scriptable in-memory Backend for tests and local runs.
type Fake struct {
	BackendName string

	// Response is returned by both extraction methods unless the matching
	// func field is set.
	Response      string
	Err           error
	Transcript    string
	TranscribeErr error
	Health        HealthStatus

	ExtractTextFunc  func(ctx context.Context, text, hint string, categories []string) (string, error)
	ExtractImageFunc func(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error)
	HealthFunc       func(ctx context.Context) HealthStatus

	mu    sync.Mutex
	calls []FakeCall
}

// FakeCall records one invocation of a Fake.
type FakeCall struct {
	Method     string
	Input      string
	Hint       string
	Categories []string
}

var _ Backend = (*Fake)(nil)

// NewFake returns a healthy Fake that answers every extraction with response.
func NewFake(name, response string) *Fake {
	return &Fake{BackendName: name, Response: response, Health: HealthStatus{Healthy: true}}
}

func (f *Fake) Name() string { return f.BackendName }

func (f *Fake) ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error) {
	f.record(FakeCall{Method: "image", Input: mimeType, Hint: hint, Categories: categories})
	if f.ExtractImageFunc != nil {
		return f.ExtractImageFunc(ctx, image, mimeType, hint, categories)
	}
	return f.Response, f.Err
}

func (f *Fake) ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error) {
	f.record(FakeCall{Method: "text", Input: text, Hint: hint, Categories: categories})
	if f.ExtractTextFunc != nil {
		return f.ExtractTextFunc(ctx, text, hint, categories)
	}
	return f.Response, f.Err
}

func (f *Fake) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	f.record(FakeCall{Method: "transcribe", Input: audioPath})
	return f.Transcript, f.TranscribeErr
}

func (f *Fake) CheckHealth(ctx context.Context) HealthStatus {
	if f.HealthFunc != nil {
		return f.HealthFunc(ctx)
	}
	return f.Health
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) record(c FakeCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}
