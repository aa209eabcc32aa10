package backend

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"fjacquet/spendlog/internal/pipelineerror"
)

// Guarded decorates a Backend with a per-call timeout and a request rate limit,
// and labels any untyped failure as ProviderUnavailable.
type Guarded struct {
	inner   Backend
	timeout time.Duration
	limiter *rate.Limiter
}

var _ Backend = (*Guarded)(nil)

// Guard wraps b. A zero timeout disables the deadline; requestsPerMinute <= 0
// disables rate limiting.
func Guard(b Backend, timeout time.Duration, requestsPerMinute int) *Guarded {
	g := &Guarded{inner: b, timeout: timeout}
	if requestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
	}
	return g
}

// Unwrap returns the decorated backend.
func (g *Guarded) Unwrap() Backend { return g.inner }

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) ExtractFromImage(ctx context.Context, image []byte, mimeType, hint string, categories []string) (string, error) {
	return g.call(ctx, "extract_image", func(ctx context.Context) (string, error) {
		return g.inner.ExtractFromImage(ctx, image, mimeType, hint, categories)
	})
}

func (g *Guarded) ExtractFromText(ctx context.Context, text, hint string, categories []string) (string, error) {
	return g.call(ctx, "extract_text", func(ctx context.Context) (string, error) {
		return g.inner.ExtractFromText(ctx, text, hint, categories)
	})
}

func (g *Guarded) TranscribeAudio(ctx context.Context, audioPath string) (string, error) {
	return g.call(ctx, "transcribe", func(ctx context.Context) (string, error) {
		return g.inner.TranscribeAudio(ctx, audioPath)
	})
}

// CheckHealth applies the timeout but bypasses the rate limit.
func (g *Guarded) CheckHealth(ctx context.Context) HealthStatus {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.inner.CheckHealth(ctx)
}

func (g *Guarded) call(ctx context.Context, op string, fn func(context.Context) (string, error)) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", &pipelineerror.ProviderUnavailableError{Backend: g.Name(), Op: op, Err: err}
		}
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	out, err := fn(ctx)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &pipelineerror.ProviderUnavailableError{Backend: g.Name(), Op: op, Err: context.DeadlineExceeded}
	}
	if pipelineerror.IsTyped(err) {
		return "", err
	}
	return "", &pipelineerror.ProviderUnavailableError{Backend: g.Name(), Op: op, Err: err}
}

func (g *Guarded) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
