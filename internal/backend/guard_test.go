package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/pipelineerror"
)

func TestGuard_PassesThroughSuccess(t *testing.T) {
	g := Guard(NewFake("gemini", `[{"amount":1}]`), time.Second, 0)
	out, err := g.ExtractFromText(context.Background(), "x", "", nil)
	require.NoError(t, err)
	assert.Equal(t, `[{"amount":1}]`, out)
	assert.Equal(t, "gemini", g.Name())
}

func TestGuard_LabelsUntypedErrors(t *testing.T) {
	fake := NewFake("gemini", "")
	fake.Err = errors.New("429 quota exceeded")
	g := Guard(fake, time.Second, 0)

	_, err := g.ExtractFromImage(context.Background(), []byte{1}, "image/png", "", nil)
	require.Error(t, err)

	var pu *pipelineerror.ProviderUnavailableError
	require.ErrorAs(t, err, &pu)
	assert.Equal(t, "gemini", pu.Backend)
	assert.Equal(t, "extract_image", pu.Op)
	assert.ErrorIs(t, err, fake.Err)
}

func TestGuard_PreservesTypedErrors(t *testing.T) {
	fake := NewFake("gigachat", "")
	fake.TranscribeErr = &pipelineerror.TranscriptionFailedError{Backend: "gigachat", Reason: "empty transcript"}
	g := Guard(fake, time.Second, 0)

	_, err := g.TranscribeAudio(context.Background(), "/tmp/a.ogg")
	assert.True(t, pipelineerror.IsTranscriptionFailed(err))
	assert.False(t, pipelineerror.IsProviderUnavailable(err))
}

func TestGuard_TimeoutBecomesProviderUnavailable(t *testing.T) {
	fake := NewFake("vertex", "")
	fake.ExtractTextFunc = func(ctx context.Context, text, hint string, categories []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	g := Guard(fake, 20*time.Millisecond, 0)

	start := time.Now()
	_, err := g.ExtractFromText(context.Background(), "x", "", nil)
	assert.Less(t, time.Since(start), time.Second)

	var pu *pipelineerror.ProviderUnavailableError
	require.ErrorAs(t, err, &pu)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuard_RateLimitHonoursCancellation(t *testing.T) {
	g := Guard(NewFake("gemini", "[]"), time.Second, 1)

	_, err := g.ExtractFromText(context.Background(), "first", "", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.ExtractFromText(ctx, "second", "", nil)
	assert.True(t, pipelineerror.IsProviderUnavailable(err))
}

func TestGuard_HealthBypassesLimiter(t *testing.T) {
	g := Guard(NewFake("gemini", "[]"), time.Second, 1)
	_, _ = g.ExtractFromText(context.Background(), "x", "", nil)

	status := g.CheckHealth(context.Background())
	assert.True(t, status.Healthy)
	assert.NotNil(t, g.Unwrap())
}
