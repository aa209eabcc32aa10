package vertex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/spendlog/internal/backend"
)

func TestNew_RequiresProject(t *testing.T) {
	_, err := New(context.Background(), Config{Location: "europe-west1"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project")
}

func TestGenerationConfig(t *testing.T) {
	cfg := generationConfig()
	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Equal(t, backend.SystemInstruction, cfg.SystemInstruction.Parts[0].Text)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.1, *cfg.Temperature, 1e-6)
}
