package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogrusAdapter(t *testing.T) {
	tests := []struct {
		name          string
		level         string
		format        string
		expectedLevel logrus.Level
	}{
		{"debug text", "debug", "text", logrus.DebugLevel},
		{"info json", "info", "json", logrus.InfoLevel},
		{"warn", "warn", "text", logrus.WarnLevel},
		{"error", "error", "json", logrus.ErrorLevel},
		{"invalid level defaults to info", "nonsense", "text", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogrusAdapter(tt.level, tt.format)
			adapter, ok := logger.(*LogrusAdapter)
			require.True(t, ok)
			assert.Equal(t, tt.expectedLevel, adapter.logger.GetLevel())
			if tt.format == "json" {
				assert.IsType(t, &logrus.JSONFormatter{}, adapter.logger.Formatter)
			} else {
				assert.IsType(t, &logrus.TextFormatter{}, adapter.logger.Formatter)
			}
		})
	}
}

func TestLogrusAdapter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("debug", "json", &buf)

	logger.Info("transaction saved",
		F(FieldTenantID, "t-1"),
		F(FieldMatchMethod, "synonym"),
		F(FieldCount, 2))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "transaction saved", decoded["msg"])
	assert.Equal(t, "t-1", decoded[FieldTenantID])
	assert.Equal(t, "synonym", decoded[FieldMatchMethod])
	assert.Equal(t, float64(2), decoded[FieldCount])
	assert.Equal(t, "info", decoded["level"])
}

func TestLogrusAdapter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("warn", "text", &buf)

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("visible warn")
	logger.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
}

func TestLogrusAdapter_ChainedContext(t *testing.T) {
	var buf bytes.Buffer
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(&buf)
	logrusLogger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	logger := NewLogrusAdapterFromLogger(logrusLogger)
	logger.
		WithField(FieldBackend, "gemini").
		WithFields(F(FieldOperation, "extract")).
		WithError(errors.New("quota exceeded")).
		Error("provider call failed")

	out := buf.String()
	assert.Contains(t, out, "provider call failed")
	assert.Contains(t, out, "gemini")
	assert.Contains(t, out, "extract")
	assert.Contains(t, out, "quota exceeded")
}

func TestLogrusAdapter_DerivedLoggerDoesNotLeak(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusAdapterWithOutput("info", "text", &buf)

	logger.WithField(FieldTenantID, "secret-tenant").Info("first")
	buf.Reset()
	logger.Info("second")

	assert.NotContains(t, buf.String(), "secret-tenant")
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Info("nothing")
		logger.WithError(errors.New("x")).Error("nothing")
	})
}

func TestMockLogger_SharedSink(t *testing.T) {
	root := NewMockLogger()
	derived := root.WithFields(F(FieldTenantID, "t-1")).WithError(errors.New("boom"))

	derived.Warn("derived warning", F(FieldCount, 1))
	root.Info("root info")

	entries := root.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.EqualError(t, entries[0].Error, "boom")
	assert.Equal(t, []Field{F(FieldTenantID, "t-1"), F(FieldCount, 1)}, entries[0].Fields)
	assert.True(t, root.HasEntry("INFO", "root info"))
	assert.Len(t, root.GetEntriesByLevel("WARN"), 1)
}

func TestMockLogger_ConcurrentWrites(t *testing.T) {
	root := NewMockLogger()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			root.WithField(FieldCandidateIndex, i).Info("write")
		}(i)
	}
	wg.Wait()
	assert.Len(t, root.GetEntries(), 50)
}

func TestLogrusAdapter_ImplementsInterface(t *testing.T) {
	var _ Logger = (*LogrusAdapter)(nil)
	var _ Logger = (*MockLogger)(nil)
}
