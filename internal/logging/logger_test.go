package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	l, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, l)

	l, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, NewDefaultConfig().Validate())

	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Fields = map[string]string{"env": ""}
	assert.Error(t, cfg.Validate())
}

func TestNewWithSinkWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithSink(NewDefaultConfig(), zapcore.AddSync(&buf))
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("estimate complete", zap.Int("items", 3))
	require.NoError(t, logger.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "estimate complete", entry["msg"])
	assert.Equal(t, "scopequote", entry["service"])
	assert.Equal(t, float64(3), entry["items"])
	assert.Contains(t, entry, "ts")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}
