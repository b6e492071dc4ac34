package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestProductionConfig(t *testing.T) {
	cfg := ProductionConfig()
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, "info", cfg.Level)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"nil config", nil},
		{"console stdout", &Config{Level: "debug", Format: "console", Output: "stdout"}},
		{"json stderr", &Config{Level: "warn", Format: "json", Output: "stderr"}},
		{"empty output", &Config{Level: "error", Format: "json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crmsync.log")

	l, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("written to file", zap.String("job", "deal_sync"))
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"job":"deal_sync"`)
}

func TestNew_UnwritableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "crmsync.log")

	_, err := New(&Config{Output: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open log output")
}

func TestNewForEnvironment(t *testing.T) {
	for _, env := range []string{"production", "development", ""} {
		l, err := NewForEnvironment(env)
		require.NoError(t, err)
		assert.NotNil(t, l)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.level))
		})
	}
}

func TestForJob(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)

	ForJob(zap.New(core), "currency_sync", "run-1").Info("pass started")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "currency_sync", entries[0].LoggerName)
	fields := entries[0].ContextMap()
	assert.Equal(t, "currency_sync", fields["job"])
	assert.Equal(t, "run-1", fields["run_id"])
}

func TestCreateEncoder(t *testing.T) {
	entry := zapcore.Entry{Message: "hello", Level: zapcore.InfoLevel}

	jsonBuf, err := createEncoder(&Config{Format: "json", TimeFormat: defaultTimeFormat}).EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(jsonBuf.String(), "{"))

	consoleBuf, err := createEncoder(&Config{Format: "console", TimeFormat: defaultTimeFormat}).EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, consoleBuf.String(), "hello")
	assert.False(t, strings.HasPrefix(consoleBuf.String(), "{"))
}
