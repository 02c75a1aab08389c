package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		info, debug string
		want        zapcore.Level
	}{
		{"", "", zapcore.WarnLevel},
		{"1", "", zapcore.InfoLevel},
		{"", "1", zapcore.DebugLevel},
		{"1", "1", zapcore.DebugLevel},
		{"yes", "", zapcore.WarnLevel},
	}
	for _, tt := range tests {
		t.Setenv("INFO", tt.info)
		t.Setenv("DEBUG", tt.debug)
		assert.Equal(t, tt.want, Level(), "INFO=%q DEBUG=%q", tt.info, tt.debug)
	}
}

func TestNewVerbose(t *testing.T) {
	t.Setenv("INFO", "")
	t.Setenv("DEBUG", "")

	log, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = New(Options{Verbose: true})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWritesFile(t *testing.T) {
	t.Setenv("INFO", "")
	t.Setenv("DEBUG", "")
	path := filepath.Join(t.TempDir(), "logs", "truetime.log")

	log, err := New(Options{Verbose: true, File: path})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
