package log

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	l, err := New(Config{Level: "warn"})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_DefaultLevelIsInfo(t *testing.T) {
	l, err := New(Config{})
	require.NoError(t, err)

	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})

	assert.ErrorContains(t, err, `log level "loud"`)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "timesvc.log")
	l, err := New(Config{Level: "debug", File: path})
	require.NoError(t, err)

	l.Info("clock synced", zap.String("server", "pool.ntp.org"))
	_ = l.Sync() // stderr may not support fsync

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
	assert.Equal(t, "clock synced", entry["msg"])
	assert.Equal(t, "pool.ntp.org", entry["server"])
	assert.Equal(t, "info", entry["level"])
}
