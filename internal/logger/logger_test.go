package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"

	"github.com/scan-io-git/scanio-audit/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want hclog.Level
	}{
		{"TRACE", hclog.Trace},
		{"DEBUG", hclog.Debug},
		{"INFO", hclog.Info},
		{"WARN", hclog.Warn},
		{"ERROR", hclog.Error},
		{"", hclog.Info},
		{"LOUD", hclog.Info},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestDetermineLogLevelPrefersEnv(t *testing.T) {
	cfg := config.Default()
	cfg.Logger.Level = "error"

	t.Setenv("SCANIO_LOG_LEVEL", "debug")
	assert.Equal(t, hclog.Debug, determineLogLevel(cfg))

	t.Setenv("SCANIO_LOG_LEVEL", "")
	assert.Equal(t, hclog.Error, determineLogLevel(cfg))
}

func TestNewLoggerWithOutput(t *testing.T) {
	t.Setenv("SCANIO_LOG_LEVEL", "")
	cfg := config.Default()
	cfg.Logger.Level = "WARN"

	var buf bytes.Buffer
	log := NewLoggerWithOutput(cfg, "audit", &buf)
	log.Info("hidden")
	log.Warn("shown", "file", "a.py")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "audit: shown: file=a.py")
}

func TestNewScreenLogger(t *testing.T) {
	t.Setenv("SCANIO_LOG_LEVEL", "")
	assert.True(t, isTerminalOutput("STDERR"))
	assert.True(t, isTerminalOutput(""))
	assert.False(t, isTerminalOutput("/tmp/audit.log"))

	cfg := config.Default()
	cfg.Logger.Output = filepath.Join(t.TempDir(), "audit.log")
	NewScreenLogger(cfg, "audit").Info("written", "file", "a.py")

	data, err := os.ReadFile(cfg.Logger.Output)
	assert.NoError(t, err)
	assert.Contains(t, string(data), "audit: written: file=a.py")
}
