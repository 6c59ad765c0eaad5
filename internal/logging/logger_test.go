package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.LoggingConfig
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"json debug", domain.LoggingConfig{Level: "debug", Format: "json", Output: "discard"}, logrus.DebugLevel, true},
		{"text warn", domain.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"}, logrus.WarnLevel, false},
		{"unknown level", domain.LoggingConfig{Level: "loud", Output: "discard"}, logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())

			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "avis.log")

	logger, err := New(domain.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.WithField("rule", "SAFETY_METFORMIN_STOP").Info("Rule fired")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"Rule fired"`)
	assert.Contains(t, string(data), `"rule":"SAFETY_METFORMIN_STOP"`)
}

func TestNewRejectsUnwritableFile(t *testing.T) {
	_, err := New(domain.LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "avis.log")})
	assert.Error(t, err)
}
