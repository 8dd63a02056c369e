package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/solatis/canvasagent/internal/core/config"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "defaults", want: zapcore.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: zapcore.DebugLevel},
		{name: "upper case level", level: "WARN", format: "console", want: zapcore.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), config.TelemetryConfig{ServiceName: "canvasagent"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestExporterOptions(t *testing.T) {
	assert.Len(t, exporterOptions("http://collector:4318", false), 1)
	assert.Len(t, exporterOptions("collector:4318", true), 2)
}
