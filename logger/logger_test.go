package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"empty defaults to info", "", zapcore.InfoLevel, false},
		{"debug", "debug", zapcore.DebugLevel, false},
		{"upper case", "WARN", zapcore.WarnLevel, false},
		{"unknown", "loud", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitialize(t *testing.T) {
	original := Logger
	t.Cleanup(func() { Logger = original })

	require.NoError(t, Initialize(false, "debug"))
	assert.False(t, JSONOutput)
	assert.NotNil(t, Named("test"))

	assert.Error(t, Initialize(true, "nope"))
}
