package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level    string
		expected zap.AtomicLevel
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tt := range tests {
		l, err := New(tt.level, "console")
		require.NoError(t, err, tt.level)
		assert.True(t, l.Core().Enabled(tt.expected.Level()), tt.level)
		if tt.expected.Level() > zap.DebugLevel {
			assert.False(t, l.Core().Enabled(tt.expected.Level()-1), tt.level)
		}
	}
}

func TestNewRejectsUnknownEncoding(t *testing.T) {
	_, err := New("info", "xml")
	assert.Error(t, err)
}
