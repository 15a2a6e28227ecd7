package logger

import (
	"lms_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		mode, level string
		want        zap.AtomicLevel
	}{
		{"debug", "error", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"release", "warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"release", "bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range cases {
		cfg := &config.Config{}
		cfg.Server.Mode = tc.mode
		cfg.Log.Level = tc.level
		assert.Equal(t, tc.want.Level(), levelFor(cfg), "mode=%s level=%s", tc.mode, tc.level)
	}
}

func TestApplyConfigChangesLevel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Mode = "release"
	cfg.Log.Level = "error"
	ApplyConfig(cfg)
	assert.False(t, level.Enabled(zap.InfoLevel))

	cfg.Log.Level = "info"
	ApplyConfig(cfg)
	assert.True(t, level.Enabled(zap.InfoLevel))
}
