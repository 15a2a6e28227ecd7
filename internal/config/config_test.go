package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir string, doc map[string]interface{}) {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644))
}

func TestLoadConfigAppliesDefaultsAndUnits(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, map[string]interface{}{
		"database": map[string]interface{}{"driver": "sqlite", "path": ":memory:"},
		"jwt":      map[string]interface{}{"secret": "dev-secret", "expire_hours": 2},
		"storage":  map[string]interface{}{"type": "local", "local_path": filepath.Join(dir, "uploads")},
		"cors":     map[string]interface{}{"allowed_origins": []string{"http://localhost:3000"}},
	})

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 1000, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 500, cfg.Gamification.PointsPerLevel)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.DirExists(t, filepath.Join(dir, "uploads"))
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, map[string]interface{}{
		"server":   map[string]interface{}{"mode": "release"},
		"database": map[string]interface{}{"driver": "sqlite"},
		"jwt":      map[string]interface{}{"secret": "short"},
		"storage":  map[string]interface{}{"local_path": dir},
	})

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "JWT secret is too short")
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database:     DatabaseConfig{Driver: "oracle"},
		Gamification: GamificationConfig{PointsPerLevel: 100},
	}
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "postgres"
	assert.NoError(t, cfg.Validate())

	cfg.Gamification.PointsPerLevel = 0
	assert.Error(t, cfg.Validate())
}
