package database

import (
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorSelectsDriver(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(&config.DatabaseConfig{Driver: driver, Path: ":memory:"})
		require.NoError(t, err)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrateSeedsOnce(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, false)
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	var categories, badges int64
	db.Model(&model.Category{}).Count(&categories)
	db.Model(&model.Badge{}).Count(&badges)
	assert.Equal(t, int64(4), categories)
	assert.Equal(t, int64(4), badges)
}
