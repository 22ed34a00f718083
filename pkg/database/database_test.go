package database

import (
	"path/filepath"
	"testing"

	"nsi_edu_backend/internal/config"
	"nsi_edu_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_SQLiteMigrate(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "nsi.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, m := range Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&model.UserBadge{}, "idx_user_badge"))
	assert.True(t, db.Migrator().HasIndex(&model.UserAchievement{}, "idx_user_achievement"))
	assert.True(t, db.Migrator().HasIndex(&model.HintUsage{}, "idx_user_hint"))
}

func TestInitDB_UnknownDriver(t *testing.T) {
	_, err := InitDB(&config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestInitRedis_Disabled(t *testing.T) {
	rdb, err := InitRedis(&config.RedisConfig{Enabled: false})
	assert.NoError(t, err)
	assert.Nil(t, rdb)
}
