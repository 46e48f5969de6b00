package bootstrap

import (
	"context"
	"testing"

	"github.com/code-100-precent/LingTalk/internal/models"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t testing.TB) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func TestSeedService_SeedAll(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, NewSeedService(db).SeedAll())

	store := settings.NewGormStore(db, nil)
	assert.Equal(t, settings.Defaults(), store.Load(context.Background()))
}

func TestSeedService_KeepsExistingSettings(t *testing.T) {
	db := setupTestDB(t)
	store := settings.NewGormStore(db, nil)
	custom := settings.Settings{VADThreshold: 0.08, SilenceTimeoutMs: 500, MinRecordingLengthMs: 600}
	require.NoError(t, store.Save(context.Background(), custom))

	require.NoError(t, NewSeedService(db).SeedAll())
	require.NoError(t, NewSeedService(db).SeedAll())
	assert.Equal(t, custom, store.Load(context.Background()))

	var count int64
	require.NoError(t, db.Model(&models.VoiceSetting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSeedService_DatabaseError(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// no migration: the table is missing
	assert.Error(t, NewSeedService(db).SeedAll())
}
