package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupVoiceSettingTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestVoiceSetting_SaveAndGet(t *testing.T) {
	db := setupVoiceSettingTestDB(t)

	_, err := GetVoiceSetting(db, KeyVoiceSettings)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, SaveVoiceSetting(db, KeyVoiceSettings, `{"a":1}`))
	got, err := GetVoiceSetting(db, KeyVoiceSettings)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, got.Value)
	assert.NotZero(t, got.ID)
	assert.NotZero(t, got.CreatedAt)
}

func TestVoiceSetting_SaveOverwrites(t *testing.T) {
	db := setupVoiceSettingTestDB(t)

	require.NoError(t, SaveVoiceSetting(db, KeyVoiceSettings, "first"))
	require.NoError(t, SaveVoiceSetting(db, KeyVoiceSettings, "second"))

	var count int64
	require.NoError(t, db.Model(&VoiceSetting{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	got, err := GetVoiceSetting(db, KeyVoiceSettings)
	require.NoError(t, err)
	assert.Equal(t, "second", got.Value)
}

func TestVoiceSetting_Delete(t *testing.T) {
	db := setupVoiceSettingTestDB(t)

	require.NoError(t, SaveVoiceSetting(db, "k", "v"))
	require.NoError(t, DeleteVoiceSetting(db, "k"))
	require.NoError(t, DeleteVoiceSetting(db, "k"))

	_, err := GetVoiceSetting(db, "k")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
