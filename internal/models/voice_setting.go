package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// KeyVoiceSettings holds the JSON encoded tunables of the dialogue engine.
	KeyVoiceSettings = "voice.settings"
)

// VoiceSetting is a single persisted key/value record.
type VoiceSetting struct {
	BaseModel
	Key   string `json:"key" gorm:"size:64;uniqueIndex;not null"`
	Value string `json:"value" gorm:"type:text"`
}

func (VoiceSetting) TableName() string {
	return "voice_settings"
}

func keyEquals(key string) clause.Eq {
	return clause.Eq{Column: clause.Column{Name: "key"}, Value: key}
}

// GetVoiceSetting returns gorm.ErrRecordNotFound when the key was never saved.
func GetVoiceSetting(db *gorm.DB, key string) (*VoiceSetting, error) {
	var s VoiceSetting
	if err := db.Where(keyEquals(key)).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveVoiceSetting inserts or overwrites the value stored under key.
func SaveVoiceSetting(db *gorm.DB, key, value string) error {
	s := VoiceSetting{Key: key, Value: value}
	s.UpdatedAt = time.Now()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
}

// DeleteVoiceSetting removes key; missing keys are not an error.
func DeleteVoiceSetting(db *gorm.DB, key string) error {
	err := db.Where(keyEquals(key)).Delete(&VoiceSetting{}).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
