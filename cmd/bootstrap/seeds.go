package bootstrap

import (
	"context"
	"errors"

	"github.com/code-100-precent/LingTalk/internal/models"
	"github.com/code-100-precent/LingTalk/pkg/logger"
	"github.com/code-100-precent/LingTalk/pkg/settings"
	"gorm.io/gorm"
)

type SeedService struct {
	db *gorm.DB
}

func NewSeedService(db *gorm.DB) *SeedService {
	return &SeedService{db: db}
}

func (s *SeedService) SeedAll() error {
	return s.seedVoiceSettings()
}

// seedVoiceSettings writes the default tunables unless a row already exists.
func (s *SeedService) seedVoiceSettings() error {
	_, err := models.GetVoiceSetting(s.db, models.KeyVoiceSettings)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return settings.NewGormStore(s.db, logger.Named("seed")).Save(context.Background(), settings.Defaults())
}
