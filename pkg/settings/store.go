package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/code-100-precent/LingTalk/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists Settings. Load never fails: an unavailable or empty store
// yields Defaults and a warning.
type Store interface {
	Load(ctx context.Context) Settings
	Save(ctx context.Context, s Settings) error
}

type checkedLoader interface {
	loadChecked(ctx context.Context) (Settings, bool)
}

// GormStore keeps Settings as one JSON row in voice_settings.
type GormStore struct {
	db     *gorm.DB
	key    string
	logger *zap.Logger
}

func NewGormStore(db *gorm.DB, logger *zap.Logger) *GormStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{db: db, key: models.KeyVoiceSettings, logger: logger}
}

func (g *GormStore) Load(ctx context.Context) Settings {
	s, _ := g.loadChecked(ctx)
	return s
}

// loadChecked reports false when the result is a fallback for an unreadable
// store rather than what the store holds.
func (g *GormStore) loadChecked(ctx context.Context) (Settings, bool) {
	row, err := models.GetVoiceSetting(g.db.WithContext(ctx), g.key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Defaults(), true
		}
		g.logger.Warn("[Settings] store unavailable, using defaults", zap.Error(err))
		return Defaults(), false
	}

	s, err := decode(row.Value)
	if err != nil {
		g.logger.Warn("[Settings] stored value unreadable, using defaults", zap.Error(err))
		return Defaults(), false
	}
	return s, true
}

func (g *GormStore) Save(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	raw, err := encode(s)
	if err != nil {
		return err
	}
	if err := models.SaveVoiceSetting(g.db.WithContext(ctx), g.key, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func encode(s Settings) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(raw string) (Settings, error) {
	var s Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}
