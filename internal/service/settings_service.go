package service

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"promptlime/internal/middleware"
	"promptlime/internal/models"
	"promptlime/internal/repository"
)

const maxAnnouncementLen = 1000

// SettingsService reads and writes admin-editable system settings.
type SettingsService struct {
	repo         repository.SettingRepository
	defaultLimit int
}

// NewSettingsService returns a SettingsService that falls back to
// defaultLimit when no free_copy_limit setting is stored.
func NewSettingsService(repo repository.SettingRepository, defaultLimit int) *SettingsService {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &SettingsService{repo: repo, defaultLimit: defaultLimit}
}

// FreeCopyLimit returns the effective monthly allowance for free users. A
// missing, unreadable or invalid setting yields the configured default.
func (s *SettingsService) FreeCopyLimit(ctx context.Context) int {
	raw, ok, err := s.repo.Get(ctx, models.SettingFreeCopyLimit)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "free copy limit lookup failed",
			slog.String("error", err.Error()))
		return s.defaultLimit
	}
	if !ok {
		return s.defaultLimit
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return s.defaultLimit
	}
	return n
}

// Announcement returns the site-wide banner text, if any.
func (s *SettingsService) Announcement(ctx context.Context) (string, error) {
	v, _, err := s.repo.Get(ctx, models.SettingAnnouncement)
	return v, err
}

// All returns every stored setting.
func (s *SettingsService) All(ctx context.Context) ([]models.SystemSetting, error) {
	settings, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		settings = []models.SystemSetting{}
	}
	return settings, nil
}

// Set validates and stores a known setting.
func (s *SettingsService) Set(ctx context.Context, key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case models.SettingFreeCopyLimit:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return models.NewValidationError("free_copy_limit must be a positive integer")
		}
		value = strconv.Itoa(n)
	case models.SettingAnnouncement:
		if len(value) > maxAnnouncementLen {
			return models.NewValidationError("announcement must be at most 1000 characters")
		}
	default:
		return models.NewValidationError("Unknown setting " + strconv.Quote(key))
	}
	return s.repo.Set(ctx, key, value)
}
