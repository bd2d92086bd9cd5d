package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

type broadsheetInvalidator interface {
	Invalidate(ctx context.Context, patterns ...string) error
}

// SettingsService manages per-hub grading configuration.
type SettingsService struct {
	store     schoolStore
	cache     broadsheetInvalidator
	locks     *HubLocks
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewSettingsService constructs the settings service.
func NewSettingsService(store schoolStore, cache broadsheetInvalidator, locks *HubLocks, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewHubLocks()
	}
	return &SettingsService{store: store, cache: cache, locks: locks, validator: validate, logger: logger, now: time.Now}
}

// Get returns the hub's settings.
func (s *SettingsService) Get(ctx context.Context, hubID string) (*models.Settings, error) {
	settings, err := s.store.Settings(ctx, hubID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "institution settings not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

// Update replaces the hub's settings after structural and grading validation.
func (s *SettingsService) Update(ctx context.Context, hubID string, settings models.Settings) (*models.Settings, error) {
	if err := s.validator.Struct(settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := configFor(settings).Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidConfiguration.Code, appErrors.ErrInvalidConfiguration.Status, err.Error())
	}
	if len(settings.CommittedSeries) == 0 {
		settings.CommittedSeries = append([]string(nil), models.DefaultSeries...)
	}
	if settings.ActiveSeries == "" {
		settings.ActiveSeries = settings.CommittedSeries[0]
	}
	if _, err := resolveSeries(settings, settings.ActiveSeries); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(hubID)
	defer unlock()

	if _, err := s.Get(ctx, hubID); err != nil {
		return nil, err
	}
	settings.SchoolName = strings.TrimSpace(settings.SchoolName)
	settings.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, hubID, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	s.invalidate(ctx, hubID)
	s.logger.Info("settings updated", zap.String("hub_id", hubID))
	return &settings, nil
}

// SetActiveSeries switches the series used for score entry and views.
func (s *SettingsService) SetActiveSeries(ctx context.Context, hubID, series string) (*models.Settings, error) {
	series = strings.TrimSpace(series)
	if series == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "series is required")
	}

	unlock := s.locks.Lock(hubID)
	defer unlock()

	settings, err := s.Get(ctx, hubID)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveSeries(*settings, series)
	if err != nil {
		return nil, err
	}
	settings.ActiveSeries = resolved
	settings.UpdatedAt = s.now().UTC()
	if err := s.store.SaveSettings(ctx, hubID, *settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	s.logger.Info("active series changed", zap.String("hub_id", hubID), zap.String("series", resolved))
	return settings, nil
}

// ResetData wipes the hub's students and facilitator assignments. Settings and
// credentials are kept.
func (s *SettingsService) ResetData(ctx context.Context, hubID string) error {
	unlock := s.locks.Lock(hubID)
	defer unlock()

	if _, err := s.Get(ctx, hubID); err != nil {
		return err
	}
	if err := s.store.DeleteSchoolData(ctx, hubID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset institution data")
	}
	s.invalidate(ctx, hubID, networkCachePattern)
	s.logger.Warn("institution data reset", zap.String("hub_id", hubID))
	return nil
}

func (s *SettingsService) invalidate(ctx context.Context, hubID string, extra ...string) {
	if s.cache == nil {
		return
	}
	patterns := append([]string{broadsheetPattern(hubID)}, extra...)
	if err := s.cache.Invalidate(ctx, patterns...); err != nil {
		s.logger.Warn("cache invalidation failed", zap.String("hub_id", hubID), zap.Error(err))
	}
}
