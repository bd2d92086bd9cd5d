package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

func TestSettingsUpdateInvalidatesBroadsheets(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	cache := newMemCache()
	svc := NewSettingsService(store, cache, nil, nil, nil)

	settings := testSettings()
	settings.SchoolName = "  Accra Model JHS "
	settings.HeadTeacher = "Mrs. Addo"
	updated, err := svc.Update(context.Background(), testHub, settings)
	require.NoError(t, err)

	assert.Equal(t, "Accra Model JHS", updated.SchoolName)
	assert.False(t, updated.UpdatedAt.IsZero())
	assert.Equal(t, "Mrs. Addo", store.settings[testHub].HeadTeacher)
	assert.Contains(t, cache.invalidated, broadsheetPattern(testHub))
}

func TestSettingsUpdateRejectsInconsistentGrading(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	svc := NewSettingsService(store, nil, nil, nil, nil)

	settings := testSettings()
	settings.GradingThresholds = []models.GradeBand{{Grade: 1, MinScore: 50}, {Grade: 2, MinScore: 70}}
	_, err := svc.Update(context.Background(), testHub, settings)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidConfiguration.Code, appErrors.FromError(err).Code)
}

func TestSettingsUpdateDefaultsSeries(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	svc := NewSettingsService(store, nil, nil, nil, nil)

	settings := testSettings()
	settings.CommittedSeries = nil
	settings.ActiveSeries = ""
	updated, err := svc.Update(context.Background(), testHub, settings)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSeries, updated.CommittedSeries)
	assert.Equal(t, "MOCK 1", updated.ActiveSeries)
}

func TestSettingsUpdateUnknownHub(t *testing.T) {
	svc := NewSettingsService(newMemStore(), nil, nil, nil, nil)
	_, err := svc.Update(context.Background(), testHub, testSettings())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSettingsSetActiveSeries(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	svc := NewSettingsService(store, nil, nil, nil, nil)

	updated, err := svc.SetActiveSeries(context.Background(), testHub, "MOCK 2")
	require.NoError(t, err)
	assert.Equal(t, "MOCK 2", updated.ActiveSeries)
	assert.Equal(t, "MOCK 2", store.settings[testHub].ActiveSeries)

	_, err = svc.SetActiveSeries(context.Background(), testHub, "MOCK 9")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.SetActiveSeries(context.Background(), testHub, " ")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSettingsResetDataKeepsSettings(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	cache := newMemCache()
	svc := NewSettingsService(store, cache, nil, nil, nil)

	require.NoError(t, svc.ResetData(context.Background(), testHub))
	assert.Empty(t, store.students[testHub])
	assert.Empty(t, store.facilitators[testHub])
	_, ok := store.settings[testHub]
	assert.True(t, ok)
	assert.Contains(t, cache.invalidated, broadsheetPattern(testHub))
	assert.Contains(t, cache.invalidated, networkCachePattern)
}
