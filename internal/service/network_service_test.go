package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

const secondHub = "SSMAP-2026-0002"

// newNetworkFixture commits MOCK 1 at two hubs. The second hub's only pupil
// scores 60s, an aggregate of 30.
func newNetworkFixture(t *testing.T) (seriesFixture, *NetworkService) {
	t.Helper()
	f := newSeriesFixture()
	f.store.settings[secondHub] = testSettings()
	f.store.students[secondHub] = []models.Student{pupil(1, "Nana Agyei", 60, "MOCK 1")}
	f.store.registry = append(f.store.registry, models.RegistryEntry{
		ID:             secondHub,
		Name:           "Kumasi Hills JHS",
		Status:         models.InstitutionActive,
		EnrollmentDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	for _, hub := range []string{testHub, secondHub} {
		_, err := f.svc.Commit(context.Background(), hub, "MOCK 1")
		require.NoError(t, err)
	}
	return f, NewNetworkService(f.store, f.store, f.cache, time.Minute, nil)
}

func TestNetworkGlobalRanking(t *testing.T) {
	f, svc := newNetworkFixture(t)

	ranking, err := svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	assert.Equal(t, 2, ranking.Institutions)
	require.Len(t, ranking.Entries, 3)

	assert.Equal(t, "Kofi Boateng", ranking.Entries[0].Name)
	assert.Equal(t, 1, ranking.Entries[0].Rank)
	assert.Equal(t, "Ama Mensah", ranking.Entries[1].Name)
	assert.Equal(t, secondHub, ranking.Entries[2].InstitutionID)
	assert.Equal(t, 1, ranking.Entries[2].StudentID)
	assert.Equal(t, 30, ranking.Entries[2].Aggregate)
	assert.Equal(t, 3, ranking.Entries[2].Rank)

	assert.Contains(t, f.cache.keys(), "network:ranking:MOCK 1")
}

func TestNetworkGlobalRankingSkipsSuspended(t *testing.T) {
	f, svc := newNetworkFixture(t)
	_, err := f.registry.SetStatus(context.Background(), secondHub, models.StatusUpdateRequest{Status: models.InstitutionSuspended})
	require.NoError(t, err)

	ranking, err := svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	assert.Equal(t, 1, ranking.Institutions)
	assert.Len(t, ranking.Entries, 2)

	_, err = svc.GlobalRanking(context.Background(), "")
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestNetworkRankingDropsHubAfterSuspension(t *testing.T) {
	f, svc := newNetworkFixture(t)

	ranking, err := svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	require.Len(t, ranking.Entries, 3)

	_, err = f.registry.SetStatus(context.Background(), secondHub, models.StatusUpdateRequest{Status: models.InstitutionSuspended})
	require.NoError(t, err)
	assert.Contains(t, f.cache.invalidated, networkCachePattern)

	ranking, err = svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	assert.Equal(t, 1, ranking.Institutions)
	assert.Len(t, ranking.Entries, 2)

	_, err = svc.GlobalRankOf(context.Background(), secondHub, 1, "MOCK 1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNetworkRankingDropsPupilsAfterReset(t *testing.T) {
	f, svc := newNetworkFixture(t)
	settings := NewSettingsService(f.store, f.cache, nil, nil, nil)

	ranking, err := svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	require.Len(t, ranking.Entries, 3)

	require.NoError(t, settings.ResetData(context.Background(), secondHub))

	ranking, err = svc.GlobalRanking(context.Background(), "MOCK 1")
	require.NoError(t, err)
	require.Len(t, ranking.Entries, 2)
	for _, e := range ranking.Entries {
		assert.Equal(t, testHub, e.InstitutionID)
	}
}

func TestNetworkGlobalRankOf(t *testing.T) {
	_, svc := newNetworkFixture(t)

	entry, err := svc.GlobalRankOf(context.Background(), testHub, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Rank)

	entry, err = svc.GlobalRankOf(context.Background(), secondHub, 1, "MOCK 1")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Rank)

	_, err = svc.GlobalRankOf(context.Background(), testHub, 3, "MOCK 1")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNetworkSummary(t *testing.T) {
	_, svc := newNetworkFixture(t)

	summary, err := svc.NetworkSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Institutions)
	assert.Equal(t, 2, summary.Active)
	assert.Equal(t, 3, summary.Students)
	require.Len(t, summary.Schools, 2)

	first := summary.Schools[0]
	assert.Equal(t, testHub, first.HubID)
	assert.Equal(t, "MOCK 1", first.LatestSeries)
	assert.Equal(t, 47.22, first.Efficiency)
	require.NotNil(t, first.TopPupil)
	assert.Equal(t, "Kofi Boateng", first.TopPupil.Name)
}
