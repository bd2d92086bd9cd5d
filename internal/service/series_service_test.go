package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ssmap-api/internal/events"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

type seriesFixture struct {
	store     *memStore
	cache     *memCache
	publisher *recordingPublisher
	registry  *RegistryService
	svc       *SeriesService
}

func newSeriesFixture() seriesFixture {
	store := newMemStore()
	seedHub(store)
	cache := newMemCache()
	publisher := &recordingPublisher{}
	registry := newTestRegistry(store)
	registry.cache = cache
	svc := NewSeriesService(store, registry, publisher, cache, NewMetricsService(), nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC) }
	return seriesFixture{store: store, cache: cache, publisher: publisher, registry: registry, svc: svc}
}

// addSecondSeries records MOCK 2 scores: Ama improves to 88s and Kofi drops to 72s.
func (f seriesFixture) addSecondSeries() {
	students := f.store.students[testHub]
	students[0].MockData["MOCK 2"] = pupil(1, "", 88, "MOCK 2").MockData["MOCK 2"]
	students[1].MockData["MOCK 2"] = pupil(2, "", 72, "MOCK 2").MockData["MOCK 2"]
}

func TestSeriesCommitFreezesHistory(t *testing.T) {
	f := newSeriesFixture()

	res, err := f.svc.Commit(context.Background(), testHub, "")
	require.NoError(t, err)
	assert.False(t, res.Recommitted)
	assert.Equal(t, "MOCK 1", res.Summary.Series)
	assert.Equal(t, 2, res.Summary.StudentCount)
	assert.Equal(t, 9.0, res.Summary.AvgAggregate)
	assert.Equal(t, 85.0, res.Summary.AvgComposite)

	students := f.store.studentsOf(testHub)
	rec, ok := students[1].SeriesHistory["MOCK 1"]
	require.True(t, ok)
	assert.Equal(t, 6, rec.Aggregate)
	assert.Equal(t, 1, rec.Rank)
	assert.Equal(t, 90.0, rec.SubScores["Mathematics"].Composite)
	assert.Equal(t, res.CommittedAt, rec.CommittedAt)
	_, ok = students[2].SeriesHistory["MOCK 1"]
	assert.False(t, ok, "students without scores are not committed")

	assert.Contains(t, f.cache.invalidated, broadsheetPattern(testHub))
	assert.Contains(t, f.cache.invalidated, networkCachePattern)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, testHub, f.publisher.events[0].HubID)
	assert.Equal(t, "MOCK 1", f.publisher.events[0].Series)
	assert.NotEmpty(t, f.publisher.events[0].EventID)

	entry, err := f.registry.Get(context.Background(), testHub)
	require.NoError(t, err)
	require.Len(t, entry.PerformanceHistory, 1)
	assert.Equal(t, 9.0, entry.AvgAggregate)

	again, err := f.svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
	assert.True(t, again.Recommitted)
}

func TestSeriesCommitRequiresScores(t *testing.T) {
	f := newSeriesFixture()
	_, err := f.svc.Commit(context.Background(), testHub, "MOCK 2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSeriesNotCommittable.Code, appErrors.FromError(err).Code)
	assert.Empty(t, f.publisher.events)
}

func TestSeriesCommitSurvivesPublishFailure(t *testing.T) {
	f := newSeriesFixture()
	f.publisher.err = errors.New("broker down")
	_, err := f.svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
}

func TestSeriesCommitWithoutPublisher(t *testing.T) {
	store := newMemStore()
	seedHub(store)
	svc := NewSeriesService(store, nil, nil, nil, nil, nil, nil)
	_, err := svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
	assert.IsType(t, events.NopPublisher{}, svc.publisher)
}

func TestSeriesTimelineAndGrowth(t *testing.T) {
	f := newSeriesFixture()
	_, err := f.svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
	f.addSecondSeries()
	_, err = f.svc.Commit(context.Background(), testHub, "MOCK 2")
	require.NoError(t, err)

	timeline, err := f.svc.Timeline(context.Background(), testHub, 1)
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, 12, timeline[0].Aggregate)
	assert.Equal(t, 6, timeline[1].Aggregate)
	assert.InDelta(t, 1.1, timeline[1].Growth, 0.0001)

	growth, err := f.svc.Growth(context.Background(), testHub, "MOCK 2", "")
	require.NoError(t, err)
	assert.Equal(t, "MOCK 1", growth.Previous)
	require.Len(t, growth.Students, 2)
	assert.InDelta(t, 1.1, growth.Students[0].Growth, 0.0001)
	assert.InDelta(t, 0.8, growth.Students[1].Growth, 0.0001)
	assert.Equal(t, 6, growth.Students[0].AggregateDelta)

	empty, err := f.svc.Timeline(context.Background(), testHub, 3)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = f.svc.Timeline(context.Background(), testHub, 42)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSeriesTracker(t *testing.T) {
	f := newSeriesFixture()
	_, err := f.svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
	f.addSecondSeries()
	_, err = f.svc.Commit(context.Background(), testHub, "MOCK 2")
	require.NoError(t, err)

	report, err := f.svc.Tracker(context.Background(), testHub)
	require.NoError(t, err)
	assert.Equal(t, []string{"MOCK 1", "MOCK 2", "MOCK 3"}, report.Series)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, 6, report.Rows[0].Best)
	assert.Equal(t, "MOCK 2", report.Rows[0].Latest)
	assert.Zero(t, report.Rows[2].Best)
	assert.Empty(t, report.Rows[2].Series)
}
