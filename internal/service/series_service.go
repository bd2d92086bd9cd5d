package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/events"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

type commitRecorder interface {
	RecordCommit(ctx context.Context, hubID string, summary engine.SeriesSummary, at time.Time) error
}

type seriesPublisher interface {
	PublishSeriesCommitted(ctx context.Context, evt events.SeriesCommitted) error
}

// CommitResult reports a committed series.
type CommitResult struct {
	Summary     engine.SeriesSummary `json:"summary"`
	CommittedAt time.Time            `json:"committed_at"`
	Recommitted bool                 `json:"recommitted"`
}

// GrowthReport compares two committed series.
type GrowthReport struct {
	Current  string                 `json:"current"`
	Previous string                 `json:"previous,omitempty"`
	Students []engine.StudentGrowth `json:"students"`
	Subjects []engine.SubjectGrowth `json:"subjects"`
}

// TrackerReport lays out every student's committed series.
type TrackerReport struct {
	Series []string            `json:"series"`
	Rows   []engine.TrackerRow `json:"rows"`
}

// SeriesService freezes series into student history and serves trend views.
type SeriesService struct {
	store     schoolStore
	registry  commitRecorder
	publisher seriesPublisher
	cache     broadsheetInvalidator
	metrics   *MetricsService
	locks     *HubLocks
	logger    *zap.Logger
	now       func() time.Time
}

// NewSeriesService constructs the series service.
func NewSeriesService(store schoolStore, registry commitRecorder, publisher seriesPublisher, cache broadsheetInvalidator, metrics *MetricsService, locks *HubLocks, logger *zap.Logger) *SeriesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = NewHubLocks()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &SeriesService{store: store, registry: registry, publisher: publisher, cache: cache, metrics: metrics, locks: locks, logger: logger, now: time.Now}
}

// Commit processes a series and freezes every ranked student's result into
// their history. Committing again overwrites the earlier snapshot.
func (s *SeriesService) Commit(ctx context.Context, hubID, series string) (*CommitResult, error) {
	unlock := s.locks.Lock(hubID)
	defer unlock()

	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	series, err = resolveSeries(data.Settings, series)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	start := time.Now()
	result := engine.Process(data.Students, series, data.Facilitators, configFor(data.Settings))
	records, err := engine.Commit(result, at)
	s.metrics.ObserveCompute("commit", time.Since(start))
	if err != nil {
		if errors.Is(err, engine.ErrNothingToCommit) {
			return nil, appErrors.Clone(appErrors.ErrSeriesNotCommittable, fmt.Sprintf("%s has no recorded scores to commit", series))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit series")
	}

	recommitted := false
	for _, st := range data.Students {
		if _, ok := st.SeriesHistory[series]; ok {
			recommitted = true
			break
		}
	}

	students := engine.ApplyCommit(data.Students, series, records)
	if err := s.store.SaveStudents(ctx, hubID, students); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save committed series")
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, broadsheetPattern(hubID), networkCachePattern); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("hub_id", hubID), zap.Error(err))
		}
	}

	summary := engine.Summarize(series, records)
	if s.registry != nil {
		if err := s.registry.RecordCommit(ctx, hubID, summary, at); err != nil {
			s.logger.Warn("failed to update registry performance history", zap.String("hub_id", hubID), zap.Error(err))
		}
	}
	evt := events.SeriesCommitted{
		EventID:      uuid.NewString(),
		HubID:        hubID,
		Series:       series,
		StudentCount: summary.StudentCount,
		AvgAggregate: summary.AvgAggregate,
		AvgComposite: summary.AvgComposite,
		CommittedAt:  at,
	}
	if err := s.publisher.PublishSeriesCommitted(ctx, evt); err != nil {
		s.logger.Warn("failed to publish series committed event", zap.String("hub_id", hubID), zap.String("series", series), zap.Error(err))
	}
	s.metrics.RecordSeriesCommit(series)

	s.logger.Info("series committed",
		zap.String("hub_id", hubID),
		zap.String("series", series),
		zap.Int("students", summary.StudentCount),
		zap.Bool("recommitted", recommitted),
	)
	return &CommitResult{Summary: summary, CommittedAt: at, Recommitted: recommitted}, nil
}

// Timeline returns one student's committed history with growth.
func (s *SeriesService) Timeline(ctx context.Context, hubID string, studentID int) ([]engine.TimelineEntry, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	idx := findStudent(data.Students, studentID)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %d not found", studentID))
	}
	timeline := engine.Timeline(data.Students[idx], configFor(data.Settings))
	if timeline == nil {
		timeline = []engine.TimelineEntry{}
	}
	return timeline, nil
}

// Growth compares a committed series with an earlier one. An empty current
// series means the active one; an empty previous series means the series
// configured immediately before current.
func (s *SeriesService) Growth(ctx context.Context, hubID, current, previous string) (*GrowthReport, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	current, previous, err = seriesPair(data.Settings, current, previous)
	if err != nil {
		return nil, err
	}
	cfg := configFor(data.Settings)
	return &GrowthReport{
		Current:  current,
		Previous: previous,
		Students: engine.StudentGrowthRates(data.Students, current, previous, cfg),
		Subjects: engine.SubjectGrowthRates(data.Students, current, previous),
	}, nil
}

// Tracker lays out every student's committed aggregates across all series.
func (s *SeriesService) Tracker(ctx context.Context, hubID string) (*TrackerReport, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	return &TrackerReport{
		Series: append([]string(nil), data.Settings.CommittedSeries...),
		Rows:   engine.Tracker(data.Students, configFor(data.Settings)),
	}, nil
}

func seriesPair(settings models.Settings, current, previous string) (string, string, error) {
	current, err := resolveSeries(settings, current)
	if err != nil {
		return "", "", err
	}
	if previous == "" {
		previous, _ = configFor(settings).PreviousSeries(current)
		return current, previous, nil
	}
	previous, err = resolveSeries(settings, previous)
	if err != nil {
		return "", "", err
	}
	return current, previous, nil
}
