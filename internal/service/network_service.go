package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ssmap-api/internal/engine"
	"github.com/noah-isme/ssmap-api/internal/models"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

const networkCachePattern = "network:*"

// NetworkRanking is the cross-institution ranking of one series.
type NetworkRanking struct {
	Series       string               `json:"series"`
	Institutions int                  `json:"institutions"`
	Entries      []engine.GlobalEntry `json:"entries"`
}

// InstitutionSummary condenses one hub for the super-admin dashboard.
type InstitutionSummary struct {
	HubID        string                    `json:"hub_id"`
	Name         string                    `json:"name"`
	Status       models.InstitutionStatus  `json:"status"`
	StudentCount int                       `json:"student_count"`
	AvgAggregate float64                   `json:"avg_aggregate"`
	LatestSeries string                    `json:"latest_series,omitempty"`
	Efficiency   float64                   `json:"efficiency"`
	TopPupil     *engine.GlobalEntry       `json:"top_pupil,omitempty"`
	History      []models.PerformancePoint `json:"history"`
}

// NetworkSummary aggregates every registered institution.
type NetworkSummary struct {
	Institutions int                  `json:"institutions"`
	Active       int                  `json:"active"`
	Students     int                  `json:"students"`
	Schools      []InstitutionSummary `json:"schools"`
	GeneratedAt  time.Time            `json:"generated_at"`
}

// NetworkService ranks pupils across institutions.
type NetworkService struct {
	registry registryStore
	schools  schoolReader
	cache    broadsheetCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewNetworkService constructs the network service.
func NewNetworkService(registry registryStore, schools schoolReader, cache broadsheetCache, ttl time.Duration, logger *zap.Logger) *NetworkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NetworkService{registry: registry, schools: schools, cache: cache, ttl: ttl, logger: logger}
}

// GlobalRanking ranks every committed record of series across active institutions.
func (s *NetworkService) GlobalRanking(ctx context.Context, series string) (*NetworkRanking, error) {
	if series == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "series is required")
	}
	key := "network:ranking:" + series
	if s.cache != nil {
		var cached NetworkRanking
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	snapshots, err := s.snapshots(ctx)
	if err != nil {
		return nil, err
	}
	entries := engine.GlobalRanking(snapshots, series)
	if entries == nil {
		entries = []engine.GlobalEntry{}
	}
	ranking := &NetworkRanking{Series: series, Institutions: len(snapshots), Entries: entries}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ranking, s.ttl); err != nil {
			s.logger.Warn("failed to cache network ranking", zap.String("series", series), zap.Error(err))
		}
	}
	return ranking, nil
}

// GlobalRankOf returns a pupil's network standing in series, defaulting to
// the hub's active series.
func (s *NetworkService) GlobalRankOf(ctx context.Context, hubID string, studentID int, series string) (*engine.GlobalEntry, error) {
	if series == "" {
		data, err := loadSchool(ctx, s.schools, hubID)
		if err != nil {
			return nil, err
		}
		series = data.Settings.ActiveSeries
	}
	ranking, err := s.GlobalRanking(ctx, series)
	if err != nil {
		return nil, err
	}
	entry, ok := engine.GlobalRankOf(ranking.Entries, hubID, studentID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no committed record in "+series)
	}
	return &entry, nil
}

// NetworkSummary reports every institution with its best pupil in the latest
// committed series and an efficiency proxy of avgComposite / avgAggregate x 5.
func (s *NetworkService) NetworkSummary(ctx context.Context) (*NetworkSummary, error) {
	entries, err := s.registry.Registry(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	summary := &NetworkSummary{Institutions: len(entries), Schools: make([]InstitutionSummary, 0, len(entries)), GeneratedAt: time.Now().UTC()}
	for _, e := range entries {
		item := InstitutionSummary{
			HubID:        e.ID,
			Name:         e.Name,
			Status:       e.Status,
			StudentCount: e.StudentCount,
			AvgAggregate: e.AvgAggregate,
			History:      e.PerformanceHistory,
		}
		if item.History == nil {
			item.History = []models.PerformancePoint{}
		}
		if e.Status == models.InstitutionActive {
			summary.Active++
		}
		summary.Students += e.StudentCount
		if n := len(e.PerformanceHistory); n > 0 {
			latest := e.PerformanceHistory[n-1]
			item.LatestSeries = latest.Series
			if latest.AvgAggregate > 0 {
				item.Efficiency = math.Round(latest.AvgComposite/latest.AvgAggregate*5*100) / 100
			}
			if top := s.topPupil(ctx, e, latest.Series); top != nil {
				item.TopPupil = top
			}
		}
		summary.Schools = append(summary.Schools, item)
	}
	return summary, nil
}

func (s *NetworkService) topPupil(ctx context.Context, e models.RegistryEntry, series string) *engine.GlobalEntry {
	data, err := s.schools.LoadSchool(ctx, e.ID)
	if err != nil {
		s.logger.Warn("skipping institution in summary", zap.String("hub_id", e.ID), zap.Error(err))
		return nil
	}
	ranked := engine.SnapshotRanking(engine.InstitutionSnapshot{InstitutionID: e.ID, InstitutionName: e.Name, Students: data.Students}, series)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

func (s *NetworkService) snapshots(ctx context.Context) ([]engine.InstitutionSnapshot, error) {
	entries, err := s.registry.Registry(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registry")
	}
	out := make([]engine.InstitutionSnapshot, 0, len(entries))
	for _, e := range entries {
		if e.Status != models.InstitutionActive {
			continue
		}
		data, err := s.schools.LoadSchool(ctx, e.ID)
		if err != nil {
			s.logger.Warn("skipping institution in network ranking", zap.String("hub_id", e.ID), zap.Error(err))
			continue
		}
		out = append(out, engine.InstitutionSnapshot{InstitutionID: e.ID, InstitutionName: e.Name, Students: data.Students})
	}
	return out, nil
}
