package service

import (
	"context"
	"strconv"
	"time"

	"github.com/noah-isme/ssmap-api/internal/engine"
	appErrors "github.com/noah-isme/ssmap-api/pkg/errors"
)

// RewardReport ranks facilitators for the reward programme.
type RewardReport struct {
	Series   string                    `json:"series"`
	Previous string                    `json:"previous,omitempty"`
	BeceYear string                    `json:"bece_year,omitempty"`
	Pool     float64                   `json:"pool"`
	Merits   []engine.FacilitatorMerit `json:"merits"`
}

// PupilMeritReport ranks pupils by improvement.
type PupilMeritReport struct {
	Series   string              `json:"series"`
	Previous string              `json:"previous,omitempty"`
	Pupils   []engine.PupilMerit `json:"pupils"`
}

// RewardService computes facilitator and pupil merit rankings.
type RewardService struct {
	store schoolReader
	now   func() time.Time
}

// NewRewardService constructs the reward service.
func NewRewardService(store schoolReader) *RewardService {
	return &RewardService{store: store, now: time.Now}
}

// FacilitatorRewards ranks facilitators by teaching efficiency index and
// shares pool in proportion. An empty BECE year means the current year.
func (s *RewardService) FacilitatorRewards(ctx context.Context, hubID, series, beceYear string, pool float64) (*RewardReport, error) {
	if pool < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reward pool must not be negative")
	}
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	current, previous, err := seriesPair(data.Settings, series, "")
	if err != nil {
		return nil, err
	}
	if beceYear == "" {
		beceYear = strconv.Itoa(s.now().Year())
	}
	merits := engine.FacilitatorMerits(data.Students, data.Facilitators, current, previous, beceYear, pool, configFor(data.Settings))
	if merits == nil {
		merits = []engine.FacilitatorMerit{}
	}
	return &RewardReport{Series: current, Previous: previous, BeceYear: beceYear, Pool: pool, Merits: merits}, nil
}

// SigDiffRanking orders facilitators by how far their subject's BECE mean
// grade beats the mock standard.
func (s *RewardService) SigDiffRanking(ctx context.Context, hubID, beceYear string) (*RewardReport, error) {
	report, err := s.FacilitatorRewards(ctx, hubID, "", beceYear, 0)
	if err != nil {
		return nil, err
	}
	report.Merits = engine.RankBySigDiff(report.Merits)
	return report, nil
}

// PupilMerit ranks pupils by growth into a committed series.
func (s *RewardService) PupilMerit(ctx context.Context, hubID, series string) (*PupilMeritReport, error) {
	data, err := loadSchool(ctx, s.store, hubID)
	if err != nil {
		return nil, err
	}
	current, previous, err := seriesPair(data.Settings, series, "")
	if err != nil {
		return nil, err
	}
	pupils := engine.PupilMerits(data.Students, current, previous, configFor(data.Settings))
	return &PupilMeritReport{Series: current, Previous: previous, Pupils: pupils}, nil
}
