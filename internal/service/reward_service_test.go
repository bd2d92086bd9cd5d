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

func TestRewardFacilitatorSharesPool(t *testing.T) {
	f := newSeriesFixture()
	f.addSecondSeries()
	svc := NewRewardService(f.store)

	report, err := svc.FacilitatorRewards(context.Background(), testHub, "MOCK 2", "2026", 100)
	require.NoError(t, err)
	assert.Equal(t, "MOCK 1", report.Previous)
	require.Len(t, report.Merits, 2)

	// Both subjects carry identical scores so they tie and split the pool.
	assert.Equal(t, "French", report.Merits[0].Subject)
	assert.Equal(t, "Mathematics", report.Merits[1].Subject)
	assert.Equal(t, 50.0, report.Merits[0].Share)
	assert.Equal(t, 50.0, report.Merits[1].Share)
	assert.Equal(t, 2.0, report.Merits[0].GradeFactor)
	assert.Equal(t, 9.0, report.Merits[0].BeceMeanGrade)
	assert.Zero(t, report.Merits[0].SigDiff)
}

func TestRewardRejectsNegativePool(t *testing.T) {
	f := newSeriesFixture()
	_, err := NewRewardService(f.store).FacilitatorRewards(context.Background(), testHub, "", "", -1)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRewardDefaultsBeceYear(t *testing.T) {
	f := newSeriesFixture()
	svc := NewRewardService(f.store)
	svc.now = func() time.Time { return time.Date(2027, 7, 1, 0, 0, 0, 0, time.UTC) }

	report, err := svc.FacilitatorRewards(context.Background(), testHub, "", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "2027", report.BeceYear)
	assert.Equal(t, "MOCK 1", report.Series)
	assert.Empty(t, report.Previous)
}

func TestRewardSigDiffRanking(t *testing.T) {
	f := newSeriesFixture()
	students := f.store.students[testHub]
	students[0].BeceResults = map[string]models.BeceResult{"2026": {Year: "2026", Grades: map[string]int{"Mathematics": 2, "French": 4}}}
	students[1].BeceResults = map[string]models.BeceResult{"2026": {Year: "2026", Grades: map[string]int{"Mathematics": 4, "French": 6}}}

	report, err := NewRewardService(f.store).SigDiffRanking(context.Background(), testHub, "2026")
	require.NoError(t, err)
	require.Len(t, report.Merits, 2)
	assert.Equal(t, "Mathematics", report.Merits[0].Subject)
	assert.Equal(t, 2.5, report.Merits[0].SigDiff)
	assert.Equal(t, 1, report.Merits[0].Rank)
	assert.Equal(t, 0.5, report.Merits[1].SigDiff)
}

func TestRewardPupilMerit(t *testing.T) {
	f := newSeriesFixture()
	_, err := f.svc.Commit(context.Background(), testHub, "MOCK 1")
	require.NoError(t, err)
	f.addSecondSeries()
	_, err = f.svc.Commit(context.Background(), testHub, "MOCK 2")
	require.NoError(t, err)

	report, err := NewRewardService(f.store).PupilMerit(context.Background(), testHub, "MOCK 2")
	require.NoError(t, err)
	require.Len(t, report.Pupils, 2)
	assert.Equal(t, 1, report.Pupils[0].StudentID)
	assert.Equal(t, 1, report.Pupils[0].Rank)
	assert.Equal(t, 2, report.Pupils[1].Rank)
}
