package engine

import (
	"errors"
	"time"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// ErrNothingToCommit is returned when no student has recorded scores in the series.
var ErrNothingToCommit = errors.New("series has no recorded scores")

// Commit freezes a processed series into one commit record per student with
// recorded data. It is the only producer of models.SeriesRecord values.
func Commit(result Result, at time.Time) (map[int]models.SeriesRecord, error) {
	records := make(map[int]models.SeriesRecord, len(result.Students))
	for _, st := range result.Students {
		if st.RecordedSubjects == 0 {
			continue
		}
		subs := make(map[string]models.SubScoreSnapshot, len(st.Subjects))
		for _, s := range st.Subjects {
			subs[s.Subject] = models.SubScoreSnapshot{
				SectionA:  s.SectionA,
				SectionB:  s.SectionB,
				Composite: s.Composite,
				Grade:     s.Grade,
			}
		}
		records[st.ID] = models.SeriesRecord{
			Series:      result.Series,
			Aggregate:   st.BestSixAggregate,
			TotalScore:  st.TotalScore,
			Rank:        st.Rank,
			Category:    st.Category,
			Rate:        st.Rate,
			Incomplete:  st.Incomplete,
			SubScores:   subs,
			CommittedAt: at.UTC(),
		}
	}
	if len(records) == 0 {
		return nil, ErrNothingToCommit
	}
	return records, nil
}

// ApplyCommit returns copies of students with their commit record for series
// set. Re-committing a series replaces the earlier record, and a student
// without a record in this commit loses any stale record of the series.
// Other series are untouched.
func ApplyCommit(students []models.Student, series string, records map[int]models.SeriesRecord) []models.Student {
	out := make([]models.Student, len(students))
	for i, st := range students {
		clone := st.Clone()
		if rec, ok := records[st.ID]; ok {
			if clone.SeriesHistory == nil {
				clone.SeriesHistory = make(map[string]models.SeriesRecord)
			}
			clone.SeriesHistory[series] = rec
		} else {
			delete(clone.SeriesHistory, series)
		}
		out[i] = clone
	}
	return out
}

// SeriesSummary condenses a committed series for the network registry.
type SeriesSummary struct {
	Series       string  `json:"series"`
	StudentCount int     `json:"student_count"`
	AvgAggregate float64 `json:"avg_aggregate"`
	AvgComposite float64 `json:"avg_composite"`
}

// Summarize reports class averages over a set of commit records.
func Summarize(series string, records map[int]models.SeriesRecord) SeriesSummary {
	summary := SeriesSummary{Series: series, StudentCount: len(records)}
	if len(records) == 0 {
		return summary
	}
	var aggSum, compSum float64
	var compCount int
	for _, rec := range records {
		aggSum += float64(rec.Aggregate)
		for _, sub := range rec.SubScores {
			compSum += sub.Composite
			compCount++
		}
	}
	summary.AvgAggregate = round2(aggSum / float64(len(records)))
	if compCount > 0 {
		summary.AvgComposite = round2(compSum / float64(compCount))
	}
	return summary
}
