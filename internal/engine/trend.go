package engine

import (
	"math"
	"sort"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// Progression describes category movement between two committed series.
type Progression string

const (
	ProgressionImproved Progression = "improved"
	ProgressionStable   Progression = "stable"
	ProgressionDeclined Progression = "declined"
	ProgressionNone     Progression = "none"
)

// GrowthRatio returns current/previous. A zero, negative or missing previous
// value yields exactly 1.0.
func GrowthRatio(current, previous float64) float64 {
	if previous <= 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return 1.0
	}
	return current / previous
}

// CategoryProgression compares the category weights of two series.
func CategoryProgression(current, previous string, bands []models.CategoryBand) Progression {
	if current == "" || previous == "" {
		return ProgressionNone
	}
	cw, pw := CategoryWeight(current, bands), CategoryWeight(previous, bands)
	switch {
	case cw > pw:
		return ProgressionImproved
	case cw < pw:
		return ProgressionDeclined
	default:
		return ProgressionStable
	}
}

// StudentGrowth compares one student's committed records in two series.
type StudentGrowth struct {
	StudentID         int         `json:"student_id"`
	Name              string      `json:"name"`
	CurrentAggregate  int         `json:"current_aggregate"`
	PreviousAggregate int         `json:"previous_aggregate,omitempty"`
	CurrentTotal      float64     `json:"current_total"`
	PreviousTotal     float64     `json:"previous_total,omitempty"`
	Growth            float64     `json:"growth"`
	AggregateDelta    int         `json:"aggregate_delta"`
	HasPrevious       bool        `json:"has_previous"`
	Progression       Progression `json:"progression"`
}

// StudentGrowthRates compares committed totals for every student committed in
// the current series. Students absent from the previous series get a neutral
// growth of 1.0.
func StudentGrowthRates(students []models.Student, current, previous string, cfg Configuration) []StudentGrowth {
	cfg, _ = cfg.Normalize()
	out := make([]StudentGrowth, 0, len(students))
	for _, st := range students {
		cur, ok := st.SeriesHistory[current]
		if !ok {
			continue
		}
		g := StudentGrowth{
			StudentID:        st.ID,
			Name:             st.Name,
			CurrentAggregate: cur.Aggregate,
			CurrentTotal:     cur.TotalScore,
			Growth:           1.0,
			Progression:      ProgressionNone,
		}
		if prev, ok := st.SeriesHistory[previous]; ok && previous != "" {
			g.HasPrevious = true
			g.PreviousAggregate = prev.Aggregate
			g.PreviousTotal = prev.TotalScore
			g.Growth = round4(GrowthRatio(cur.TotalScore, prev.TotalScore))
			g.AggregateDelta = prev.Aggregate - cur.Aggregate
			g.Progression = CategoryProgression(cur.Category, prev.Category, cfg.CategoryThresholds)
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// SubjectGrowth compares class means of one subject across two series.
type SubjectGrowth struct {
	Subject         string  `json:"subject"`
	CurrentMean     float64 `json:"current_mean"`
	PreviousMean    float64 `json:"previous_mean"`
	Growth          float64 `json:"growth"`
	ObjectiveGrowth float64 `json:"objective_growth"`
	TheoryGrowth    float64 `json:"theory_growth"`
}

// SubjectGrowthRates compares committed sub-scores per subject. Subjects with
// no previous data are compared against themselves.
func SubjectGrowthRates(students []models.Student, current, previous string) []SubjectGrowth {
	cur := subjectMeansFromHistory(students, current)
	prev := subjectMeansFromHistory(students, previous)

	subjects := make([]string, 0, len(cur))
	for s := range cur {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	out := make([]SubjectGrowth, 0, len(subjects))
	for _, s := range subjects {
		c := cur[s]
		p, ok := prev[s]
		if !ok {
			p = c
		}
		out = append(out, SubjectGrowth{
			Subject:         s,
			CurrentMean:     round2(c.composite),
			PreviousMean:    round2(p.composite),
			Growth:          round4(GrowthRatio(c.composite, p.composite)),
			ObjectiveGrowth: round4(GrowthRatio(c.sectionA, p.sectionA)),
			TheoryGrowth:    round4(GrowthRatio(c.sectionB, p.sectionB)),
		})
	}
	return out
}

// TimelineEntry is one committed series in a student's history.
type TimelineEntry struct {
	Series      string      `json:"series"`
	Aggregate   int         `json:"aggregate"`
	TotalScore  float64     `json:"total_score"`
	Rate        float64     `json:"rate"`
	Rank        int         `json:"rank"`
	Category    string      `json:"category"`
	Growth      float64     `json:"growth"`
	Progression Progression `json:"progression"`
}

// Timeline lists a student's committed series in configured order with growth
// and category progression against the preceding committed series.
func Timeline(student models.Student, cfg Configuration) []TimelineEntry {
	cfg, _ = cfg.Normalize()
	var out []TimelineEntry
	var prev *models.SeriesRecord
	for _, series := range cfg.CommittedSeries {
		rec, ok := student.SeriesHistory[series]
		if !ok {
			continue
		}
		entry := TimelineEntry{
			Series:      series,
			Aggregate:   rec.Aggregate,
			TotalScore:  rec.TotalScore,
			Rate:        rec.Rate,
			Rank:        rec.Rank,
			Category:    rec.Category,
			Growth:      1.0,
			Progression: ProgressionNone,
		}
		if prev != nil {
			entry.Growth = round4(GrowthRatio(rec.TotalScore, prev.TotalScore))
			entry.Progression = CategoryProgression(rec.Category, prev.Category, cfg.CategoryThresholds)
		}
		out = append(out, entry)
		r := rec
		prev = &r
	}
	return out
}

type sectionMeans struct {
	composite float64
	sectionA  float64
	sectionB  float64
}

func subjectMeansFromHistory(students []models.Student, series string) map[string]sectionMeans {
	if series == "" {
		return nil
	}
	sums := make(map[string]sectionMeans)
	counts := make(map[string]int)
	for _, st := range students {
		rec, ok := st.SeriesHistory[series]
		if !ok {
			continue
		}
		for subject, sub := range rec.SubScores {
			m := sums[subject]
			m.composite += sub.Composite
			m.sectionA += sub.SectionA
			m.sectionB += sub.SectionB
			sums[subject] = m
			counts[subject]++
		}
	}
	for subject, m := range sums {
		n := float64(counts[subject])
		sums[subject] = sectionMeans{composite: m.composite / n, sectionA: m.sectionA / n, sectionB: m.sectionB / n}
	}
	return sums
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// PupilMerit ranks a student's improvement between two committed series.
type PupilMerit struct {
	StudentGrowth
	Rank int `json:"rank"`
}

// PupilMerits orders growth records best first: highest growth ratio, then
// best current aggregate, then student id. Equal growth and aggregate share a rank.
func PupilMerits(students []models.Student, current, previous string, cfg Configuration) []PupilMerit {
	growth := StudentGrowthRates(students, current, previous, cfg)
	out := make([]PupilMerit, len(growth))
	for i, g := range growth {
		out[i] = PupilMerit{StudentGrowth: g}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Growth != out[j].Growth {
			return out[i].Growth > out[j].Growth
		}
		if out[i].CurrentAggregate != out[j].CurrentAggregate {
			return out[i].CurrentAggregate < out[j].CurrentAggregate
		}
		return out[i].StudentID < out[j].StudentID
	})
	for i := range out {
		if i > 0 && out[i].Growth == out[i-1].Growth && out[i].CurrentAggregate == out[i-1].CurrentAggregate {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}

// TrackerCell is one committed series in the tracker grid.
type TrackerCell struct {
	Aggregate int    `json:"aggregate"`
	Rank      int    `json:"rank"`
	Category  string `json:"category"`
}

// TrackerRow is one student across every configured series.
type TrackerRow struct {
	StudentID int                    `json:"student_id"`
	Name      string                 `json:"name"`
	Series    map[string]TrackerCell `json:"series"`
	Best      int                    `json:"best_aggregate,omitempty"`
	Latest    string                 `json:"latest_series,omitempty"`
}

// Tracker lays out committed records per student and series in configured
// series order. Students without any commit are listed with an empty row.
func Tracker(students []models.Student, cfg Configuration) []TrackerRow {
	rows := make([]TrackerRow, 0, len(students))
	for _, st := range students {
		row := TrackerRow{StudentID: st.ID, Name: st.Name, Series: map[string]TrackerCell{}}
		for _, series := range cfg.CommittedSeries {
			rec, ok := st.SeriesHistory[series]
			if !ok {
				continue
			}
			row.Series[series] = TrackerCell{Aggregate: rec.Aggregate, Rank: rec.Rank, Category: rec.Category}
			if rec.Aggregate > 0 && (row.Best == 0 || rec.Aggregate < row.Best) {
				row.Best = rec.Aggregate
			}
			row.Latest = series
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })
	return rows
}
