package engine

import (
	"math"
	"sort"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// SubjectStatistics summarises the composites recorded for one subject.
type SubjectStatistics struct {
	Subject string      `json:"subject"`
	Count   int         `json:"count"`
	Mean    float64     `json:"mean"`
	StdDev  float64     `json:"std_dev"`
	Min     float64     `json:"min"`
	Max     float64     `json:"max"`
	P25     float64     `json:"p25"`
	P50     float64     `json:"p50"`
	P75     float64     `json:"p75"`
	Mode    GradingMode `json:"grading_mode"`
}

// AggregateStatistics summarises best-six aggregates across the class.
type AggregateStatistics struct {
	Count          int            `json:"count"`
	Mean           float64        `json:"mean"`
	StdDev         float64        `json:"std_dev"`
	Best           int            `json:"best"`
	Worst          int            `json:"worst"`
	P10            float64        `json:"p10"`
	P25            float64        `json:"p25"`
	P50            float64        `json:"p50"`
	P75            float64        `json:"p75"`
	P90            float64        `json:"p90"`
	CategoryCounts map[string]int `json:"category_counts"`
}

// ClassStatistics is the class-wide view of one series.
type ClassStatistics struct {
	Series       string                       `json:"series"`
	StudentCount int                          `json:"student_count"`
	Subjects     map[string]SubjectStatistics `json:"subjects"`
	Aggregates   AggregateStatistics          `json:"aggregates"`
}

// ComputeClassStatistics derives per-subject and aggregate statistics for a
// series. Students without a record for a subject are left out of that
// subject's figures, and students without any record are left out of the
// aggregate figures.
func ComputeClassStatistics(students []models.Student, series string, cfg Configuration) ClassStatistics {
	return Process(students, series, nil, cfg).Statistics
}

func subjectStatistics(composites map[string][]float64, cfg Configuration) map[string]SubjectStatistics {
	out := make(map[string]SubjectStatistics, len(composites))
	for subject, values := range composites {
		stats := SubjectStatistics{Subject: subject, Count: len(values), Mode: GradingStatic}
		if len(values) > 0 {
			sorted := append([]float64(nil), values...)
			sort.Float64s(sorted)
			stats.Mean, stats.StdDev = MeanStdDev(sorted)
			stats.Min, stats.Max = sorted[0], sorted[len(sorted)-1]
			stats.P25 = Percentile(sorted, 25)
			stats.P50 = Percentile(sorted, 50)
			stats.P75 = Percentile(sorted, 75)
			if cfg.UseTDistribution {
				stats.Mode = GradingDistribution
				if stats.StdDev < boundaryEpsilon {
					stats.Mode = GradingNeutral
				}
			}
		}
		out[subject] = stats
	}
	return out
}

func aggregateStatistics(students []ProcessedStudent) AggregateStatistics {
	stats := AggregateStatistics{CategoryCounts: map[string]int{}}
	values := make([]float64, 0, len(students))
	for _, st := range students {
		if st.RecordedSubjects == 0 {
			continue
		}
		values = append(values, float64(st.BestSixAggregate))
		stats.CategoryCounts[st.Category]++
	}
	if len(values) == 0 {
		return stats
	}
	sort.Float64s(values)
	stats.Count = len(values)
	stats.Mean, stats.StdDev = MeanStdDev(values)
	stats.Mean, stats.StdDev = round2(stats.Mean), round2(stats.StdDev)
	stats.Best, stats.Worst = int(values[0]), int(values[len(values)-1])
	stats.P10 = Percentile(values, 10)
	stats.P25 = Percentile(values, 25)
	stats.P50 = Percentile(values, 50)
	stats.P75 = Percentile(values, 75)
	stats.P90 = Percentile(values, 90)
	return stats
}

// MeanStdDev returns the mean and population standard deviation of values.
// An empty slice yields zeros.
func MeanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(values)))
}

// Percentile linearly interpolates the p-th percentile of an ascending slice.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	p = clamp(p, 0, 100)
	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return round2(sorted[lo])
	}
	frac := pos - float64(lo)
	return round2(sorted[lo] + (sorted[hi]-sorted[lo])*frac)
}

func sortedSubjects(scores map[string]models.SubjectScore) []string {
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
