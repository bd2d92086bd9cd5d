package engine

import (
	"sort"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// Result is the full output of processing one series for a class.
type Result struct {
	Series                string             `json:"series"`
	Statistics            ClassStatistics    `json:"statistics"`
	Students              []ProcessedStudent `json:"students"`
	ClassAverageAggregate float64            `json:"class_average_aggregate"`
	Adjustments           []string           `json:"adjustments,omitempty"`
}

// Student returns the processed record for a student id.
func (r Result) Student(id int) (ProcessedStudent, bool) {
	for _, st := range r.Students {
		if st.ID == id {
			return st, true
		}
	}
	return ProcessedStudent{}, false
}

// Process computes composites, grades, best-six aggregates, categories, class
// statistics and ranks for every student in a series. Identical inputs always
// produce identical output.
func Process(students []models.Student, series string, facilitators models.Facilitators, cfg Configuration) Result {
	cfg, notes := cfg.Normalize()

	type pending struct {
		student models.Student
		scores  map[string]NormalizedScore
	}

	rows := make([]pending, 0, len(students))
	composites := make(map[string][]float64)
	for _, st := range students {
		raw := st.Scores(series)
		normalized := make(map[string]NormalizedScore, len(raw))
		for _, subject := range sortedSubjects(raw) {
			n := NormalizeScore(raw[subject], cfg)
			normalized[subject] = n
			composites[subject] = append(composites[subject], n.Composite)
		}
		rows = append(rows, pending{student: st, scores: normalized})
	}

	subjectStats := subjectStatistics(composites, cfg)
	order := subjectOrder(cfg.Subjects)

	processed := make([]ProcessedStudent, 0, len(rows))
	for _, row := range rows {
		set := row.student.MockData[series]
		ps := ProcessedStudent{
			ID:            row.student.ID,
			Name:          row.student.Name,
			Gender:        row.student.Gender,
			Series:        series,
			Attendance:    set.Attendance,
			ConductRemark: set.ConductRemark,
			Observations:  set.Observations,
		}

		for subject, n := range row.scores {
			grade, mode := ResolveGrade(n.Composite, subjectStats[subject], cfg)
			clamped := make([]models.ClampEvent, 0, len(n.Clamped))
			for _, ev := range n.Clamped {
				ev.StudentID, ev.Subject = row.student.ID, subject
				clamped = append(clamped, ev)
			}
			ps.Subjects = append(ps.Subjects, SubjectResult{
				Subject:     subject,
				SectionA:    n.SectionA,
				SectionB:    n.SectionB,
				SBA:         n.SBA,
				ExamScore:   n.ExamScore,
				Composite:   n.Composite,
				Grade:       grade,
				GradeRemark: GradeRemark(grade, cfg.GradingThresholds),
				Mode:        mode,
				Core:        isCore(subject, cfg.CoreSubjects),
				Facilitator: facilitators.BySubject(subject),
				Remark:      set.FacilitatorRemarks[subject],
				Clamped:     clamped,
			})
		}
		sort.SliceStable(ps.Subjects, func(i, j int) bool {
			return order.less(ps.Subjects[i].Subject, ps.Subjects[j].Subject)
		})

		best := SelectBestSix(ps.Subjects, cfg.CoreSubjects)
		counted := make(map[string]bool, len(best.Selected))
		for _, name := range best.Selected {
			counted[name] = true
		}
		var total float64
		for i := range ps.Subjects {
			ps.Subjects[i].Counted = counted[ps.Subjects[i].Subject]
			total += ps.Subjects[i].Composite
		}

		ps.RecordedSubjects = len(ps.Subjects)
		ps.BestSixAggregate = best.Aggregate
		ps.Incomplete = best.Incomplete
		ps.MissingCore = best.MissingCore
		ps.TotalScore = round2(total)
		if ps.RecordedSubjects > 0 {
			ps.Rate = round2(total / float64(ps.RecordedSubjects*100) * 100)
			ps.Category = Categorize(ps.BestSixAggregate, cfg.CategoryThresholds, cfg.FallbackCategory)
		}
		processed = append(processed, ps)
	}

	ranked := RankStudents(processed)
	aggStats := aggregateStatistics(ranked)

	return Result{
		Series: series,
		Statistics: ClassStatistics{
			Series:       series,
			StudentCount: len(students),
			Subjects:     subjectStats,
			Aggregates:   aggStats,
		},
		Students:              ranked,
		ClassAverageAggregate: aggStats.Mean,
		Adjustments:           notes,
	}
}

type subjectRanks map[string]int

func subjectOrder(subjects []string) subjectRanks {
	ranks := make(subjectRanks, len(subjects))
	for i, s := range subjects {
		ranks[s] = i
	}
	return ranks
}

// less orders configured subjects by configuration position and the rest by name after them.
func (r subjectRanks) less(a, b string) bool {
	ra, okA := r[a]
	rb, okB := r[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}
