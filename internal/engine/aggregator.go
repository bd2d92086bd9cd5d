package engine

import (
	"sort"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// BestSixSize is the number of subjects counted towards an aggregate.
const BestSixSize = 6

// SubjectResult is one subject of a processed student.
type SubjectResult struct {
	Subject     string              `json:"subject"`
	SectionA    float64             `json:"section_a"`
	SectionB    float64             `json:"section_b"`
	SBA         *float64            `json:"sba,omitempty"`
	ExamScore   float64             `json:"exam_score"`
	Composite   float64             `json:"composite"`
	Grade       int                 `json:"grade"`
	GradeRemark string              `json:"grade_remark,omitempty"`
	Mode        GradingMode         `json:"grading_mode"`
	Core        bool                `json:"core"`
	Counted     bool                `json:"counted"`
	Facilitator string              `json:"facilitator,omitempty"`
	Remark      string              `json:"remark,omitempty"`
	Clamped     []models.ClampEvent `json:"clamped,omitempty"`
}

// ProcessedStudent is the derived, never persisted view of a student in one series.
type ProcessedStudent struct {
	ID               int                 `json:"id"`
	Name             string              `json:"name"`
	Gender           string              `json:"gender,omitempty"`
	Series           string              `json:"series"`
	Subjects         []SubjectResult     `json:"subjects"`
	BestSixAggregate int                 `json:"best_six_aggregate"`
	TotalScore       float64             `json:"total_score"`
	Rate             float64             `json:"rate"`
	Rank             int                 `json:"rank"`
	Category         string              `json:"category"`
	Incomplete       bool                `json:"incomplete"`
	MissingCore      []string            `json:"missing_core,omitempty"`
	RecordedSubjects int                 `json:"recorded_subjects"`
	Attendance       int                 `json:"attendance"`
	ConductRemark    string              `json:"conduct_remark,omitempty"`
	Observations     models.Observations `json:"observations"`
}

// Subject returns the result for a subject name.
func (p ProcessedStudent) Subject(name string) (SubjectResult, bool) {
	for _, s := range p.Subjects {
		if s.Subject == name {
			return s, true
		}
	}
	return SubjectResult{}, false
}

// BestSix is the outcome of the best-six selection.
type BestSix struct {
	Selected    []string `json:"selected"`
	Aggregate   int      `json:"aggregate"`
	Incomplete  bool     `json:"incomplete"`
	MissingCore []string `json:"missing_core,omitempty"`
}

// SelectBestSix sums the grades of every recorded core subject plus the best
// electives up to six subjects. Electives are preferred by grade, then by
// composite, then by name. Missing subjects are never zero-filled: the
// selection is flagged incomplete instead. Only the first six distinct core
// subjects count as core, so the aggregate stays within 6-54.
func SelectBestSix(results []SubjectResult, core []string) BestSix {
	core = limitCore(core)
	var out BestSix
	var electives []SubjectResult
	present := make(map[string]bool, len(results))

	for _, r := range results {
		if isCore(r.Subject, core) {
			present[normalizeName(r.Subject)] = true
			out.Selected = append(out.Selected, r.Subject)
			out.Aggregate += r.Grade
			continue
		}
		electives = append(electives, r)
	}
	for _, name := range core {
		if !present[normalizeName(name)] {
			out.MissingCore = append(out.MissingCore, name)
		}
	}

	sort.SliceStable(electives, func(i, j int) bool {
		if electives[i].Grade != electives[j].Grade {
			return electives[i].Grade < electives[j].Grade
		}
		if electives[i].Composite != electives[j].Composite {
			return electives[i].Composite > electives[j].Composite
		}
		return electives[i].Subject < electives[j].Subject
	})
	for _, e := range electives {
		if len(out.Selected) >= BestSixSize {
			break
		}
		out.Selected = append(out.Selected, e.Subject)
		out.Aggregate += e.Grade
	}

	out.Incomplete = len(out.Selected) < BestSixSize || len(out.MissingCore) > 0
	return out
}

// Categorize labels an aggregate using the category table. An aggregate equal
// to a band's bound belongs to that band.
func Categorize(aggregate int, bands []models.CategoryBand, fallback string) string {
	sorted := append([]models.CategoryBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxAggregate < sorted[j].MaxAggregate })
	for _, band := range sorted {
		if aggregate <= band.MaxAggregate {
			return band.Label
		}
	}
	return fallback
}

// CategoryWeight returns the progression weight of a category label. The
// fallback category weighs 1.
func CategoryWeight(label string, bands []models.CategoryBand) int {
	for _, band := range bands {
		if band.Label == label {
			if band.Weight > 0 {
				return band.Weight
			}
			return len(bands) + 1 - indexOfBand(label, bands)
		}
	}
	return 1
}

func indexOfBand(label string, bands []models.CategoryBand) int {
	sorted := append([]models.CategoryBand(nil), bands...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxAggregate < sorted[j].MaxAggregate })
	for i, band := range sorted {
		if band.Label == label {
			return i
		}
	}
	return len(bands)
}
