package models

import "time"

// GradeBand maps composites at or above MinScore to Grade.
type GradeBand struct {
	Grade    int     `json:"grade" yaml:"grade" validate:"min=1,max=9"`
	MinScore float64 `json:"min_score" yaml:"min_score" validate:"min=0,max=100"`
	Remark   string  `json:"remark,omitempty" yaml:"remark,omitempty"`
}

// CategoryBand labels aggregates at or below MaxAggregate.
type CategoryBand struct {
	Label        string `json:"label" yaml:"label" validate:"required"`
	MaxAggregate int    `json:"max_aggregate" yaml:"max_aggregate" validate:"min=6,max=54"`
	Weight       int    `json:"weight" yaml:"weight"`
}

// SBAConfig controls blending of continuous assessment into composites.
type SBAConfig struct {
	Enabled    bool    `json:"enabled" yaml:"enabled"`
	Locked     bool    `json:"locked" yaml:"locked"`
	SBAWeight  float64 `json:"sba_weight" yaml:"sba_weight" validate:"min=0,max=100"`
	ExamWeight float64 `json:"exam_weight" yaml:"exam_weight" validate:"min=0,max=100"`
}

// Settings is the persisted per-hub configuration.
type Settings struct {
	SchoolName         string         `json:"school_name" validate:"required"`
	SchoolAddress      string         `json:"school_address,omitempty"`
	HeadTeacher        string         `json:"head_teacher,omitempty"`
	ExamTitle          string         `json:"exam_title,omitempty"`
	AcademicYear       string         `json:"academic_year,omitempty"`
	Term               string         `json:"term,omitempty"`
	AttendanceTotal    int            `json:"attendance_total" validate:"min=0"`
	Subjects           []string       `json:"subjects" validate:"dive,required"`
	CoreSubjects       []string       `json:"core_subjects"`
	GradingThresholds  []GradeBand    `json:"grading_thresholds" validate:"dive"`
	CategoryThresholds []CategoryBand `json:"category_thresholds" validate:"dive"`
	FallbackCategory   string         `json:"fallback_category"`
	SBA                SBAConfig      `json:"sba"`
	MaxSectionA        float64        `json:"max_section_a" validate:"min=0"`
	MaxSectionB        float64        `json:"max_section_b" validate:"min=0"`
	UseTDistribution   bool           `json:"use_t_distribution"`
	NeutralGrade       int            `json:"neutral_grade" validate:"min=0,max=9"`
	ActiveSeries       string         `json:"active_series"`
	CommittedSeries    []string       `json:"committed_series"`
	MockStandardMean   float64        `json:"mock_standard_mean"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Default subject catalogue used when a hub is registered.
var DefaultSubjects = []string{
	"English Language",
	"Mathematics",
	"Integrated Science",
	"Social Studies",
	"Career Technology",
	"Creative Arts and Designing",
	"Ghanaian Language",
	"Religious and Moral Education",
	"Computing",
	"French",
}

// DefaultCoreSubjects are mandatory members of the best-six selection when recorded.
var DefaultCoreSubjects = []string{
	"English Language",
	"Mathematics",
	"Integrated Science",
	"Social Studies",
}

// DefaultSeries lists the mock series a hub tracks.
var DefaultSeries = []string{
	"MOCK 1", "MOCK 2", "MOCK 3", "MOCK 4", "MOCK 5",
	"MOCK 6", "MOCK 7", "MOCK 8", "MOCK 9", "MOCK 10",
}

// DefaultGradeBands is the static grading table.
func DefaultGradeBands() []GradeBand {
	return []GradeBand{
		{Grade: 1, MinScore: 85, Remark: "Highest"},
		{Grade: 2, MinScore: 75, Remark: "Higher"},
		{Grade: 3, MinScore: 70, Remark: "High"},
		{Grade: 4, MinScore: 65, Remark: "High Average"},
		{Grade: 5, MinScore: 60, Remark: "Average"},
		{Grade: 6, MinScore: 55, Remark: "Low Average"},
		{Grade: 7, MinScore: 50, Remark: "Low"},
		{Grade: 8, MinScore: 45, Remark: "Lower"},
		{Grade: 9, MinScore: 0, Remark: "Lowest"},
	}
}

// DefaultCategoryBands is the aggregate category table.
func DefaultCategoryBands() []CategoryBand {
	return []CategoryBand{
		{Label: "EXCELLENT", MaxAggregate: 10, Weight: 4},
		{Label: "HIGH", MaxAggregate: 20, Weight: 3},
		{Label: "PASS", MaxAggregate: 36, Weight: 2},
	}
}

// DefaultSettings returns the settings a freshly registered hub starts with.
func DefaultSettings(schoolName string) Settings {
	return Settings{
		SchoolName:         schoolName,
		ExamTitle:          "MOCK EXAMINATION",
		AttendanceTotal:    85,
		Subjects:           append([]string(nil), DefaultSubjects...),
		CoreSubjects:       append([]string(nil), DefaultCoreSubjects...),
		GradingThresholds:  DefaultGradeBands(),
		CategoryThresholds: DefaultCategoryBands(),
		FallbackCategory:   "REMEDIAL",
		SBA:                SBAConfig{Enabled: true, SBAWeight: 30, ExamWeight: 70},
		MaxSectionA:        40,
		MaxSectionB:        60,
		UseTDistribution:   true,
		NeutralGrade:       5,
		ActiveSeries:       "MOCK 1",
		CommittedSeries:    append([]string(nil), DefaultSeries...),
		MockStandardMean:   5.5,
	}
}
