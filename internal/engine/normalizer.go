package engine

import (
	"math"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// GradingMode tells how a subject's grades were derived.
type GradingMode string

const (
	GradingStatic       GradingMode = "static"
	GradingDistribution GradingMode = "distribution"
	GradingNeutral      GradingMode = "neutral"
)

// boundaryEpsilon tips values sitting on a band edge into the better band.
const boundaryEpsilon = 1e-9

// NormalizedScore is a subject score after clamping and weighting.
type NormalizedScore struct {
	SectionA  float64             `json:"section_a"`
	SectionB  float64             `json:"section_b"`
	SBA       *float64            `json:"sba,omitempty"`
	ExamScore float64             `json:"exam_score"`
	Composite float64             `json:"composite"`
	Clamped   []models.ClampEvent `json:"clamped,omitempty"`
}

// NormalizeScore clamps raw sections to their configured maxima and blends the
// exam percentage with the SBA score when SBA is enabled and unlocked.
// The composite is always within [0, 100].
func NormalizeScore(raw models.SubjectScore, cfg Configuration) NormalizedScore {
	var events []models.ClampEvent

	a := clampField("section_a", raw.SectionA, cfg.MaxSectionA, &events)
	b := clampField("section_b", raw.SectionB, cfg.MaxSectionB, &events)

	var exam float64
	if total := cfg.MaxSectionA + cfg.MaxSectionB; total > 0 {
		exam = (a + b) / total * 100
	}

	composite := exam
	var sba *float64
	if raw.SBA != nil {
		v := clampField("sba", *raw.SBA, 100, &events)
		sba = &v
		if cfg.sbaActive() {
			weights := cfg.SBA.SBAWeight + cfg.SBA.ExamWeight
			composite = exam*cfg.SBA.ExamWeight/weights + v*cfg.SBA.SBAWeight/weights
		}
	}

	return NormalizedScore{
		SectionA:  a,
		SectionB:  b,
		SBA:       sba,
		ExamScore: round2(clamp(exam, 0, 100)),
		Composite: round2(clamp(composite, 0, 100)),
		Clamped:   events,
	}
}

// GradeFromThresholds maps a composite onto the static grading table. A
// composite equal to a band's lower bound earns that band's grade.
func GradeFromThresholds(composite float64, bands []models.GradeBand) int {
	best := worstGrade + 1
	matched := false
	for _, band := range bands {
		if composite+boundaryEpsilon >= band.MinScore && band.Grade < best {
			best = band.Grade
			matched = true
		}
	}
	if !matched {
		return worstGrade
	}
	return clampGrade(best)
}

// GradeFromDistribution grades a composite relative to its subject's spread
// using half-sigma bands centred on the mean: z in [-0.25, 0.25) is grade 5,
// each further half sigma moves one grade, saturating at 1 and 9. A subject
// with zero spread grades everyone at the neutral grade.
func GradeFromDistribution(composite float64, stats SubjectStatistics, neutral int) int {
	if stats.StdDev < boundaryEpsilon {
		return clampGrade(neutral)
	}
	z := (composite - stats.Mean) / stats.StdDev
	k := math.Floor((z+0.25)/0.5 + boundaryEpsilon)
	return clampGrade(centreGrade - int(k))
}

// ResolveGrade picks the grading rule for a subject and applies it.
func ResolveGrade(composite float64, stats SubjectStatistics, cfg Configuration) (int, GradingMode) {
	if !cfg.UseTDistribution || stats.Count == 0 {
		return GradeFromThresholds(composite, cfg.GradingThresholds), GradingStatic
	}
	if stats.StdDev < boundaryEpsilon {
		return clampGrade(cfg.NeutralGrade), GradingNeutral
	}
	return GradeFromDistribution(composite, stats, cfg.NeutralGrade), GradingDistribution
}

// GradeRemark returns the remark configured for a grade.
func GradeRemark(grade int, bands []models.GradeBand) string {
	for _, band := range bands {
		if band.Grade == grade && band.Remark != "" {
			return band.Remark
		}
	}
	return ""
}

func clampField(field string, raw, max float64, events *[]models.ClampEvent) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		*events = append(*events, models.ClampEvent{Field: field})
		return 0
	}
	applied := clamp(raw, 0, math.Max(max, 0))
	if applied != raw {
		*events = append(*events, models.ClampEvent{Field: field, Raw: raw, Applied: applied})
	}
	return applied
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampGrade(g int) int {
	if g < bestGrade {
		return bestGrade
	}
	if g > worstGrade {
		return worstGrade
	}
	return g
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
