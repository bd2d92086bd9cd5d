// Package engine turns raw per-subject examination scores into composites,
// grades, best-six aggregates, rankings, class statistics and series trends.
//
// Every function in this package is pure: it reads its inputs, never mutates
// them and performs no I/O. Callers pass an explicit Configuration on every
// invocation.
package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/noah-isme/ssmap-api/internal/models"
)

const (
	weightTolerance = 0.01
	centreGrade     = 5
	bestGrade       = 1
	worstGrade      = 9
)

// ErrInvalidConfiguration reports a configuration that cannot be applied as given.
var ErrInvalidConfiguration = errors.New("invalid grading configuration")

// Configuration is the immutable input governing every engine computation.
type Configuration struct {
	Subjects           []string
	CoreSubjects       []string
	GradingThresholds  []models.GradeBand
	CategoryThresholds []models.CategoryBand
	FallbackCategory   string
	SBA                models.SBAConfig
	MaxSectionA        float64
	MaxSectionB        float64
	UseTDistribution   bool
	NeutralGrade       int
	ActiveSeries       string
	CommittedSeries    []string
	MockStandardMean   float64
}

// DefaultConfiguration returns the configuration of a freshly registered hub.
func DefaultConfiguration() Configuration {
	return FromSettings(models.DefaultSettings(""))
}

// FromSettings builds a Configuration from persisted hub settings.
func FromSettings(s models.Settings) Configuration {
	return Configuration{
		Subjects:           append([]string(nil), s.Subjects...),
		CoreSubjects:       append([]string(nil), s.CoreSubjects...),
		GradingThresholds:  append([]models.GradeBand(nil), s.GradingThresholds...),
		CategoryThresholds: append([]models.CategoryBand(nil), s.CategoryThresholds...),
		FallbackCategory:   s.FallbackCategory,
		SBA:                s.SBA,
		MaxSectionA:        s.MaxSectionA,
		MaxSectionB:        s.MaxSectionB,
		UseTDistribution:   s.UseTDistribution,
		NeutralGrade:       s.NeutralGrade,
		ActiveSeries:       s.ActiveSeries,
		CommittedSeries:    append([]string(nil), s.CommittedSeries...),
		MockStandardMean:   s.MockStandardMean,
	}
}

// Validate reports every inconsistency found in the configuration.
func (c Configuration) Validate() error {
	var problems []string

	if c.SBA.SBAWeight < 0 || c.SBA.ExamWeight < 0 {
		problems = append(problems, "sba and exam weights must not be negative")
	} else if c.SBA.Enabled && !c.SBA.Locked && math.Abs(c.SBA.SBAWeight+c.SBA.ExamWeight-100) > weightTolerance {
		problems = append(problems, fmt.Sprintf("sba weight %.2f and exam weight %.2f must sum to 100", c.SBA.SBAWeight, c.SBA.ExamWeight))
	}

	if c.MaxSectionA < 0 || c.MaxSectionB < 0 {
		problems = append(problems, "section maxima must not be negative")
	} else if c.MaxSectionA+c.MaxSectionB <= 0 {
		problems = append(problems, "section maxima must sum to a positive total")
	}

	if len(c.GradingThresholds) == 0 {
		problems = append(problems, "grading thresholds are empty")
	}
	seenGrades := make(map[int]struct{}, len(c.GradingThresholds))
	for _, band := range c.GradingThresholds {
		if band.Grade < bestGrade || band.Grade > worstGrade {
			problems = append(problems, fmt.Sprintf("grade %d is outside 1-9", band.Grade))
		}
		if band.MinScore < 0 || band.MinScore > 100 {
			problems = append(problems, fmt.Sprintf("grade %d threshold %.2f is outside 0-100", band.Grade, band.MinScore))
		}
		if _, dup := seenGrades[band.Grade]; dup {
			problems = append(problems, fmt.Sprintf("grade %d is defined twice", band.Grade))
		}
		seenGrades[band.Grade] = struct{}{}
	}
	byGrade := append([]models.GradeBand(nil), c.GradingThresholds...)
	sort.SliceStable(byGrade, func(i, j int) bool { return byGrade[i].Grade < byGrade[j].Grade })
	for i := 1; i < len(byGrade); i++ {
		if byGrade[i].Grade != byGrade[i-1].Grade && byGrade[i].MinScore >= byGrade[i-1].MinScore {
			problems = append(problems, fmt.Sprintf("grade %d threshold must be below grade %d threshold", byGrade[i].Grade, byGrade[i-1].Grade))
		}
	}

	seenMax := make(map[int]struct{}, len(c.CategoryThresholds))
	for _, band := range c.CategoryThresholds {
		if strings.TrimSpace(band.Label) == "" {
			problems = append(problems, "category label is empty")
		}
		if band.MaxAggregate < 6 || band.MaxAggregate > 54 {
			problems = append(problems, fmt.Sprintf("category %q bound %d is outside 6-54", band.Label, band.MaxAggregate))
		}
		if _, dup := seenMax[band.MaxAggregate]; dup {
			problems = append(problems, fmt.Sprintf("category bound %d is defined twice", band.MaxAggregate))
		}
		seenMax[band.MaxAggregate] = struct{}{}
	}

	if n := len(distinctCore(c.CoreSubjects)); n > BestSixSize {
		problems = append(problems, fmt.Sprintf("%d core subjects configured, at most %d are allowed", n, BestSixSize))
	}

	if c.NeutralGrade != 0 && (c.NeutralGrade < bestGrade || c.NeutralGrade > worstGrade) {
		problems = append(problems, fmt.Sprintf("neutral grade %d is outside 1-9", c.NeutralGrade))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// Normalize returns a repaired copy of the configuration together with a note
// for every adjustment it made. The receiver is left untouched.
func (c Configuration) Normalize() (Configuration, []string) {
	out := c
	var notes []string

	if out.MaxSectionA < 0 {
		out.MaxSectionA = 0
	}
	if out.MaxSectionB < 0 {
		out.MaxSectionB = 0
	}
	if out.MaxSectionA+out.MaxSectionB <= 0 {
		out.MaxSectionA, out.MaxSectionB = 40, 60
		notes = append(notes, "section maxima reset to 40/60")
	}

	sba, exam := math.Max(out.SBA.SBAWeight, 0), math.Max(out.SBA.ExamWeight, 0)
	if total := sba + exam; math.Abs(total-100) > weightTolerance {
		if total > 0 {
			sba, exam = sba/total*100, exam/total*100
			notes = append(notes, fmt.Sprintf("sba/exam weights rescaled to %.2f/%.2f", sba, exam))
		} else {
			sba, exam = 30, 70
			notes = append(notes, "sba/exam weights reset to 30/70")
		}
	}
	out.SBA.SBAWeight, out.SBA.ExamWeight = sba, exam

	out.GradingThresholds = normalizeGradeBands(c.GradingThresholds, &notes)
	out.CategoryThresholds = normalizeCategoryBands(c.CategoryThresholds, &notes)

	if strings.TrimSpace(out.FallbackCategory) == "" {
		out.FallbackCategory = "REMEDIAL"
	}
	if out.NeutralGrade < bestGrade || out.NeutralGrade > worstGrade {
		out.NeutralGrade = centreGrade
	}
	if len(out.CoreSubjects) == 0 {
		out.CoreSubjects = append([]string(nil), models.DefaultCoreSubjects...)
	} else {
		out.CoreSubjects = limitCore(c.CoreSubjects)
		if n := len(distinctCore(c.CoreSubjects)); n > BestSixSize {
			notes = append(notes, fmt.Sprintf("core subjects truncated from %d to %d", n, BestSixSize))
		}
	}
	out.Subjects = append([]string(nil), c.Subjects...)
	out.CommittedSeries = append([]string(nil), c.CommittedSeries...)
	if out.MockStandardMean <= 0 {
		out.MockStandardMean = 5.5
	}

	return out, notes
}

func normalizeGradeBands(in []models.GradeBand, notes *[]string) []models.GradeBand {
	bands := make([]models.GradeBand, 0, len(in))
	for _, band := range in {
		if band.Grade < bestGrade || band.Grade > worstGrade {
			*notes = append(*notes, fmt.Sprintf("grade band %d dropped", band.Grade))
			continue
		}
		band.MinScore = clamp(band.MinScore, 0, 100)
		bands = append(bands, band)
	}
	if len(bands) == 0 {
		if len(in) > 0 {
			*notes = append(*notes, "grading thresholds reset to defaults")
		}
		return models.DefaultGradeBands()
	}

	sort.SliceStable(bands, func(i, j int) bool {
		if bands[i].MinScore != bands[j].MinScore {
			return bands[i].MinScore > bands[j].MinScore
		}
		return bands[i].Grade < bands[j].Grade
	})

	// a higher threshold never maps to a worse grade
	for i := 1; i < len(bands); i++ {
		if bands[i].Grade < bands[i-1].Grade {
			*notes = append(*notes, fmt.Sprintf("grade band at %.2f raised to grade %d", bands[i].MinScore, bands[i-1].Grade))
			bands[i].Grade = bands[i-1].Grade
		}
	}
	return bands
}

func normalizeCategoryBands(in []models.CategoryBand, notes *[]string) []models.CategoryBand {
	bands := make([]models.CategoryBand, 0, len(in))
	for _, band := range in {
		if strings.TrimSpace(band.Label) == "" {
			*notes = append(*notes, "unlabelled category band dropped")
			continue
		}
		if band.MaxAggregate < 6 || band.MaxAggregate > 54 {
			*notes = append(*notes, fmt.Sprintf("category %q bound clamped into 6-54", band.Label))
			band.MaxAggregate = int(clamp(float64(band.MaxAggregate), 6, 54))
		}
		bands = append(bands, band)
	}
	if len(bands) == 0 && in == nil {
		return models.DefaultCategoryBands()
	}
	sort.SliceStable(bands, func(i, j int) bool { return bands[i].MaxAggregate < bands[j].MaxAggregate })
	return bands
}

// sbaActive reports whether SBA scores contribute to composites.
func (c Configuration) sbaActive() bool {
	return c.SBA.Enabled && !c.SBA.Locked && c.SBA.SBAWeight+c.SBA.ExamWeight > 0
}

// PreviousSeries returns the committed series immediately before series, if any.
func (c Configuration) PreviousSeries(series string) (string, bool) {
	for i, name := range c.CommittedSeries {
		if name == series {
			if i == 0 {
				return "", false
			}
			return c.CommittedSeries[i-1], true
		}
	}
	return "", false
}

func distinctCore(core []string) []string {
	seen := make(map[string]struct{}, len(core))
	out := make([]string, 0, len(core))
	for _, name := range core {
		key := normalizeName(name)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// limitCore keeps the first BestSixSize distinct core subjects in configured order.
func limitCore(core []string) []string {
	out := distinctCore(core)
	if len(out) > BestSixSize {
		out = out[:BestSixSize]
	}
	return out
}

func isCore(subject string, core []string) bool {
	for _, name := range core {
		if normalizeName(name) == normalizeName(subject) {
			return true
		}
	}
	return false
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
