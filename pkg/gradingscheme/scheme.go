// Package gradingscheme loads default grading tables from YAML files.
package gradingscheme

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// Scheme overrides the grading parts of a hub's default settings. Zero-valued
// fields leave the built-in defaults in place.
type Scheme struct {
	Name             string                `yaml:"name"`
	Subjects         []string              `yaml:"subjects"`
	CoreSubjects     []string              `yaml:"core_subjects"`
	GradeBands       []models.GradeBand    `yaml:"grade_bands"`
	CategoryBands    []models.CategoryBand `yaml:"category_bands"`
	FallbackCategory string                `yaml:"fallback_category"`
	SBA              *models.SBAConfig     `yaml:"sba"`
	MaxSectionA      float64               `yaml:"max_section_a"`
	MaxSectionB      float64               `yaml:"max_section_b"`
	UseTDistribution *bool                 `yaml:"use_t_distribution"`
	NeutralGrade     int                   `yaml:"neutral_grade"`
	Series           []string              `yaml:"series"`
	MockStandardMean float64               `yaml:"mock_standard_mean"`
}

// Load reads a scheme file.
func Load(path string) (*Scheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read grading scheme: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scheme document. Unknown keys are rejected.
func Parse(data []byte) (*Scheme, error) {
	var scheme Scheme
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scheme); err != nil {
		return nil, fmt.Errorf("decode grading scheme: %w", err)
	}
	return &scheme, nil
}

// Apply returns settings with the scheme's overrides merged in.
func (s *Scheme) Apply(base models.Settings) models.Settings {
	if s == nil {
		return base
	}
	out := base
	if len(s.Subjects) > 0 {
		out.Subjects = append([]string(nil), s.Subjects...)
	}
	if len(s.CoreSubjects) > 0 {
		out.CoreSubjects = append([]string(nil), s.CoreSubjects...)
	}
	if len(s.GradeBands) > 0 {
		out.GradingThresholds = append([]models.GradeBand(nil), s.GradeBands...)
	}
	if len(s.CategoryBands) > 0 {
		out.CategoryThresholds = append([]models.CategoryBand(nil), s.CategoryBands...)
	}
	if s.FallbackCategory != "" {
		out.FallbackCategory = s.FallbackCategory
	}
	if s.SBA != nil {
		out.SBA = *s.SBA
	}
	if s.MaxSectionA > 0 {
		out.MaxSectionA = s.MaxSectionA
	}
	if s.MaxSectionB > 0 {
		out.MaxSectionB = s.MaxSectionB
	}
	if s.UseTDistribution != nil {
		out.UseTDistribution = *s.UseTDistribution
	}
	if s.NeutralGrade > 0 {
		out.NeutralGrade = s.NeutralGrade
	}
	if len(s.Series) > 0 {
		out.CommittedSeries = append([]string(nil), s.Series...)
		out.ActiveSeries = s.Series[0]
	}
	if s.MockStandardMean > 0 {
		out.MockStandardMean = s.MockStandardMean
	}
	return out
}

// Template returns a settings factory for newly registered hubs.
func (s *Scheme) Template() func(schoolName string) models.Settings {
	return func(schoolName string) models.Settings {
		return s.Apply(models.DefaultSettings(schoolName))
	}
}
