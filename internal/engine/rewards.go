package engine

import (
	"cmp"
	"slices"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// FacilitatorMerit scores a facilitator's subject for the reward programme.
type FacilitatorMerit struct {
	Subject         string  `json:"subject"`
	Facilitator     string  `json:"facilitator"`
	StaffID         string  `json:"staff_id"`
	MeanComposite   float64 `json:"mean_composite"`
	GradeFactor     float64 `json:"grade_factor"`
	SubjectGrowth   float64 `json:"subject_growth"`
	ObjectiveGrowth float64 `json:"objective_growth"`
	TheoryGrowth    float64 `json:"theory_growth"`
	TEI             float64 `json:"tei"`
	BeceMeanGrade   float64 `json:"bece_mean_grade"`
	SigDiff         float64 `json:"sig_diff"`
	Rank            int     `json:"rank"`
	Share           float64 `json:"share"`
}

// FacilitatorMerits computes the teaching efficiency index of every subject
// with an assigned facilitator and recorded data in the current series.
//
// The grade factor max(1, 10 - mean/10) weights harder subjects up; subject,
// objective and theory growth compare working means against the previous
// series, falling back to 1.0 when the previous series has no data. Results
// are ranked by TEI descending and the pool is shared in proportion to TEI.
func FacilitatorMerits(students []models.Student, facilitators models.Facilitators, current, previous, beceYear string, pool float64, cfg Configuration) []FacilitatorMerit {
	cfg, _ = cfg.Normalize()
	cur := workingMeans(students, current, cfg)
	prev := workingMeans(students, previous, cfg)
	bece := beceMeans(students, beceYear)

	var merits []FacilitatorMerit
	for subject, staff := range facilitators {
		if staff.Name == "" {
			continue
		}
		c, ok := cur[subject]
		if !ok {
			continue
		}
		p, ok := prev[subject]
		if !ok || previous == "" {
			p = c
		}
		m := FacilitatorMerit{
			Subject:         subject,
			Facilitator:     staff.Name,
			StaffID:         staff.EnrolledID,
			MeanComposite:   round2(c.composite),
			GradeFactor:     round4(max(1, 10-c.composite/10)),
			SubjectGrowth:   round4(GrowthRatio(c.composite, p.composite)),
			ObjectiveGrowth: round4(GrowthRatio(c.sectionA, p.sectionA)),
			TheoryGrowth:    round4(GrowthRatio(c.sectionB, p.sectionB)),
			BeceMeanGrade:   worstGrade,
		}
		m.TEI = round4(m.GradeFactor * m.SubjectGrowth * m.ObjectiveGrowth * m.TheoryGrowth)
		if mean, ok := bece[subject]; ok {
			m.BeceMeanGrade = round2(mean)
			m.SigDiff = round2(cfg.MockStandardMean - mean)
		}
		merits = append(merits, m)
	}

	slices.SortStableFunc(merits, func(a, b FacilitatorMerit) int {
		if c := cmp.Compare(b.TEI, a.TEI); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject, b.Subject)
	})
	var totalTEI float64
	for _, m := range merits {
		totalTEI += m.TEI
	}
	for i := range merits {
		merits[i].Rank = i + 1
		if totalTEI > 0 {
			merits[i].Share = round2(merits[i].TEI / totalTEI * pool)
		}
	}
	return merits
}

// RankBySigDiff reorders merits by significant difference, best first.
func RankBySigDiff(merits []FacilitatorMerit) []FacilitatorMerit {
	out := append([]FacilitatorMerit(nil), merits...)
	slices.SortStableFunc(out, func(a, b FacilitatorMerit) int {
		if c := cmp.Compare(b.SigDiff, a.SigDiff); c != 0 {
			return c
		}
		return cmp.Compare(a.Subject, b.Subject)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func workingMeans(students []models.Student, series string, cfg Configuration) map[string]sectionMeans {
	if series == "" {
		return nil
	}
	sums := make(map[string]sectionMeans)
	counts := make(map[string]int)
	for _, st := range students {
		for subject, raw := range st.Scores(series) {
			n := NormalizeScore(raw, cfg)
			m := sums[subject]
			m.composite += n.Composite
			m.sectionA += n.SectionA
			m.sectionB += n.SectionB
			sums[subject] = m
			counts[subject]++
		}
	}
	for subject, m := range sums {
		k := float64(counts[subject])
		sums[subject] = sectionMeans{composite: m.composite / k, sectionA: m.sectionA / k, sectionB: m.sectionB / k}
	}
	return sums
}

func beceMeans(students []models.Student, year string) map[string]float64 {
	if year == "" {
		return nil
	}
	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, st := range students {
		res, ok := st.BeceResults[year]
		if !ok {
			continue
		}
		for subject, grade := range res.Grades {
			if grade < bestGrade || grade > worstGrade {
				continue
			}
			sums[subject] += grade
			counts[subject]++
		}
	}
	out := make(map[string]float64, len(sums))
	for subject, total := range sums {
		out[subject] = float64(total) / float64(counts[subject])
	}
	return out
}
