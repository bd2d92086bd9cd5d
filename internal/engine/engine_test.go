package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ssmap-api/internal/models"
)

const series = "MOCK 1"

func staticConfig() Configuration {
	cfg := DefaultConfiguration()
	cfg.UseTDistribution = false
	cfg.SBA.Enabled = false
	return cfg
}

// score builds an exam-only entry whose composite equals pct with 40/60 maxima.
func score(pct float64) models.SubjectScore {
	a := pct
	if a > 40 {
		a = 40
	}
	return models.SubjectScore{SectionA: a, SectionB: pct - a}
}

func student(id int, name string, scores map[string]float64) models.Student {
	set := models.MockSet{Scores: map[string]models.SubjectScore{}}
	for subject, pct := range scores {
		set.Scores[subject] = score(pct)
	}
	return models.Student{ID: id, Name: name, MockData: map[string]models.MockSet{series: set}}
}

func fullStudent(id int, core [4]float64, electives [2]float64) models.Student {
	return student(id, "Pupil", map[string]float64{
		"English Language":   core[0],
		"Mathematics":        core[1],
		"Integrated Science": core[2],
		"Social Studies":     core[3],
		"Computing":          electives[0],
		"French":             electives[1],
	})
}

func TestNormalizeScoreBlendsSBA(t *testing.T) {
	cfg := DefaultConfiguration()
	sba := 80.0
	n := NormalizeScore(models.SubjectScore{SectionA: 30, SectionB: 42, SBA: &sba}, cfg)

	assert.Equal(t, 72.0, n.ExamScore)
	assert.InDelta(t, 72*0.7+80*0.3, n.Composite, 0.01)
	assert.Empty(t, n.Clamped)
}

func TestNormalizeScoreIgnoresLockedSBA(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SBA.Locked = true
	sba := 10.0
	n := NormalizeScore(models.SubjectScore{SectionA: 30, SectionB: 42, SBA: &sba}, cfg)
	assert.Equal(t, 72.0, n.Composite)
}

func TestNormalizeScoreClampsOutOfRange(t *testing.T) {
	cfg := DefaultConfiguration()
	sba := 140.0
	n := NormalizeScore(models.SubjectScore{SectionA: 55, SectionB: -3, SBA: &sba}, cfg)

	assert.Equal(t, 40.0, n.SectionA)
	assert.Equal(t, 0.0, n.SectionB)
	require.NotNil(t, n.SBA)
	assert.Equal(t, 100.0, *n.SBA)
	require.Len(t, n.Clamped, 3)
	assert.Equal(t, "section_a", n.Clamped[0].Field)
	assert.Equal(t, 55.0, n.Clamped[0].Raw)
	assert.Equal(t, 40.0, n.Clamped[0].Applied)
}

func TestCompositeAlwaysWithinBounds(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SBA.SBAWeight, cfg.SBA.ExamWeight = 90, 90
	cfg, _ = cfg.Normalize()
	values := []float64{-1000, -1, 0, 12.5, 39.99, 40, 60, 61, 1e6}
	for _, a := range values {
		for _, b := range values {
			sba := b
			n := NormalizeScore(models.SubjectScore{SectionA: a, SectionB: b, SBA: &sba}, cfg)
			assert.GreaterOrEqual(t, n.Composite, 0.0)
			assert.LessOrEqual(t, n.Composite, 100.0)
		}
	}
}

func TestGradeFromThresholds(t *testing.T) {
	bands := models.DefaultGradeBands()
	cases := []struct {
		composite float64
		grade     int
	}{
		{100, 1}, {85, 1}, {84.99, 2}, {81, 2}, {75, 2}, {72, 3}, {70, 3},
		{68, 4}, {60, 5}, {55, 6}, {50, 7}, {45, 8}, {44.99, 9}, {0, 9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, GradeFromThresholds(tc.composite, bands), "composite %.2f", tc.composite)
	}
}

func TestGradeFromThresholdsDefaultsToWorstWhenUncovered(t *testing.T) {
	bands := []models.GradeBand{{Grade: 1, MinScore: 90}}
	assert.Equal(t, 9, GradeFromThresholds(50, bands))
}

func TestGradeFromDistributionBands(t *testing.T) {
	stats := SubjectStatistics{Count: 10, Mean: 50, StdDev: 10}
	cases := []struct {
		composite float64
		grade     int
	}{
		{50, 5}, {52.49, 5}, {52.5, 4}, {57.5, 3}, {62.5, 2}, {67.5, 1}, {99, 1},
		{47.5, 5}, {47.49, 6}, {32.5, 8}, {32.49, 9}, {0, 9},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, GradeFromDistribution(tc.composite, stats, 5), "composite %.2f", tc.composite)
	}
}

func TestZeroVarianceUsesNeutralGrade(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SBA.Enabled = false
	students := []models.Student{
		student(1, "A", map[string]float64{"Mathematics": 64}),
		student(2, "B", map[string]float64{"Mathematics": 64}),
		student(3, "C", map[string]float64{"Mathematics": 64}),
	}

	result := Process(students, series, nil, cfg)

	assert.Equal(t, GradingNeutral, result.Statistics.Subjects["Mathematics"].Mode)
	for _, st := range result.Students {
		res, ok := st.Subject("Mathematics")
		require.True(t, ok)
		assert.Equal(t, 5, res.Grade)
		assert.Equal(t, GradingNeutral, res.Mode)
	}
}

func TestSelectBestSixExampleScenario(t *testing.T) {
	cfg := staticConfig()
	st := fullStudent(1, [4]float64{72, 68, 81, 55}, [2]float64{90, 62})

	result := Process([]models.Student{st}, series, nil, cfg)
	require.Len(t, result.Students, 1)
	ps := result.Students[0]

	grades := map[string]int{}
	for _, s := range ps.Subjects {
		grades[s.Subject] = s.Grade
	}
	assert.Equal(t, 3, grades["English Language"])
	assert.Equal(t, 4, grades["Mathematics"])
	assert.Equal(t, 2, grades["Integrated Science"])
	assert.Equal(t, 6, grades["Social Studies"])
	assert.Equal(t, 1, grades["Computing"])
	assert.Equal(t, 5, grades["French"])

	assert.Equal(t, 21, ps.BestSixAggregate)
	assert.Equal(t, "PASS", ps.Category)
	assert.False(t, ps.Incomplete)
}

func TestSelectBestSixKeepsCoreAndBestElectives(t *testing.T) {
	results := []SubjectResult{
		{Subject: "English Language", Grade: 9},
		{Subject: "Mathematics", Grade: 8},
		{Subject: "Integrated Science", Grade: 7},
		{Subject: "Social Studies", Grade: 6},
		{Subject: "French", Grade: 4, Composite: 66},
		{Subject: "Computing", Grade: 1, Composite: 90},
		{Subject: "Creative Arts and Designing", Grade: 4, Composite: 67},
	}

	best := SelectBestSix(results, models.DefaultCoreSubjects)

	assert.ElementsMatch(t, []string{"English Language", "Mathematics", "Integrated Science", "Social Studies", "Computing", "Creative Arts and Designing"}, best.Selected)
	assert.Equal(t, 9+8+7+6+1+4, best.Aggregate)
	assert.False(t, best.Incomplete)
}

func TestSelectBestSixFlagsMissingData(t *testing.T) {
	results := []SubjectResult{
		{Subject: "English Language", Grade: 2},
		{Subject: "Mathematics", Grade: 3},
		{Subject: "Computing", Grade: 1},
	}

	best := SelectBestSix(results, models.DefaultCoreSubjects)

	assert.Equal(t, 6, best.Aggregate)
	assert.True(t, best.Incomplete)
	assert.Equal(t, []string{"Integrated Science", "Social Studies"}, best.MissingCore)
}

func TestSelectBestSixCapsOversizedCoreList(t *testing.T) {
	core := []string{"English Language", "Mathematics", "Integrated Science", "Social Studies", "Computing", "French", "RME"}
	results := make([]SubjectResult, 0, len(core))
	for _, name := range core {
		results = append(results, SubjectResult{Subject: name, Grade: 9})
	}

	best := SelectBestSix(results, core)

	assert.Equal(t, 54, best.Aggregate)
	assert.Len(t, best.Selected, BestSixSize)
	assert.NotContains(t, best.Selected, "RME")
	assert.False(t, best.Incomplete)
}

func TestCategorizeBoundaryFallsIntoBetterBand(t *testing.T) {
	bands := models.DefaultCategoryBands()
	assert.Equal(t, "EXCELLENT", Categorize(10, bands, "REMEDIAL"))
	assert.Equal(t, "HIGH", Categorize(11, bands, "REMEDIAL"))
	assert.Equal(t, "HIGH", Categorize(20, bands, "REMEDIAL"))
	assert.Equal(t, "PASS", Categorize(36, bands, "REMEDIAL"))
	assert.Equal(t, "REMEDIAL", Categorize(37, bands, "REMEDIAL"))
}

func TestRankStudentsTieBreakOnTotalScore(t *testing.T) {
	students := []ProcessedStudent{
		{ID: 1, BestSixAggregate: 15, TotalScore: 390, RecordedSubjects: 6},
		{ID: 2, BestSixAggregate: 15, TotalScore: 420, RecordedSubjects: 6},
	}

	ranked := RankStudents(students)

	assert.Equal(t, 2, ranked[0].ID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].ID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, 1, students[0].ID, "input must not be reordered")
}

func TestRankStudentsCompetitionRanking(t *testing.T) {
	students := []ProcessedStudent{
		{ID: 4, BestSixAggregate: 20, TotalScore: 300, RecordedSubjects: 6},
		{ID: 3, BestSixAggregate: 12, TotalScore: 450, RecordedSubjects: 6},
		{ID: 1, BestSixAggregate: 12, TotalScore: 450, RecordedSubjects: 6},
		{ID: 2, BestSixAggregate: 0, RecordedSubjects: 0},
		{ID: 5, BestSixAggregate: 13, TotalScore: 500, RecordedSubjects: 6},
	}

	ranked := RankStudents(students)

	ids := []int{}
	ranks := []int{}
	for _, s := range ranked {
		ids = append(ids, s.ID)
		ranks = append(ranks, s.Rank)
	}
	assert.Equal(t, []int{1, 3, 5, 4, 2}, ids)
	assert.Equal(t, []int{1, 1, 3, 4, 0}, ranks)
}

func TestRankMonotonicity(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SBA.Enabled = false
	var students []models.Student
	for i := 1; i <= 12; i++ {
		base := float64(30 + (i*37)%60)
		students = append(students, fullStudent(i, [4]float64{base, base + 3, base - 4, base + 8}, [2]float64{base + 1, base - 9}))
	}

	result := Process(students, series, nil, cfg)

	for _, a := range result.Students {
		for _, b := range result.Students {
			if a.BestSixAggregate < b.BestSixAggregate {
				assert.LessOrEqual(t, a.Rank, b.Rank)
			}
		}
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	cfg := DefaultConfiguration()
	sba := 70.0
	st := fullStudent(1, [4]float64{72, 68, 81, 55}, [2]float64{90, 62})
	set := st.MockData[series]
	entry := set.Scores["Mathematics"]
	entry.SBA = &sba
	set.Scores["Mathematics"] = entry
	st.MockData[series] = set
	students := []models.Student{st, fullStudent(2, [4]float64{40, 50, 60, 70}, [2]float64{80, 30})}

	first := Process(students, series, nil, cfg)
	second := Process(students, series, nil, cfg)

	assert.Equal(t, first, second)
}

func TestProcessExcludesMissingSubjectsFromStatistics(t *testing.T) {
	cfg := staticConfig()
	students := []models.Student{
		student(1, "A", map[string]float64{"Mathematics": 80, "French": 40}),
		student(2, "B", map[string]float64{"Mathematics": 60}),
	}

	result := Process(students, series, nil, cfg)

	assert.Equal(t, 2, result.Statistics.Subjects["Mathematics"].Count)
	assert.InDelta(t, 70, result.Statistics.Subjects["Mathematics"].Mean, 0.001)
	assert.InDelta(t, 10, result.Statistics.Subjects["Mathematics"].StdDev, 0.001)
	assert.Equal(t, 1, result.Statistics.Subjects["French"].Count)
	for _, st := range result.Students {
		assert.True(t, st.Incomplete)
	}
}

func TestProcessUnranksStudentsWithoutData(t *testing.T) {
	cfg := staticConfig()
	students := []models.Student{
		{ID: 9, Name: "Absent"},
		fullStudent(1, [4]float64{72, 68, 81, 55}, [2]float64{90, 62}),
	}

	result := Process(students, series, nil, cfg)

	assert.Equal(t, 1, result.Students[0].ID)
	assert.Equal(t, 1, result.Students[0].Rank)
	assert.Equal(t, 0, result.Students[1].Rank)
	assert.Equal(t, "", result.Students[1].Category)
	assert.Equal(t, 21.0, result.ClassAverageAggregate)
}

func TestComputeClassStatisticsCoversSubjectsAndAggregates(t *testing.T) {
	students := []models.Student{
		fullStudent(1, [4]float64{90, 90, 90, 90}, [2]float64{90, 90}),
		fullStudent(2, [4]float64{60, 60, 60, 60}, [2]float64{60, 60}),
		{ID: 3, Name: "No scores"},
	}

	stats := ComputeClassStatistics(students, series, staticConfig())

	assert.Equal(t, series, stats.Series)
	assert.Equal(t, 3, stats.StudentCount)
	maths := stats.Subjects["Mathematics"]
	assert.Equal(t, 2, maths.Count)
	assert.InDelta(t, 75.0, maths.Mean, 0.001)
	assert.InDelta(t, 15.0, maths.StdDev, 0.001)
	assert.Equal(t, 2, stats.Aggregates.Count, "students without scores are left out")
	assert.Equal(t, Process(students, series, nil, staticConfig()).Statistics, stats)
}

func TestConfigurationValidate(t *testing.T) {
	assert.NoError(t, DefaultConfiguration().Validate())

	cfg := DefaultConfiguration()
	cfg.SBA.SBAWeight, cfg.SBA.ExamWeight = 40, 70
	cfg.GradingThresholds = append(cfg.GradingThresholds, models.GradeBand{Grade: 10, MinScore: 0})
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "must sum to 100")
	assert.Contains(t, err.Error(), "outside 1-9")
}

func TestConfigurationRejectsTooManyCoreSubjects(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.CoreSubjects = []string{"English Language", "Mathematics", "Integrated Science", "Social Studies", "Computing", "French", "RME"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "at most 6")

	normalized, notes := cfg.Normalize()
	assert.Equal(t, cfg.CoreSubjects[:BestSixSize], normalized.CoreSubjects)
	assert.Contains(t, notes, "core subjects truncated from 7 to 6")
	assert.Len(t, cfg.CoreSubjects, 7, "receiver must stay untouched")
}

func TestConfigurationNormalizeRescalesWeights(t *testing.T) {
	cfg := DefaultConfiguration()
	cfg.SBA.SBAWeight, cfg.SBA.ExamWeight = 20, 60

	normalized, notes := cfg.Normalize()

	assert.InDelta(t, 25, normalized.SBA.SBAWeight, 0.001)
	assert.InDelta(t, 75, normalized.SBA.ExamWeight, 0.001)
	assert.NotEmpty(t, notes)
	assert.Equal(t, 20.0, cfg.SBA.SBAWeight, "receiver must stay untouched")
}

func TestRecommitDropsStaleRecords(t *testing.T) {
	cfg := staticConfig()
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	students := []models.Student{
		fullStudent(1, [4]float64{90, 90, 90, 90}, [2]float64{90, 90}),
		fullStudent(2, [4]float64{60, 60, 60, 60}, [2]float64{60, 60}),
	}
	students[1].SeriesHistory = map[string]models.SeriesRecord{"MOCK 0": {Series: "MOCK 0", Aggregate: 20}}

	rec, err := Commit(Process(students, series, nil, cfg), first)
	require.NoError(t, err)
	students = ApplyCommit(students, series, rec)
	require.Contains(t, students[1].SeriesHistory, series)

	delete(students[1].MockData, series)
	rec, err = Commit(Process(students, series, nil, cfg), first.Add(time.Hour))
	require.NoError(t, err)
	students = ApplyCommit(students, series, rec)

	assert.NotContains(t, students[1].SeriesHistory, series)
	assert.Contains(t, students[1].SeriesHistory, "MOCK 0", "other series are kept")

	ranked := GlobalRanking([]InstitutionSnapshot{{InstitutionID: "HUB-A", Students: students}}, series)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].StudentID)
}

func TestCommitAndGrowth(t *testing.T) {
	cfg := staticConfig()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock1 := []models.Student{fullStudent(1, [4]float64{50, 50, 50, 50}, [2]float64{50, 50})}
	res1 := Process(mock1, series, nil, cfg)
	rec1, err := Commit(res1, at)
	require.NoError(t, err)
	students := ApplyCommit(mock1, series, rec1)
	assert.Nil(t, mock1[0].SeriesHistory, "input must not be mutated")

	st := students[0]
	st.MockData["MOCK 2"] = fullStudent(1, [4]float64{75, 75, 75, 75}, [2]float64{75, 75}).MockData[series]
	res2 := Process([]models.Student{st}, "MOCK 2", nil, cfg)
	rec2, err := Commit(res2, at.Add(time.Hour))
	require.NoError(t, err)
	students = ApplyCommit([]models.Student{st}, "MOCK 2", rec2)

	growth := StudentGrowthRates(students, "MOCK 2", series, cfg)
	require.Len(t, growth, 1)
	assert.InDelta(t, 1.5, growth[0].Growth, 0.0001)
	assert.Equal(t, ProgressionImproved, growth[0].Progression)

	subjects := SubjectGrowthRates(students, "MOCK 2", series)
	require.NotEmpty(t, subjects)
	assert.InDelta(t, 1.5, subjects[0].Growth, 0.0001)

	timeline := Timeline(students[0], cfg)
	require.Len(t, timeline, 2)
	assert.Equal(t, ProgressionNone, timeline[0].Progression)
	assert.InDelta(t, 1.5, timeline[1].Growth, 0.0001)
}

func TestCommitRejectsEmptySeries(t *testing.T) {
	_, err := Commit(Process([]models.Student{{ID: 1}}, series, nil, staticConfig()), time.Now())
	assert.ErrorIs(t, err, ErrNothingToCommit)
}

func TestGrowthRatioNeutrality(t *testing.T) {
	assert.Equal(t, 1.0, GrowthRatio(420, 0))
	assert.Equal(t, 1.0, GrowthRatio(0, 0))
	assert.Equal(t, 1.0, GrowthRatio(10, -5))
	assert.Equal(t, 2.0, GrowthRatio(10, 5))

	students := []models.Student{{ID: 1, SeriesHistory: map[string]models.SeriesRecord{
		series: {Aggregate: 12, TotalScore: 400},
	}}}
	growth := StudentGrowthRates(students, series, "MOCK 0", DefaultConfiguration())
	require.Len(t, growth, 1)
	assert.Equal(t, 1.0, growth[0].Growth)
	assert.False(t, growth[0].HasPrevious)
}

func TestGlobalRanking(t *testing.T) {
	hist := func(agg int, total float64) map[string]models.SeriesRecord {
		return map[string]models.SeriesRecord{series: {Aggregate: agg, TotalScore: total}}
	}
	pool := []InstitutionSnapshot{
		{InstitutionID: "HUB-A", Students: []models.Student{
			{ID: 1, Name: "Ama", SeriesHistory: hist(10, 500)},
			{ID: 2, Name: "Kofi", SeriesHistory: hist(25, 300)},
		}},
		{InstitutionID: "HUB-B", Students: []models.Student{
			{ID: 1, Name: "Esi", SeriesHistory: hist(10, 500)},
			{ID: 3, Name: "Yaw"},
			{ID: 4, Name: "Kwame", SeriesHistory: hist(8, 400)},
		}},
	}

	ranking := GlobalRanking(pool, series)

	require.Len(t, ranking, 4)
	assert.Equal(t, "Kwame", ranking[0].Name)
	assert.Equal(t, 1, ranking[0].Rank)
	assert.Equal(t, 2, ranking[1].Rank)
	assert.Equal(t, 2, ranking[2].Rank)
	assert.Equal(t, 4, ranking[3].Rank)

	entry, ok := GlobalRankOf(ranking, "HUB-B", 1)
	require.True(t, ok)
	assert.Equal(t, "Esi", entry.Name)
	assert.Equal(t, 2, entry.Rank)

	_, ok = GlobalRankOf(ranking, "HUB-B", 3)
	assert.False(t, ok)
}

func TestGlobalRankingOrdersTiesByInstitutionThenStudent(t *testing.T) {
	rec := map[string]models.SeriesRecord{series: {Aggregate: 12, TotalScore: 450}}
	pool := []InstitutionSnapshot{
		{InstitutionID: "HUB-B", Students: []models.Student{{ID: 1, SeriesHistory: rec}}},
		{InstitutionID: "HUB-A", Students: []models.Student{{ID: 7, SeriesHistory: rec}, {ID: 5, SeriesHistory: rec}}},
	}

	ranking := GlobalRanking(pool, series)

	require.Len(t, ranking, 3)
	assert.Equal(t, "HUB-A", ranking[0].InstitutionID)
	assert.Equal(t, 5, ranking[0].StudentID)
	assert.Equal(t, "HUB-A", ranking[1].InstitutionID)
	assert.Equal(t, 7, ranking[1].StudentID)
	assert.Equal(t, "HUB-B", ranking[2].InstitutionID)
	for _, e := range ranking {
		assert.Equal(t, 1, e.Rank)
	}
}

func TestFacilitatorMerits(t *testing.T) {
	cfg := staticConfig()
	mk := func(id int, cur, prev float64) models.Student {
		return models.Student{
			ID: id,
			MockData: map[string]models.MockSet{
				"MOCK 1": {Scores: map[string]models.SubjectScore{"Mathematics": score(prev), "French": score(60)}},
				"MOCK 2": {Scores: map[string]models.SubjectScore{"Mathematics": score(cur), "French": score(60)}},
			},
			BeceResults: map[string]models.BeceResult{"2026": {Year: "2026", Grades: map[string]int{"Mathematics": 3}}},
		}
	}
	students := []models.Student{mk(1, 40, 40), mk(2, 40, 40)}
	staff := models.Facilitators{
		"Mathematics": {Name: "Mr. Mensah", EnrolledID: "FAC-001"},
		"French":      {Name: "Mme. Adjei", EnrolledID: "FAC-002"},
		"Computing":   {Name: "Ms. Owusu", EnrolledID: "FAC-003"},
	}

	merits := FacilitatorMerits(students, staff, "MOCK 2", "MOCK 1", "2026", 1000, cfg)

	require.Len(t, merits, 2)
	assert.Equal(t, "Mathematics", merits[0].Subject)
	assert.InDelta(t, 6.0, merits[0].GradeFactor, 0.0001)
	assert.Equal(t, 1.0, merits[0].SubjectGrowth)
	assert.InDelta(t, 6.0, merits[0].TEI, 0.0001)
	assert.InDelta(t, 2.5, merits[0].SigDiff, 0.0001)
	assert.InDelta(t, 600, merits[0].Share, 0.01)
	assert.InDelta(t, 400, merits[1].Share, 0.01)
	assert.Equal(t, 9.0, merits[1].BeceMeanGrade)

	bySig := RankBySigDiff(merits)
	assert.Equal(t, "Mathematics", bySig[0].Subject)
	assert.Equal(t, 1, bySig[0].Rank)
}

func committed(id int, name string, records map[string]models.SeriesRecord) models.Student {
	return models.Student{ID: id, Name: name, SeriesHistory: records}
}

func TestPupilMeritsOrdersByGrowth(t *testing.T) {
	students := []models.Student{
		committed(1, "Steady", map[string]models.SeriesRecord{
			"MOCK 1": {Aggregate: 12, TotalScore: 400, Category: "HIGH"},
			"MOCK 2": {Aggregate: 12, TotalScore: 400, Category: "HIGH"},
		}),
		committed(2, "Climber", map[string]models.SeriesRecord{
			"MOCK 1": {Aggregate: 30, TotalScore: 300, Category: "PASS"},
			"MOCK 2": {Aggregate: 18, TotalScore: 450, Category: "HIGH"},
		}),
		committed(3, "Newcomer", map[string]models.SeriesRecord{
			"MOCK 2": {Aggregate: 10, TotalScore: 500, Category: "EXCELLENT"},
		}),
	}

	merits := PupilMerits(students, "MOCK 2", "MOCK 1", DefaultConfiguration())
	require.Len(t, merits, 3)

	assert.Equal(t, 2, merits[0].StudentID)
	assert.Equal(t, 1.5, merits[0].Growth)
	assert.Equal(t, ProgressionImproved, merits[0].Progression)
	assert.Equal(t, 1, merits[0].Rank)

	// both at 1.0 growth; the better aggregate wins
	assert.Equal(t, 3, merits[1].StudentID)
	assert.Equal(t, 2, merits[1].Rank)
	assert.Equal(t, 1, merits[2].StudentID)
	assert.Equal(t, 3, merits[2].Rank)
}

func TestTrackerFollowsSeriesOrder(t *testing.T) {
	cfg := DefaultConfiguration()
	students := []models.Student{
		committed(2, "Efua", nil),
		committed(1, "Yaw", map[string]models.SeriesRecord{
			"MOCK 2": {Aggregate: 9, Rank: 1, Category: "EXCELLENT"},
			"MOCK 1": {Aggregate: 14, Rank: 2, Category: "HIGH"},
		}),
	}

	rows := Tracker(students, cfg)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].StudentID)
	assert.Equal(t, 9, rows[0].Best)
	assert.Equal(t, "MOCK 2", rows[0].Latest)
	assert.Equal(t, TrackerCell{Aggregate: 14, Rank: 2, Category: "HIGH"}, rows[0].Series["MOCK 1"])

	assert.Empty(t, rows[1].Series)
	assert.Zero(t, rows[1].Best)
}
