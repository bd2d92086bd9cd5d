package models

import "time"

// SubjectScore is the raw working entry for one subject in one series.
// SBA is nil when no continuous-assessment score was recorded.
type SubjectScore struct {
	SectionA float64  `json:"section_a"`
	SectionB float64  `json:"section_b"`
	SBA      *float64 `json:"sba,omitempty"`
}

// Observations captures the free-text notes recorded by exam officials.
type Observations struct {
	Facilitator string `json:"facilitator,omitempty"`
	Invigilator string `json:"invigilator,omitempty"`
	Examiner    string `json:"examiner,omitempty"`
}

// MockSet is the mutable working record of a student for one examination series.
// A subject missing from Scores has no recorded data.
type MockSet struct {
	Scores             map[string]SubjectScore `json:"scores"`
	FacilitatorRemarks map[string]string       `json:"facilitator_remarks,omitempty"`
	Observations       Observations            `json:"observations"`
	Attendance         int                     `json:"attendance"`
	ConductRemark      string                  `json:"conduct_remark,omitempty"`
}

// SubScoreSnapshot freezes one subject's resolved values at commit time.
type SubScoreSnapshot struct {
	SectionA  float64 `json:"section_a"`
	SectionB  float64 `json:"section_b"`
	Composite float64 `json:"composite"`
	Grade     int     `json:"grade"`
}

// SeriesRecord is the immutable commit record for a student in one series.
type SeriesRecord struct {
	Series      string                      `json:"series"`
	Aggregate   int                         `json:"aggregate"`
	TotalScore  float64                     `json:"total_score"`
	Rank        int                         `json:"rank"`
	Category    string                      `json:"category"`
	Rate        float64                     `json:"rate"`
	Incomplete  bool                        `json:"incomplete,omitempty"`
	SubScores   map[string]SubScoreSnapshot `json:"sub_scores"`
	CommittedAt time.Time                   `json:"committed_at"`
}

// BeceResult holds the final external examination grades for one year.
type BeceResult struct {
	Year   string         `json:"year"`
	Grades map[string]int `json:"grades"`
}

// Student is the persisted working record for a pupil enrolled at a hub.
type Student struct {
	ID            int                     `json:"id"`
	Name          string                  `json:"name"`
	Gender        string                  `json:"gender,omitempty"`
	ParentContact string                  `json:"parent_contact,omitempty"`
	MockData      map[string]MockSet      `json:"mock_data"`
	SeriesHistory map[string]SeriesRecord `json:"series_history,omitempty"`
	BeceResults   map[string]BeceResult   `json:"bece_results,omitempty"`
}

// Scores returns the working scores for a series or nil when none exist.
func (s Student) Scores(series string) map[string]SubjectScore {
	if s.MockData == nil {
		return nil
	}
	return s.MockData[series].Scores
}

// Clone returns a deep copy so callers can mutate without aliasing persisted maps.
func (s Student) Clone() Student {
	out := s
	if s.MockData != nil {
		out.MockData = make(map[string]MockSet, len(s.MockData))
		for series, set := range s.MockData {
			out.MockData[series] = set.clone()
		}
	}
	if s.SeriesHistory != nil {
		out.SeriesHistory = make(map[string]SeriesRecord, len(s.SeriesHistory))
		for series, rec := range s.SeriesHistory {
			out.SeriesHistory[series] = rec
		}
	}
	if s.BeceResults != nil {
		out.BeceResults = make(map[string]BeceResult, len(s.BeceResults))
		for year, res := range s.BeceResults {
			grades := make(map[string]int, len(res.Grades))
			for k, v := range res.Grades {
				grades[k] = v
			}
			out.BeceResults[year] = BeceResult{Year: res.Year, Grades: grades}
		}
	}
	return out
}

func (m MockSet) clone() MockSet {
	out := m
	if m.Scores != nil {
		out.Scores = make(map[string]SubjectScore, len(m.Scores))
		for k, v := range m.Scores {
			if v.SBA != nil {
				sba := *v.SBA
				v.SBA = &sba
			}
			out.Scores[k] = v
		}
	}
	if m.FacilitatorRemarks != nil {
		out.FacilitatorRemarks = make(map[string]string, len(m.FacilitatorRemarks))
		for k, v := range m.FacilitatorRemarks {
			out.FacilitatorRemarks[k] = v
		}
	}
	return out
}
