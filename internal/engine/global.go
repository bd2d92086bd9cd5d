package engine

import (
	"cmp"
	"slices"

	"github.com/noah-isme/ssmap-api/internal/models"
)

// InstitutionSnapshot is one hub's contribution to a cross-institution ranking.
type InstitutionSnapshot struct {
	InstitutionID   string
	InstitutionName string
	Students        []models.Student
}

// GlobalEntry is one student's standing across every institution.
type GlobalEntry struct {
	InstitutionID   string  `json:"institution_id"`
	InstitutionName string  `json:"institution_name"`
	StudentID       int     `json:"student_id"`
	Name            string  `json:"name"`
	Aggregate       int     `json:"aggregate"`
	TotalScore      float64 `json:"total_score"`
	Category        string  `json:"category"`
	Rank            int     `json:"rank"`
}

// GlobalRanking pools the committed records of a series from every institution
// and ranks them with the class rule. Students are keyed by (institution,
// student id) so equal ids in different hubs never collide; tied entries are
// listed by institution id, then student id.
func GlobalRanking(pool []InstitutionSnapshot, series string) []GlobalEntry {
	var entries []GlobalEntry
	for _, inst := range pool {
		for _, st := range inst.Students {
			rec, ok := st.SeriesHistory[series]
			if !ok {
				continue
			}
			entries = append(entries, GlobalEntry{
				InstitutionID:   inst.InstitutionID,
				InstitutionName: inst.InstitutionName,
				StudentID:       st.ID,
				Name:            st.Name,
				Aggregate:       rec.Aggregate,
				TotalScore:      rec.TotalScore,
				Category:        rec.Category,
			})
		}
	}
	return rankEntries(entries)
}

// SnapshotRanking ranks one institution's committed records for a series.
func SnapshotRanking(inst InstitutionSnapshot, series string) []GlobalEntry {
	return GlobalRanking([]InstitutionSnapshot{inst}, series)
}

// GlobalRankOf finds a student in a global ranking.
func GlobalRankOf(entries []GlobalEntry, institutionID string, studentID int) (GlobalEntry, bool) {
	for _, e := range entries {
		if e.InstitutionID == institutionID && e.StudentID == studentID {
			return e, true
		}
	}
	return GlobalEntry{}, false
}

func rankEntries(entries []GlobalEntry) []GlobalEntry {
	slices.SortStableFunc(entries, func(a, b GlobalEntry) int {
		if c := cmp.Compare(a.Aggregate, b.Aggregate); c != 0 {
			return c
		}
		if c := cmp.Compare(round2(b.TotalScore), round2(a.TotalScore)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.InstitutionID, b.InstitutionID); c != 0 {
			return c
		}
		return cmp.Compare(a.StudentID, b.StudentID)
	})
	for i := range entries {
		if i > 0 && entries[i].Aggregate == entries[i-1].Aggregate && round2(entries[i].TotalScore) == round2(entries[i-1].TotalScore) {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
	return entries
}
