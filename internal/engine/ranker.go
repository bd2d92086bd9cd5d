package engine

import (
	"cmp"
	"slices"
)

// RankStudents orders students by aggregate ascending, total score descending
// and id ascending, then assigns competition ranks: students sharing both
// aggregate and total score share a rank and the next rank is skipped
// (1, 1, 3). Students with no recorded subjects are unranked (rank 0) and
// placed last. The input slice is not modified.
func RankStudents(students []ProcessedStudent) []ProcessedStudent {
	out := append([]ProcessedStudent(nil), students...)
	slices.SortStableFunc(out, compareStanding)

	for i := range out {
		switch {
		case out[i].RecordedSubjects == 0:
			out[i].Rank = 0
		case i > 0 && out[i-1].RecordedSubjects > 0 && sameStanding(out[i-1], out[i]):
			out[i].Rank = out[i-1].Rank
		default:
			out[i].Rank = i + 1
		}
	}
	return out
}

func compareStanding(a, b ProcessedStudent) int {
	if (a.RecordedSubjects == 0) != (b.RecordedSubjects == 0) {
		if a.RecordedSubjects == 0 {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.BestSixAggregate, b.BestSixAggregate); c != 0 {
		return c
	}
	if c := cmp.Compare(round2(b.TotalScore), round2(a.TotalScore)); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func sameStanding(a, b ProcessedStudent) bool {
	return a.BestSixAggregate == b.BestSixAggregate && round2(a.TotalScore) == round2(b.TotalScore)
}
