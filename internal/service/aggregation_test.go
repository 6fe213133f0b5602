package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

func listItem(id, studentID, studentName, examID, courseID string, status models.RetakeStatus, postpones, absences int) models.RetakeListItem {
	scheduled := date("2025-03-01")
	return models.RetakeListItem{
		RetakeAssignment: models.RetakeAssignment{
			ID:            id,
			StudentID:     studentID,
			ExamID:        examID,
			Status:        status,
			ScheduledDate: &scheduled,
			PostponeCount: postpones,
			AbsentCount:   absences,
		},
		StudentName: studentName,
		ExamName:    "Algebra Final",
		CourseID:    courseID,
		CourseName:  "Mathematics",
	}
}

func sampleWorkingSet() []models.RetakeListItem {
	return []models.RetakeListItem{
		listItem("r1", "s1", "Ada Lovelace", "e1", "c1", models.RetakeStatusPending, 2, 0),
		listItem("r2", "s1", "Ada Lovelace", "e2", "c1", models.RetakeStatusAbsent, 1, 1),
		listItem("r3", "s2", "Grace Hopper", "e1", "c1", models.RetakeStatusCompleted, 0, 0),
		listItem("r4", "s3", "Alan Turing", "e3", "c2", models.RetakeStatusPending, 0, 0),
	}
}

func itemIDs(set []models.RetakeListItem) []string {
	ids := make([]string, 0, len(set))
	for _, item := range set {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestFilterWorkingSetEmptyCriteriaIsIdentity(t *testing.T) {
	set := sampleWorkingSet()
	out := FilterWorkingSet(set, Criteria{})
	require.Equal(t, itemIDs(set), itemIDs(out))
}

func TestFilterWorkingSetRowPredicates(t *testing.T) {
	set := sampleWorkingSet()

	out := FilterWorkingSet(set, Criteria{Status: models.RetakeStatusPending})
	require.Equal(t, []string{"r1", "r4"}, itemIDs(out))

	out = FilterWorkingSet(set, Criteria{HideCompleted: true})
	require.Equal(t, []string{"r1", "r2", "r4"}, itemIDs(out))

	out = FilterWorkingSet(set, Criteria{CourseID: "c2"})
	require.Equal(t, []string{"r4"}, itemIDs(out))

	out = FilterWorkingSet(set, Criteria{ExamID: "e1"})
	require.Equal(t, []string{"r1", "r3"}, itemIDs(out))

	// name match is case-insensitive substring
	out = FilterWorkingSet(set, Criteria{StudentName: "lovelace"})
	require.Equal(t, []string{"r1", "r2"}, itemIDs(out))

	d := date("2025-03-01")
	out = FilterWorkingSet(set, Criteria{ScheduledDate: &d})
	require.Len(t, out, 4)
	other := date("2025-04-01")
	out = FilterWorkingSet(set, Criteria{ScheduledDate: &other})
	require.Empty(t, out)
}

func TestFilterWorkingSetManagementStatus(t *testing.T) {
	set := sampleWorkingSet()
	label := "needs-call"
	set[0].ManagementStatus = &label

	out := FilterWorkingSet(set, Criteria{ManagementStatus: "needs-call"})
	require.Equal(t, []string{"r1"}, itemIDs(out))
}

func TestFilterWorkingSetThresholdsKeepWholeStudents(t *testing.T) {
	set := sampleWorkingSet()

	// Ada has 2 incomplete rows in the set; the others do not.
	out := FilterWorkingSet(set, Criteria{MinIncomplete: 2})
	require.Equal(t, []string{"r1", "r2"}, itemIDs(out))

	// flakiness is postpones + absences over the narrowed set
	out = FilterWorkingSet(set, Criteria{MinFlakiness: 4})
	require.Equal(t, []string{"r1", "r2"}, itemIDs(out))
	out = FilterWorkingSet(set, Criteria{MinFlakiness: 5})
	require.Empty(t, out)

	out = FilterWorkingSet(set, Criteria{MinAbsences: 1})
	require.Equal(t, []string{"r1", "r2"}, itemIDs(out))
}

func TestFilterWorkingSetThresholdsSeeNarrowedSetOnly(t *testing.T) {
	set := sampleWorkingSet()

	// Hiding Ada's absent row first drops her set-scoped absence sum to zero,
	// so the threshold then excludes her remaining row as well.
	out := FilterWorkingSet(set, Criteria{Status: models.RetakeStatusPending, MinAbsences: 1})
	require.Empty(t, out)
}

func TestFilterWorkingSetIsIdempotent(t *testing.T) {
	set := sampleWorkingSet()
	criteria := Criteria{HideCompleted: true, MinIncomplete: 2, MinPostpones: 2}

	once := FilterWorkingSet(set, criteria)
	twice := FilterWorkingSet(once, criteria)
	require.Equal(t, itemIDs(once), itemIDs(twice))
}

func TestRollupsOrderAndScores(t *testing.T) {
	rollups := Rollups(sampleWorkingSet())
	require.Len(t, rollups, 3)

	require.Equal(t, "s1", rollups[0].StudentID)
	require.Equal(t, 2, rollups[0].TotalCount)
	require.Equal(t, 2, rollups[0].IncompleteCount)
	require.Equal(t, 3, rollups[0].PostponeSum)
	require.Equal(t, 1, rollups[0].AbsentSum)
	require.Equal(t, 4, rollups[0].FlakinessScore)

	// tie on flakiness breaks by name
	require.Equal(t, "Alan Turing", rollups[1].StudentName)
	require.Equal(t, "Grace Hopper", rollups[2].StudentName)
	require.Equal(t, 0, rollups[2].IncompleteCount)
}

func TestRollupsEmptySet(t *testing.T) {
	require.Empty(t, Rollups(nil))
}
