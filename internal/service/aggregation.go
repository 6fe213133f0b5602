package service

import (
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/academy-retake-api/internal/models"
)

// Criteria narrows a working set of retake assignments. Row predicates
// match individual assignments; Min* thresholds match per-student rollups
// computed over the set that survived the row predicates. A zero threshold
// disables that check.
type Criteria struct {
	Status           models.RetakeStatus
	CourseID         string
	ExamID           string
	ManagementStatus string
	ScheduledDate    *time.Time
	StudentName      string
	HideCompleted    bool
	MinIncomplete    int
	MinTotal         int
	MinPostpones     int
	MinAbsences      int
	MinFlakiness     int
}

func (c Criteria) hasThresholds() bool {
	return c.MinIncomplete > 0 || c.MinTotal > 0 || c.MinPostpones > 0 || c.MinAbsences > 0 || c.MinFlakiness > 0
}

// FilterWorkingSet applies the criteria to the working set: row predicates
// first, then thresholds against rollups of the narrowed set. Filtering is
// pure and idempotent; thresholds keep or drop whole student groups, so
// reapplying the same criteria yields the same set.
func FilterWorkingSet(set []models.RetakeListItem, criteria Criteria) []models.RetakeListItem {
	rows := make([]models.RetakeListItem, 0, len(set))
	for _, item := range set {
		if matchesRow(item, criteria) {
			rows = append(rows, item)
		}
	}
	if !criteria.hasThresholds() {
		return rows
	}

	rollups := rollupByStudent(rows)
	filtered := rows[:0]
	for _, item := range rows {
		if meetsThresholds(rollups[item.StudentID], criteria) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Rollups computes per-student aggregates over the given working set,
// ordered by flakiness descending so at-risk students surface first.
// Counts are deliberately scoped to the working set, not all-time history.
func Rollups(set []models.RetakeListItem) []models.StudentRollup {
	byStudent := rollupByStudent(set)
	rollups := make([]models.StudentRollup, 0, len(byStudent))
	for _, rollup := range byStudent {
		rollups = append(rollups, *rollup)
	}
	sort.Slice(rollups, func(i, j int) bool {
		if rollups[i].FlakinessScore != rollups[j].FlakinessScore {
			return rollups[i].FlakinessScore > rollups[j].FlakinessScore
		}
		return rollups[i].StudentName < rollups[j].StudentName
	})
	return rollups
}

func rollupByStudent(set []models.RetakeListItem) map[string]*models.StudentRollup {
	byStudent := make(map[string]*models.StudentRollup)
	for _, item := range set {
		rollup := byStudent[item.StudentID]
		if rollup == nil {
			rollup = &models.StudentRollup{StudentID: item.StudentID, StudentName: item.StudentName}
			byStudent[item.StudentID] = rollup
		}
		rollup.TotalCount++
		if item.Status != models.RetakeStatusCompleted {
			rollup.IncompleteCount++
		}
		rollup.PostponeSum += item.PostponeCount
		rollup.AbsentSum += item.AbsentCount
		rollup.FlakinessScore = rollup.PostponeSum + rollup.AbsentSum
	}
	return byStudent
}

func matchesRow(item models.RetakeListItem, criteria Criteria) bool {
	if criteria.Status != "" && item.Status != criteria.Status {
		return false
	}
	if criteria.HideCompleted && item.Status == models.RetakeStatusCompleted {
		return false
	}
	if criteria.CourseID != "" && item.CourseID != criteria.CourseID {
		return false
	}
	if criteria.ExamID != "" && item.ExamID != criteria.ExamID {
		return false
	}
	if criteria.ManagementStatus != "" {
		if item.ManagementStatus == nil || *item.ManagementStatus != criteria.ManagementStatus {
			return false
		}
	}
	if criteria.ScheduledDate != nil {
		if item.ScheduledDate == nil || !sameDate(*item.ScheduledDate, *criteria.ScheduledDate) {
			return false
		}
	}
	if criteria.StudentName != "" {
		if !strings.Contains(strings.ToLower(item.StudentName), strings.ToLower(criteria.StudentName)) {
			return false
		}
	}
	return true
}

func meetsThresholds(rollup *models.StudentRollup, criteria Criteria) bool {
	if rollup == nil {
		return false
	}
	if criteria.MinIncomplete > 0 && rollup.IncompleteCount < criteria.MinIncomplete {
		return false
	}
	if criteria.MinTotal > 0 && rollup.TotalCount < criteria.MinTotal {
		return false
	}
	if criteria.MinPostpones > 0 && rollup.PostponeSum < criteria.MinPostpones {
		return false
	}
	if criteria.MinAbsences > 0 && rollup.AbsentSum < criteria.MinAbsences {
		return false
	}
	if criteria.MinFlakiness > 0 && rollup.FlakinessScore < criteria.MinFlakiness {
		return false
	}
	return true
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
