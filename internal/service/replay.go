package service

import (
	"fmt"

	"github.com/noah-isme/academy-retake-api/internal/dto"
	"github.com/noah-isme/academy-retake-api/internal/models"
)

// ReplayHistory folds an assignment's audit trail, oldest first, back into
// the state it describes. The trail must start with an ASSIGN entry; a
// well-formed trail reproduces the stored status, scheduled date and both
// counters exactly.
func ReplayHistory(entries []models.HistoryEntry) (*dto.ReplayedState, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("replay: empty history")
	}
	if entries[0].Action != models.HistoryActionAssign {
		return nil, fmt.Errorf("replay: history does not start with %s", models.HistoryActionAssign)
	}

	state := &dto.ReplayedState{
		Status:        models.RetakeStatusPending,
		ScheduledDate: cloneTime(entries[0].NewDate),
	}

	for i, entry := range entries[1:] {
		switch entry.Action {
		case models.HistoryActionAssign:
			return nil, fmt.Errorf("replay: unexpected %s at position %d", entry.Action, i+1)
		case models.HistoryActionPostpone:
			state.ScheduledDate = cloneTime(entry.NewDate)
			state.PostponeCount++
		case models.HistoryActionAbsent:
			state.Status = models.RetakeStatusAbsent
			state.AbsentCount++
		case models.HistoryActionComplete:
			state.Status = models.RetakeStatusCompleted
		case models.HistoryActionDateEdit:
			state.ScheduledDate = cloneTime(entry.NewDate)
		case models.HistoryActionManagementStatus:
			state.ManagementStatus = cloneString(entry.NewManagementStatus)
		default:
			return nil, fmt.Errorf("replay: unknown action %q at position %d", entry.Action, i+1)
		}
	}

	return state, nil
}
