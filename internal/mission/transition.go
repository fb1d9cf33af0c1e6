package mission

import (
	"time"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/models"
)

// CheckOpenable reports a conflict carrying the current status unless m is
// still unopened.
func CheckOpenable(m *models.Mission) error {
	if m.Status != models.StatusUnopened {
		return &apperror.ConflictError{
			Message:       "Mission is not in unopened status",
			CurrentStatus: string(m.Status),
		}
	}
	return nil
}

// Open moves an unopened mission to in_progress on behalf of actor.
// Any other current status is a conflict and leaves m untouched.
func Open(m *models.Mission, actor models.UserRef, now time.Time) error {
	if err := CheckOpenable(m); err != nil {
		return err
	}
	m.Status = models.StatusInProgress
	m.OpenedAt = &now
	m.OpenedBy = &actor
	m.UpdatedAt = now
	return nil
}

// ValidateUpdate rejects update requests that try to set the status directly.
func ValidateUpdate(upd *models.MissionUpdate) error {
	if upd.Status != nil {
		return apperror.Validation("status cannot be set directly; it is derived from task completion")
	}
	return nil
}

// ApplyUpdate applies leaf completion flags and the comment, then recomputes
// the status from the resulting leaves.
func ApplyUpdate(m *models.Mission, upd *models.MissionUpdate, now time.Time) error {
	if err := ValidateUpdate(upd); err != nil {
		return err
	}

	p := &m.Payload
	if c := upd.Collect; c != nil && p.Collect != nil {
		setCompleted(&p.Collect.Notes.Completed, c.Notes)
		setCompleted(&p.Collect.Coins.Completed, c.Coins)
	}
	if r := upd.Refill; r != nil && p.Refill != nil {
		setCompleted(&p.Refill.Coins.Completed, r.Coins)
		setCompleted(&p.Refill.Notes.Completed, r.Notes)
	}
	for _, u := range upd.Maintenance {
		if u.Index == nil || u.Completed == nil {
			continue
		}
		// Out-of-range indexes are ignored.
		if i := *u.Index; i >= 0 && i < len(p.Maintenance) {
			p.Maintenance[i].Completed = *u.Completed
		}
	}
	if upd.Comment != nil {
		m.Comment = *upd.Comment
	}

	Derive(m, now)
	m.UpdatedAt = now
	return nil
}

func setCompleted(dst *bool, u *models.CompletionUpdate) {
	if u != nil && u.Completed != nil {
		*dst = *u.Completed
	}
}
