package mission

import (
	"time"

	"github.com/fieldops/missiond/internal/models"
)

// Leaves returns the completion flag of every present leaf in payload order.
// Collect and refill leaves are present when their amount is non-zero; every
// maintenance entry is present.
func Leaves(p *models.Payload) []bool {
	var leaves []bool
	if c := p.Collect; c != nil {
		if c.Notes.Present() {
			leaves = append(leaves, c.Notes.Completed)
		}
		if c.Coins.Present() {
			leaves = append(leaves, c.Coins.Completed)
		}
	}
	if r := p.Refill; r != nil {
		if !r.Coins.Amount.IsZero() {
			leaves = append(leaves, r.Coins.Completed)
		}
		if !r.Notes.Amount.IsZero() {
			leaves = append(leaves, r.Notes.Completed)
		}
	}
	for _, t := range p.Maintenance {
		leaves = append(leaves, t.Completed)
	}
	return leaves
}

// Derive recomputes the status of m from its present leaves:
//
//	all complete                 -> completed
//	any complete, or was opened  -> in_progress
//	otherwise                    -> unchanged
//
// Unchecking a leaf of a completed mission moves it back to in_progress and
// clears completedAt. A mission without present leaves keeps its status.
func Derive(m *models.Mission, now time.Time) {
	leaves := Leaves(&m.Payload)
	if len(leaves) == 0 {
		return
	}

	all, some := true, false
	for _, done := range leaves {
		all = all && done
		some = some || done
	}

	switch {
	case all:
		if m.Status != models.StatusCompleted || m.CompletedAt == nil {
			m.CompletedAt = &now
		}
		m.Status = models.StatusCompleted
	case some || m.Status != models.StatusUnopened:
		m.Status = models.StatusInProgress
		m.CompletedAt = nil
	default:
		return
	}

	if m.OpenedAt == nil {
		m.OpenedAt = &now
	}
}
