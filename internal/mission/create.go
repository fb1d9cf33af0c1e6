// Package mission implements the mission lifecycle: payload normalization on
// creation, the open transition, and status derivation from task completion.
//
// Functions here are pure. They mutate the mission they are given and never
// touch storage or the clock; callers pass the current time in.
package mission

import (
	"strings"
	"time"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/models"
)

// ValidateCreate checks a creation request before any lookup is made.
func ValidateCreate(in *models.CreateMissionInput) error {
	if strings.TrimSpace(in.ID) == "" {
		return apperror.Validation("Mission ID is required in payload")
	}
	if strings.TrimSpace(in.Username) == "" {
		return apperror.Validation("Username is required to assign mission")
	}
	if in.Collect == nil && in.Refill == nil && len(in.Maintenance) == 0 {
		return apperror.Validation("At least one of collect, refill or maintenance is required")
	}

	if c := in.Collect; c != nil {
		for _, a := range []*models.Amount{leafAmount(c.Notes), leafAmount(c.Coins), c.NoteAmount, c.CoinAmount} {
			if a != nil && a.IsNegative() {
				return apperror.Validation("collect amounts must not be negative")
			}
		}
	}
	if r := in.Refill; r != nil {
		if r.Coins != nil && (r.Coins.Amount.IsNegative() || negativeCount(r.Coins.CoinTypes)) {
			return apperror.Validation("refill coin amounts must not be negative")
		}
		if r.Notes != nil && (r.Notes.Amount.IsNegative() || negativeCount(r.Notes.NoteTypes)) {
			return apperror.Validation("refill note amounts must not be negative")
		}
	}
	for i, m := range in.Maintenance {
		if m.Task.Empty() {
			return apperror.Validation("maintenance task %d has an empty label", i)
		}
	}
	return nil
}

// New builds the unopened mission for a validated request.
func New(in *models.CreateMissionInput, assignee models.UserRef, now time.Time) *models.Mission {
	return &models.Mission{
		MissionID:  strings.TrimSpace(in.ID),
		Status:     models.StatusUnopened,
		AssignedTo: assignee,
		Payload:    NormalizePayload(in),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NormalizePayload rewrites every task leaf of the request with completed=false.
// Sub-tasks absent from the request stay absent.
func NormalizePayload(in *models.CreateMissionInput) models.Payload {
	p := models.Payload{
		Date:        in.Date,
		Cashier:     in.Cashier,
		MachineName: in.MachineName,
		QRCode:      in.QRCode,
		Maintenance: make([]models.MaintenanceTask, 0, len(in.Maintenance)),
	}

	if c := in.Collect; c != nil {
		p.Collect = &models.Collect{
			Notes: models.Leaf{Amount: firstNonZero(leafAmount(c.Notes), c.NoteAmount)},
			Coins: models.Leaf{Amount: firstNonZero(leafAmount(c.Coins), c.CoinAmount)},
		}
	}

	if r := in.Refill; r != nil {
		refill := &models.Refill{
			Coins: models.CoinRefill{CoinTypes: map[string]int{}},
			Notes: models.NoteRefill{NoteTypes: map[string]int{}},
		}
		if r.Coins != nil {
			refill.Coins.Amount = r.Coins.Amount
			copyCounts(refill.Coins.CoinTypes, r.Coins.CoinTypes)
		}
		if r.Notes != nil {
			refill.Notes.Amount = r.Notes.Amount
			copyCounts(refill.Notes.NoteTypes, r.Notes.NoteTypes)
		}
		p.Refill = refill
	}

	for _, m := range in.Maintenance {
		p.Maintenance = append(p.Maintenance, models.MaintenanceTask{Task: m.Task})
	}
	return p
}

func leafAmount(l *models.LeafInput) *models.Amount {
	if l == nil {
		return nil
	}
	return &l.Amount
}

func firstNonZero(amounts ...*models.Amount) models.Amount {
	for _, a := range amounts {
		if a != nil && !a.IsZero() {
			return *a
		}
	}
	return models.Amount{}
}

func copyCounts(dst, src map[string]int) {
	for k, v := range src {
		dst[k] = v
	}
}

func negativeCount(counts map[string]int) bool {
	for _, v := range counts {
		if v < 0 {
			return true
		}
	}
	return false
}
