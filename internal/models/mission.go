package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mission is a unit of field work assigned to one user.
type Mission struct {
	// MissionID is the externally supplied identifier.
	MissionID string `json:"missionId"`
	// Status is the current lifecycle state.
	Status Status `json:"status"`
	// AssignedTo references the worker the mission was created for.
	AssignedTo UserRef `json:"assignedTo"`
	// OpenedBy references the worker who opened the mission, if any.
	OpenedBy *UserRef `json:"openedBy,omitempty"`
	// Payload holds the machine details and the task bundle.
	Payload Payload `json:"payload"`
	// Comment is free text left by the worker.
	Comment string `json:"comment"`
	// OpenedAt is stamped when the mission leaves the unopened state.
	OpenedAt *time.Time `json:"openedAt,omitempty"`
	// CompletedAt is stamped when every present task is completed.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	// Version is the revision counter checked on every save.
	Version int64 `json:"version"`
}

// Payload is the fixed-shape task bundle of a mission.
type Payload struct {
	Date        string            `json:"date"`
	Cashier     string            `json:"cashier"`
	MachineName string            `json:"machineName"`
	QRCode      string            `json:"qrCode"`
	Collect     *Collect          `json:"collect,omitempty"`
	Refill      *Refill           `json:"refill,omitempty"`
	Maintenance []MaintenanceTask `json:"maintenance"`
}

// Leaf is a completable amount-bearing task.
type Leaf struct {
	Amount    Amount `json:"amount"`
	Completed bool   `json:"completed"`
}

// Present reports whether the leaf takes part in completion aggregation.
func (l Leaf) Present() bool {
	return !l.Amount.IsZero()
}

// Collect describes the cash to take out of the machine.
type Collect struct {
	Notes Leaf `json:"notes"`
	Coins Leaf `json:"coins"`
}

// CoinRefill describes coins to load into the machine.
type CoinRefill struct {
	Amount    Amount         `json:"amount"`
	CoinTypes map[string]int `json:"coinTypes"`
	Completed bool           `json:"completed"`
}

// NoteRefill describes notes to load into the machine.
type NoteRefill struct {
	Amount    Amount         `json:"amount"`
	NoteTypes map[string]int `json:"noteTypes"`
	Completed bool           `json:"completed"`
}

// Refill describes the cash to load into the machine.
type Refill struct {
	Coins CoinRefill `json:"coins"`
	Notes NoteRefill `json:"notes"`
}

// MaintenanceTask is one entry of the ordered maintenance checklist.
type MaintenanceTask struct {
	Task      TaskLabel `json:"task"`
	Completed bool      `json:"completed"`
}

// Amount is a money amount that travels as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

// NewAmount returns an Amount holding v.
func NewAmount(v int64) Amount {
	return Amount{decimal.NewFromInt(v)}
}

// ParseAmount parses a decimal string such as "12.50".
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{d}, nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON implements json.Unmarshaler; quoted and bare numbers are accepted.
func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

// MissionFilter narrows mission listings.
type MissionFilter struct {
	// Status limits results to one state when non-empty.
	Status Status
}

// MissionPage is one page of an assignee-scoped listing.
type MissionPage struct {
	Missions    []Mission `json:"missions"`
	Total       int       `json:"total"`
	Page        int       `json:"page"`
	Limit       int       `json:"limit"`
	TotalPages  int       `json:"totalPages"`
	HasNextPage bool      `json:"hasNextPage"`
	HasPrevPage bool      `json:"hasPrevPage"`
}
