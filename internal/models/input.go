package models

import (
	"bytes"
	"encoding/json"
)

// CreateMissionInput is the request body for mission creation.
type CreateMissionInput struct {
	// Username names the worker the mission is assigned to.
	Username    string             `json:"username"`
	ID          string             `json:"id"`
	Date        string             `json:"date"`
	Cashier     string             `json:"cashier"`
	MachineName string             `json:"machineName"`
	QRCode      string             `json:"qrCode"`
	Collect     *CollectInput      `json:"collect,omitempty"`
	Refill      *RefillInput       `json:"refill,omitempty"`
	Maintenance []MaintenanceInput `json:"maintenance,omitempty"`
}

// LeafInput carries an amount. Any completed flag sent by the caller is ignored.
type LeafInput struct {
	Amount    Amount `json:"amount"`
	Completed *bool  `json:"completed,omitempty"`
}

// CollectInput accepts both the nested shape and the flat noteAmount/coinAmount shape.
type CollectInput struct {
	Notes      *LeafInput `json:"notes,omitempty"`
	Coins      *LeafInput `json:"coins,omitempty"`
	NoteAmount *Amount    `json:"noteAmount,omitempty"`
	CoinAmount *Amount    `json:"coinAmount,omitempty"`
}

// CoinRefillInput is the coin part of a refill request.
type CoinRefillInput struct {
	Amount    Amount         `json:"amount"`
	CoinTypes map[string]int `json:"coinTypes,omitempty"`
	Completed *bool          `json:"completed,omitempty"`
}

// NoteRefillInput is the note part of a refill request.
type NoteRefillInput struct {
	Amount    Amount         `json:"amount"`
	NoteTypes map[string]int `json:"noteTypes,omitempty"`
	Completed *bool          `json:"completed,omitempty"`
}

// RefillInput is the refill part of a creation request.
type RefillInput struct {
	Coins *CoinRefillInput `json:"coins,omitempty"`
	Notes *NoteRefillInput `json:"notes,omitempty"`
}

// MaintenanceInput is one checklist entry of a creation request. It decodes
// from a bare label, a bilingual label object, or a {task, completed} object.
type MaintenanceInput struct {
	Task TaskLabel `json:"task"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *MaintenanceInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &m.Task)
	}
	var aux struct {
		Task *TaskLabel `json:"task"`
		EN   string     `json:"en"`
		FR   string     `json:"fr"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	switch {
	case aux.Task != nil:
		m.Task = *aux.Task
	case aux.EN != "" || aux.FR != "":
		m.Task = BilingualLabel(aux.EN, aux.FR)
	default:
		m.Task = TaskLabel{}
	}
	return nil
}

// CompletionUpdate sets the completed flag of one leaf.
type CompletionUpdate struct {
	Completed *bool `json:"completed,omitempty"`
}

// CollectUpdate targets the collect leaves.
type CollectUpdate struct {
	Notes *CompletionUpdate `json:"notes,omitempty"`
	Coins *CompletionUpdate `json:"coins,omitempty"`
}

// RefillUpdate targets the refill leaves.
type RefillUpdate struct {
	Coins *CompletionUpdate `json:"coins,omitempty"`
	Notes *CompletionUpdate `json:"notes,omitempty"`
}

// MaintenanceUpdate targets a checklist entry by position.
type MaintenanceUpdate struct {
	Index     *int  `json:"index,omitempty"`
	Completed *bool `json:"completed,omitempty"`
}

// MissionUpdate is the request body of the update operation.
type MissionUpdate struct {
	// Status is never accepted; it is derived from task completion.
	Status      *string             `json:"status,omitempty"`
	Collect     *CollectUpdate      `json:"collect,omitempty"`
	Refill      *RefillUpdate       `json:"refill,omitempty"`
	Maintenance []MaintenanceUpdate `json:"maintenance,omitempty"`
	Comment     *string             `json:"comment,omitempty"`
}
