package mission

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/internal/apperror"
	"github.com/fieldops/missiond/internal/models"
)

var (
	t0     = time.Date(2025, 11, 26, 8, 0, 0, 0, time.UTC)
	worker = models.UserRef{ID: "u-1", Username: "worker1"}
)

func boolp(b bool) *bool { return &b }
func intp(i int) *int    { return &i }

func decodeInput(t *testing.T, body string) *models.CreateMissionInput {
	t.Helper()
	var in models.CreateMissionInput
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	return &in
}

func TestValidateCreate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"missing id", `{"username":"worker1","maintenance":["x"]}`, "Mission ID is required"},
		{"missing username", `{"id":"m-1","maintenance":["x"]}`, "Username is required"},
		{"no task type", `{"id":"m-1","username":"worker1","date":"2025-11-26"}`, "At least one of"},
		{"negative collect", `{"id":"m-1","username":"w","collect":{"notes":{"amount":-5}}}`, "must not be negative"},
		{"negative coin count", `{"id":"m-1","username":"w","refill":{"coins":{"amount":5,"coinTypes":{"1":-1}}}}`, "must not be negative"},
		{"empty label", `{"id":"m-1","username":"w","maintenance":["  "]}`, "empty label"},
		{"valid", `{"id":"m-1","username":"w","maintenance":["Clean screen"]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreate(decodeInput(t, tt.body))
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperror.IsValidation(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_ForcesLeavesIncomplete(t *testing.T) {
	in := decodeInput(t, `{
		"id": "mission-001",
		"username": "worker1",
		"date": "2025-11-26",
		"cashier": "John Doe",
		"machineName": "Machine A1",
		"qrCode": "QR12345",
		"collect": {"notes": {"amount": 500, "completed": true}, "coins": {"amount": 200, "completed": true}},
		"refill": {
			"coins": {"amount": 100, "coinTypes": {"1": 50, "2": 50}, "completed": true},
			"notes": {"amount": 500, "noteTypes": {"10": 30, "20": 20}, "completed": true}
		},
		"maintenance": [
			"Clean screen",
			{"task": {"en": "Check printer", "fr": "Vérifier l'imprimante"}, "completed": true}
		]
	}`)
	require.NoError(t, ValidateCreate(in))

	m := New(in, worker, t0)

	assert.Equal(t, "mission-001", m.MissionID)
	assert.Equal(t, models.StatusUnopened, m.Status)
	assert.Equal(t, worker, m.AssignedTo)
	assert.Nil(t, m.OpenedAt)
	assert.Nil(t, m.CompletedAt)

	p := m.Payload
	require.NotNil(t, p.Collect)
	require.NotNil(t, p.Refill)
	assert.False(t, p.Collect.Notes.Completed)
	assert.False(t, p.Collect.Coins.Completed)
	assert.False(t, p.Refill.Coins.Completed)
	assert.False(t, p.Refill.Notes.Completed)
	assert.Equal(t, "500", p.Collect.Notes.Amount.String())
	assert.Equal(t, map[string]int{"1": 50, "2": 50}, p.Refill.Coins.CoinTypes)

	require.Len(t, p.Maintenance, 2)
	assert.Equal(t, models.PlainLabel("Clean screen"), p.Maintenance[0].Task)
	assert.True(t, p.Maintenance[1].Task.IsBilingual())
	assert.Equal(t, "Check printer", p.Maintenance[1].Task.String())
	for _, task := range p.Maintenance {
		assert.False(t, task.Completed)
	}
}

func TestNormalizePayload_LegacyCollectAmounts(t *testing.T) {
	in := decodeInput(t, `{"id":"m","username":"w","collect":{"noteAmount":500,"coinAmount":200}}`)

	p := NormalizePayload(in)

	require.NotNil(t, p.Collect)
	assert.Equal(t, "500", p.Collect.Notes.Amount.String())
	assert.Equal(t, "200", p.Collect.Coins.Amount.String())
	assert.Nil(t, p.Refill)
	assert.NotNil(t, p.Maintenance)
	assert.Empty(t, p.Maintenance)
}

func TestOpen(t *testing.T) {
	m := &models.Mission{MissionID: "m-1", Status: models.StatusUnopened}

	require.NoError(t, CheckOpenable(m))
	require.NoError(t, Open(m, worker, t0))
	assert.Equal(t, models.StatusInProgress, m.Status)
	require.NotNil(t, m.OpenedAt)
	assert.Equal(t, t0, *m.OpenedAt)
	require.NotNil(t, m.OpenedBy)
	assert.Equal(t, worker, *m.OpenedBy)
}

func TestOpen_RejectsNonUnopened(t *testing.T) {
	for _, status := range []models.Status{models.StatusInProgress, models.StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			opened := t0.Add(-time.Hour)
			m := &models.Mission{MissionID: "m-1", Status: status, OpenedAt: &opened}
			before := *m

			require.Error(t, CheckOpenable(m))
			err := Open(m, worker, t0)

			var conflict *apperror.ConflictError
			require.ErrorAs(t, err, &conflict)
			assert.Equal(t, string(status), conflict.CurrentStatus)
			assert.Equal(t, before, *m)
		})
	}
}

// twoLeafMission has leaves A (collect notes) and B (collect coins).
func twoLeafMission() *models.Mission {
	return &models.Mission{
		MissionID: "m-2",
		Status:    models.StatusUnopened,
		Payload: models.Payload{
			Collect: &models.Collect{
				Notes: models.Leaf{Amount: models.NewAmount(500)},
				Coins: models.Leaf{Amount: models.NewAmount(200)},
			},
		},
	}
}

func TestApplyUpdate_DerivedStatusSequence(t *testing.T) {
	m := twoLeafMission()

	// A done -> in_progress
	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Collect: &models.CollectUpdate{Notes: &models.CompletionUpdate{Completed: boolp(true)}},
	}, t0))
	assert.Equal(t, models.StatusInProgress, m.Status)
	assert.Nil(t, m.CompletedAt)
	require.NotNil(t, m.OpenedAt)

	// B done -> completed
	t1 := t0.Add(time.Hour)
	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Collect: &models.CollectUpdate{Coins: &models.CompletionUpdate{Completed: boolp(true)}},
	}, t1))
	assert.Equal(t, models.StatusCompleted, m.Status)
	require.NotNil(t, m.CompletedAt)
	assert.Equal(t, t1, *m.CompletedAt)

	// A unchecked -> back to in_progress
	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Collect: &models.CollectUpdate{Notes: &models.CompletionUpdate{Completed: boolp(false)}},
	}, t1.Add(time.Hour)))
	assert.Equal(t, models.StatusInProgress, m.Status)
	assert.Nil(t, m.CompletedAt)
}

func TestApplyUpdate_SingleLeafUncheckRegresses(t *testing.T) {
	done := t0
	m := &models.Mission{
		Status:      models.StatusCompleted,
		CompletedAt: &done,
		OpenedAt:    &done,
		Payload: models.Payload{
			Maintenance: []models.MaintenanceTask{{Task: models.PlainLabel("Clean screen"), Completed: true}},
		},
	}

	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Maintenance: []models.MaintenanceUpdate{{Index: intp(0), Completed: boolp(false)}},
	}, t0.Add(time.Minute)))

	assert.Equal(t, models.StatusInProgress, m.Status)
	assert.Nil(t, m.CompletedAt)
}

func TestApplyUpdate_NothingCompletedKeepsUnopened(t *testing.T) {
	m := twoLeafMission()

	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Collect: &models.CollectUpdate{Notes: &models.CompletionUpdate{Completed: boolp(false)}},
	}, t0))

	assert.Equal(t, models.StatusUnopened, m.Status)
	assert.Nil(t, m.OpenedAt)
}

func TestApplyUpdate_OutOfRangeMaintenanceIgnored(t *testing.T) {
	m := &models.Mission{
		Status: models.StatusInProgress,
		Payload: models.Payload{
			Maintenance: []models.MaintenanceTask{
				{Task: models.PlainLabel("Clean screen")},
				{Task: models.PlainLabel("Check printer")},
			},
		},
	}
	before := m.Payload.Maintenance[0].Completed

	err := ApplyUpdate(m, &models.MissionUpdate{
		Maintenance: []models.MaintenanceUpdate{
			{Index: intp(99), Completed: boolp(true)},
			{Index: intp(-1), Completed: boolp(true)},
			{Index: intp(1)},
		},
	}, t0)

	require.NoError(t, err)
	assert.Equal(t, before, m.Payload.Maintenance[0].Completed)
	assert.False(t, m.Payload.Maintenance[1].Completed)
	assert.Equal(t, models.StatusInProgress, m.Status)
}

func TestApplyUpdate_AbsentSubTaskIgnored(t *testing.T) {
	m := &models.Mission{
		Status: models.StatusInProgress,
		Payload: models.Payload{
			Maintenance: []models.MaintenanceTask{{Task: models.PlainLabel("Clean screen")}},
		},
	}

	err := ApplyUpdate(m, &models.MissionUpdate{
		Refill: &models.RefillUpdate{Coins: &models.CompletionUpdate{Completed: boolp(true)}},
	}, t0)

	require.NoError(t, err)
	assert.Nil(t, m.Payload.Refill)
	assert.Equal(t, models.StatusInProgress, m.Status)
}

func TestApplyUpdate_ZeroAmountLeafExcluded(t *testing.T) {
	m := &models.Mission{
		Status: models.StatusInProgress,
		Payload: models.Payload{
			Collect: &models.Collect{
				Notes: models.Leaf{Amount: models.NewAmount(500)},
				Coins: models.Leaf{},
			},
		},
	}

	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{
		Collect: &models.CollectUpdate{Notes: &models.CompletionUpdate{Completed: boolp(true)}},
	}, t0))

	assert.Equal(t, models.StatusCompleted, m.Status)
}

func TestApplyUpdate_CommentReplaced(t *testing.T) {
	m := twoLeafMission()
	m.Comment = "old"
	comment := "jammed coin slot"

	require.NoError(t, ApplyUpdate(m, &models.MissionUpdate{Comment: &comment}, t0))

	assert.Equal(t, "jammed coin slot", m.Comment)
	assert.Equal(t, models.StatusUnopened, m.Status)
}

func TestApplyUpdate_RejectsExplicitStatus(t *testing.T) {
	m := twoLeafMission()
	status := "completed"

	err := ApplyUpdate(m, &models.MissionUpdate{Status: &status}, t0)

	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, models.StatusUnopened, m.Status)
}

func TestDerive_NoPresentLeaves(t *testing.T) {
	m := &models.Mission{Status: models.StatusUnopened, Payload: models.Payload{Collect: &models.Collect{}}}

	Derive(m, t0)

	assert.Equal(t, models.StatusUnopened, m.Status)
	assert.Nil(t, m.CompletedAt)
}

func TestDerive_KeepsCompletedAtWhenAlreadyCompleted(t *testing.T) {
	done := t0
	m := &models.Mission{
		Status:      models.StatusCompleted,
		CompletedAt: &done,
		OpenedAt:    &done,
		Payload: models.Payload{
			Maintenance: []models.MaintenanceTask{{Task: models.PlainLabel("x"), Completed: true}},
		},
	}

	Derive(m, t0.Add(time.Hour))

	require.NotNil(t, m.CompletedAt)
	assert.Equal(t, t0, *m.CompletedAt)
}
