package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/missiond/internal/models"
)

func TestParseSeed(t *testing.T) {
	t.Run("list with mixed maintenance labels", func(t *testing.T) {
		inputs, err := parseSeed([]byte(`
- id: M-1
  username: worker1
  date: "2024-05-02"
  machineName: Lobby
  collect:
    noteAmount: 120
    coinAmount: 4.5
  maintenance:
    - Clean screen
    - en: Check printer
      fr: Vérifier l'imprimante
- id: M-2
  username: worker2
  date: "2024-05-03"
  refill:
    coins:
      amount: 50
      coinTypes: {"2": 10, "1": 30}
`))
		require.NoError(t, err)
		require.Len(t, inputs, 2)

		first := inputs[0]
		assert.Equal(t, "M-1", first.ID)
		assert.Equal(t, "2024-05-02", first.Date)
		require.NotNil(t, first.Collect)
		require.NotNil(t, first.Collect.CoinAmount)
		assert.Equal(t, "4.5", first.Collect.CoinAmount.String())
		require.Len(t, first.Maintenance, 2)
		assert.False(t, first.Maintenance[0].Task.IsBilingual())
		assert.True(t, first.Maintenance[1].Task.IsBilingual())

		require.NotNil(t, inputs[1].Refill)
		assert.Equal(t, 30, inputs[1].Refill.Coins.CoinTypes["1"])
	})

	t.Run("single mission", func(t *testing.T) {
		inputs, err := parseSeed([]byte("id: M-9\nusername: worker1\n"))
		require.NoError(t, err)
		require.Len(t, inputs, 1)
		assert.Equal(t, "M-9", inputs[0].ID)
	})

	t.Run("missions key and JSON", func(t *testing.T) {
		inputs, err := parseSeed([]byte(`{"missions":[{"id":"A"},{"id":"B"}]}`))
		require.NoError(t, err)
		assert.Len(t, inputs, 2)
	})

	for name, doc := range map[string]string{
		"empty":      "",
		"empty list": "[]",
		"not yaml":   "id: [unterminated",
		"scalar":     "hello",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseSeed([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestPrintMissionTable(t *testing.T) {
	var buf bytes.Buffer
	printMissionTable(&buf, []models.Mission{
		{
			MissionID:  "M-1",
			Status:     models.StatusInProgress,
			AssignedTo: models.UserRef{ID: "u1", Username: "worker1"},
			OpenedBy:   &models.UserRef{ID: "u2", Username: "worker2"},
			Payload:    models.Payload{Date: "2024-05-02", MachineName: "Lobby"},
		},
	})

	out := buf.String()
	for _, want := range []string{"M-1", "2024-05-02", "Lobby", "in_progress", "worker1", "worker2", "TOTAL"} {
		assert.Contains(t, out, want)
	}
}

func TestUserCreate_RequiresPassword(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"user", "create", "worker1"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestMissionSeed_SampleRequiresAssignee(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"mission", "seed"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--assign")
}

func TestSampleMission(t *testing.T) {
	in := sampleMission(time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC))

	assert.Equal(t, "mission-001", in.ID)
	assert.Equal(t, "2024-05-02", in.Date)
	require.NotNil(t, in.Collect)
	require.NotNil(t, in.Refill)
	assert.Equal(t, 20, in.Refill.Notes.NoteTypes["20"])
	assert.Len(t, in.Maintenance, 2)
}
