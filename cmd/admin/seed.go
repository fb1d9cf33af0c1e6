package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fieldops/missiond/internal/models"
)

// parseSeed reads a single mission, a list of missions, or a document with a
// top-level "missions" list. JSON is accepted since it is valid YAML.
func parseSeed(data []byte) ([]models.CreateMissionInput, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	switch v := doc.(type) {
	case nil:
		return nil, errors.New("no missions in file")
	case map[string]any:
		if list, ok := v["missions"]; ok {
			doc = list
		} else {
			doc = []any{v}
		}
	}

	// Decoded through JSON to accept the same label and collect shapes as the API.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	var inputs []models.CreateMissionInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return nil, fmt.Errorf("decode missions: %w", err)
	}
	if len(inputs) == 0 {
		return nil, errors.New("no missions in file")
	}
	return inputs, nil
}

// sampleMission is a full mission dated today touching every task kind.
func sampleMission(now time.Time) models.CreateMissionInput {
	return models.CreateMissionInput{
		ID:          "mission-001",
		Date:        now.Format(time.DateOnly),
		Cashier:     "John Doe",
		MachineName: "Machine A1",
		QRCode:      "QR12345",
		Collect: &models.CollectInput{
			Notes: &models.LeafInput{Amount: models.NewAmount(500)},
			Coins: &models.LeafInput{Amount: models.NewAmount(200)},
		},
		Refill: &models.RefillInput{
			Coins: &models.CoinRefillInput{
				Amount:    models.NewAmount(100),
				CoinTypes: map[string]int{"1": 50, "2": 50},
			},
			Notes: &models.NoteRefillInput{
				Amount:    models.NewAmount(500),
				NoteTypes: map[string]int{"10": 30, "20": 20},
			},
		},
		Maintenance: []models.MaintenanceInput{
			{Task: models.PlainLabel("Clean screen")},
			{Task: models.PlainLabel("Check printer")},
		},
	}
}
