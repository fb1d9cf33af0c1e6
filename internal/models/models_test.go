package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskLabel_JSON(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		bilingual bool
		text      string
		out       string
	}{
		{"plain", `"Clean screen"`, false, "Clean screen", `"Clean screen"`},
		{"bilingual", `{"en":"Clean screen","fr":"Nettoyer l'écran"}`, true, "Clean screen", `{"en":"Clean screen","fr":"Nettoyer l'écran"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l TaskLabel
			require.NoError(t, json.Unmarshal([]byte(tt.in), &l))
			assert.Equal(t, tt.bilingual, l.IsBilingual())
			assert.Equal(t, tt.text, l.String())

			out, err := json.Marshal(l)
			require.NoError(t, err)
			assert.JSONEq(t, tt.out, string(out))
		})
	}
}

func TestTaskLabel_RejectsNumbers(t *testing.T) {
	var l TaskLabel
	assert.Error(t, json.Unmarshal([]byte(`42`), &l))
}

func TestMaintenanceInput_Shapes(t *testing.T) {
	var in []MaintenanceInput
	require.NoError(t, json.Unmarshal([]byte(`[
		"Clean screen",
		{"task": "Check printer", "completed": true},
		{"task": {"en": "Empty bin", "fr": "Vider la poubelle"}},
		{"en": "Oil hinge", "fr": "Huiler la charnière"}
	]`), &in))

	require.Len(t, in, 4)
	assert.Equal(t, PlainLabel("Clean screen"), in[0].Task)
	assert.Equal(t, PlainLabel("Check printer"), in[1].Task)
	assert.Equal(t, BilingualLabel("Empty bin", "Vider la poubelle"), in[2].Task)
	assert.Equal(t, BilingualLabel("Oil hinge", "Huiler la charnière"), in[3].Task)
}

func TestAmount_JSON(t *testing.T) {
	var leaf Leaf
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"12.50","completed":false}`), &leaf))
	assert.True(t, leaf.Present())

	out, err := json.Marshal(leaf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":12.5,"completed":false}`, string(out))

	var empty Leaf
	require.NoError(t, json.Unmarshal([]byte(`{"completed":true}`), &empty))
	assert.False(t, empty.Present())
}

func TestStatus_Rank(t *testing.T) {
	assert.Less(t, StatusUnopened.Rank(), StatusInProgress.Rank())
	assert.Less(t, StatusInProgress.Rank(), StatusCompleted.Rank())
	assert.False(t, Status("archived").Valid())
}

func TestUser_Ref(t *testing.T) {
	u := &User{ID: "1", Username: "worker1", PushTokens: []string{"ExponentPushToken[a]"}}
	assert.Equal(t, UserRef{ID: "1", Username: "worker1"}, u.Ref())
}

func TestIsExpoPushToken(t *testing.T) {
	assert.True(t, IsExpoPushToken("ExponentPushToken[abc]"))
	assert.True(t, IsExpoPushToken("ExpoPushToken[abc]"))
	assert.False(t, IsExpoPushToken("fcm:abc"))
	assert.False(t, IsExpoPushToken(""))
}
