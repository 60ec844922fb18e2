package rule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

func TestParseConditions_Basic(t *testing.T) {
	raw := []byte(`[
		{"field": "lessonsCompleted", "operator": "eq", "value": 1},
		{"field": "courseProgressPercent", "operator": "between", "value": 50, "value2": 80},
		{"field": "streakCount", "operator": "in", "value": [3, 7, 30]}
	]`)

	conditions, err := ParseConditions(raw)
	require.NoError(t, err)
	require.Len(t, conditions, 3)

	assert.Equal(t, signals.FieldLessonsCompleted, conditions[0].Field)
	assert.Equal(t, OpEqual, conditions[0].Operator)
	assert.Equal(t, 1.0, conditions[0].Value)

	require.NotNil(t, conditions[1].Value2)
	assert.Equal(t, 80.0, *conditions[1].Value2)

	assert.True(t, conditions[2].IsList)
	assert.Equal(t, []float64{3, 7, 30}, conditions[2].List)
}

func TestParseConditions_EmptyAndNull(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte(""), []byte("  "), []byte("null")} {
		conditions, err := ParseConditions(raw)
		require.NoError(t, err)
		assert.Empty(t, conditions)
	}
}

func TestParseConditions_MalformedJSONIsError(t *testing.T) {
	_, err := ParseConditions([]byte(`[{"field": "streakCount"`))
	assert.Error(t, err)

	_, err = ParseConditions([]byte(`{"field": "streakCount"}`))
	assert.Error(t, err)
}

func TestParseConditions_StringNumbersCoerce(t *testing.T) {
	conditions, err := ParseConditions([]byte(`[{"field": "streakCount", "operator": "gte", "value": "7"}]`))
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.Equal(t, 7.0, conditions[0].Value)
}

func TestParseConditions_GarbageValueBecomesNaN(t *testing.T) {
	conditions, err := ParseConditions([]byte(`[{"field": "streakCount", "operator": "eq", "value": "seven"}]`))
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.True(t, math.IsNaN(conditions[0].Value))

	// Семантический мусор отсекается на эвалюации, не на разборе.
	assert.False(t, conditions[0].Evaluate(&signals.StudentSignals{StreakCount: 7}))
}

func TestParseActions_Basic(t *testing.T) {
	raw := []byte(`[
		{"type": "add_coins", "value": 25},
		{"type": "add_coins", "value": "50"},
		{"type": "send_nudge", "value": "streak", "message": "Серия {streakCount} дней!"},
		{"type": "create_mystery_box"}
	]`)

	actions, err := ParseActions(raw)
	require.NoError(t, err)
	require.Len(t, actions, 4)

	assert.Equal(t, ActionAddCoins, actions[0].Type)
	assert.Equal(t, 25.0, actions[0].Amount)

	assert.Equal(t, "50", actions[1].Value)
	assert.Equal(t, 50.0, actions[1].Amount)

	assert.Equal(t, ActionSendNudge, actions[2].Type)
	assert.Equal(t, "streak", actions[2].Value)
	assert.Equal(t, "Серия {streakCount} дней!", actions[2].Message)

	assert.Equal(t, ActionCreateMysteryBox, actions[3].Type)
	assert.True(t, math.IsNaN(actions[3].Amount))
}

func TestParseActions_MalformedJSONIsError(t *testing.T) {
	_, err := ParseActions([]byte(`[{"type":`))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	high := 80.0
	conditions := []Condition{
		{Field: signals.FieldLessonsCompleted, Operator: OpEqual, Value: 1},
		{Field: signals.FieldCourseProgressPercent, Operator: OpBetween, Value: 50, Value2: &high},
		{Field: signals.FieldStreakCount, Operator: OpIn, List: []float64{3, 7}, IsList: true},
	}

	raw, err := MarshalConditions(conditions)
	require.NoError(t, err)

	parsed, err := ParseConditions(raw)
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, conditions[0], parsed[0])
	assert.Equal(t, conditions[1].Operator, parsed[1].Operator)
	require.NotNil(t, parsed[1].Value2)
	assert.Equal(t, high, *parsed[1].Value2)
	assert.True(t, parsed[2].IsList)
	assert.Equal(t, conditions[2].List, parsed[2].List)

	actions := []Action{
		{Type: ActionAddCoins, Value: "25", Amount: 25},
		{Type: ActionSendNudge, Value: "comeback", Amount: math.NaN()},
	}

	rawActions, err := MarshalActions(actions)
	require.NoError(t, err)

	parsedActions, err := ParseActions(rawActions)
	require.NoError(t, err)
	require.Len(t, parsedActions, 2)
	assert.Equal(t, 25.0, parsedActions[0].Amount)
	assert.Equal(t, "comeback", parsedActions[1].Value)
	assert.True(t, math.IsNaN(parsedActions[1].Amount))
}
