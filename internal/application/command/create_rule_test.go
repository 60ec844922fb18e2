package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/rule"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/shared"
	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
)

func TestCreateRule_GeneratesIDAndDefaultsType(t *testing.T) {
	repo := newFakeRuleRepo()
	h := NewCreateRuleHandler(repo, nil)

	r, err := h.Handle(context.Background(), CreateRuleCommand{
		Name:     "Weekend Warrior",
		IsGlobal: true,
		Conditions: []rule.Condition{
			{Field: signals.FieldStreakCount, Operator: rule.OpGreaterOrEqual, Value: 2},
		},
		Actions: []rule.Action{{Type: rule.ActionAddCoins, Value: "20", Amount: 20}},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, rule.TypeCustom, r.Type)
	assert.True(t, r.IsActive)

	stored, err := repo.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Weekend Warrior", stored.Name)
}

func TestCreateRule_DuplicateID(t *testing.T) {
	repo := newFakeRuleRepo()
	h := NewCreateRuleHandler(repo, nil)

	cmd := CreateRuleCommand{
		ID:       "dup",
		Name:     "Duplicate",
		Type:     "milestone",
		IsGlobal: true,
		Actions:  []rule.Action{{Type: rule.ActionSendNudge}},
	}

	_, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)

	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestCreateRule_InvalidDefinition(t *testing.T) {
	h := NewCreateRuleHandler(newFakeRuleRepo(), nil)

	// Правило без действий отклоняется доменной валидацией.
	_, err := h.Handle(context.Background(), CreateRuleCommand{
		Name:     "No Actions",
		IsGlobal: true,
	})
	assert.ErrorIs(t, err, rule.ErrNoActions)

	_, err = h.Handle(context.Background(), CreateRuleCommand{})
	assert.True(t, shared.IsValidation(err))
}
