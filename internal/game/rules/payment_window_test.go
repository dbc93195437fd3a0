package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentWindowManager(t *testing.T) {
	t.Run("begin and end", func(t *testing.T) {
		pwm := NewPaymentWindowManager()
		assert.False(t, pwm.IsPaymentInProgress())

		ps := NewPaymentState("self", "card-1", 3, "move")
		id, err := pwm.BeginPayment(ps)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, ps.ID())
		assert.True(t, pwm.IsPaymentInProgress())

		got, err := pwm.Get(id)
		require.NoError(t, err)
		assert.Same(t, ps, got)
		assert.Equal(t, "move", got.Data())
		assert.Equal(t, 3, got.Required())

		require.NoError(t, pwm.EndPayment(id))
		assert.False(t, pwm.IsPaymentInProgress())
		assert.Equal(t, []string{id}, pwm.History())

		assert.ErrorIs(t, pwm.EndPayment(id), ErrNoPayment)
		_, err = pwm.Get(id)
		assert.ErrorIs(t, err, ErrNoPayment)
	})

	t.Run("one window per player", func(t *testing.T) {
		pwm := NewPaymentWindowManager()

		_, err := pwm.BeginPayment(NewPaymentState("self", "a", 1, nil))
		require.NoError(t, err)
		_, err = pwm.BeginPayment(NewPaymentState("self", "b", 1, nil))
		assert.ErrorIs(t, err, ErrPaymentInProgress)

		oppID, err := pwm.BeginPayment(NewPaymentState("opponent", "c", 2, nil))
		require.NoError(t, err)

		pending := pwm.Pending()
		require.Len(t, pending, 2)
		assert.Equal(t, "a", pending[0].CardID())
		assert.Equal(t, oppID, pwm.ActiveFor("opponent").ID())
		assert.Nil(t, pwm.ActiveFor("nobody"))
	})

	t.Run("rejections are recorded", func(t *testing.T) {
		ps := NewPaymentState("self", "a", 2, nil)
		ps.RecordRejection("underpaid")
		ps.RecordRejection("overpaid")
		assert.Equal(t, 2, ps.Attempts())
		assert.Equal(t, "overpaid", ps.LastRejection())
	})

	t.Run("reset", func(t *testing.T) {
		pwm := NewPaymentWindowManager()
		id, err := pwm.BeginPayment(NewPaymentState("self", "a", 1, nil))
		require.NoError(t, err)
		pwm.Reset()
		assert.False(t, pwm.IsPaymentInProgress())
		_, err = pwm.Get(id)
		assert.Error(t, err)
	})
}

func TestChoiceManager(t *testing.T) {
	cm := NewChoiceManager()

	id := cm.AddChoice(Choice{
		Type:       ChoiceTypeProduce,
		PlayerID:   "self",
		Options:    []string{"Fire", "Water"},
		MinChoices: 1,
		MaxChoices: 1,
	})
	require.True(t, cm.HasPendingChoices())
	assert.Len(t, cm.Pending("self"), 1)
	assert.Empty(t, cm.Pending("opponent"))

	_, err := cm.MakeChoice(id, []string{"Dark"})
	assert.Error(t, err)
	_, err = cm.MakeChoice(id, []string{"Fire", "Water"})
	assert.Error(t, err)
	_, err = cm.MakeChoice(id, nil)
	assert.Error(t, err)
	assert.True(t, cm.HasPendingChoices(), "invalid results keep the choice open")

	made, err := cm.MakeChoice(id, []string{"Water"})
	require.NoError(t, err)
	assert.True(t, made.Made)
	assert.Equal(t, []string{"Water"}, made.Result)
	assert.False(t, cm.HasPendingChoices())
	assert.Len(t, cm.Made(), 1)

	_, err = cm.MakeChoice(id, []string{"Water"})
	assert.ErrorIs(t, err, ErrNoChoice)

	id2 := cm.AddChoice(Choice{Type: ChoiceTypeOther, PlayerID: "opponent", Options: []string{"x"}})
	withdrawn, err := cm.Withdraw(id2)
	require.NoError(t, err)
	assert.Equal(t, "opponent", withdrawn.PlayerID)
	_, ok := cm.Get(id2)
	assert.False(t, ok)

	cm.Reset()
	assert.Empty(t, cm.Made())
}
