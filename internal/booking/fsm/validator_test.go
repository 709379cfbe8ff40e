package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u4s-chat/server/internal/booking/model"
)

func intPtr(n int) *int { return &n }

func completeContext() *model.BookingContext {
	bc := model.NewBookingContext()
	bc.Checkin = "2025-01-20"
	bc.Checkout = "2025-01-22"
	bc.Adults = intPtr(2)
	bc.Children = intPtr(0)
	bc.State = model.StateCalculate
	return bc
}

func TestValidateForState_MissingCheckin(t *testing.T) {
	states := []model.BookingState{
		model.StateAskNightsOrCheckout,
		model.StateAskAdults,
		model.StateAskChildrenCount,
		model.StateAskChildrenAges,
		model.StateCalculate,
	}
	v := NewContextValidator()

	for _, state := range states {
		t.Run(string(state), func(t *testing.T) {
			bc := model.NewBookingContext()
			bc.State = state

			res := v.ValidateForState(bc, "")

			assert.False(t, res.Valid)
			assert.Equal(t, model.StateAskCheckin, res.SuggestedState)
			assert.Contains(t, res.FieldsToClear, "checkin")
		})
	}
}

func TestValidateForState_InvalidCheckinFormat(t *testing.T) {
	v := NewContextValidator()
	bc := model.NewBookingContext()
	bc.State = model.StateAskAdults
	bc.Checkin = "двадцатое января"

	res := v.ValidateForState(bc, "")

	assert.False(t, res.Valid)
	assert.Equal(t, model.StateAskCheckin, res.SuggestedState)
}

func TestValidateForState_CheckoutBeforeCheckin(t *testing.T) {
	v := NewContextValidator()
	bc := model.NewBookingContext()
	bc.State = model.StateAskAdults
	bc.Checkin = "2025-01-22"
	bc.Checkout = "2025-01-20"

	res := v.ValidateForState(bc, "")

	assert.False(t, res.Valid)
	assert.Equal(t, model.StateAskNightsOrCheckout, res.SuggestedState)
	assert.Contains(t, res.FieldsToClear, "checkout")
}

func TestReadyForCalculation_NightsDerivableFromCheckout(t *testing.T) {
	// Nights unset, but the duration is derivable from a valid date pair.
	v := NewContextValidator()
	bc := completeContext()

	assert.True(t, v.ReadyForCalculation(bc))
	assert.Empty(t, v.MissingFields(bc))
}

func TestValidateForState_PartialChildrenAges(t *testing.T) {
	v := NewContextValidator()
	bc := completeContext()
	bc.Children = intPtr(2)
	bc.ChildrenAges = []int{5}

	res := v.ValidateForState(bc, "")

	require.False(t, res.Valid)
	assert.Equal(t, model.StateAskChildrenAges, res.SuggestedState)
	assert.False(t, v.ReadyForCalculation(bc))
}

func TestValidateForState_CalculatePicksEarliestUnmet(t *testing.T) {
	v := NewContextValidator()

	bc := model.NewBookingContext()
	bc.State = model.StateCalculate
	bc.Checkin = "2025-01-20"
	res := v.ValidateForState(bc, "")
	require.False(t, res.Valid)
	assert.Equal(t, model.StateAskNightsOrCheckout, res.SuggestedState)

	bc.Checkout = "2025-01-22"
	res = v.ValidateForState(bc, "")
	require.False(t, res.Valid)
	assert.Equal(t, model.StateAskAdults, res.SuggestedState)
}

func TestEnsureValidState_CorrectsAndClears(t *testing.T) {
	v := NewContextValidator()
	bc := model.NewBookingContext()
	bc.State = model.StateAskAdults
	bc.Checkin = "not-a-date"

	changed := v.EnsureValidState(bc)

	assert.True(t, changed)
	assert.Equal(t, model.StateAskCheckin, bc.State)
	assert.Empty(t, bc.Checkin)
}

func TestEnsureValidState_IdempotentWhenValid(t *testing.T) {
	v := NewContextValidator()
	bc := completeContext()

	assert.False(t, v.EnsureValidState(bc))
	assert.False(t, v.EnsureValidState(bc))
	assert.Equal(t, model.StateCalculate, bc.State)
}

func TestEnsureValidState_TerminalStatesUntouched(t *testing.T) {
	v := NewContextValidator()
	for _, state := range []model.BookingState{model.StateDone, model.StateCancelled} {
		bc := model.NewBookingContext()
		bc.State = state

		assert.False(t, v.EnsureValidState(bc))
		assert.Equal(t, state, bc.State)
	}
}

func TestEnsureValidState_EmptyStateStartsDialogue(t *testing.T) {
	v := NewContextValidator()
	bc := &model.BookingContext{}

	assert.True(t, v.EnsureValidState(bc))
	assert.Equal(t, model.StateAskCheckin, bc.State)
}

func TestMissingFields_Order(t *testing.T) {
	v := NewContextValidator()
	bc := model.NewBookingContext()

	assert.Equal(t, []string{"checkin", "checkout_or_nights", "adults", "children"}, v.MissingFields(bc))
}
