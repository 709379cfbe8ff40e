package model

// BookingState identifies one position in the booking dialogue.
type BookingState string

const (
	StateAskCheckin          BookingState = "ASK_CHECKIN"
	StateAskNightsOrCheckout BookingState = "ASK_NIGHTS_OR_CHECKOUT"
	StateAskAdults           BookingState = "ASK_ADULTS"
	StateAskChildrenCount    BookingState = "ASK_CHILDREN_COUNT"
	StateAskChildrenAges     BookingState = "ASK_CHILDREN_AGES"
	StateCalculate           BookingState = "CALCULATE"
	StateAwaitingDecision    BookingState = "AWAITING_USER_DECISION"
	StateConfirmBooking      BookingState = "CONFIRM_BOOKING"

	// Terminal states. No transitions occur from these.
	StateDone      BookingState = "DONE"
	StateCancelled BookingState = "CANCELLED"
)

// StateOrder is the ordered table of non-terminal dialogue states. The order
// defines "previous"/"next" for back-navigation and for picking the next
// unmet requirement. A turn does not have to visit every state: slots
// pre-filled in one utterance let the dialogue skip ahead.
var StateOrder = []BookingState{
	StateAskCheckin,
	StateAskNightsOrCheckout,
	StateAskAdults,
	StateAskChildrenCount,
	StateAskChildrenAges,
	StateCalculate,
	StateAwaitingDecision,
	StateConfirmBooking,
}

// Terminal reports whether the state admits no further transitions.
func (s BookingState) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

func stateIndex(s BookingState) int {
	for i, st := range StateOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// PreviousState returns the table predecessor of s. The predecessor of the
// first state is the first state itself, so back-navigation is idempotent at
// the boundary. States outside the table map to the start.
func PreviousState(s BookingState) BookingState {
	idx := stateIndex(s)
	if idx <= 0 {
		return StateAskCheckin
	}
	return StateOrder[idx-1]
}

// NextState returns the table successor of s, or false past the last
// non-terminal state. An empty state maps to the start of the table.
func NextState(s BookingState) (BookingState, bool) {
	if s == "" {
		return StateAskCheckin, true
	}
	idx := stateIndex(s)
	if idx < 0 || idx >= len(StateOrder)-1 {
		return "", false
	}
	return StateOrder[idx+1], true
}
