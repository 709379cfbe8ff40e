package fsm

import (
	"strings"

	"github.com/u4s-chat/server/internal/booking/model"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// CancelMessage acknowledges a cancelled booking dialogue.
const CancelMessage = "Отменяю бронирование. Если понадобится помощь, напишите."

// NavigationService recognises cancel/back/show-more commands and computes
// the resulting state and context. The command vocabularies are closed sets
// loaded from configuration, matched against normalized input.
type NavigationService struct {
	cancel   map[string]struct{}
	back     map[string]struct{}
	showMore map[string]struct{}
}

func NewNavigationService(cfg model.NavigationConfig) *NavigationService {
	return &NavigationService{
		cancel:   commandSet(cfg.CancelCommands),
		back:     commandSet(cfg.BackCommands),
		showMore: commandSet(cfg.ShowMoreCommands),
	}
}

func commandSet(commands []string) map[string]struct{} {
	set := make(map[string]struct{}, len(commands))
	for _, c := range commands {
		if c = NormalizeCommand(c); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// NormalizeCommand lowers, trims and collapses whitespace so command matching
// is insensitive to casing and spacing. The ё/е fold mirrors how users type.
func NormalizeCommand(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, "ё", "е")
	return strings.Join(strings.Fields(text), " ")
}

func (n *NavigationService) IsCancelCommand(normalized string) bool {
	_, ok := n.cancel[normalized]
	return ok
}

func (n *NavigationService) IsBackCommand(normalized string) bool {
	_, ok := n.back[normalized]
	return ok
}

func (n *NavigationService) IsShowMoreCommand(normalized string) bool {
	_, ok := n.showMore[normalized]
	return ok
}

// HandleCancel moves the dialogue to the cancelled terminal state and returns
// the acknowledgement. Collected fields stay in place: the cancelled context
// is deleted from the store right after the turn, so clearing slots here
// would only obscure the log trail.
func (n *NavigationService) HandleCancel(bc *model.BookingContext) string {
	bc.State = model.StateCancelled
	logx.Info().Str("context", bc.Compact()).Msg("booking cancelled")
	return CancelMessage
}

// GoBack moves the dialogue to the table predecessor of the current state and
// clears exactly the fields owned by the target state. Fields of states that
// were skipped by pre-filled slots are left untouched. At the first state the
// operation is idempotent.
func (n *NavigationService) GoBack(bc *model.BookingContext) model.BookingState {
	previous := model.PreviousState(bc.State)

	switch previous {
	case model.StateAskCheckin:
		bc.Checkin = ""
		bc.Nights = nil
		bc.Checkout = ""
	case model.StateAskNightsOrCheckout:
		bc.Nights = nil
		bc.Checkout = ""
	case model.StateAskAdults:
		bc.Adults = nil
	case model.StateAskChildrenCount:
		bc.Children = nil
		bc.ChildrenAges = nil
	case model.StateAskChildrenAges:
		bc.ChildrenAges = nil
	}

	logx.Debug().
		Str("from", string(bc.State)).
		Str("to", string(previous)).
		Msg("navigated back")
	bc.State = previous
	return previous
}

// NextState returns the table successor of the given state, or false past the
// last non-terminal state.
func (n *NavigationService) NextState(state model.BookingState) (model.BookingState, bool) {
	return model.NextState(state)
}

// ResetToStart drops everything collected and restarts the dialogue.
func (n *NavigationService) ResetToStart(bc *model.BookingContext) {
	*bc = *model.NewBookingContext()
	logx.Info().Msg("reset booking context to initial state")
}

// ResetDates clears only the stay dates and returns to the first question.
func (n *NavigationService) ResetDates(bc *model.BookingContext) {
	bc.Checkin = ""
	bc.Checkout = ""
	bc.Nights = nil
	bc.State = model.StateAskCheckin
	logx.Debug().Msg("reset dates in booking context")
}

// ResetGuests clears only the guest composition.
func (n *NavigationService) ResetGuests(bc *model.BookingContext) {
	bc.Adults = nil
	bc.Children = nil
	bc.ChildrenAges = nil
	bc.State = model.StateAskAdults
	logx.Debug().Msg("reset guests in booking context")
}
