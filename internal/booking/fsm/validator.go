package fsm

import (
	"time"

	"github.com/u4s-chat/server/internal/booking/model"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// statesRequiringCheckin lists states that cannot be entered without a
// parseable check-in date.
var statesRequiringCheckin = map[model.BookingState]struct{}{
	model.StateAskNightsOrCheckout: {},
	model.StateAskAdults:           {},
	model.StateAskChildrenCount:    {},
	model.StateAskChildrenAges:     {},
	model.StateCalculate:           {},
}

// statesRequiringStayDuration lists states that need either a night count or
// a checkout date strictly after check-in.
var statesRequiringStayDuration = map[model.BookingState]struct{}{
	model.StateAskAdults:        {},
	model.StateAskChildrenCount: {},
	model.StateAskChildrenAges:  {},
	model.StateCalculate:        {},
}

// ValidationResult reports whether a context satisfies the invariants of a
// state, and when it does not, which state to fall back to and which fields
// to clear. Expected validation failures are values, never errors.
type ValidationResult struct {
	Valid          bool
	Errors         []string
	SuggestedState model.BookingState
	FieldsToClear  []string
}

func validOK() ValidationResult {
	return ValidationResult{Valid: true}
}

func validErr(errs []string, suggested model.BookingState, clear ...string) ValidationResult {
	return ValidationResult{
		Valid:          false,
		Errors:         errs,
		SuggestedState: suggested,
		FieldsToClear:  clear,
	}
}

// ContextValidator checks booking contexts against the per-state invariants
// and proposes corrections instead of failing the conversation.
type ContextValidator struct{}

func NewContextValidator() *ContextValidator {
	return &ContextValidator{}
}

// ValidateForState validates the context against the invariants of the target
// state. An empty target falls back to the context's current state.
func (v *ContextValidator) ValidateForState(bc *model.BookingContext, target model.BookingState) ValidationResult {
	state := target
	if state == "" {
		state = bc.State
	}
	if state == "" {
		return validOK()
	}

	if _, ok := statesRequiringCheckin[state]; ok {
		if res := v.validateCheckin(bc); !res.Valid {
			return res
		}
	}

	var errs []string
	if _, ok := statesRequiringStayDuration[state]; ok {
		if res := v.validateStayDuration(bc); !res.Valid {
			if res.SuggestedState != "" {
				return res
			}
			errs = append(errs, res.Errors...)
		}
	}

	if state == model.StateCalculate {
		if res := v.validateForCalculation(bc); !res.Valid {
			return res
		}
	}

	if len(errs) > 0 {
		return validErr(errs, "")
	}
	return validOK()
}

func (v *ContextValidator) validateCheckin(bc *model.BookingContext) ValidationResult {
	if bc.Checkin == "" {
		logx.Warn().
			Str("state", string(bc.State)).
			Str("context", bc.Compact()).
			Msg("context validation failed: state requires checkin but it is missing")
		return validErr([]string{"Дата заезда не указана"}, model.StateAskCheckin, "checkin")
	}

	if _, err := time.Parse("2006-01-02", bc.Checkin); err != nil {
		logx.Warn().Str("checkin", bc.Checkin).Msg("invalid checkin date format")
		return validErr([]string{"Дата заезда указана неверно"}, model.StateAskCheckin, "checkin")
	}

	return validOK()
}

func (v *ContextValidator) validateStayDuration(bc *model.BookingContext) ValidationResult {
	if bc.Nights != nil && *bc.Nights > 0 {
		return validOK()
	}

	if bc.Checkout != "" {
		checkout, err := time.Parse("2006-01-02", bc.Checkout)
		if err != nil {
			return validErr([]string{"Дата выезда указана неверно"}, model.StateAskNightsOrCheckout, "checkout")
		}
		if bc.Checkin != "" {
			checkin, err := time.Parse("2006-01-02", bc.Checkin)
			if err == nil {
				if checkout.After(checkin) {
					return validOK()
				}
				return validErr([]string{"Дата выезда должна быть позже даты заезда"}, model.StateAskNightsOrCheckout, "checkout")
			}
		}
	}

	// Neither nights nor checkout set. Acceptable for states before the
	// duration has been asked for.
	return validOK()
}

func (v *ContextValidator) validateForCalculation(bc *model.BookingContext) ValidationResult {
	var errs []string

	if bc.Checkin == "" {
		errs = append(errs, "Дата заезда не указана")
	}
	if bc.Nights == nil && bc.Checkout == "" {
		errs = append(errs, "Количество ночей или дата выезда не указаны")
	}
	if bc.Adults == nil {
		errs = append(errs, "Количество взрослых не указано")
	}
	if bc.ChildrenOrZero() > 0 && len(bc.ChildrenAges) != bc.ChildrenOrZero() {
		errs = append(errs, "Возраст детей указан не полностью")
	}

	if len(errs) == 0 {
		return validOK()
	}

	// Fall back to the earliest unmet requirement in table order.
	var suggested model.BookingState
	switch {
	case bc.Checkin == "":
		suggested = model.StateAskCheckin
	case bc.Nights == nil && bc.Checkout == "":
		suggested = model.StateAskNightsOrCheckout
	case bc.Adults == nil:
		suggested = model.StateAskAdults
	default:
		suggested = model.StateAskChildrenAges
	}
	return validErr(errs, suggested)
}

// EnsureValidState validates the context against its own state and corrects
// it in place when invalid: the state reverts to the suggested one and the
// offending fields are cleared. Terminal states are never revalidated. It is
// idempotent when the context is already valid. Reports whether the context
// was changed.
func (v *ContextValidator) EnsureValidState(bc *model.BookingContext) bool {
	if bc.State == "" {
		bc.State = model.StateAskCheckin
		return true
	}
	if bc.State.Terminal() {
		return false
	}

	res := v.ValidateForState(bc, "")
	if res.Valid || res.SuggestedState == "" {
		return false
	}

	oldState := bc.State
	bc.State = res.SuggestedState
	clearFields(bc, res.FieldsToClear)

	logx.Warn().
		Str("from", string(oldState)).
		Str("to", string(res.SuggestedState)).
		Strs("errors", res.Errors).
		Msg("auto-corrected booking context state")
	return true
}

func clearFields(bc *model.BookingContext, fields []string) {
	for _, f := range fields {
		switch f {
		case "checkin":
			bc.Checkin = ""
		case "checkout":
			bc.Checkout = ""
		case "nights":
			bc.Nights = nil
		case "adults":
			bc.Adults = nil
		case "children":
			bc.Children = nil
		case "children_ages":
			bc.ChildrenAges = nil
		}
	}
}

// MissingFields lists the required slots not yet collected, in table order.
func (v *ContextValidator) MissingFields(bc *model.BookingContext) []string {
	var missing []string
	if bc.Checkin == "" {
		missing = append(missing, "checkin")
	}
	if bc.Checkout == "" && bc.Nights == nil {
		missing = append(missing, "checkout_or_nights")
	}
	if bc.Adults == nil {
		missing = append(missing, "adults")
	}
	if bc.Children == nil {
		missing = append(missing, "children")
	}
	if bc.ChildrenOrZero() > 0 && len(bc.ChildrenAges) != bc.ChildrenOrZero() {
		missing = append(missing, "children_ages")
	}
	return missing
}

// ReadyForCalculation reports whether the context satisfies every requirement
// for requesting a quote.
func (v *ContextValidator) ReadyForCalculation(bc *model.BookingContext) bool {
	return v.validateForCalculation(bc).Valid
}
