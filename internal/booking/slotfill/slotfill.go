package slotfill

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/u4s-chat/server/internal/booking/model"
	logx "github.com/u4s-chat/server/pkg/logger"
)

// Clarifying questions, one per unmet requirement. Exactly one is asked per
// turn, in fixed priority order.
const (
	QuestionCheckin      = "На какую дату планируете заезд?"
	QuestionNights       = "Сколько ночей планируете остановиться? Или укажите дату выезда."
	QuestionAdults       = "Сколько взрослых гостей?"
	QuestionChildren     = "Поедут ли с вами дети? Если да, укажите сколько."
	QuestionChildrenAges = "Укажите, пожалуйста, возраст детей."
)

// SlotFiller extracts structured booking fields from free-form text. A field
// is written only when it is currently unset or the text carries an explicit
// correction signal for it (a keyword-bound value or a full date range).
// Ambiguous input is simply left unparsed: the unmet slot degrades to a
// clarification re-ask, never an error.
type SlotFiller struct {
	now func() time.Time
}

func New() *SlotFiller {
	return &SlotFiller{now: time.Now}
}

// NewWithClock fixes the reference time used for year inference, so tests
// parsing day-month dates are deterministic.
func NewWithClock(now func() time.Time) *SlotFiller {
	return &SlotFiller{now: now}
}

var (
	reNights    = regexp.MustCompile(`(\d{1,3})\s*(?:ноч|night)`)
	reAdultsNum = regexp.MustCompile(`(\d{1,2})\s*(?:взросл|adult|человек|гост)`)
	reChildNum  = regexp.MustCompile(`(\d{1,2})\s*(?:ребен|дет(?:ей|и|ям|ьми)|child|kid)`)
	reAgeList   = regexp.MustCompile(`((?:\d{1,2}[\s,и]+)*\d{1,2})\s*(?:лет|год)`)
	reBareNums  = regexp.MustCompile(`^[\d\s,и]+$`)
	reNum       = regexp.MustCompile(`\d{1,3}`)
)

// adultWords maps spelled-out guest counts bound to an adults reading.
var adultWords = map[string]int{
	"на одного":       1,
	"один взрослый":   1,
	"на двоих":        2,
	"двое взрослых":   2,
	"вдвоем":          2,
	"на троих":        3,
	"трое взрослых":   3,
	"втроем":          3,
	"на четверых":     4,
	"четверо взрослых": 4,
	"вчетвером":       4,
	"for two":         2,
}

var childWords = map[string]int{
	"один ребенок": 1,
	"с ребенком":   1,
	"двое детей":   2,
	"трое детей":   3,
	"четверо детей": 4,
}

var noChildrenPhrases = []string{
	"без детей",
	"нет детей",
	"детей нет",
	"детей не будет",
	"no children",
	"no kids",
	"without children",
}

// Extract parses dates, stay duration, guest counts and child ages out of one
// user turn and fills the corresponding slots of the context in place.
func (f *SlotFiller) Extract(text string, bc *model.BookingContext) {
	t := normalize(text)
	if t == "" {
		return
	}

	f.extractDates(t, bc)
	f.extractNights(t, bc)
	f.extractAdults(t, bc)
	f.extractChildren(t, bc)
	f.extractChildrenAges(t, bc)
	f.extractBareNumbers(t, bc)
	deriveStay(bc)

	logx.Debug().Str("text", t).Str("context", bc.Compact()).Msg("slot extraction complete")
}

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, "ё", "е")
	return strings.Join(strings.Fields(text), " ")
}

func (f *SlotFiller) extractNights(t string, bc *model.BookingContext) {
	m := reNights.FindStringSubmatch(t)
	if m == nil {
		return
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return
	}
	// A keyword-bound night count is an explicit correction signal.
	bc.Nights = &n
	if bc.Checkout != "" && bc.Checkin != "" {
		bc.Checkout = ""
	}
}

func (f *SlotFiller) extractAdults(t string, bc *model.BookingContext) {
	if m := reAdultsNum.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 {
			bc.Adults = &n
			return
		}
	}
	for phrase, n := range adultWords {
		if strings.Contains(t, phrase) {
			if bc.Adults == nil {
				count := n
				bc.Adults = &count
			}
			return
		}
	}
}

func (f *SlotFiller) extractChildren(t string, bc *model.BookingContext) {
	for _, phrase := range noChildrenPhrases {
		if strings.Contains(t, phrase) {
			zero := 0
			bc.Children = &zero
			bc.ChildrenAges = nil
			return
		}
	}
	if m := reChildNum.FindStringSubmatch(t); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 0 {
			bc.Children = &n
			return
		}
	}
	for phrase, n := range childWords {
		if strings.Contains(t, phrase) {
			if bc.Children == nil {
				count := n
				bc.Children = &count
			}
			return
		}
	}
}

func (f *SlotFiller) extractChildrenAges(t string, bc *model.BookingContext) {
	if bc.ChildrenOrZero() == 0 {
		return
	}
	var ages []int
	for _, m := range reAgeList.FindAllStringSubmatch(t, -1) {
		for _, s := range reNum.FindAllString(m[1], -1) {
			// Anything 18+ next to an age marker is a year count of an
			// adult or a date, not a child age.
			if age, err := strconv.Atoi(s); err == nil && age < 18 {
				ages = append(ages, age)
			}
		}
	}
	if len(ages) > 0 {
		bc.ChildrenAges = ages
	}
}

// extractBareNumbers interprets answers that are nothing but digits. Which
// slot they fill depends on the question just asked, i.e. the current state.
func (f *SlotFiller) extractBareNumbers(t string, bc *model.BookingContext) {
	if !reBareNums.MatchString(t) {
		return
	}
	nums := reNum.FindAllString(t, -1)
	if len(nums) == 0 {
		return
	}
	first, err := strconv.Atoi(nums[0])
	if err != nil {
		return
	}

	switch bc.State {
	case model.StateAskNightsOrCheckout:
		if bc.Nights == nil && first > 0 {
			bc.Nights = &first
		}
	case model.StateAskAdults:
		if bc.Adults == nil {
			bc.Adults = &first
		}
	case model.StateAskChildrenCount:
		if bc.Children == nil {
			bc.Children = &first
		}
	case model.StateAskChildrenAges:
		ages := make([]int, 0, len(nums))
		for _, s := range nums {
			if age, err := strconv.Atoi(s); err == nil {
				ages = append(ages, age)
			}
		}
		bc.ChildrenAges = ages
	}
}

// deriveStay keeps nights and checkout mutually informative: either may be
// derived from the other plus checkin.
func deriveStay(bc *model.BookingContext) {
	if bc.Checkin == "" {
		return
	}
	checkin, err := time.Parse("2006-01-02", bc.Checkin)
	if err != nil {
		return
	}
	if bc.Nights != nil && *bc.Nights > 0 && bc.Checkout == "" {
		bc.Checkout = checkin.AddDate(0, 0, *bc.Nights).Format("2006-01-02")
		return
	}
	if bc.Nights == nil && bc.Checkout != "" {
		checkout, err := time.Parse("2006-01-02", bc.Checkout)
		if err != nil {
			return
		}
		if n := int(checkout.Sub(checkin).Hours() / 24); n > 0 {
			bc.Nights = &n
		}
	}
}

// NextRequirement returns the dialogue state of the first unmet requirement
// and its clarifying question, evaluated in fixed priority order. An empty
// question means the context satisfies every requirement for quoting.
func (f *SlotFiller) NextRequirement(bc *model.BookingContext) (model.BookingState, string) {
	switch {
	case bc.Checkin == "":
		return model.StateAskCheckin, QuestionCheckin
	case bc.Nights == nil && bc.Checkout == "":
		return model.StateAskNightsOrCheckout, QuestionNights
	case bc.Adults == nil:
		return model.StateAskAdults, QuestionAdults
	case bc.Children == nil:
		return model.StateAskChildrenCount, QuestionChildren
	case bc.ChildrenOrZero() > 0 && len(bc.ChildrenAges) != bc.ChildrenOrZero():
		return model.StateAskChildrenAges, QuestionChildrenAges
	default:
		return model.StateCalculate, ""
	}
}

// Clarification returns the single question for the first unmet requirement,
// or empty when the context is ready for quoting.
func (f *SlotFiller) Clarification(bc *model.BookingContext) string {
	_, question := f.NextRequirement(bc)
	return question
}

// QuestionForState returns the clarifying question a dialogue state owns,
// regardless of which slots are already filled. Used after back-navigation,
// where the target state's question is re-asked even when its slot is set.
func QuestionForState(state model.BookingState) string {
	switch state {
	case model.StateAskCheckin:
		return QuestionCheckin
	case model.StateAskNightsOrCheckout:
		return QuestionNights
	case model.StateAskAdults:
		return QuestionAdults
	case model.StateAskChildrenCount:
		return QuestionChildren
	case model.StateAskChildrenAges:
		return QuestionChildrenAges
	default:
		return ""
	}
}
