package fsm

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/u4s-chat/server/internal/booking/model"
	"github.com/u4s-chat/server/internal/booking/quote"
	"github.com/u4s-chat/server/internal/booking/slotfill"
	logx "github.com/u4s-chat/server/pkg/logger"
)

const quoteOp = "quote"

const (
	quoteRetryMessage = "Не удалось получить цены, попробуйте, пожалуйста, ещё раз."
	quoteApology      = "К сожалению, не удалось получить цены на указанные даты. Давайте подберём другие."
	noMoreOffers      = "Больше вариантов нет."
)

// TurnResult is the outcome of one processed user turn.
type TurnResult struct {
	Answer      string
	Intent      string
	Slots       map[string]any
	PMSCalled   bool
	OffersCount int
}

// Service orchestrates the booking dialogue: given one user turn it applies
// navigation commands, fills slots, validates and auto-corrects the context,
// and decides between asking a clarifying question and fetching a quote.
//
// All collaborators are passed in explicitly; the service holds no global
// state beyond the per-session serialization points, so many instances can
// run concurrently against the same store.
// sessionLockStripes bounds the lock table: sessions hash onto a fixed set of
// mutexes instead of one mutex per session id ever seen.
const sessionLockStripes = 64

type Service struct {
	store     model.StateStore
	quotes    model.QuoteProvider
	slots     *slotfill.SlotFiller
	validator *ContextValidator
	nav       *NavigationService
	cfg       model.FSMConfig

	locks [sessionLockStripes]sync.Mutex
}

func NewService(
	store model.StateStore,
	quotes model.QuoteProvider,
	slots *slotfill.SlotFiller,
	validator *ContextValidator,
	nav *NavigationService,
	cfg model.FSMConfig,
) *Service {
	return &Service{
		store:     store,
		quotes:    quotes,
		slots:     slots,
		validator: validator,
		nav:       nav,
		cfg:       cfg,
	}
}

// sessionLock returns the mutex serializing turns of one session. Two
// sessions on the same stripe serialize against each other, which is
// acceptable: the lock table stays bounded no matter how many sessions the
// process has seen. Within a session the lock is held for the whole
// extract-validate-quote sequence of a turn.
func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

// Active reports whether a booking dialogue is in progress for the session.
// Terminal contexts are removed from the store at the end of their turn, so
// any stored context counts as active.
func (s *Service) Active(ctx context.Context, sessionID string) bool {
	bc, err := s.load(ctx, sessionID)
	return err == nil && bc != nil
}

// ClaimsTurn reports whether the booking dialogue should handle the next
// turn. A mid-negotiation context always claims it. A finished context kept
// around for its remaining offers claims only the show-more follow-up, so a
// factual question after a quote goes to the knowledge base instead of
// opening a fresh negotiation.
func (s *Service) ClaimsTurn(ctx context.Context, sessionID, text string) bool {
	bc, err := s.load(ctx, sessionID)
	if err != nil || bc == nil {
		return false
	}
	if bc.State == model.StateDone {
		return s.nav.IsShowMoreCommand(NormalizeCommand(text)) && bc.LastOffer < len(bc.Offers)
	}
	return true
}

// Reset discards the stored dialogue state for the session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Clear(sctx, sessionID)
}

// HandleTurn processes one user turn for the session and always produces an
// answer: failures of the pricing system or the store degrade to re-asks and
// apologies, never to a crashed conversation.
func (s *Service) HandleTurn(ctx context.Context, sessionID, text string) *TurnResult {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	bc, err := s.load(ctx, sessionID)
	if err != nil {
		// Storage failure is fatal for this turn only: fall back to a fresh
		// session start and keep the conversation going.
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("context load failed, starting fresh")
		bc = nil
	}
	if bc == nil {
		bc = model.NewBookingContext()
	}

	normalized := NormalizeCommand(text)

	// A finished negotiation round keeps its offers around for exactly one
	// follow-up: either the user asks to see the rest, or the round is over.
	if bc.State == model.StateDone {
		if s.nav.IsShowMoreCommand(normalized) && bc.LastOffer < len(bc.Offers) {
			return s.showMore(ctx, sessionID, bc)
		}
		s.clear(ctx, sessionID)
		bc = model.NewBookingContext()
	}

	// Cancel has the highest precedence and short-circuits everything else.
	if s.nav.IsCancelCommand(normalized) {
		answer := s.nav.HandleCancel(bc)
		s.clear(ctx, sessionID)
		return s.result(answer, bc, false, 0)
	}

	if s.nav.IsBackCommand(normalized) {
		s.nav.GoBack(bc)
		s.save(ctx, sessionID, bc)
		// The target state's own question, even when its slot is still
		// filled: backing out of CALCULATE after a quote failure must not
		// leave the user without a prompt.
		answer := s.slots.Clarification(bc)
		if answer == "" {
			answer = slotfill.QuestionForState(bc.State)
		}
		return s.result(answer, bc, false, 0)
	}

	s.slots.Extract(text, bc)

	// Skip ahead to the first unmet requirement, then let the validator
	// correct any invariant the new slots may have broken.
	nextState, _ := s.slots.NextRequirement(bc)
	bc.State = nextState
	s.validator.EnsureValidState(bc)

	if bc.State == model.StateCalculate && s.validator.ReadyForCalculation(bc) {
		return s.fetchQuote(ctx, sessionID, bc)
	}

	s.save(ctx, sessionID, bc)
	return s.result(s.slots.Clarification(bc), bc, false, 0)
}

func (s *Service) fetchQuote(ctx context.Context, sessionID string, bc *model.BookingContext) *TurnResult {
	guests, ok := bc.Guests()
	if !ok {
		s.save(ctx, sessionID, bc)
		return s.result(s.slots.Clarification(bc), bc, false, 0)
	}

	qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
	defer cancel()
	offers, err := s.quotes.GetQuotes(qctx, bc.Checkin, bc.Checkout, guests)
	if err != nil || len(offers) == 0 {
		// Failure and empty availability follow the same bounded retry
		// policy: stay in CALCULATE so the next turn can retry, and after
		// the budget is spent re-ask the dates.
		if err != nil {
			logx.Warn().Err(err).Str("sessionID", sessionID).Msg("quote request failed")
		} else {
			logx.Info().Str("sessionID", sessionID).Msg("quote request returned no offers")
		}

		if bc.Retry(quoteOp) >= s.cfg.QuoteRetryBudget {
			s.nav.ResetDates(bc)
			delete(bc.Retries, quoteOp)
			s.save(ctx, sessionID, bc)
			answer := quoteApology + " " + slotfill.QuestionCheckin
			return s.result(answer, bc, true, 0)
		}
		s.save(ctx, sessionID, bc)
		return s.result(quoteRetryMessage, bc, true, 0)
	}

	stay := quote.Stay{
		CheckIn:  bc.Checkin,
		CheckOut: bc.Checkout,
		Nights:   bc.StayNights(),
		Adults:   bc.AdultsOrZero(),
		Children: bc.ChildrenOrZero(),
	}
	answer, shown := quote.Format(stay, offers, s.cfg.MaxOptions)

	// The negotiation round is complete: clear the collected slots but keep
	// the offer list around for one "show more" follow-up.
	distinct := quote.Dedupe(offers)
	res := s.result(answer, bc, true, shown)
	if shown < len(distinct) {
		done := model.NewBookingContext()
		done.State = model.StateDone
		done.Offers = distinct
		done.LastOffer = shown
		s.save(ctx, sessionID, done)
	} else {
		s.clear(ctx, sessionID)
	}
	return res
}

func (s *Service) showMore(ctx context.Context, sessionID string, bc *model.BookingContext) *TurnResult {
	rest := bc.Offers[bc.LastOffer:]
	blocks := make([]string, 0, len(rest))
	for _, o := range rest {
		blocks = append(blocks, quote.FormatOffer(o))
	}
	answer := noMoreOffers
	if len(blocks) > 0 {
		answer = strings.Join(blocks, "\n\n")
	}
	s.clear(ctx, sessionID)
	return s.result(answer, bc, false, len(rest))
}

func (s *Service) result(answer string, bc *model.BookingContext, pmsCalled bool, offers int) *TurnResult {
	return &TurnResult{
		Answer:      answer,
		Intent:      "booking_quote",
		Slots:       bc.Slots(),
		PMSCalled:   pmsCalled,
		OffersCount: offers,
	}
}

func (s *Service) load(ctx context.Context, sessionID string) (*model.BookingContext, error) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Get(sctx, sessionID)
}

func (s *Service) save(ctx context.Context, sessionID string, bc *model.BookingContext) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Set(sctx, sessionID, bc); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to persist booking context")
	}
}

func (s *Service) clear(ctx context.Context, sessionID string) {
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.Clear(sctx, sessionID); err != nil {
		logx.Error().Err(err).Str("sessionID", sessionID).Msg("failed to clear booking context")
	}
}
