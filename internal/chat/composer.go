package chat

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/u4s-chat/server/internal/booking/fsm"
	logx "github.com/u4s-chat/server/pkg/logger"
)

const fallbackAnswer = "Нет данных в базе знаний."

// Snippet is one retrieved knowledge-base fragment.
type Snippet struct {
	Text   string
	Source string
	Score  float64
}

// Retriever is the narrow interface to the retrieval pipeline. Its internals
// (embedding, vector search, deduplication) live behind it.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Snippet, error)
}

// Synthesizer turns a question, the prior turns of the session and retrieved
// context into a final answer.
type Synthesizer interface {
	Answer(ctx context.Context, query string, history []*schema.Message, snippets []Snippet) (string, error)
}

// HistoryRepo persists the raw turn history of a session.
type HistoryRepo interface {
	Append(ctx context.Context, sessionID string, message *schema.Message) error
	Load(ctx context.Context, sessionID string) ([]*schema.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

// Response is the outbound result of one turn.
type Response struct {
	Answer string     `json:"answer"`
	Debug  *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo carries structured turn metadata. It is attached only when the
// debug flag is enabled, production responses omit it.
type DebugInfo struct {
	Intent      string         `json:"intent"`
	Slots       map[string]any `json:"slots,omitempty"`
	PMSCalled   bool           `json:"pms_called"`
	OffersCount int            `json:"offers_count"`
}

// bookingCues are the surface signals that a message opens a booking
// negotiation rather than asking a factual question.
var bookingCues = []string{
	"брон", "забронир", "номер", "заезд", "заселен", "снять", "остановиться",
	"ноч", "свободн", "book", "reservation", "room",
}

// Composer routes one user turn either into the booking dialogue or into the
// retrieval-augmented Q&A path, and shapes the outbound response.
type Composer struct {
	booking      *fsm.Service
	history      HistoryRepo
	retriever    Retriever
	synth        Synthesizer
	includeDebug bool
}

func NewComposer(booking *fsm.Service, history HistoryRepo, retriever Retriever, synth Synthesizer, includeDebug bool) *Composer {
	return &Composer{
		booking:      booking,
		history:      history,
		retriever:    retriever,
		synth:        synth,
		includeDebug: includeDebug,
	}
}

// HandleMessage processes one user message for the session. A turn belongs to
// the booking dialogue when the dialogue claims it or the text carries
// booking intent; everything else goes to the knowledge base with the prior
// session turns as conversational context.
func (c *Composer) HandleMessage(ctx context.Context, sessionID, text string) (*Response, error) {
	var resp *Response
	if c.booking.ClaimsTurn(ctx, sessionID, text) || hasBookingIntent(text) {
		resp = c.handleBooking(ctx, sessionID, text)
	} else {
		var err error
		resp, err = c.handleGeneral(ctx, text, c.loadHistory(ctx, sessionID))
		if err != nil {
			return nil, err
		}
	}

	c.appendHistory(ctx, sessionID, schema.UserMessage(text))
	c.appendHistory(ctx, sessionID, schema.AssistantMessage(resp.Answer, nil))
	return resp, nil
}

// Reset discards the session entirely: chat history and any booking dialogue
// in progress.
func (c *Composer) Reset(ctx context.Context, sessionID string) error {
	if c.history != nil {
		if err := c.history.Clear(ctx, sessionID); err != nil {
			return err
		}
	}
	return c.booking.Reset(ctx, sessionID)
}

func (c *Composer) handleBooking(ctx context.Context, sessionID, text string) *Response {
	turn := c.booking.HandleTurn(ctx, sessionID, text)

	resp := &Response{Answer: turn.Answer}
	if c.includeDebug {
		resp.Debug = &DebugInfo{
			Intent:      turn.Intent,
			Slots:       turn.Slots,
			PMSCalled:   turn.PMSCalled,
			OffersCount: turn.OffersCount,
		}
	}
	return resp
}

func (c *Composer) handleGeneral(ctx context.Context, text string, history []*schema.Message) (*Response, error) {
	var snippets []Snippet
	if c.retriever != nil {
		hits, err := c.retriever.Retrieve(ctx, text)
		if err != nil {
			logx.Warn().Err(err).Msg("retrieval failed, answering without context")
		} else {
			snippets = hits
		}
	}

	answer, err := c.synth.Answer(ctx, text, history, snippets)
	if err != nil {
		return nil, err
	}
	if answer = NormalizeChatText(answer); answer == "" {
		answer = fallbackAnswer
	}

	resp := &Response{Answer: answer}
	if c.includeDebug {
		resp.Debug = &DebugInfo{Intent: "general"}
	}
	return resp, nil
}

// loadHistory fetches the prior turns of the session. History is advisory
// context for the synthesizer; failures degrade to an empty history.
func (c *Composer) loadHistory(ctx context.Context, sessionID string) []*schema.Message {
	if c.history == nil {
		return nil
	}
	msgs, err := c.history.Load(ctx, sessionID)
	if err != nil {
		logx.Warn().Err(err).Str("sessionID", sessionID).Msg("failed to load chat history")
		return nil
	}
	return msgs
}

func (c *Composer) appendHistory(ctx context.Context, sessionID string, msg *schema.Message) {
	if c.history == nil {
		return
	}
	if err := c.history.Append(ctx, sessionID, msg); err != nil {
		logx.Warn().Err(err).Str("sessionID", sessionID).Msg("failed to append chat history")
	}
}

func hasBookingIntent(text string) bool {
	t := strings.ToLower(text)
	for _, cue := range bookingCues {
		if strings.Contains(t, cue) {
			return true
		}
	}
	return false
}
