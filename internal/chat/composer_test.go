package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u4s-chat/server/internal/booking/fsm"
	"github.com/u4s-chat/server/internal/booking/model"
	"github.com/u4s-chat/server/internal/booking/repo"
	"github.com/u4s-chat/server/internal/booking/slotfill"
)

type synthFunc func(ctx context.Context, query string, history []*schema.Message, snippets []Snippet) (string, error)

func (f synthFunc) Answer(ctx context.Context, query string, history []*schema.Message, snippets []Snippet) (string, error) {
	return f(ctx, query, history, snippets)
}

type retrieverFunc func(ctx context.Context, query string) ([]Snippet, error)

func (f retrieverFunc) Retrieve(ctx context.Context, query string) ([]Snippet, error) {
	return f(ctx, query)
}

type memHistory struct {
	msgs map[string][]*schema.Message
}

func newMemHistory() *memHistory {
	return &memHistory{msgs: map[string][]*schema.Message{}}
}

func (h *memHistory) Append(_ context.Context, sessionID string, m *schema.Message) error {
	h.msgs[sessionID] = append(h.msgs[sessionID], m)
	return nil
}

func (h *memHistory) Load(_ context.Context, sessionID string) ([]*schema.Message, error) {
	return h.msgs[sessionID], nil
}

func (h *memHistory) Clear(_ context.Context, sessionID string) error {
	delete(h.msgs, sessionID)
	return nil
}

type stubQuotes struct {
	offers []model.Offer
}

func (s stubQuotes) GetQuotes(context.Context, string, string, model.Guests) ([]model.Offer, error) {
	return s.offers, nil
}

func oneOffer() stubQuotes {
	return stubQuotes{offers: []model.Offer{
		{RoomName: "Эконом", TotalPrice: 19000, Currency: "RUB"},
	}}
}

func bookingService(quotes model.QuoteProvider) *fsm.Service {
	return fsm.NewService(
		repo.NewMemoryStateStore(),
		quotes,
		slotfill.New(),
		fsm.NewContextValidator(),
		fsm.NewNavigationService(model.NavigationConfig{
			CancelCommands:   []string{"отмена"},
			BackCommands:     []string{"назад"},
			ShowMoreCommands: []string{"показать все"},
		}),
		model.FSMConfig{QuoteRetryBudget: 2, MaxOptions: 3, QuoteTimeout: time.Second, StoreTimeout: time.Second},
	)
}

func TestHandleMessage_GeneralQuestionGoesToKnowledgeBase(t *testing.T) {
	var gotQuery string
	synth := synthFunc(func(_ context.Context, query string, history []*schema.Message, snippets []Snippet) (string, error) {
		gotQuery = query
		assert.Empty(t, history)
		require.Len(t, snippets, 1)
		return "**Завтрак** с 8:00 до 11:00", nil
	})
	retr := retrieverFunc(func(_ context.Context, _ string) ([]Snippet, error) {
		return []Snippet{{Text: "завтрак с 8 до 11", Source: "faq.md", Score: 0.9}}, nil
	})
	history := newMemHistory()
	c := NewComposer(bookingService(oneOffer()), history, retr, synth, false)

	resp, err := c.HandleMessage(context.Background(), "s1", "во сколько завтрак?")
	require.NoError(t, err)
	assert.Equal(t, "Завтрак с 8:00 до 11:00", resp.Answer)
	assert.Nil(t, resp.Debug)
	assert.Equal(t, "во сколько завтрак?", gotQuery)

	msgs, _ := history.Load(context.Background(), "s1")
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
}

func TestHandleMessage_PassesHistoryToSynthesizer(t *testing.T) {
	var gotHistory []*schema.Message
	synth := synthFunc(func(_ context.Context, _ string, history []*schema.Message, _ []Snippet) (string, error) {
		gotHistory = history
		return "ответ", nil
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, false)
	ctx := context.Background()

	_, err := c.HandleMessage(ctx, "s1", "есть ли парковка?")
	require.NoError(t, err)

	_, err = c.HandleMessage(ctx, "s1", "а сауна?")
	require.NoError(t, err)

	require.Len(t, gotHistory, 2)
	assert.Equal(t, "есть ли парковка?", gotHistory[0].Content)
	assert.Equal(t, schema.Assistant, gotHistory[1].Role)
}

func TestHandleMessage_BookingCueRoutesToDialogue(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		t.Fatal("synthesizer must not be called for a booking turn")
		return "", nil
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, false)

	resp, err := c.HandleMessage(context.Background(), "s1", "хочу забронировать номер")
	require.NoError(t, err)
	assert.Equal(t, slotfill.QuestionCheckin, resp.Answer)
}

func TestHandleMessage_ActiveDialogueIsSticky(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		t.Fatal("synthesizer must not be called while a booking is in progress")
		return "", nil
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, false)
	ctx := context.Background()

	_, err := c.HandleMessage(ctx, "s1", "хочу забронировать номер")
	require.NoError(t, err)

	// No booking cue at all, yet the turn stays in the dialogue.
	resp, err := c.HandleMessage(ctx, "s1", "20 января")
	require.NoError(t, err)
	assert.Equal(t, slotfill.QuestionNights, resp.Answer)
}

func TestHandleMessage_QuoteFollowUpQuestionGoesToKnowledgeBase(t *testing.T) {
	quotes := stubQuotes{offers: []model.Offer{
		{RoomName: "Эконом", TotalPrice: 19000, Currency: "RUB"},
		{RoomName: "Стандарт", TotalPrice: 25000, Currency: "RUB"},
		{RoomName: "Студия", TotalPrice: 28000, Currency: "RUB"},
		{RoomName: "Люкс", TotalPrice: 40000, Currency: "RUB"},
	}}
	synthCalled := false
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		synthCalled = true
		return "Завтрак с 8:00.", nil
	})
	c := NewComposer(bookingService(quotes), newMemHistory(), nil, synth, false)
	ctx := context.Background()

	resp, err := c.HandleMessage(ctx, "s1", "хочу снять номер с 20 по 22 января, 2 взрослых, без детей")
	require.NoError(t, err)
	require.Contains(t, resp.Answer, "показать все?")

	// A factual question right after the quote goes to the knowledge base,
	// not into a fresh negotiation.
	resp, err = c.HandleMessage(ctx, "s1", "во сколько завтрак?")
	require.NoError(t, err)
	assert.True(t, synthCalled)
	assert.Equal(t, "Завтрак с 8:00.", resp.Answer)

	// The retained offers still answer the show-more follow-up.
	resp, err = c.HandleMessage(ctx, "s1", "показать все")
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "Люкс")
}

func TestHandleMessage_DebugPayload(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		return "ответ", nil
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, true)
	ctx := context.Background()

	resp, err := c.HandleMessage(ctx, "s1", "какой у вас адрес?")
	require.NoError(t, err)
	require.NotNil(t, resp.Debug)
	assert.Equal(t, "general", resp.Debug.Intent)

	resp, err = c.HandleMessage(ctx, "s2", "хочу снять номер на двоих")
	require.NoError(t, err)
	require.NotNil(t, resp.Debug)
	assert.Equal(t, "booking_quote", resp.Debug.Intent)
	assert.Equal(t, 2, resp.Debug.Slots["adults"])
	assert.False(t, resp.Debug.PMSCalled)
}

func TestHandleMessage_RetrievalFailureDegradesToBareSynthesis(t *testing.T) {
	synth := synthFunc(func(_ context.Context, _ string, _ []*schema.Message, snippets []Snippet) (string, error) {
		assert.Empty(t, snippets)
		return "ответ без контекста", nil
	})
	retr := retrieverFunc(func(context.Context, string) ([]Snippet, error) {
		return nil, errors.New("vector store down")
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), retr, synth, false)

	resp, err := c.HandleMessage(context.Background(), "s1", "есть ли парковка?")
	require.NoError(t, err)
	assert.Equal(t, "ответ без контекста", resp.Answer)
}

func TestHandleMessage_SynthesizerErrorPropagates(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		return "", errors.New("model unavailable")
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, false)

	_, err := c.HandleMessage(context.Background(), "s1", "есть ли парковка?")
	assert.Error(t, err)
}

func TestHandleMessage_EmptyAnswerFallsBack(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		return "   \n  ", nil
	})
	c := NewComposer(bookingService(oneOffer()), newMemHistory(), nil, synth, false)

	resp, err := c.HandleMessage(context.Background(), "s1", "где вы находитесь?")
	require.NoError(t, err)
	assert.Equal(t, fallbackAnswer, resp.Answer)
}

func TestReset_ClearsHistoryAndDialogue(t *testing.T) {
	synth := synthFunc(func(context.Context, string, []*schema.Message, []Snippet) (string, error) {
		return "ответ", nil
	})
	history := newMemHistory()
	svc := bookingService(oneOffer())
	c := NewComposer(svc, history, nil, synth, false)
	ctx := context.Background()

	_, err := c.HandleMessage(ctx, "s1", "хочу забронировать номер")
	require.NoError(t, err)
	require.True(t, svc.Active(ctx, "s1"))

	require.NoError(t, c.Reset(ctx, "s1"))

	assert.False(t, svc.Active(ctx, "s1"))
	msgs, _ := history.Load(ctx, "s1")
	assert.Empty(t, msgs)
}
