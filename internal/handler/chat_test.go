package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u4s-chat/server/internal/booking/fsm"
	"github.com/u4s-chat/server/internal/booking/model"
	"github.com/u4s-chat/server/internal/booking/repo"
	"github.com/u4s-chat/server/internal/booking/slotfill"
	"github.com/u4s-chat/server/internal/chat"
)

type staticSynth struct{ answer string }

func (s staticSynth) Answer(context.Context, string, []*schema.Message, []chat.Snippet) (string, error) {
	return s.answer, nil
}

type noQuotes struct{}

func (noQuotes) GetQuotes(context.Context, string, string, model.Guests) ([]model.Offer, error) {
	return nil, nil
}

func testService() *fsm.Service {
	return fsm.NewService(
		repo.NewMemoryStateStore(),
		noQuotes{},
		slotfill.New(),
		fsm.NewContextValidator(),
		fsm.NewNavigationService(model.NavigationConfig{CancelCommands: []string{"отмена"}}),
		model.FSMConfig{QuoteRetryBudget: 2, MaxOptions: 3, QuoteTimeout: time.Second, StoreTimeout: time.Second},
	)
}

func testComposer(svc *fsm.Service) *chat.Composer {
	return chat.NewComposer(svc, nil, nil, staticSynth{answer: "Завтрак с 8:00."}, false)
}

func serveChat(t *testing.T, h *ChatHandler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.POST("/v1/chat", h.Handle)
	e.DELETE("/v1/chat/:session_id", h.Reset)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postChat(t *testing.T, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return rec, NewChatHandler(testComposer(testService())).Handle(c)
}

func TestChatHandler_AnswersGeneralQuestion(t *testing.T) {
	rec, err := postChat(t, `{"session_id":"s1","message":"во сколько завтрак?"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Завтрак с 8:00.", resp.Answer)
	assert.Nil(t, resp.Debug)
}

func TestChatHandler_RejectsMissingFields(t *testing.T) {
	_, err := postChat(t, `{"session_id":"","message":"привет"}`)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestChatHandler_RejectsMalformedBody(t *testing.T) {
	_, err := postChat(t, `{"session_id":`)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestChatHandler_ResetDropsSession(t *testing.T) {
	ctx := context.Background()
	svc := testService()
	h := NewChatHandler(testComposer(svc))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat",
		strings.NewReader(`{"session_id":"s1","message":"хочу забронировать номер"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serveChat(t, h, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, svc.Active(ctx, "s1"))

	rec = serveChat(t, h, httptest.NewRequest(http.MethodDelete, "/v1/chat/s1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, svc.Active(ctx, "s1"))
}
