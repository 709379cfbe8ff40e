package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/u4s-chat/server/internal/booking/model"
)

func TestDedupe_KeepsCheapestPerRoomSortedByPrice(t *testing.T) {
	offers := []model.Offer{
		{RoomName: "Стандарт", TotalPrice: 27000, Currency: "RUB"},
		{RoomName: "Эконом", TotalPrice: 19230, Currency: "RUB"},
		{RoomName: "Стандарт", TotalPrice: 25000, Currency: "RUB"},
	}

	distinct := Dedupe(offers)

	require.Len(t, distinct, 2)
	assert.Equal(t, "Эконом", distinct[0].RoomName)
	assert.Equal(t, "Стандарт", distinct[1].RoomName)
	assert.Equal(t, 25000.0, distinct[1].TotalPrice)
}

func TestDedupe_TiesBreakByName(t *testing.T) {
	offers := []model.Offer{
		{RoomName: "Люкс", TotalPrice: 40000, Currency: "RUB"},
		{RoomName: "Апартаменты", TotalPrice: 40000, Currency: "RUB"},
	}

	distinct := Dedupe(offers)

	require.Len(t, distinct, 2)
	assert.Equal(t, "Апартаменты", distinct[0].RoomName)
}

func TestFormat_HeaderAndBlocks(t *testing.T) {
	stay := Stay{CheckIn: "2025-01-20", CheckOut: "2025-01-22", Nights: 2, Adults: 2}
	offers := []model.Offer{
		{RoomName: "Стандарт", TotalPrice: 25000, Currency: "RUB"},
		{RoomName: "Эконом", TotalPrice: 19230, Currency: "RUB", BreakfastIncluded: true},
	}

	answer, shown := Format(stay, offers, 3)

	assert.Equal(t, 2, shown)
	assert.Equal(t,
		"На даты 20.01–22.01 (2 ночи) для 2 взрослых доступны варианты:\n\n"+
			"🏠 Эконом\n— 19 230 ₽ (завтрак включён)\n\n"+
			"🏠 Стандарт\n— 25 000 ₽",
		answer)
}

func TestFormat_HeaderMentionsChildren(t *testing.T) {
	stay := Stay{CheckIn: "2025-03-01", CheckOut: "2025-03-04", Nights: 3, Adults: 2, Children: 1}
	offers := []model.Offer{{RoomName: "Эконом", TotalPrice: 19000, Currency: "RUB"}}

	answer, _ := Format(stay, offers, 3)

	assert.Contains(t, answer, "На даты 01.03–04.03 (3 ночи) для 2 взрослых и 1 детей доступны варианты:")
}

func TestFormat_TruncatesAndPromptsForMore(t *testing.T) {
	stay := Stay{CheckIn: "2025-01-20", CheckOut: "2025-01-21", Nights: 1, Adults: 1}
	offers := []model.Offer{
		{RoomName: "Эконом", TotalPrice: 19000, Currency: "RUB"},
		{RoomName: "Стандарт", TotalPrice: 25000, Currency: "RUB"},
		{RoomName: "Студия", TotalPrice: 28000, Currency: "RUB"},
		{RoomName: "Люкс", TotalPrice: 40000, Currency: "RUB"},
	}

	answer, shown := Format(stay, offers, 3)

	assert.Equal(t, 3, shown)
	assert.Contains(t, answer, "(1 ночь)")
	assert.Contains(t, answer, "Ещё 1 вариант — показать все?")
	assert.NotContains(t, answer, "Люкс")
}

func TestFormatOffer_IncludesAreaWhenKnown(t *testing.T) {
	area := 30
	o := model.Offer{RoomName: "Стандарт", TotalPrice: 25000, Currency: "RUB", RoomArea: &area}

	assert.Equal(t, "🏠 Стандарт (30 м²)\n— 25 000 ₽", FormatOffer(o))
}

func TestFormatPrice_GroupsThousands(t *testing.T) {
	assert.Equal(t, "950", formatPrice(950))
	assert.Equal(t, "19 230", formatPrice(19230))
	assert.Equal(t, "1 250 000", formatPrice(1250000))
}

func TestCurrencySymbol_FallsBackToCode(t *testing.T) {
	assert.Equal(t, "₽", currencySymbol("rub"))
	assert.Equal(t, "EUR", currencySymbol("EUR"))
}
