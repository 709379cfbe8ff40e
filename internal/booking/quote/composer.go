package quote

import (
	"fmt"
	"sort"
	"strings"

	"github.com/u4s-chat/server/internal/booking/model"
)

// Stay carries the request parameters echoed in the quote header.
type Stay struct {
	CheckIn  string
	CheckOut string
	Nights   int
	Adults   int
	Children int
}

// Dedupe keeps one offer per room name, the cheapest, and returns the result
// sorted ascending by price.
func Dedupe(offers []model.Offer) []model.Offer {
	best := map[string]model.Offer{}
	for _, o := range offers {
		if cur, ok := best[o.RoomName]; !ok || o.TotalPrice < cur.TotalPrice {
			best[o.RoomName] = o
		}
	}
	out := make([]model.Offer, 0, len(best))
	for _, o := range best {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPrice != out[j].TotalPrice {
			return out[i].TotalPrice < out[j].TotalPrice
		}
		return out[i].RoomName < out[j].RoomName
	})
	return out
}

// Format renders the quote answer: a header with dates and guest composition,
// then up to max distinct room types sorted by price, and a count-and-prompt
// notice when more remain. Returns the answer and how many offers are shown.
func Format(stay Stay, offers []model.Offer, max int) (string, int) {
	distinct := Dedupe(offers)
	shown := distinct
	if max > 0 && len(distinct) > max {
		shown = distinct[:max]
	}

	var b strings.Builder
	b.WriteString(header(stay))
	for _, o := range shown {
		b.WriteString("\n\n")
		b.WriteString(FormatOffer(o))
	}
	if rest := len(distinct) - len(shown); rest > 0 {
		fmt.Fprintf(&b, "\n\nЕщё %d %s — показать все?", rest, optionsWord(rest))
	}
	return b.String(), len(shown)
}

// FormatOffer renders one offer block.
func FormatOffer(o model.Offer) string {
	var b strings.Builder
	b.WriteString("🏠 ")
	b.WriteString(o.RoomName)
	if o.RoomArea != nil {
		fmt.Fprintf(&b, " (%d м²)", *o.RoomArea)
	}
	fmt.Fprintf(&b, "\n— %s %s", formatPrice(o.TotalPrice), currencySymbol(o.Currency))
	if o.BreakfastIncluded {
		b.WriteString(" (завтрак включён)")
	}
	return b.String()
}

func header(stay Stay) string {
	var b strings.Builder
	fmt.Fprintf(&b, "На даты %s–%s", shortDate(stay.CheckIn), shortDate(stay.CheckOut))
	if stay.Nights > 0 {
		fmt.Fprintf(&b, " (%d %s)", stay.Nights, nightsWord(stay.Nights))
	}
	fmt.Fprintf(&b, " для %d взрослых", stay.Adults)
	if stay.Children > 0 {
		fmt.Fprintf(&b, " и %d детей", stay.Children)
	}
	b.WriteString(" доступны варианты:")
	return b.String()
}

// shortDate turns an ISO date into DD.MM for the header.
func shortDate(iso string) string {
	if len(iso) != 10 {
		return iso
	}
	return iso[8:10] + "." + iso[5:7]
}

func optionsWord(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "вариантов"
	}
	switch n % 10 {
	case 1:
		return "вариант"
	case 2, 3, 4:
		return "варианта"
	default:
		return "вариантов"
	}
}

func nightsWord(n int) string {
	n = n % 100
	if n >= 11 && n <= 14 {
		return "ночей"
	}
	switch n % 10 {
	case 1:
		return "ночь"
	case 2, 3, 4:
		return "ночи"
	default:
		return "ночей"
	}
}

// formatPrice renders a whole-ruble amount with thin thousands separation,
// e.g. 19230 → "19 230".
func formatPrice(price float64) string {
	whole := fmt.Sprintf("%.0f", price)
	neg := strings.HasPrefix(whole, "-")
	if neg {
		whole = whole[1:]
	}
	var groups []string
	for len(whole) > 3 {
		groups = append([]string{whole[len(whole)-3:]}, groups...)
		whole = whole[:len(whole)-3]
	}
	groups = append([]string{whole}, groups...)
	out := strings.Join(groups, " ")
	if neg {
		out = "-" + out
	}
	return out
}

func currencySymbol(code string) string {
	if strings.EqualFold(code, "RUB") {
		return "₽"
	}
	return code
}
