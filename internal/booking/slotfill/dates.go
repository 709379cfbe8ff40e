package slotfill

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/u4s-chat/server/internal/booking/model"
)

// Russian month names in the genitive form users write dates in.
var monthNames = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

const monthAlt = `января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря`

var (
	reRangeFull  = regexp.MustCompile(`с\s+(\d{1,2})\s+(` + monthAlt + `)\s+по\s+(\d{1,2})\s+(` + monthAlt + `)`)
	reRangeMonth = regexp.MustCompile(`с\s+(\d{1,2})\s+по\s+(\d{1,2})\s+(` + monthAlt + `)`)
	reDayMonth   = regexp.MustCompile(`(\d{1,2})\s+(` + monthAlt + `)`)
	reISODate    = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	reDottedDate = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})(?:\.(\d{4}))?\b`)
)

// extractDates fills checkin/checkout from the turn text. A full date range
// is an unambiguous correction signal and overwrites both dates; standalone
// dates only fill slots that are still empty.
func (f *SlotFiller) extractDates(t string, bc *model.BookingContext) {
	if m := reRangeFull.FindStringSubmatch(t); m != nil {
		from := f.resolveDayMonth(atoi(m[1]), monthNames[m[2]])
		to := f.resolveDayMonth(atoi(m[3]), monthNames[m[4]])
		setRange(bc, from, to)
		return
	}
	if m := reRangeMonth.FindStringSubmatch(t); m != nil {
		month := monthNames[m[3]]
		from := f.resolveDayMonth(atoi(m[1]), month)
		to := f.resolveDayMonth(atoi(m[2]), month)
		setRange(bc, from, to)
		return
	}

	for _, d := range f.collectDates(t) {
		switch {
		case bc.Checkin == "":
			bc.Checkin = d
		case bc.Checkout == "" && d > bc.Checkin:
			bc.Checkout = d
		}
	}
}

func setRange(bc *model.BookingContext, from, to string) {
	if from == "" || to == "" || to <= from {
		return
	}
	bc.Checkin = from
	bc.Checkout = to
	// Force nights to be re-derived from the explicit range.
	bc.Nights = nil
}

type foundDate struct {
	pos int
	iso string
}

// collectDates gathers every standalone date mention in positional order:
// ISO dates, dotted DD.MM[.YYYY] dates, then bare day-month mentions.
func (f *SlotFiller) collectDates(t string) []string {
	var found []foundDate

	for _, idx := range reISODate.FindAllStringSubmatchIndex(t, -1) {
		iso := t[idx[0]:idx[1]]
		if _, err := time.Parse("2006-01-02", iso); err == nil {
			found = append(found, foundDate{pos: idx[0], iso: iso})
		}
	}

	for _, m := range reDottedDate.FindAllStringSubmatchIndex(t, -1) {
		day := atoi(t[m[2]:m[3]])
		month := atoi(t[m[4]:m[5]])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			continue
		}
		var iso string
		if m[6] >= 0 {
			iso = fmt.Sprintf("%04d-%02d-%02d", atoi(t[m[6]:m[7]]), month, day)
			if _, err := time.Parse("2006-01-02", iso); err != nil {
				continue
			}
		} else {
			iso = f.resolveDayMonth(day, time.Month(month))
		}
		if iso != "" {
			found = append(found, foundDate{pos: m[0], iso: iso})
		}
	}

	for _, m := range reDayMonth.FindAllStringSubmatchIndex(t, -1) {
		day := atoi(t[m[2]:m[3]])
		if iso := f.resolveDayMonth(day, monthNames[t[m[4]:m[5]]]); iso != "" {
			found = append(found, foundDate{pos: m[0], iso: iso})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	dates := make([]string, 0, len(found))
	seen := map[string]struct{}{}
	for _, d := range found {
		if _, dup := seen[d.iso]; dup {
			continue
		}
		seen[d.iso] = struct{}{}
		dates = append(dates, d.iso)
	}
	return dates
}

// resolveDayMonth turns a day-month mention into an ISO date. Dates without a
// year mean the nearest such date in the future: already-passed day-month
// combinations roll over to the next year.
func (f *SlotFiller) resolveDayMonth(day int, month time.Month) string {
	if day < 1 || day > 31 || month < time.January || month > time.December {
		return ""
	}
	now := f.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	candidate := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if candidate.Day() != day {
		return "" // e.g. February 30th
	}
	if candidate.Before(today) {
		candidate = time.Date(now.Year()+1, month, day, 0, 0, 0, 0, time.UTC)
		if candidate.Day() != day {
			return ""
		}
	}
	return candidate.Format("2006-01-02")
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
