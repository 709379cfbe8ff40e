package model

import (
	"fmt"
	"strings"
	"time"
)

// BookingContext is the session-scoped record of everything collected during
// a booking dialogue. It is a plain mutable value: one turn mutates it under
// the session lock, then the whole context is persisted back to the store.
type BookingContext struct {
	Checkin      string         `json:"checkin,omitempty"`  // ISO-8601 date or empty
	Checkout     string         `json:"checkout,omitempty"` // ISO-8601 date or empty
	Nights       *int           `json:"nights,omitempty"`
	Adults       *int           `json:"adults,omitempty"`
	Children     *int           `json:"children,omitempty"`
	ChildrenAges []int          `json:"children_ages,omitempty"`
	RoomType     string         `json:"room_type,omitempty"`
	Promo        string         `json:"promo,omitempty"`
	Offers       []Offer        `json:"offers,omitempty"`
	LastOffer    int            `json:"last_offer_index"`
	Retries      map[string]int `json:"retries,omitempty"`
	State        BookingState   `json:"state"`
}

// NewBookingContext returns a context positioned at the start of the dialogue.
func NewBookingContext() *BookingContext {
	return &BookingContext{
		State:   StateAskCheckin,
		Retries: map[string]int{},
	}
}

// Retry increments and returns the failure count for the named operation.
func (c *BookingContext) Retry(op string) int {
	if c.Retries == nil {
		c.Retries = map[string]int{}
	}
	c.Retries[op]++
	return c.Retries[op]
}

// AdultsOrZero returns the adult count, treating unset as zero.
func (c *BookingContext) AdultsOrZero() int {
	if c.Adults == nil {
		return 0
	}
	return *c.Adults
}

// ChildrenOrZero returns the child count, treating unset as zero.
func (c *BookingContext) ChildrenOrZero() int {
	if c.Children == nil {
		return 0
	}
	return *c.Children
}

// StayNights returns the stay length, deriving it from checkin/checkout when
// the nights slot itself is unset. Returns 0 when underivable.
func (c *BookingContext) StayNights() int {
	if c.Nights != nil && *c.Nights > 0 {
		return *c.Nights
	}
	in, err := time.Parse("2006-01-02", c.Checkin)
	if err != nil {
		return 0
	}
	out, err := time.Parse("2006-01-02", c.Checkout)
	if err != nil {
		return 0
	}
	n := int(out.Sub(in).Hours() / 24)
	if n < 0 {
		return 0
	}
	return n
}

// Guests assembles the guest composition for a quote request. The second
// return is false until adults are known.
func (c *BookingContext) Guests() (Guests, bool) {
	if c.Adults == nil {
		return Guests{}, false
	}
	return Guests{
		Adults:       *c.Adults,
		Children:     c.ChildrenOrZero(),
		ChildrenAges: append([]int(nil), c.ChildrenAges...),
	}, true
}

// Slots returns a snapshot of the collected slots for debug payloads.
func (c *BookingContext) Slots() map[string]any {
	slots := map[string]any{
		"checkin":  c.Checkin,
		"checkout": c.Checkout,
		"state":    string(c.State),
	}
	if c.Nights != nil {
		slots["nights"] = *c.Nights
	}
	if c.Adults != nil {
		slots["adults"] = *c.Adults
	}
	if c.Children != nil {
		slots["children"] = *c.Children
	}
	if len(c.ChildrenAges) > 0 {
		slots["children_ages"] = append([]int(nil), c.ChildrenAges...)
	}
	if c.RoomType != "" {
		slots["room_type"] = c.RoomType
	}
	if c.Promo != "" {
		slots["promo"] = c.Promo
	}
	return slots
}

// Compact renders a short single-line representation for log fields.
func (c *BookingContext) Compact() string {
	var b strings.Builder
	fmt.Fprintf(&b, "state=%s", c.State)
	if c.Checkin != "" {
		fmt.Fprintf(&b, " in=%s", c.Checkin)
	}
	if c.Checkout != "" {
		fmt.Fprintf(&b, " out=%s", c.Checkout)
	}
	if c.Nights != nil {
		fmt.Fprintf(&b, " nights=%d", *c.Nights)
	}
	if c.Adults != nil {
		fmt.Fprintf(&b, " adults=%d", *c.Adults)
	}
	if c.Children != nil {
		fmt.Fprintf(&b, " children=%d", *c.Children)
	}
	if len(c.ChildrenAges) > 0 {
		fmt.Fprintf(&b, " ages=%v", c.ChildrenAges)
	}
	return b.String()
}

// Clone returns a deep copy of the context. Stores hand out clones so callers
// never share mutable state across sessions.
func (c *BookingContext) Clone() *BookingContext {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Nights != nil {
		n := *c.Nights
		cp.Nights = &n
	}
	if c.Adults != nil {
		n := *c.Adults
		cp.Adults = &n
	}
	if c.Children != nil {
		n := *c.Children
		cp.Children = &n
	}
	cp.ChildrenAges = append([]int(nil), c.ChildrenAges...)
	cp.Offers = append([]Offer(nil), c.Offers...)
	if c.Retries != nil {
		cp.Retries = make(map[string]int, len(c.Retries))
		for k, v := range c.Retries {
			cp.Retries[k] = v
		}
	}
	return &cp
}
