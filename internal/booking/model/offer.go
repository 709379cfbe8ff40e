package model

import "context"

// Offer is one priced room availability result from the pricing system.
type Offer struct {
	RoomName          string  `json:"room_name"`
	TotalPrice        float64 `json:"total_price"`
	Currency          string  `json:"currency"`
	BreakfastIncluded bool    `json:"breakfast_included"`
	RoomArea          *int    `json:"room_area,omitempty"` // square meters, when the PMS reports it
}

// Guests describes the guest composition of a quote request.
type Guests struct {
	Adults       int   `json:"adults"`
	Children     int   `json:"children"`
	ChildrenAges []int `json:"children_ages,omitempty"`
}

// QuoteProvider fetches availability and pricing from an external system.
// Implementations may fail with network or timeout errors; callers treat any
// failure the same as an empty result.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, checkIn, checkOut string, guests Guests) ([]Offer, error)
}
