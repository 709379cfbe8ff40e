package model

import "context"

// StateStore persists booking contexts per session. TTL and eviction are
// owned by the store, not by the dialogue logic. Get returns (nil, nil) when
// no context exists for the session.
type StateStore interface {
	Get(ctx context.Context, sessionID string) (*BookingContext, error)
	Set(ctx context.Context, sessionID string, bc *BookingContext) error
	Clear(ctx context.Context, sessionID string) error
}
