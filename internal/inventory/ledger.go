package inventory

import (
	"context"
	"errors"
)

var (
	// ErrInsufficient is returned when a tier has fewer seats than requested.
	ErrInsufficient = errors.New("insufficient inventory")
	// ErrUnknownCategory is returned for a tier the event does not sell.
	ErrUnknownCategory = errors.New("unknown seat category")
	// ErrSaleClosed is returned when seats are requested while the
	// event's sale gate is closed.
	ErrSaleClosed = errors.New("sale closed")
)

// Ledger stores live seat counts.  Every method is atomic per
// (event, tier); Decrement never lets a count go below zero.
type Ledger interface {
	// Load replaces all counts of an event.
	Load(ctx context.Context, eventID string, seats map[string]int) error
	// Decrement subtracts qty and returns the remaining count.
	Decrement(ctx context.Context, eventID, tier string, qty int) (int, error)
	// Increment adds qty back; used to compensate a failed purchase.
	Increment(ctx context.Context, eventID, tier string, qty int) error
	// ZeroOut sets every tier of the event to 0 and returns the result.
	ZeroOut(ctx context.Context, eventID string) (map[string]int, error)
	// Snapshot returns the current counts.
	Snapshot(ctx context.Context, eventID string) (map[string]int, error)
}
