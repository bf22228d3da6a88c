package sale

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/ticket-sale/internal/inventory"
)

// Error kinds.  Every error returned by this package is an *Error that
// matches exactly one of these with errors.Is.
var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrUnknownCategory = inventory.ErrUnknownCategory
	ErrSaleNotActive   = errors.New("sale not active")
	// ErrInsufficientInventory is the "sold out for this category"
	// outcome.  It is a business result, not a fault.
	ErrInsufficientInventory = inventory.ErrInsufficient
	ErrEventNotFound         = errors.New("event not found")
	ErrPersistenceFailure    = errors.New("persistence failure")
	// ErrTransitionConflict marks a lifecycle command that reached a
	// controller after it stopped.  Serialization absorbs every other
	// conflict.
	ErrTransitionConflict = errors.New("concurrent transition conflict")
)

// Error carries the kind of a failure together with the event and seat
// category it concerns.  Err holds the underlying collaborator error,
// if any.
type Error struct {
	Op       string
	EventID  string
	Category string
	Kind     error
	Err      error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("sale: ")
	b.WriteString(e.Op)
	if e.EventID != "" {
		fmt.Fprintf(&b, " event=%s", e.EventID)
	}
	if e.Category != "" {
		fmt.Fprintf(&b, " category=%s", e.Category)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Err != nil && e.Err != e.Kind {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is matches the error's kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap exposes the underlying collaborator error.
func (e *Error) Unwrap() error { return e.Err }

func fail(op, eventID, category string, kind, err error) *Error {
	return &Error{Op: op, EventID: eventID, Category: category, Kind: kind, Err: err}
}

// Kind returns the sentinel an error matches, or nil if it did not
// come from this package.
func Kind(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return nil
}
