// Package repository persists events, their seat categories and
// purchases.  EventRepo and PurchaseRepo talk to MySQL; MySQLStore
// combines them into the store the sale engine uses, and MemoryStore
// is an in-process equivalent for development and tests.
package repository

import (
	"errors"
	"fmt"

	"github.com/iliyamo/ticket-sale/internal/model"
)

// ErrEventNotFound is returned when no event row matches.  It matches
// model.ErrNotFound so the sale engine can recognize it.
var ErrEventNotFound = fmt.Errorf("event %w", model.ErrNotFound)

// ErrPurchaseNotFound is returned when no purchase row matches.
var ErrPurchaseNotFound = fmt.Errorf("purchase %w", model.ErrNotFound)

// ErrConflict is returned when a write would break a constraint, such
// as a purchase referencing a missing event.  Handlers should translate
// it into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
