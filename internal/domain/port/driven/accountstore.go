// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/signalforge/signalforge/internal/domain/model"
)

// ErrAccountNotFound indicates no account with the requested id exists in
// the requested class.
var ErrAccountNotFound = errors.New("account not found")

// AccountStore defines the driven port for credential record persistence.
// Message and trading accounts share one schema but are disjoint: every
// operation is scoped by class, and an id from one class is not found in
// the other. The store does not validate field contents.
type AccountStore interface {
	// List returns the accounts of a class, newest created first.
	List(ctx context.Context, class model.AccountClass) ([]model.Account, error)

	// Get returns ErrAccountNotFound when the id does not exist in class.
	Get(ctx context.Context, class model.AccountClass, id string) (model.Account, error)

	// Create persists a fully populated account, including ID and CreatedAt.
	Create(ctx context.Context, account model.Account) error

	// Update replaces every mutable field of the account and returns the
	// stored record. Returns ErrAccountNotFound when the id does not exist.
	Update(ctx context.Context, class model.AccountClass, id string, fields model.AccountFields) (model.Account, error)

	// Delete returns ErrAccountNotFound when the id does not exist.
	Delete(ctx context.Context, class model.AccountClass, id string) error
}
