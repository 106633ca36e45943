/*
store.go - Persistence interface for ledger state

PURPOSE:
  Defines the interface between the ledger components and the database.
  The core logic is store-agnostic: the same components run against the
  in-memory implementation in tests and SQLite in production, and nothing
  in this package ever branches on which backend is active.

CONDITIONAL PRIMITIVES:
  The invariants that matter under concurrency are enforced by the store,
  not by check-then-write sequences in the components:

  - AddBalance applies the "balance >= 0" check and the decrement as one
    atomic step. A concurrent debit can never observe a stale balance.
  - InsertGrant is a conditional insert: it fails with ErrGrantExists if
    the (user, content) pair already holds a grant.
  - DecrementCodeUse applies the "uses remaining > 0" check and the
    decrement as one atomic step, so two consumers of a one-use code
    can never both succeed.

MULTI-STEP ATOMICITY:
  TxStore.WithTx runs a function against a transactional view of the
  store. Either every write inside commits, or none do. The purchase flow
  (grant insert + debit + credit + journal entry) runs inside one WithTx
  so no partial transfer is ever observable.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlite/sqlite.go: production SQLite

FAILURE MODEL:
  Implementations wrap backend I/O failures in *StoreError so that every
  unreachable-store condition surfaces as ErrStoreUnavailable.
*/
package ledger

import "context"

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store persists users, items, grants, codes and the transaction journal.
// The journal is append-only: there is no update or delete for transactions.
type Store interface {
	// --- users ---

	// EnsureUser creates the user if absent and returns the current record.
	EnsureUser(ctx context.Context, id UserID, username string) (User, error)

	// GetUser returns the user, or a zero-balance record if unknown.
	// It does not create anything.
	GetUser(ctx context.Context, id UserID) (User, error)

	// AddBalance adjusts the balance by delta as a single conditional step.
	// A negative delta that would take the balance below zero fails with
	// *InsufficientBalanceError and changes nothing. The user is created
	// lazily for positive deltas. When earned is true a positive delta also
	// bumps TotalEarned.
	AddBalance(ctx context.Context, id UserID, delta int64, earned bool) error

	// --- content items ---

	// PutItem stores a new content item.
	PutItem(ctx context.Context, item ContentItem) error

	// GetItem returns an item or ErrItemNotFound.
	GetItem(ctx context.Context, id ContentID) (ContentItem, error)

	// SetItemPrice replaces the price. Authorization is the catalog's job.
	SetItemPrice(ctx context.Context, id ContentID, price int64) error

	// IncrementAccessCount bumps the access counter by one.
	IncrementAccessCount(ctx context.Context, id ContentID) error

	// ListItemsByOwner returns all items created by the owner, newest first.
	ListItemsByOwner(ctx context.Context, owner UserID) ([]ContentItem, error)

	// --- access grants ---

	// InsertGrant stores a grant, failing with ErrGrantExists if the
	// (user, content) pair already has one. This is the single
	// serialization point the purchase flow relies on.
	InsertGrant(ctx context.Context, g AccessGrant) error

	// GetGrant returns the grant for a pair, with ok=false if absent.
	GetGrant(ctx context.Context, user UserID, item ContentID) (AccessGrant, bool, error)

	// ListGrantsByUser returns all grants held by a user, newest first.
	ListGrantsByUser(ctx context.Context, user UserID) ([]AccessGrant, error)

	// --- redeem codes ---

	// PutCode stores a new redeem code.
	PutCode(ctx context.Context, c RedeemCode) error

	// GetCode returns a code or ErrCodeNotFound.
	GetCode(ctx context.Context, code string) (RedeemCode, error)

	// DecrementCodeUse atomically decrements UsesRemaining by one and
	// returns the remaining count. Fails with ErrCodeExhausted when no
	// uses remain and ErrCodeNotFound when the code is absent.
	DecrementCodeUse(ctx context.Context, code string) (int, error)

	// DeleteCode removes a code. Used only by the registry's
	// delete-on-exhaustion configuration.
	DeleteCode(ctx context.Context, code string) error

	// --- transaction journal (append-only) ---

	// AppendTransaction records a journal entry. Entries are immutable.
	AppendTransaction(ctx context.Context, tx Transaction) error

	// ListTransactionsByUser returns entries where the user is either side,
	// newest first.
	ListTransactionsByUser(ctx context.Context, user UserID) ([]Transaction, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic multi-step operations
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn against a transactional view. If fn returns an error
// the transaction rolls back and the error is returned; otherwise it
// commits. Components that compose several writes (transfer, purchase,
// redeem) require a TxStore.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
