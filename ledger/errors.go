/*
errors.go - Centralized error types for the ledger

PURPOSE:
  All error types in one place. The taxonomy is fixed: a caller can always
  tell a terminal failure (wrong actor, missing item, not enough credit)
  from the one retryable class (store unreachable).

PROPAGATION POLICY:
  Errors are returned to the immediate caller verbatim. Nothing here is
  retried internally and nothing is logged and swallowed; retry policy
  belongs to the gateway.

USAGE:
  if errors.Is(err, ledger.ErrInsufficientBalance) { ... }

  var short *ledger.InsufficientBalanceError
  if errors.As(err, &short) { fmt.Println(short.Shortfall) }
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrItemNotFound is returned when a content item does not exist.
	ErrItemNotFound = errors.New("content item not found")

	// ErrCodeNotFound is returned when a redeem code does not exist.
	ErrCodeNotFound = errors.New("redeem code not found")

	// ErrUnauthorized is returned when the actor does not own the resource
	// they are modifying.
	ErrUnauthorized = errors.New("not the owner of this resource")

	// ErrInsufficientBalance is returned when a debit exceeds the available
	// balance. The balance is left unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidPrice is returned for a negative price.
	ErrInvalidPrice = errors.New("price must be >= 0")

	// ErrInvalidAmount is returned when a credit or debit amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be > 0")

	// ErrInvalidMaxUses is returned when issuing a code with fewer than one use.
	ErrInvalidMaxUses = errors.New("max uses must be >= 1")

	// ErrCodeExhausted is returned when a code has no uses remaining.
	ErrCodeExhausted = errors.New("redeem code exhausted")

	// ErrCodeExpired is returned when a code is past its expiry.
	ErrCodeExpired = errors.New("redeem code expired")

	// ErrNotFree is returned by GrantFree for a paid item; the caller must
	// go through Purchase or Redeem instead.
	ErrNotFree = errors.New("item is not free")

	// ErrGrantExists is returned by the store's conditional grant insert when
	// the (user, content) pair already holds a grant. Components translate
	// this into idempotent success, never into a caller-visible failure.
	ErrGrantExists = errors.New("grant already exists")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. The only retryable class; no partial mutation is applied.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s: have %d, need %d",
		e.UserID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// Shortfall is how much credit is missing.
func (e *InsufficientBalanceError) Shortfall() int64 { return e.Requested - e.Available }

// StoreError wraps a backend failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return ErrStoreUnavailable }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrCodeNotFound)
}

// IsRetryable reports whether the operation might succeed on retry.
// Only store unavailability qualifies; everything else is terminal.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsClientError reports whether the error is the caller's fault rather
// than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidPrice) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidMaxUses) ||
		errors.Is(err, ErrCodeExhausted) ||
		errors.Is(err, ErrCodeExpired) ||
		errors.Is(err, ErrNotFree)
}
