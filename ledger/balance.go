/*
balance.go - Balance Ledger

PURPOSE:
  Owns per-user credit balances and the append-only transaction journal.
  Every balance change is either a topup (external payment confirmed by
  the gateway) or one side of a purchase transfer, and every change is
  journaled.

INVARIANTS:
  - Balances never go below zero. The store applies the check and the
    decrement as one conditional step; there is no check-then-write
    window for a concurrent debit to slip through.
  - A transfer is all-or-nothing: the buyer's debit, the seller's credit
    and the journal entry commit together or not at all. No reader ever
    observes a debit without its matching credit.

CONSERVATION:
  Transfers move credit, they never mint or burn it. Credit is the only
  operation that introduces new units, and only on the word of the
  external payment provider.
*/
package ledger

import (
	"context"
	"time"
)

// BalanceLedger manages credit balances and the transaction journal.
type BalanceLedger struct {
	store TxStore
	now   func() time.Time
}

// NewBalanceLedger creates a balance ledger on a transactional store.
func NewBalanceLedger(store TxStore) *BalanceLedger {
	return &BalanceLedger{store: store, now: time.Now}
}

// GetBalance returns the user's balance, zero for unknown users.
func (b *BalanceLedger) GetBalance(ctx context.Context, user UserID) (int64, error) {
	u, err := b.store.GetUser(ctx, user)
	if err != nil {
		return 0, err
	}
	return u.Balance, nil
}

// Summary returns the full user record (balance plus earned counter),
// a zero record for unknown users.
func (b *BalanceLedger) Summary(ctx context.Context, user UserID) (User, error) {
	return b.store.GetUser(ctx, user)
}

// Credit adds amount to the user's balance and journals a topup. Called
// when the external payment provider confirms a payment; it cannot fail
// for balance reasons, only for invalid input or an unreachable store.
func (b *BalanceLedger) Credit(ctx context.Context, user UserID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return b.store.WithTx(ctx, func(s Store) error {
		if err := s.AddBalance(ctx, user, amount, false); err != nil {
			return err
		}
		return s.AppendTransaction(ctx, Transaction{
			ID:        newTransactionID(),
			To:        user,
			Amount:    amount,
			Kind:      TxTopup,
			CreatedAt: b.now().UTC(),
		})
	})
}

// Debit removes amount from the user's balance. Fails with
// *InsufficientBalanceError when the balance is short, leaving it
// unchanged.
func (b *BalanceLedger) Debit(ctx context.Context, user UserID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return b.store.AddBalance(ctx, user, -amount, false)
}

// Transfer moves amount from one user to another and journals a purchase
// entry, all atomically. If the debit fails nothing is recorded.
func (b *BalanceLedger) Transfer(ctx context.Context, from, to UserID, amount int64, contentID ContentID) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return b.store.WithTx(ctx, func(s Store) error {
		return b.transferIn(ctx, s, from, to, amount, contentID)
	})
}

// transferIn is the transfer body, run against a transactional view so
// the access manager can combine it with grant insertion.
func (b *BalanceLedger) transferIn(ctx context.Context, s Store, from, to UserID, amount int64, contentID ContentID) error {
	if err := s.AddBalance(ctx, from, -amount, false); err != nil {
		return err
	}
	// Seller proceeds count toward the earned total.
	if err := s.AddBalance(ctx, to, amount, true); err != nil {
		return err
	}
	return s.AppendTransaction(ctx, Transaction{
		ID:        newTransactionID(),
		From:      from,
		To:        to,
		Amount:    amount,
		Kind:      TxPurchase,
		ContentID: contentID,
		CreatedAt: b.now().UTC(),
	})
}

// History returns the journal entries touching a user, newest first.
func (b *BalanceLedger) History(ctx context.Context, user UserID) ([]Transaction, error) {
	return b.store.ListTransactionsByUser(ctx, user)
}
