/*
access.go - Access Grant Manager

PURPOSE:
  The orchestrator. Composes the catalog, the balance ledger and the code
  registry into the three access paths (free, purchased, redeemed) and
  keeps the system consistent under failures and concurrent requests.

STATE MACHINE:
  Per (user, content) pair: NoAccess -> Granted. Granted is terminal;
  there is no revocation. Re-granting an existing pair is a no-op and
  never double-charges.

SERIALIZATION:
  Every mutating flow for a pair runs under that pair's mutex, and the
  grant insert is a conditional store operation performed inside the same
  transaction as the charge. The "already granted?" check and the charge
  are therefore never two separable steps: N concurrent purchases of the
  same pair produce exactly one charge, and the charge rolls back if the
  grant insert ever loses a race.

REDEEM POLICY:
  Item existence is validated before the use is consumed, so a code can
  never be spent on content that no longer exists. When the redeemer
  already holds access, the default is to consume the use anyway;
  RefundDuplicateUse flips that to leaving the code untouched.

SEE ALSO:
  - keylock.go: per-pair mutexes
  - store.go: the conditional primitives these flows lean on
*/
package ledger

import (
	"context"
	"errors"
	"time"
)

// errAlreadyGranted aborts a purchase transaction when the conditional
// grant insert finds an existing grant; the caller maps it to success.
var errAlreadyGranted = errors.New("already granted")

// ManagerConfig tunes orchestration policy.
type ManagerConfig struct {
	// RefundDuplicateUse leaves a code's use count untouched when the
	// redeemer already has access to the bound item.
	RefundDuplicateUse bool
}

// AccessManager orchestrates grant creation across the other components.
type AccessManager struct {
	store    TxStore
	catalog  *Catalog
	balances *BalanceLedger
	registry *Registry
	locks    *KeyMutex
	cfg      ManagerConfig
	now      func() time.Time
}

// NewAccessManager wires the orchestrator. All components must share the
// same store.
func NewAccessManager(store TxStore, catalog *Catalog, balances *BalanceLedger, registry *Registry, cfg ManagerConfig) *AccessManager {
	return &AccessManager{
		store:    store,
		catalog:  catalog,
		balances: balances,
		registry: registry,
		locks:    NewKeyMutex(),
		cfg:      cfg,
		now:      time.Now,
	}
}

// CheckAccess reports whether user may access the item. Owners always
// have implicit access. Read-only.
func (m *AccessManager) CheckAccess(ctx context.Context, user UserID, itemID ContentID) (bool, error) {
	item, err := m.catalog.GetItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item.OwnerID == user {
		return true, nil
	}
	_, ok, err := m.store.GetGrant(ctx, user, itemID)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// GrantFree grants access to a free item. Fails with ErrNotFree for a
// priced item. Idempotent: an existing grant is success, not an error.
func (m *AccessManager) GrantFree(ctx context.Context, user UserID, itemID ContentID) error {
	unlock := m.locks.Lock(pairKey(user, itemID))
	defer unlock()

	item, err := m.catalog.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID == user {
		return nil // implicit access, nothing to record
	}
	if !item.IsFree() {
		return ErrNotFree
	}
	return m.insertGrant(ctx, user, itemID, MethodFree)
}

// Purchase buys access to an item. Re-purchasing an already-granted pair
// succeeds without a second charge. A free item behaves as GrantFree.
// On InsufficientBalance nothing changes.
func (m *AccessManager) Purchase(ctx context.Context, user UserID, itemID ContentID) error {
	unlock := m.locks.Lock(pairKey(user, itemID))
	defer unlock()

	item, err := m.catalog.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	if item.OwnerID == user {
		return nil
	}
	if _, ok, err := m.store.GetGrant(ctx, user, itemID); err != nil {
		return err
	} else if ok {
		return nil // already granted, never double-charge
	}
	if item.IsFree() {
		return m.insertGrant(ctx, user, itemID, MethodFree)
	}

	err = m.store.WithTx(ctx, func(s Store) error {
		// Grant first: if the pair raced past the lock somehow, the
		// conditional insert aborts the transaction before any charge.
		if err := s.InsertGrant(ctx, m.grant(user, itemID, MethodPurchased)); err != nil {
			if errors.Is(err, ErrGrantExists) {
				return errAlreadyGranted
			}
			return err
		}
		return m.balances.transferIn(ctx, s, user, item.OwnerID, item.Price, itemID)
	})
	if errors.Is(err, errAlreadyGranted) {
		return nil
	}
	if err != nil {
		return err
	}

	m.recordAccess(ctx, itemID)
	return nil
}

// Redeem spends a code and grants access to its bound item. The item must
// still exist or the operation fails with no use consumed. Code errors
// (not found, exhausted, expired) surface verbatim.
func (m *AccessManager) Redeem(ctx context.Context, code string, user UserID) (ContentID, error) {
	c, err := m.registry.Lookup(ctx, code)
	if err != nil {
		return "", err
	}
	item, err := m.catalog.GetItem(ctx, c.ContentID)
	if err != nil {
		return "", err
	}

	unlock := m.locks.Lock(pairKey(user, item.ID))
	defer unlock()

	_, granted, err := m.store.GetGrant(ctx, user, item.ID)
	if err != nil {
		return "", err
	}
	already := granted || item.OwnerID == user
	if already && m.cfg.RefundDuplicateUse {
		return item.ID, nil
	}

	err = m.store.WithTx(ctx, func(s Store) error {
		if _, err := m.registry.consumeIn(ctx, s, code); err != nil {
			return err
		}
		if already {
			return nil // policy: the use is consumed even without a new grant
		}
		if err := s.InsertGrant(ctx, m.grant(user, item.ID, MethodRedeemed)); err != nil && !errors.Is(err, ErrGrantExists) {
			return err
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if !already {
		m.recordAccess(ctx, item.ID)
	}
	return item.ID, nil
}

// Grants returns all grants held by a user.
func (m *AccessManager) Grants(ctx context.Context, user UserID) ([]AccessGrant, error) {
	return m.store.ListGrantsByUser(ctx, user)
}

// =============================================================================
// INTERNALS
// =============================================================================

func (m *AccessManager) grant(user UserID, itemID ContentID, method GrantMethod) AccessGrant {
	return AccessGrant{
		UserID:    user,
		ContentID: itemID,
		Method:    method,
		GrantedAt: m.now().UTC(),
	}
}

// insertGrant creates a grant outside any charge, mapping ErrGrantExists
// to idempotent success.
func (m *AccessManager) insertGrant(ctx context.Context, user UserID, itemID ContentID, method GrantMethod) error {
	err := m.store.InsertGrant(ctx, m.grant(user, itemID, method))
	if errors.Is(err, ErrGrantExists) {
		return nil
	}
	if err != nil {
		return err
	}
	m.recordAccess(ctx, itemID)
	return nil
}

// recordAccess bumps the item's counter. The counter is best-effort and
// must never fail a grant flow that already committed.
func (m *AccessManager) recordAccess(ctx context.Context, itemID ContentID) {
	_ = m.catalog.RecordAccess(ctx, itemID)
}
