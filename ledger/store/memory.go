// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/content-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements ledger.TxStore with plain maps behind one mutex.
// The conditional primitives (AddBalance, InsertGrant, DecrementCodeUse)
// are atomic because they run entirely under the lock.
type Memory struct {
	mu      sync.RWMutex
	users   map[ledger.UserID]ledger.User
	items   map[ledger.ContentID]ledger.ContentItem
	grants  map[grantKey]ledger.AccessGrant
	codes   map[string]ledger.RedeemCode
	journal []ledger.Transaction
}

type grantKey struct {
	UserID    ledger.UserID
	ContentID ledger.ContentID
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[ledger.UserID]ledger.User),
		items:  make(map[ledger.ContentID]ledger.ContentItem),
		grants: make(map[grantKey]ledger.AccessGrant),
		codes:  make(map[string]ledger.RedeemCode),
	}
}

// =============================================================================
// USERS
// =============================================================================

func (m *Memory) EnsureUser(_ context.Context, id ledger.UserID, username string) (ledger.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureUserLocked(id, username), nil
}

func (m *Memory) ensureUserLocked(id ledger.UserID, username string) ledger.User {
	u, ok := m.users[id]
	if !ok {
		u = ledger.User{ID: id, Username: username, CreatedAt: time.Now().UTC()}
		m.users[id] = u
	}
	return u
}

func (m *Memory) GetUser(_ context.Context, id ledger.UserID) (ledger.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getUserLocked(id), nil
}

func (m *Memory) getUserLocked(id ledger.UserID) ledger.User {
	if u, ok := m.users[id]; ok {
		return u
	}
	return ledger.User{ID: id}
}

func (m *Memory) AddBalance(_ context.Context, id ledger.UserID, delta int64, earned bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addBalanceLocked(id, delta, earned)
}

func (m *Memory) addBalanceLocked(id ledger.UserID, delta int64, earned bool) error {
	u := m.ensureUserLocked(id, "")
	if u.Balance+delta < 0 {
		return &ledger.InsufficientBalanceError{
			UserID:    id,
			Available: u.Balance,
			Requested: -delta,
		}
	}
	u.Balance += delta
	if earned && delta > 0 {
		u.TotalEarned += delta
	}
	m.users[id] = u
	return nil
}

// =============================================================================
// CONTENT ITEMS
// =============================================================================

func (m *Memory) PutItem(_ context.Context, item ledger.ContentItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID] = item
	return nil
}

func (m *Memory) GetItem(_ context.Context, id ledger.ContentID) (ledger.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getItemLocked(id)
}

func (m *Memory) getItemLocked(id ledger.ContentID) (ledger.ContentItem, error) {
	item, ok := m.items[id]
	if !ok {
		return ledger.ContentItem{}, ledger.ErrItemNotFound
	}
	return item, nil
}

func (m *Memory) SetItemPrice(_ context.Context, id ledger.ContentID, price int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, err := m.getItemLocked(id)
	if err != nil {
		return err
	}
	item.Price = price
	m.items[id] = item
	return nil
}

func (m *Memory) IncrementAccessCount(_ context.Context, id ledger.ContentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, err := m.getItemLocked(id)
	if err != nil {
		return err
	}
	item.AccessCount++
	m.items[id] = item
	return nil
}

func (m *Memory) ListItemsByOwner(_ context.Context, owner ledger.UserID) ([]ledger.ContentItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.ContentItem
	for _, item := range m.items {
		if item.OwnerID == owner {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// =============================================================================
// ACCESS GRANTS
// =============================================================================

func (m *Memory) InsertGrant(_ context.Context, g ledger.AccessGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertGrantLocked(g)
}

func (m *Memory) insertGrantLocked(g ledger.AccessGrant) error {
	k := grantKey{UserID: g.UserID, ContentID: g.ContentID}
	if _, ok := m.grants[k]; ok {
		return ledger.ErrGrantExists
	}
	m.grants[k] = g
	return nil
}

func (m *Memory) GetGrant(_ context.Context, user ledger.UserID, item ledger.ContentID) (ledger.AccessGrant, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.grants[grantKey{UserID: user, ContentID: item}]
	return g, ok, nil
}

func (m *Memory) ListGrantsByUser(_ context.Context, user ledger.UserID) ([]ledger.AccessGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.AccessGrant
	for k, g := range m.grants {
		if k.UserID == user {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].GrantedAt.Equal(out[j].GrantedAt) {
			return out[i].GrantedAt.After(out[j].GrantedAt)
		}
		return out[i].ContentID < out[j].ContentID
	})
	return out, nil
}

// =============================================================================
// REDEEM CODES
// =============================================================================

func (m *Memory) PutCode(_ context.Context, c ledger.RedeemCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Code] = c
	return nil
}

func (m *Memory) GetCode(_ context.Context, code string) (ledger.RedeemCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getCodeLocked(code)
}

func (m *Memory) getCodeLocked(code string) (ledger.RedeemCode, error) {
	c, ok := m.codes[code]
	if !ok {
		return ledger.RedeemCode{}, ledger.ErrCodeNotFound
	}
	return c, nil
}

func (m *Memory) DecrementCodeUse(_ context.Context, code string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decrementCodeUseLocked(code)
}

func (m *Memory) decrementCodeUseLocked(code string) (int, error) {
	c, err := m.getCodeLocked(code)
	if err != nil {
		return 0, err
	}
	if c.UsesRemaining <= 0 {
		return 0, ledger.ErrCodeExhausted
	}
	c.UsesRemaining--
	m.codes[code] = c
	return c.UsesRemaining, nil
}

func (m *Memory) DeleteCode(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, code)
	return nil
}

// =============================================================================
// TRANSACTION JOURNAL (append-only)
// =============================================================================

func (m *Memory) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, tx)
	return nil
}

func (m *Memory) ListTransactionsByUser(_ context.Context, user ledger.UserID) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Transaction
	for i := len(m.journal) - 1; i >= 0; i-- {
		tx := m.journal[i]
		if tx.From == user || tx.To == user {
			out = append(out, tx)
		}
	}
	return out, nil
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore)
// =============================================================================

// WithTx executes fn atomically. The memory store simulates a transaction
// with a snapshot taken under the lock and restored if fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	users   map[ledger.UserID]ledger.User
	items   map[ledger.ContentID]ledger.ContentItem
	grants  map[grantKey]ledger.AccessGrant
	codes   map[string]ledger.RedeemCode
	journal []ledger.Transaction
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		users:   make(map[ledger.UserID]ledger.User, len(m.users)),
		items:   make(map[ledger.ContentID]ledger.ContentItem, len(m.items)),
		grants:  make(map[grantKey]ledger.AccessGrant, len(m.grants)),
		codes:   make(map[string]ledger.RedeemCode, len(m.codes)),
		journal: append([]ledger.Transaction(nil), m.journal...),
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	for k, v := range m.items {
		s.items[k] = v
	}
	for k, v := range m.grants {
		s.grants[k] = v
	}
	for k, v := range m.codes {
		s.codes[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.users = s.users
	m.items = s.items
	m.grants = s.grants
	m.codes = s.codes
	m.journal = s.journal
}

// txView routes Store calls to the parent's locked internals. It only
// exists inside WithTx, where the parent mutex is already held.
type txView struct {
	parent *Memory
}

func (v *txView) EnsureUser(_ context.Context, id ledger.UserID, username string) (ledger.User, error) {
	return v.parent.ensureUserLocked(id, username), nil
}

func (v *txView) GetUser(_ context.Context, id ledger.UserID) (ledger.User, error) {
	return v.parent.getUserLocked(id), nil
}

func (v *txView) AddBalance(_ context.Context, id ledger.UserID, delta int64, earned bool) error {
	return v.parent.addBalanceLocked(id, delta, earned)
}

func (v *txView) PutItem(_ context.Context, item ledger.ContentItem) error {
	v.parent.items[item.ID] = item
	return nil
}

func (v *txView) GetItem(_ context.Context, id ledger.ContentID) (ledger.ContentItem, error) {
	return v.parent.getItemLocked(id)
}

func (v *txView) SetItemPrice(_ context.Context, id ledger.ContentID, price int64) error {
	item, err := v.parent.getItemLocked(id)
	if err != nil {
		return err
	}
	item.Price = price
	v.parent.items[id] = item
	return nil
}

func (v *txView) IncrementAccessCount(_ context.Context, id ledger.ContentID) error {
	item, err := v.parent.getItemLocked(id)
	if err != nil {
		return err
	}
	item.AccessCount++
	v.parent.items[id] = item
	return nil
}

func (v *txView) ListItemsByOwner(ctx context.Context, owner ledger.UserID) ([]ledger.ContentItem, error) {
	var out []ledger.ContentItem
	for _, item := range v.parent.items {
		if item.OwnerID == owner {
			out = append(out, item)
		}
	}
	return out, nil
}

func (v *txView) InsertGrant(_ context.Context, g ledger.AccessGrant) error {
	return v.parent.insertGrantLocked(g)
}

func (v *txView) GetGrant(_ context.Context, user ledger.UserID, item ledger.ContentID) (ledger.AccessGrant, bool, error) {
	g, ok := v.parent.grants[grantKey{UserID: user, ContentID: item}]
	return g, ok, nil
}

func (v *txView) ListGrantsByUser(_ context.Context, user ledger.UserID) ([]ledger.AccessGrant, error) {
	var out []ledger.AccessGrant
	for k, g := range v.parent.grants {
		if k.UserID == user {
			out = append(out, g)
		}
	}
	return out, nil
}

func (v *txView) PutCode(_ context.Context, c ledger.RedeemCode) error {
	v.parent.codes[c.Code] = c
	return nil
}

func (v *txView) GetCode(_ context.Context, code string) (ledger.RedeemCode, error) {
	return v.parent.getCodeLocked(code)
}

func (v *txView) DecrementCodeUse(_ context.Context, code string) (int, error) {
	return v.parent.decrementCodeUseLocked(code)
}

func (v *txView) DeleteCode(_ context.Context, code string) error {
	delete(v.parent.codes, code)
	return nil
}

func (v *txView) AppendTransaction(_ context.Context, tx ledger.Transaction) error {
	v.parent.journal = append(v.parent.journal, tx)
	return nil
}

func (v *txView) ListTransactionsByUser(_ context.Context, user ledger.UserID) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for i := len(v.parent.journal) - 1; i >= 0; i-- {
		tx := v.parent.journal[i]
		if tx.From == user || tx.To == user {
			out = append(out, tx)
		}
	}
	return out, nil
}
