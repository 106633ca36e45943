/*
Package sqlite provides the SQLite-backed implementation of ledger.TxStore.

PURPOSE:
  Production persistence for users, content items, grants, redeem codes
  and the transaction journal. The same patterns apply to PostgreSQL;
  only SQL dialect details differ.

CONDITIONAL UPDATES:
  The invariants live in the SQL, not in Go-side check-then-write:
  - balance debits:   UPDATE ... WHERE balance + delta >= 0
  - code consumption: UPDATE ... WHERE uses_remaining > 0
  - grant insert:     PRIMARY KEY (user_id, content_id), a duplicate
                      surfaces as ledger.ErrGrantExists
  CHECK constraints on balance and uses_remaining back these up at the
  schema level.

JOURNAL:
  The transactions table is append-only: no UPDATE or DELETE statements
  exist for it anywhere in this package.

WAL MODE:
  The database is opened with WAL so readers don't block behind the
  single writer.

USAGE:
  st, err := sqlite.New("./data/content.db")   // ":memory:" for tests
  defer st.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: interface contract
  - ledger/store/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/content-ledger/ledger"
)

// Store implements ledger.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (and migrates) a SQLite store at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		balance INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
		total_earned INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS content_items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		kind TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		blob_ref TEXT NOT NULL DEFAULT '',
		price INTEGER NOT NULL DEFAULT 0 CHECK (price >= 0),
		access_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_items_owner
		ON content_items(owner_id, created_at DESC);

	-- One grant per (user, content) pair, enforced by the primary key.
	CREATE TABLE IF NOT EXISTS access_grants (
		user_id TEXT NOT NULL,
		content_id TEXT NOT NULL,
		method TEXT NOT NULL,
		granted_at TEXT NOT NULL,
		PRIMARY KEY (user_id, content_id)
	);

	CREATE INDEX IF NOT EXISTS idx_grants_user
		ON access_grants(user_id, granted_at DESC);

	CREATE TABLE IF NOT EXISTS redeem_codes (
		code TEXT PRIMARY KEY,
		content_id TEXT NOT NULL,
		max_uses INTEGER NOT NULL,
		uses_remaining INTEGER NOT NULL CHECK (uses_remaining >= 0),
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL,
		expires_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_codes_content
		ON redeem_codes(content_id);

	-- Append-only journal of all balance changes.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		from_user TEXT,
		to_user TEXT,
		amount INTEGER NOT NULL,
		kind TEXT NOT NULL,
		content_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_from
		ON transactions(from_user) WHERE from_user IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_transactions_to
		ON transactions(to_user) WHERE to_user IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx so every operation can
// run standalone or inside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) EnsureUser(ctx context.Context, id ledger.UserID, username string) (ledger.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ensureUser(ctx, s.db, id, username)
}

func ensureUser(ctx context.Context, q querier, id ledger.UserID, username string) (ledger.User, error) {
	_, err := q.ExecContext(ctx,
		`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		id, username, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return ledger.User{}, storeErr("ensure user", err)
	}
	if username != "" {
		// Keep the stored username current without disturbing balances.
		if _, err := q.ExecContext(ctx,
			"UPDATE users SET username = ? WHERE id = ? AND username != ?",
			username, id, username,
		); err != nil {
			return ledger.User{}, storeErr("ensure user", err)
		}
	}
	return getUser(ctx, q, id)
}

func (s *Store) GetUser(ctx context.Context, id ledger.UserID) (ledger.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func getUser(ctx context.Context, q querier, id ledger.UserID) (ledger.User, error) {
	var u ledger.User
	var createdAt string
	err := q.QueryRowContext(ctx,
		"SELECT id, username, balance, total_earned, created_at FROM users WHERE id = ?",
		id,
	).Scan(&u.ID, &u.Username, &u.Balance, &u.TotalEarned, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.User{ID: id}, nil
	}
	if err != nil {
		return ledger.User{}, storeErr("get user", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

func (s *Store) AddBalance(ctx context.Context, id ledger.UserID, delta int64, earned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addBalance(ctx, s.db, id, delta, earned)
}

func addBalance(ctx context.Context, q querier, id ledger.UserID, delta int64, earned bool) error {
	if _, err := ensureUser(ctx, q, id, ""); err != nil {
		return err
	}

	var earnedDelta int64
	if earned && delta > 0 {
		earnedDelta = delta
	}

	// Conditional update: the balance check and the decrement are one
	// statement, never a read followed by a write.
	res, err := q.ExecContext(ctx,
		`UPDATE users
		 SET balance = balance + ?, total_earned = total_earned + ?
		 WHERE id = ? AND balance + ? >= 0`,
		delta, earnedDelta, id, delta,
	)
	if err != nil {
		return storeErr("add balance", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr("add balance", err)
	}
	if affected == 0 {
		u, err := getUser(ctx, q, id)
		if err != nil {
			return err
		}
		return &ledger.InsufficientBalanceError{
			UserID:    id,
			Available: u.Balance,
			Requested: -delta,
		}
	}
	return nil
}

// =============================================================================
// CONTENT ITEMS
// =============================================================================

func (s *Store) PutItem(ctx context.Context, item ledger.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putItem(ctx, s.db, item)
}

func putItem(ctx context.Context, q querier, item ledger.ContentItem) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO content_items
		 (id, owner_id, name, kind, description, blob_ref, price, access_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.OwnerID, item.Name, item.Kind, item.Description,
		item.BlobRef, item.Price, item.AccessCount,
		item.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("put item", err)
	}
	return nil
}

func (s *Store) GetItem(ctx context.Context, id ledger.ContentID) (ledger.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q querier, id ledger.ContentID) (ledger.ContentItem, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, kind, description, blob_ref, price, access_count, created_at
		 FROM content_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return ledger.ContentItem{}, ledger.ErrItemNotFound
	}
	if err != nil {
		return ledger.ContentItem{}, storeErr("get item", err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (ledger.ContentItem, error) {
	var item ledger.ContentItem
	var createdAt string
	err := r.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Kind,
		&item.Description, &item.BlobRef, &item.Price, &item.AccessCount, &createdAt)
	if err != nil {
		return item, err
	}
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return item, nil
}

func (s *Store) SetItemPrice(ctx context.Context, id ledger.ContentID, price int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setItemPrice(ctx, s.db, id, price)
}

func setItemPrice(ctx context.Context, q querier, id ledger.ContentID, price int64) error {
	res, err := q.ExecContext(ctx,
		"UPDATE content_items SET price = ? WHERE id = ?", price, id)
	if err != nil {
		return storeErr("set item price", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storeErr("set item price", err)
	} else if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

func (s *Store) IncrementAccessCount(ctx context.Context, id ledger.ContentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return incrementAccessCount(ctx, s.db, id)
}

func incrementAccessCount(ctx context.Context, q querier, id ledger.ContentID) error {
	res, err := q.ExecContext(ctx,
		"UPDATE content_items SET access_count = access_count + 1 WHERE id = ?", id)
	if err != nil {
		return storeErr("increment access count", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return storeErr("increment access count", err)
	} else if n == 0 {
		return ledger.ErrItemNotFound
	}
	return nil
}

func (s *Store) ListItemsByOwner(ctx context.Context, owner ledger.UserID) ([]ledger.ContentItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listItemsByOwner(ctx, s.db, owner)
}

func listItemsByOwner(ctx context.Context, q querier, owner ledger.UserID) ([]ledger.ContentItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, owner_id, name, kind, description, blob_ref, price, access_count, created_at
		 FROM content_items WHERE owner_id = ? ORDER BY created_at DESC, id`, owner)
	if err != nil {
		return nil, storeErr("list items", err)
	}
	defer rows.Close()

	var items []ledger.ContentItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeErr("list items", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list items", err)
	}
	return items, nil
}

// =============================================================================
// ACCESS GRANTS
// =============================================================================

func (s *Store) InsertGrant(ctx context.Context, g ledger.AccessGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertGrant(ctx, s.db, g)
}

func insertGrant(ctx context.Context, q querier, g ledger.AccessGrant) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO access_grants (user_id, content_id, method, granted_at)
		 VALUES (?, ?, ?, ?)`,
		g.UserID, g.ContentID, g.Method, g.GrantedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrGrantExists
		}
		return storeErr("insert grant", err)
	}
	return nil
}

func (s *Store) GetGrant(ctx context.Context, user ledger.UserID, item ledger.ContentID) (ledger.AccessGrant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getGrant(ctx, s.db, user, item)
}

func getGrant(ctx context.Context, q querier, user ledger.UserID, item ledger.ContentID) (ledger.AccessGrant, bool, error) {
	var g ledger.AccessGrant
	var grantedAt string
	err := q.QueryRowContext(ctx,
		`SELECT user_id, content_id, method, granted_at
		 FROM access_grants WHERE user_id = ? AND content_id = ?`,
		user, item,
	).Scan(&g.UserID, &g.ContentID, &g.Method, &grantedAt)
	if err == sql.ErrNoRows {
		return ledger.AccessGrant{}, false, nil
	}
	if err != nil {
		return ledger.AccessGrant{}, false, storeErr("get grant", err)
	}
	g.GrantedAt, _ = time.Parse(time.RFC3339, grantedAt)
	return g, true, nil
}

func (s *Store) ListGrantsByUser(ctx context.Context, user ledger.UserID) ([]ledger.AccessGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listGrantsByUser(ctx, s.db, user)
}

func listGrantsByUser(ctx context.Context, q querier, user ledger.UserID) ([]ledger.AccessGrant, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT user_id, content_id, method, granted_at
		 FROM access_grants WHERE user_id = ?
		 ORDER BY granted_at DESC, content_id`, user)
	if err != nil {
		return nil, storeErr("list grants", err)
	}
	defer rows.Close()

	var grants []ledger.AccessGrant
	for rows.Next() {
		var g ledger.AccessGrant
		var grantedAt string
		if err := rows.Scan(&g.UserID, &g.ContentID, &g.Method, &grantedAt); err != nil {
			return nil, storeErr("list grants", err)
		}
		g.GrantedAt, _ = time.Parse(time.RFC3339, grantedAt)
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list grants", err)
	}
	return grants, nil
}

// =============================================================================
// REDEEM CODES
// =============================================================================

func (s *Store) PutCode(ctx context.Context, c ledger.RedeemCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putCode(ctx, s.db, c)
}

func putCode(ctx context.Context, q querier, c ledger.RedeemCode) error {
	var expiresAt sql.NullString
	if c.ExpiresAt != nil {
		expiresAt = sql.NullString{String: c.ExpiresAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO redeem_codes
		 (code, content_id, max_uses, uses_remaining, created_by, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.ContentID, c.MaxUses, c.UsesRemaining, c.CreatedBy,
		c.CreatedAt.UTC().Format(time.RFC3339), expiresAt,
	)
	if err != nil {
		return storeErr("put code", err)
	}
	return nil
}

func (s *Store) GetCode(ctx context.Context, code string) (ledger.RedeemCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCode(ctx, s.db, code)
}

func getCode(ctx context.Context, q querier, code string) (ledger.RedeemCode, error) {
	var c ledger.RedeemCode
	var createdAt string
	var expiresAt sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT code, content_id, max_uses, uses_remaining, created_by, created_at, expires_at
		 FROM redeem_codes WHERE code = ?`, code,
	).Scan(&c.Code, &c.ContentID, &c.MaxUses, &c.UsesRemaining, &c.CreatedBy, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return ledger.RedeemCode{}, ledger.ErrCodeNotFound
	}
	if err != nil {
		return ledger.RedeemCode{}, storeErr("get code", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		c.ExpiresAt = &t
	}
	return c, nil
}

func (s *Store) DecrementCodeUse(ctx context.Context, code string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return decrementCodeUse(ctx, s.db, code)
}

func decrementCodeUse(ctx context.Context, q querier, code string) (int, error) {
	// Conditional decrement: two concurrent consumers of a one-use code
	// can never both pass the WHERE clause.
	res, err := q.ExecContext(ctx,
		`UPDATE redeem_codes SET uses_remaining = uses_remaining - 1
		 WHERE code = ? AND uses_remaining > 0`, code)
	if err != nil {
		return 0, storeErr("decrement code use", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("decrement code use", err)
	}
	if affected == 0 {
		if _, err := getCode(ctx, q, code); err != nil {
			return 0, err
		}
		return 0, ledger.ErrCodeExhausted
	}

	var remaining int
	err = q.QueryRowContext(ctx,
		"SELECT uses_remaining FROM redeem_codes WHERE code = ?", code,
	).Scan(&remaining)
	if err != nil {
		return 0, storeErr("decrement code use", err)
	}
	return remaining, nil
}

func (s *Store) DeleteCode(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteCode(ctx, s.db, code)
}

func deleteCode(ctx context.Context, q querier, code string) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM redeem_codes WHERE code = ?", code); err != nil {
		return storeErr("delete code", err)
	}
	return nil
}

// =============================================================================
// TRANSACTION JOURNAL (append-only)
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendTransaction(ctx, s.db, tx)
}

func appendTransaction(ctx context.Context, q querier, tx ledger.Transaction) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO transactions (id, from_user, to_user, amount, kind, content_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		nullString(string(tx.From)),
		nullString(string(tx.To)),
		tx.Amount, tx.Kind,
		nullString(string(tx.ContentID)),
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return storeErr("append transaction", err)
	}
	return nil
}

func (s *Store) ListTransactionsByUser(ctx context.Context, user ledger.UserID) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactionsByUser(ctx, s.db, user)
}

func listTransactionsByUser(ctx context.Context, q querier, user ledger.UserID) ([]ledger.Transaction, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, from_user, to_user, amount, kind, content_id, created_at
		 FROM transactions
		 WHERE from_user = ? OR to_user = ?
		 ORDER BY created_at DESC, id`, user, user)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var tx ledger.Transaction
		var from, to, contentID sql.NullString
		var createdAt string
		if err := rows.Scan(&tx.ID, &from, &to, &tx.Amount, &tx.Kind, &contentID, &createdAt); err != nil {
			return nil, storeErr("list transactions", err)
		}
		tx.From = ledger.UserID(from.String)
		tx.To = ledger.UserID(to.String)
		tx.ContentID = ledger.ContentID(contentID.String)
		tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list transactions", err)
	}
	return txs, nil
}

// =============================================================================
// TRANSACTIONS (ledger.TxStore)
// =============================================================================

// WithTx executes fn inside one database transaction. The write lock is
// held for the duration, so fn must not call back into the Store's own
// methods; it receives a transactional view instead.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

// txStore runs every Store operation against the open *sql.Tx.
type txStore struct {
	q querier
}

func (t *txStore) EnsureUser(ctx context.Context, id ledger.UserID, username string) (ledger.User, error) {
	return ensureUser(ctx, t.q, id, username)
}

func (t *txStore) GetUser(ctx context.Context, id ledger.UserID) (ledger.User, error) {
	return getUser(ctx, t.q, id)
}

func (t *txStore) AddBalance(ctx context.Context, id ledger.UserID, delta int64, earned bool) error {
	return addBalance(ctx, t.q, id, delta, earned)
}

func (t *txStore) PutItem(ctx context.Context, item ledger.ContentItem) error {
	return putItem(ctx, t.q, item)
}

func (t *txStore) GetItem(ctx context.Context, id ledger.ContentID) (ledger.ContentItem, error) {
	return getItem(ctx, t.q, id)
}

func (t *txStore) SetItemPrice(ctx context.Context, id ledger.ContentID, price int64) error {
	return setItemPrice(ctx, t.q, id, price)
}

func (t *txStore) IncrementAccessCount(ctx context.Context, id ledger.ContentID) error {
	return incrementAccessCount(ctx, t.q, id)
}

func (t *txStore) ListItemsByOwner(ctx context.Context, owner ledger.UserID) ([]ledger.ContentItem, error) {
	return listItemsByOwner(ctx, t.q, owner)
}

func (t *txStore) InsertGrant(ctx context.Context, g ledger.AccessGrant) error {
	return insertGrant(ctx, t.q, g)
}

func (t *txStore) GetGrant(ctx context.Context, user ledger.UserID, item ledger.ContentID) (ledger.AccessGrant, bool, error) {
	return getGrant(ctx, t.q, user, item)
}

func (t *txStore) ListGrantsByUser(ctx context.Context, user ledger.UserID) ([]ledger.AccessGrant, error) {
	return listGrantsByUser(ctx, t.q, user)
}

func (t *txStore) PutCode(ctx context.Context, c ledger.RedeemCode) error {
	return putCode(ctx, t.q, c)
}

func (t *txStore) GetCode(ctx context.Context, code string) (ledger.RedeemCode, error) {
	return getCode(ctx, t.q, code)
}

func (t *txStore) DecrementCodeUse(ctx context.Context, code string) (int, error) {
	return decrementCodeUse(ctx, t.q, code)
}

func (t *txStore) DeleteCode(ctx context.Context, code string) error {
	return deleteCode(ctx, t.q, code)
}

func (t *txStore) AppendTransaction(ctx context.Context, tx ledger.Transaction) error {
	return appendTransaction(ctx, t.q, tx)
}

func (t *txStore) ListTransactionsByUser(ctx context.Context, user ledger.UserID) ([]ledger.Transaction, error) {
	return listTransactionsByUser(ctx, t.q, user)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

func storeErr(op string, err error) error {
	return &ledger.StoreError{Op: op, Err: err}
}
