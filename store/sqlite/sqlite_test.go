package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/content-ledger/ledger"
	"github.com/warp/content-ledger/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

// =============================================================================
// USERS AND BALANCES
// =============================================================================

func TestSQLite_GetUser_UnknownIsZeroRecord(t *testing.T) {
	st := newTestStore(t)

	u, err := st.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("ghost"), u.ID)
	assert.Zero(t, u.Balance)
	assert.Zero(t, u.TotalEarned)
}

func TestSQLite_EnsureUser_Idempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.EnsureUser(ctx, "alice", "alice_tg")
	require.NoError(t, err)
	require.NoError(t, st.AddBalance(ctx, "alice", 40, false))

	// A second ensure must not reset anything.
	u, err := st.EnsureUser(ctx, "alice", "alice_renamed")
	require.NoError(t, err)
	assert.Equal(t, int64(40), u.Balance)
	assert.Equal(t, "alice_renamed", u.Username)
}

func TestSQLite_AddBalance_ConditionalDebit(t *testing.T) {
	// GIVEN: Alice holds 10
	// WHEN: A debit of 11 is applied
	// THEN: *InsufficientBalanceError, balance unchanged

	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddBalance(ctx, "alice", 10, false))

	err := st.AddBalance(ctx, "alice", -11, false)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBalance)

	var short *ledger.InsufficientBalanceError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(10), short.Available)
	assert.Equal(t, int64(11), short.Requested)

	u, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), u.Balance)
}

func TestSQLite_AddBalance_EarnedBumpsTotal(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddBalance(ctx, "seller", 30, true))
	require.NoError(t, st.AddBalance(ctx, "seller", 20, false))
	require.NoError(t, st.AddBalance(ctx, "seller", -15, false))

	u, err := st.GetUser(ctx, "seller")
	require.NoError(t, err)
	assert.Equal(t, int64(35), u.Balance)
	assert.Equal(t, int64(30), u.TotalEarned, "only earned credits count toward the total")
}

// =============================================================================
// GRANTS
// =============================================================================

func TestSQLite_InsertGrant_DuplicateRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	g := ledger.AccessGrant{
		UserID:    "bob",
		ContentID: "item-1",
		Method:    ledger.MethodPurchased,
		GrantedAt: time.Now().UTC(),
	}
	require.NoError(t, st.InsertGrant(ctx, g))

	err := st.InsertGrant(ctx, g)
	assert.ErrorIs(t, err, ledger.ErrGrantExists)

	_, ok, err := st.GetGrant(ctx, "bob", "item-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

// =============================================================================
// REDEEM CODES
// =============================================================================

func TestSQLite_DecrementCodeUse(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.PutCode(ctx, ledger.RedeemCode{
		Code:          "REDEEM_TESTTESTTEST1",
		ContentID:     "item-1",
		MaxUses:       2,
		UsesRemaining: 2,
		CreatedBy:     "alice",
		CreatedAt:     time.Now().UTC(),
	}))

	remaining, err := st.DecrementCodeUse(ctx, "REDEEM_TESTTESTTEST1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	remaining, err = st.DecrementCodeUse(ctx, "REDEEM_TESTTESTTEST1")
	require.NoError(t, err)
	assert.Zero(t, remaining)

	_, err = st.DecrementCodeUse(ctx, "REDEEM_TESTTESTTEST1")
	assert.ErrorIs(t, err, ledger.ErrCodeExhausted)

	_, err = st.DecrementCodeUse(ctx, "REDEEM_MISSING12345")
	assert.ErrorIs(t, err, ledger.ErrCodeNotFound)
}

func TestSQLite_Code_ExpiryRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, st.PutCode(ctx, ledger.RedeemCode{
		Code:          "REDEEM_EXPIRINGCODE1",
		ContentID:     "item-1",
		MaxUses:       1,
		UsesRemaining: 1,
		CreatedBy:     "alice",
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     &expires,
	}))

	got, err := st.GetCode(ctx, "REDEEM_EXPIRINGCODE1")
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expires))
}

// =============================================================================
// TRANSACTIONS (WithTx)
// =============================================================================

func TestSQLite_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A transaction that credits Bob then fails
	// WHEN: WithTx returns the error
	// THEN: The credit never landed

	st := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(s ledger.Store) error {
		if err := s.AddBalance(ctx, "bob", 100, false); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	u, err := st.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, u.Balance, "rolled-back writes must not be observable")
}

func TestSQLite_WithTx_CommitsAllWrites(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddBalance(ctx, "buyer", 10, false))

	err := st.WithTx(ctx, func(s ledger.Store) error {
		if err := s.AddBalance(ctx, "buyer", -10, false); err != nil {
			return err
		}
		if err := s.AddBalance(ctx, "seller", 10, true); err != nil {
			return err
		}
		return s.AppendTransaction(ctx, ledger.Transaction{
			ID:        "tx-1",
			From:      "buyer",
			To:        "seller",
			Amount:    10,
			Kind:      ledger.TxPurchase,
			ContentID: "item-1",
			CreatedAt: time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	buyer, _ := st.GetUser(ctx, "buyer")
	seller, _ := st.GetUser(ctx, "seller")
	assert.Zero(t, buyer.Balance)
	assert.Equal(t, int64(10), seller.Balance)

	txs, err := st.ListTransactionsByUser(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, ledger.UserID("buyer"), txs[0].From)
	assert.Equal(t, ledger.ContentID("item-1"), txs[0].ContentID)
}

// =============================================================================
// FULL FLOW AGAINST SQLITE
// =============================================================================

func TestSQLite_PurchaseFlow_EndToEnd(t *testing.T) {
	// The same price-10/balance-10 scenario the in-memory tests run, against
	// the production store.

	st := newTestStore(t)
	ctx := context.Background()

	catalog := ledger.NewCatalog(st, "")
	registry := ledger.NewRegistry(st, ledger.RegistryConfig{})
	balances := ledger.NewBalanceLedger(st)
	access := ledger.NewAccessManager(st, catalog, balances, registry, ledger.ManagerConfig{})

	item, err := catalog.CreateItem(ctx, "seller", ledger.ItemMetadata{Name: "x"})
	require.NoError(t, err)
	require.NoError(t, catalog.SetPrice(ctx, item.ID, "seller", 10))
	require.NoError(t, balances.Credit(ctx, "buyer", 10))

	require.NoError(t, access.Purchase(ctx, "buyer", item.ID))

	granted, err := access.CheckAccess(ctx, "buyer", item.ID)
	require.NoError(t, err)
	assert.True(t, granted)

	buyerBal, _ := balances.GetBalance(ctx, "buyer")
	seller, _ := balances.Summary(ctx, "seller")
	assert.Zero(t, buyerBal)
	assert.Equal(t, int64(10), seller.Balance)
	assert.Equal(t, int64(10), seller.TotalEarned)

	// Idempotent re-purchase.
	require.NoError(t, access.Purchase(ctx, "buyer", item.ID))
	buyerBal, _ = balances.GetBalance(ctx, "buyer")
	assert.Zero(t, buyerBal)
}

func TestSQLite_ConcurrentDebits(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.AddBalance(ctx, "alice", 20, false))

	const n = 30
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = st.AddBalance(ctx, "alice", -1, false)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 20, successes)

	u, err := st.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, u.Balance)
}
