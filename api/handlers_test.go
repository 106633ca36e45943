package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/content-ledger/api"
	"github.com/warp/content-ledger/ledger"
	memstore "github.com/warp/content-ledger/ledger/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st := memstore.NewMemory()
	catalog := ledger.NewCatalog(st, "https://t.me/testbot?start=")
	registry := ledger.NewRegistry(st, ledger.RegistryConfig{DefaultMaxUses: 10})
	balances := ledger.NewBalanceLedger(st)
	access := ledger.NewAccessManager(st, catalog, balances, registry, ledger.ManagerConfig{})

	handler := api.NewHandler(catalog, registry, balances, access)
	srv := httptest.NewServer(api.NewRouter(handler, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func createTestItem(t *testing.T, srv *httptest.Server, owner string) api.ItemDTO {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/items", api.CreateItemRequest{
		OwnerID: owner,
		Name:    "report.pdf",
		Kind:    "document",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var item api.ItemDTO
	require.NoError(t, json.Unmarshal(body, &item))
	return item
}

// =============================================================================
// ITEM ENDPOINTS
// =============================================================================

func TestAPI_Healthz(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CreateAndGetItem(t *testing.T) {
	srv := newTestServer(t)

	item := createTestItem(t, srv, "alice")
	assert.Equal(t, "alice", item.OwnerID)
	assert.Zero(t, item.Price)
	assert.Equal(t, "https://t.me/testbot?start="+item.ID, item.PublicLink)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/items/"+item.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got api.ItemDTO
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, item.ID, got.ID)
}

func TestAPI_GetItem_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/items/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_SetPrice_Unauthorized(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "bob",
		Price:       50,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAPI_SetPrice_Negative(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "alice",
		Price:       -1,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// PURCHASE AND BALANCE ENDPOINTS
// =============================================================================

func TestAPI_PurchaseFlow(t *testing.T) {
	// GIVEN: An item priced at 10 and a buyer credited with 25
	// WHEN: The buyer purchases via the API
	// THEN: Access is granted and both balances reflect the transfer

	srv := newTestServer(t)
	item := createTestItem(t, srv, "seller")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "seller", Price: 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/users/buyer/credit", api.CreditRequest{Amount: 25})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/items/"+item.ID+"/purchase", api.GrantRequest{UserID: "buyer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/items/"+item.ID+"/access?user=buyer", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var access api.AccessDTO
	require.NoError(t, json.Unmarshal(body, &access))
	assert.True(t, access.Granted)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/buyer/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var bal api.BalanceDTO
	require.NoError(t, json.Unmarshal(body, &bal))
	assert.Equal(t, int64(15), bal.Balance)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/seller/balance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &bal))
	assert.Equal(t, int64(10), bal.Balance)
	assert.Equal(t, int64(10), bal.TotalEarned)
}

func TestAPI_Purchase_InsufficientBalance(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "seller")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "seller", Price: 10,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+item.ID+"/purchase", api.GrantRequest{UserID: "pauper"})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "insufficient_balance", errResp.Code)
}

func TestAPI_GrantFree_PricedItem(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "seller")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "seller", Price: 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/items/"+item.ID+"/grant-free", api.GrantRequest{UserID: "bob"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_Credit_InvalidAmount(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/credit", api.CreditRequest{Amount: -5})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// REDEMPTION ENDPOINTS
// =============================================================================

func TestAPI_RedeemFlow(t *testing.T) {
	// GIVEN: A priced item and a code issued by its owner
	// WHEN: Bob redeems the code
	// THEN: He gains access without paying; the code loses one use

	srv := newTestServer(t)
	item := createTestItem(t, srv, "seller")

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/items/"+item.ID+"/price", api.SetPriceRequest{
		RequesterID: "seller", Price: 50,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+item.ID+"/codes", api.IssueCodeRequest{
		IssuerID: "seller",
		MaxUses:  2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var code api.CodeDTO
	require.NoError(t, json.Unmarshal(body, &code))
	assert.Equal(t, 2, code.UsesRemaining)

	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/redeem", api.RedeemRequest{
		UserID: "bob",
		Code:   code.Code,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var redeemed api.RedeemResponse
	require.NoError(t, json.Unmarshal(body, &redeemed))
	assert.Equal(t, item.ID, redeemed.ContentID)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/bob/grants", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var grants []api.GrantDTO
	require.NoError(t, json.Unmarshal(body, &grants))
	require.Len(t, grants, 1)
	assert.Equal(t, "redeemed", grants[0].Method)
}

func TestAPI_Redeem_UnknownCode(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/redeem", api.RedeemRequest{
		UserID: "bob",
		Code:   "REDEEM_MISSING12345",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Redeem_ExhaustedCode(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "seller")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/items/"+item.ID+"/codes", api.IssueCodeRequest{
		IssuerID: "seller",
		MaxUses:  1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var code api.CodeDTO
	require.NoError(t, json.Unmarshal(body, &code))

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/redeem", api.RedeemRequest{UserID: "carol", Code: code.Code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/redeem", api.RedeemRequest{UserID: "dave", Code: code.Code})
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

// =============================================================================
// USER LISTING ENDPOINTS
// =============================================================================

func TestAPI_ListUserItemsAndTransactions(t *testing.T) {
	srv := newTestServer(t)

	for i := 0; i < 3; i++ {
		createTestItem(t, srv, "alice")
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var items []api.ItemDTO
	require.NoError(t, json.Unmarshal(body, &items))
	assert.Len(t, items, 3)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/users/alice/credit", api.CreditRequest{Amount: 7})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/users/alice/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txs []api.TransactionDTO
	require.NoError(t, json.Unmarshal(body, &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, "topup", txs[0].Kind)
	assert.Equal(t, int64(7), txs[0].Amount)
}

func TestAPI_CheckAccess_MissingUserParam(t *testing.T) {
	srv := newTestServer(t)
	item := createTestItem(t, srv, "alice")

	resp, _ := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/items/%s/access", srv.URL, item.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
