/*
handlers.go - HTTP API handlers for the content access ledger

PURPOSE:
  Exposes the ledger components via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Items:
    POST   /api/items                   Register content item
    GET    /api/items/{id}              Item details (+ public link)
    PUT    /api/items/{id}/price        Set price (owner only)
    GET    /api/items/{id}/access       Check access for ?user=
    POST   /api/items/{id}/grant-free   Grant a free item
    POST   /api/items/{id}/purchase     Buy access
    POST   /api/items/{id}/codes        Issue redeem code (owner only)

  Redemption:
    POST   /api/redeem                  Spend a code

  Users:
    GET    /api/users/{id}/balance      Balance + earned total
    POST   /api/users/{id}/credit       Topup (payment provider confirmation)
    GET    /api/users/{id}/transactions Journal history
    GET    /api/users/{id}/items        Items owned
    GET    /api/users/{id}/grants       Grants held

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP status via their sentinel:
  - 400: invalid price/amount/max-uses, malformed body
  - 402: insufficient balance (shortfall in details)
  - 403: non-owner attempting an owner operation
  - 404: unknown item or code
  - 409: free-grant on a priced item
  - 410: exhausted or expired code
  - 503: store unavailable

SECURITY NOTE:
  Caller identity arrives in the request body/query; the trusted
  messaging gateway in front of this service authenticates users.
  No authentication middleware here.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/content-ledger/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog  *ledger.Catalog
	Registry *ledger.Registry
	Balances *ledger.BalanceLedger
	Access   *ledger.AccessManager
}

// NewHandler creates a handler over the wired ledger components.
func NewHandler(catalog *ledger.Catalog, registry *ledger.Registry, balances *ledger.BalanceLedger, access *ledger.AccessManager) *Handler {
	return &Handler{
		Catalog:  catalog,
		Registry: registry,
		Balances: balances,
		Access:   access,
	}
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// CreateItem registers a new content item.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "owner_id is required", nil)
		return
	}

	item, err := h.Catalog.CreateItem(r.Context(), ledger.UserID(req.OwnerID), ledger.ItemMetadata{
		Name:        req.Name,
		Kind:        ledger.ContentKind(req.Kind),
		Description: req.Description,
		BlobRef:     req.BlobRef,
	})
	if err != nil {
		writeDomainError(w, "Failed to create item", err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemDTO(item, h.Catalog.PublicLink(item.ID)))
}

// GetItem returns a single item.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))

	item, err := h.Catalog.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}

	writeJSON(w, http.StatusOK, toItemDTO(item, h.Catalog.PublicLink(item.ID)))
}

// SetPrice changes an item's price.
func (h *Handler) SetPrice(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))

	var req SetPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, "requester_id is required", nil)
		return
	}

	if err := h.Catalog.SetPrice(r.Context(), id, ledger.UserID(req.RequesterID), req.Price); err != nil {
		writeDomainError(w, "Failed to set price", err)
		return
	}

	item, err := h.Catalog.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item, h.Catalog.PublicLink(item.ID)))
}

// CheckAccess reports whether ?user= may access the item.
func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))
	user := ledger.UserID(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter is required", nil)
		return
	}

	granted, err := h.Access.CheckAccess(r.Context(), user, id)
	if err != nil {
		writeDomainError(w, "Failed to check access", err)
		return
	}

	writeJSON(w, http.StatusOK, AccessDTO{
		UserID:    string(user),
		ContentID: string(id),
		Granted:   granted,
	})
}

// GrantFree grants access to a free item.
func (h *Handler) GrantFree(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Access.GrantFree(r.Context(), ledger.UserID(req.UserID), id); err != nil {
		writeDomainError(w, "Failed to grant access", err)
		return
	}

	writeJSON(w, http.StatusOK, AccessDTO{UserID: req.UserID, ContentID: string(id), Granted: true})
}

// Purchase buys access to an item.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))

	var req GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	if err := h.Access.Purchase(r.Context(), ledger.UserID(req.UserID), id); err != nil {
		writeDomainError(w, "Failed to purchase", err)
		return
	}

	writeJSON(w, http.StatusOK, AccessDTO{UserID: req.UserID, ContentID: string(id), Granted: true})
}

// IssueCode mints a redeem code for an item.
func (h *Handler) IssueCode(w http.ResponseWriter, r *http.Request) {
	id := ledger.ContentID(chi.URLParam(r, "id"))

	var req IssueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.IssuerID == "" {
		writeError(w, http.StatusBadRequest, "issuer_id is required", nil)
		return
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expires_at must be RFC3339", err)
			return
		}
		expiresAt = &t
	}

	code, err := h.Registry.IssueCode(r.Context(), id, ledger.UserID(req.IssuerID), req.MaxUses, expiresAt)
	if err != nil {
		writeDomainError(w, "Failed to issue code", err)
		return
	}

	writeJSON(w, http.StatusCreated, toCodeDTO(code))
}

// =============================================================================
// REDEMPTION HANDLERS
// =============================================================================

// Redeem spends a code and grants access to its bound item.
func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.UserID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "user_id and code are required", nil)
		return
	}

	itemID, err := h.Access.Redeem(r.Context(), req.Code, ledger.UserID(req.UserID))
	if err != nil {
		writeDomainError(w, "Failed to redeem code", err)
		return
	}

	writeJSON(w, http.StatusOK, RedeemResponse{
		ContentID:  string(itemID),
		PublicLink: h.Catalog.PublicLink(itemID),
	})
}

// =============================================================================
// USER HANDLERS
// =============================================================================

// GetBalance returns a user's credit position.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	u, err := h.Balances.Summary(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:      string(id),
		Balance:     u.Balance,
		TotalEarned: u.TotalEarned,
	})
}

// Credit adds credit after a confirmed external payment.
func (h *Handler) Credit(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.Balances.Credit(r.Context(), id, req.Amount); err != nil {
		writeDomainError(w, "Failed to credit", err)
		return
	}

	u, err := h.Balances.Summary(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get balance", err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		UserID:      string(id),
		Balance:     u.Balance,
		TotalEarned: u.TotalEarned,
	})
}

// GetTransactions returns a user's journal history, newest first.
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	txs, err := h.Balances.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

// ListUserItems returns the items a user has created.
func (h *Handler) ListUserItems(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	items, err := h.Catalog.ListByOwner(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toItemDTO(item, h.Catalog.PublicLink(item.ID))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListUserGrants returns the grants a user holds.
func (h *Handler) ListUserGrants(w http.ResponseWriter, r *http.Request) {
	id := ledger.UserID(chi.URLParam(r, "id"))

	grants, err := h.Access.Grants(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list grants", err)
		return
	}

	dtos := make([]GrantDTO, len(grants))
	for i, g := range grants {
		dtos[i] = toGrantDTO(g)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status.
func writeDomainError(w http.ResponseWriter, msg string, err error) {
	var insufficient *ledger.InsufficientBalanceError
	switch {
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusPaymentRequired, ErrorResponse{
			Error: "Insufficient balance",
			Code:  "insufficient_balance",
			Details: map[string]int64{
				"available": insufficient.Available,
				"requested": insufficient.Requested,
				"shortfall": insufficient.Shortfall(),
			},
		})
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, msg, err)
	case errors.Is(err, ledger.ErrUnauthorized):
		writeError(w, http.StatusForbidden, msg, err)
	case errors.Is(err, ledger.ErrNotFree):
		writeError(w, http.StatusConflict, msg, err)
	case errors.Is(err, ledger.ErrCodeExhausted), errors.Is(err, ledger.ErrCodeExpired):
		writeError(w, http.StatusGone, msg, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, msg, err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, msg, err)
	default:
		writeError(w, http.StatusInternalServerError, msg, err)
	}
}
