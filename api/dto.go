/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/content-ledger/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ItemDTO represents a content item in API responses.
type ItemDTO struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	Price       int64  `json:"price"`
	AccessCount int64  `json:"access_count"`
	PublicLink  string `json:"public_link,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateItemRequest is the request to register a content item.
type CreateItemRequest struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	BlobRef     string `json:"blob_ref,omitempty"`
}

// SetPriceRequest is the request to change an item's price.
type SetPriceRequest struct {
	RequesterID string `json:"requester_id"`
	Price       int64  `json:"price"`
}

// AccessDTO is the response to an access check.
type AccessDTO struct {
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	Granted   bool   `json:"granted"`
}

// GrantRequest identifies the user for a free/purchase grant.
type GrantRequest struct {
	UserID string `json:"user_id"`
}

// GrantDTO represents an access grant.
type GrantDTO struct {
	UserID    string `json:"user_id"`
	ContentID string `json:"content_id"`
	Method    string `json:"method"`
	GrantedAt string `json:"granted_at"`
}

// IssueCodeRequest is the request to mint a redeem code.
type IssueCodeRequest struct {
	IssuerID  string  `json:"issuer_id"`
	MaxUses   int     `json:"max_uses,omitempty"`
	ExpiresAt *string `json:"expires_at,omitempty"` // RFC3339
}

// CodeDTO represents a redeem code.
type CodeDTO struct {
	Code          string  `json:"code"`
	ContentID     string  `json:"content_id"`
	MaxUses       int     `json:"max_uses"`
	UsesRemaining int     `json:"uses_remaining"`
	ExpiresAt     *string `json:"expires_at,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

// RedeemRequest is the request to spend a code.
type RedeemRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// RedeemResponse reports the item a redeemed code unlocked.
type RedeemResponse struct {
	ContentID  string `json:"content_id"`
	PublicLink string `json:"public_link,omitempty"`
}

// BalanceDTO represents a user's credit position.
type BalanceDTO struct {
	UserID      string `json:"user_id"`
	Balance     int64  `json:"balance"`
	TotalEarned int64  `json:"total_earned"`
}

// CreditRequest is the topup confirmation from the payment provider.
type CreditRequest struct {
	Amount int64 `json:"amount"`
}

// TransactionDTO represents a journal entry.
type TransactionDTO struct {
	ID        string `json:"id"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Amount    int64  `json:"amount"`
	Kind      string `json:"kind"`
	ContentID string `json:"content_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toItemDTO(item ledger.ContentItem, link string) ItemDTO {
	return ItemDTO{
		ID:          string(item.ID),
		OwnerID:     string(item.OwnerID),
		Name:        item.Name,
		Kind:        string(item.Kind),
		Description: item.Description,
		Price:       item.Price,
		AccessCount: item.AccessCount,
		PublicLink:  link,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	}
}

func toGrantDTO(g ledger.AccessGrant) GrantDTO {
	return GrantDTO{
		UserID:    string(g.UserID),
		ContentID: string(g.ContentID),
		Method:    string(g.Method),
		GrantedAt: g.GrantedAt.Format(time.RFC3339),
	}
}

func toCodeDTO(c ledger.RedeemCode) CodeDTO {
	dto := CodeDTO{
		Code:          c.Code,
		ContentID:     string(c.ContentID),
		MaxUses:       c.MaxUses,
		UsesRemaining: c.UsesRemaining,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
	}
	if c.ExpiresAt != nil {
		s := c.ExpiresAt.Format(time.RFC3339)
		dto.ExpiresAt = &s
	}
	return dto
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(tx.ID),
		From:      string(tx.From),
		To:        string(tx.To),
		Amount:    tx.Amount,
		Kind:      string(tx.Kind),
		ContentID: string(tx.ContentID),
		CreatedAt: tx.CreatedAt.Format(time.RFC3339),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}
