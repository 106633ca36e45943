/*
Package ledger implements the monetized content access ledger.

PURPOSE:
  This package contains the core data model and the four components that own
  all persistent state: the content catalog, the redemption code registry,
  the balance ledger, and the access grant manager. Everything above it
  (message transport, keyboards, webhooks) is a thin gateway that calls the
  operations defined here.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: credit holder, lazily created on first touch
  - ContentItem: a priced piece of content owned by its creator
  - AccessGrant: durable (user, content) access record
  - RedeemCode: limited-use token convertible into a free grant
  - Transaction: immutable journal entry for every balance change

DESIGN PRINCIPLES:
  1. Store-agnostic: all state lives behind the Store interface (store.go)
  2. Integer credits: balances are whole credit units, never fractions
  3. Opaque identifiers: content ids and codes are unguessable tokens
  4. Auditability: every credit movement is journaled, append-only

SEE ALSO:
  - store.go: persistence interface with conditional atomic primitives
  - access.go: the orchestrator composing the other three components
*/
package ledger

import "time"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type ContentID string
type TransactionID string

// =============================================================================
// USER - Credit holder
// =============================================================================

// User holds a credit balance. Users are created lazily on first interaction
// and never deleted. Balance never goes below zero; TotalEarned only grows.
type User struct {
	ID          UserID
	Username    string
	Balance     int64
	TotalEarned int64
	CreatedAt   time.Time
}

// =============================================================================
// CONTENT ITEM - Priced content owned by its creator
// =============================================================================

// ContentKind mirrors the upload types the gateway can deliver.
type ContentKind string

const (
	KindDocument ContentKind = "document"
	KindPhoto    ContentKind = "photo"
	KindVideo    ContentKind = "video"
)

// ContentItem is the catalog record for one piece of content. The binary
// payload itself lives in an external blob service; BlobRef is the opaque
// handle the gateway uses to deliver it. ID and OwnerID are immutable after
// creation; only the owner may change Price.
type ContentItem struct {
	ID          ContentID
	OwnerID     UserID
	Name        string
	Kind        ContentKind
	Description string
	BlobRef     string
	Price       int64
	AccessCount int64
	CreatedAt   time.Time
}

// IsFree reports whether the item costs nothing.
func (c ContentItem) IsFree() bool { return c.Price == 0 }

// ItemMetadata is the caller-supplied part of a new item.
type ItemMetadata struct {
	Name        string
	Kind        ContentKind
	Description string
	BlobRef     string
}

// =============================================================================
// ACCESS GRANT - Durable (user, content) access record
// =============================================================================

// GrantMethod records how access was obtained.
type GrantMethod string

const (
	MethodOwner     GrantMethod = "owner" // implicit, never stored
	MethodFree      GrantMethod = "free"
	MethodPurchased GrantMethod = "purchased"
	MethodRedeemed  GrantMethod = "redeemed"
)

// AccessGrant marks that a user may access a content item. At most one grant
// exists per (UserID, ContentID) pair. Grants are never deleted or downgraded;
// re-granting an existing pair is a no-op.
type AccessGrant struct {
	UserID    UserID
	ContentID ContentID
	Method    GrantMethod
	GrantedAt time.Time
}

// =============================================================================
// REDEEM CODE - Limited-use token for free access
// =============================================================================

// RedeemCode converts into a free grant for its bound content item.
// UsesRemaining starts at MaxUses, only ever decreases, and never goes
// negative. An exhausted or expired code is inert but may be retained
// for audit depending on registry configuration.
type RedeemCode struct {
	Code          string
	ContentID     ContentID
	MaxUses       int
	UsesRemaining int
	CreatedBy     UserID
	CreatedAt     time.Time
	ExpiresAt     *time.Time
}

// Expired reports whether the code is past its expiry at the given time.
func (c RedeemCode) Expired(at time.Time) bool {
	return c.ExpiresAt != nil && at.After(*c.ExpiresAt)
}

// =============================================================================
// TRANSACTION - Append-only journal entry
// =============================================================================

// TransactionKind classifies a journal entry.
type TransactionKind string

const (
	TxPurchase TransactionKind = "purchase" // buyer -> seller transfer
	TxTopup    TransactionKind = "topup"    // external payment confirmed
)

// Transaction is the audit record for one balance change. Entries are
// append-only and never mutated. From is empty for topups; ContentID is
// empty for entries not tied to an item.
type Transaction struct {
	ID        TransactionID
	From      UserID
	To        UserID
	Amount    int64
	Kind      TransactionKind
	ContentID ContentID
	CreatedAt time.Time
}
