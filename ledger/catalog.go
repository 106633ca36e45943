/*
catalog.go - Content Catalog

PURPOSE:
  Owns content metadata: who created an item, what it costs, and how often
  it has been accessed. The catalog is the only writer of price and access
  count.

RULES:
  - A fresh item is free (price 0) until its owner prices it.
  - Only the owner may change the price; price changes are never
    retroactive, existing grants keep the terms they were granted under.
  - The access counter is informational, not a financial instrument:
    RecordAccess must never fail a caller's purchase or redeem flow.
*/
package ledger

import (
	"context"
	"time"
)

// Catalog manages content items.
type Catalog struct {
	store    Store
	linkBase string
	now      func() time.Time
}

// NewCatalog creates a catalog. linkBase is prepended to content ids to
// form externally shareable deep links; it may be empty.
func NewCatalog(store Store, linkBase string) *Catalog {
	return &Catalog{store: store, linkBase: linkBase, now: time.Now}
}

// CreateItem registers a new content item for owner. The item starts free
// with a zero access count and a freshly generated unguessable id.
func (c *Catalog) CreateItem(ctx context.Context, owner UserID, meta ItemMetadata) (ContentItem, error) {
	if _, err := c.store.EnsureUser(ctx, owner, ""); err != nil {
		return ContentItem{}, err
	}

	item := ContentItem{
		ID:          NewContentID(),
		OwnerID:     owner,
		Name:        meta.Name,
		Kind:        meta.Kind,
		Description: meta.Description,
		BlobRef:     meta.BlobRef,
		Price:       0,
		AccessCount: 0,
		CreatedAt:   c.now().UTC(),
	}
	if err := c.store.PutItem(ctx, item); err != nil {
		return ContentItem{}, err
	}
	return item, nil
}

// GetItem returns an item or ErrItemNotFound.
func (c *Catalog) GetItem(ctx context.Context, id ContentID) (ContentItem, error) {
	return c.store.GetItem(ctx, id)
}

// SetPrice replaces an item's price. Fails with ErrUnauthorized unless
// requester owns the item and with ErrInvalidPrice for a negative price.
func (c *Catalog) SetPrice(ctx context.Context, id ContentID, requester UserID, newPrice int64) error {
	if newPrice < 0 {
		return ErrInvalidPrice
	}
	item, err := c.store.GetItem(ctx, id)
	if err != nil {
		return err
	}
	if item.OwnerID != requester {
		return ErrUnauthorized
	}
	return c.store.SetItemPrice(ctx, id, newPrice)
}

// RecordAccess bumps the item's access counter. Callers in grant flows
// treat a failure here as non-fatal; the counter is best-effort.
func (c *Catalog) RecordAccess(ctx context.Context, id ContentID) error {
	return c.store.IncrementAccessCount(ctx, id)
}

// ListByOwner returns the items a user has created.
func (c *Catalog) ListByOwner(ctx context.Context, owner UserID) ([]ContentItem, error) {
	return c.store.ListItemsByOwner(ctx, owner)
}

// PublicLink renders the shareable deep link for an item.
func (c *Catalog) PublicLink(id ContentID) string {
	return c.linkBase + string(id)
}
