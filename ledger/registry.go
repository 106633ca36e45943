/*
registry.go - Redemption Code Registry

PURPOSE:
  Owns one-time/limited-use codes bound to a content item. The registry is
  the only writer of UsesRemaining.

INVARIANT:
  UsesRemaining never goes negative and never increases. The check and the
  decrement are one conditional store operation, so a code with one use
  left yields exactly one successful consumption no matter how many
  callers race for it.

EXHAUSTION POLICY:
  Whether an exhausted code is deleted or kept (inert) for audit is a
  configuration choice, not a hard rule. Default is to keep it.
*/
package ledger

import (
	"context"
	"time"
)

// RegistryConfig tunes code issuing and retention.
type RegistryConfig struct {
	// DefaultMaxUses applies when IssueCode is called with maxUses == 0.
	DefaultMaxUses int
	// DeleteExhausted removes a code once its last use is consumed.
	DeleteExhausted bool
}

// Registry manages redeem codes.
type Registry struct {
	store Store
	cfg   RegistryConfig
	now   func() time.Time
}

// NewRegistry creates a registry. A zero DefaultMaxUses falls back to 1.
func NewRegistry(store Store, cfg RegistryConfig) *Registry {
	if cfg.DefaultMaxUses <= 0 {
		cfg.DefaultMaxUses = 1
	}
	return &Registry{store: store, cfg: cfg, now: time.Now}
}

// IssueCode creates a code for an item. Fails with ErrUnauthorized unless
// issuer owns the item. maxUses == 0 means the configured default;
// anything below one is ErrInvalidMaxUses. expiresAt is optional.
func (r *Registry) IssueCode(ctx context.Context, itemID ContentID, issuer UserID, maxUses int, expiresAt *time.Time) (RedeemCode, error) {
	if maxUses == 0 {
		maxUses = r.cfg.DefaultMaxUses
	}
	if maxUses < 1 {
		return RedeemCode{}, ErrInvalidMaxUses
	}

	item, err := r.store.GetItem(ctx, itemID)
	if err != nil {
		return RedeemCode{}, err
	}
	if item.OwnerID != issuer {
		return RedeemCode{}, ErrUnauthorized
	}

	code := RedeemCode{
		Code:          NewRedeemCode(),
		ContentID:     itemID,
		MaxUses:       maxUses,
		UsesRemaining: maxUses,
		CreatedBy:     issuer,
		CreatedAt:     r.now().UTC(),
		ExpiresAt:     expiresAt,
	}
	if err := r.store.PutCode(ctx, code); err != nil {
		return RedeemCode{}, err
	}
	return code, nil
}

// Lookup returns a code without consuming anything.
func (r *Registry) Lookup(ctx context.Context, code string) (RedeemCode, error) {
	return r.store.GetCode(ctx, code)
}

// Consume spends one use of a code and returns the bound content id.
// Fails with ErrCodeNotFound, ErrCodeExhausted or ErrCodeExpired; on any
// failure no use is consumed.
func (r *Registry) Consume(ctx context.Context, code string, _ UserID) (ContentID, error) {
	return r.consumeIn(ctx, r.store, code)
}

// consumeIn runs the consumption against the given store view so the
// access manager can fold it into a larger transaction.
func (r *Registry) consumeIn(ctx context.Context, s Store, code string) (ContentID, error) {
	c, err := s.GetCode(ctx, code)
	if err != nil {
		return "", err
	}
	if c.Expired(r.now()) {
		return "", ErrCodeExpired
	}

	remaining, err := s.DecrementCodeUse(ctx, code)
	if err != nil {
		return "", err
	}
	if remaining == 0 && r.cfg.DeleteExhausted {
		if err := s.DeleteCode(ctx, code); err != nil {
			return "", err
		}
	}
	return c.ContentID, nil
}
