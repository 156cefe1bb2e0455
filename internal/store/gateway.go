// Package store defines the Gateway contract (C6): the only component
// permitted to touch the key-value store.
package store

import (
	"context"

	"github.com/northfield/repricer/internal/domain/model"
)

// Gateway is typed, concurrency-safe access to product listings, strategy
// configs, and calculated-price outputs. Every method classifies its
// errors through the internal/errs Code enum so callers can map failures
// to ok/skip/retry without inspecting driver-specific errors.
type Gateway interface {
	// GetListing fetches the listing at (asin, sellerID, sku). It returns
	// an *errs.E with Code=CodeNotFound when the hash field is absent.
	// Stored listings carry no application-encoded expiry and none is
	// checked; a listing disappears only when its field or the container
	// key's TTL removes it.
	GetListing(ctx context.Context, asin, sellerID, sku string) (*model.ProductListing, error)

	// GetStrategy fetches the strategy config at strategyID.
	GetStrategy(ctx context.Context, strategyID string) (*model.Strategy, error)

	// ResolveOwner scans the ASIN_<asin> hash for a field whose seller_id
	// prefix matches one of candidateSellerIDs, returning the owning
	// seller and sku. It is how C2 resolves our_seller_id for source-A
	// events, since that marketplace doesn't carry it on the wire.
	ResolveOwner(ctx context.Context, asin string, candidateSellerIDs []string) (sellerID, sku string, found bool, err error)

	// GetCompetitorB2BTiers scans the ASIN_<asin> hash for every other
	// seller's listing (fields not prefixed with excludeSellerID), decodes
	// the B2B ones, and returns their tier tables flattened into one slice.
	// C5 consults this when pricing a B2B listing so LOW/HIGH tier
	// selection has something to pick from.
	GetCompetitorB2BTiers(ctx context.Context, asin, excludeSellerID string) ([]model.Tier, error)

	// PutCalculatedPrice overwrites the sku field of the seller's
	// CALCULATED_PRICES:<seller_id> hash and refreshes the container key's
	// TTL.
	PutCalculatedPrice(ctx context.Context, sellerID, sku string, price model.CalculatedPrice) error

	// GetCalculatedPrice reads back a previously written calculated price;
	// used by tests. No HTTP endpoint calls it.
	GetCalculatedPrice(ctx context.Context, sellerID, sku string) (*model.CalculatedPrice, error)

	// SetRepricingPaused flips the repricing_paused flag on a listing via
	// the /admin/repricing/pause management endpoint.
	SetRepricingPaused(ctx context.Context, asin, sellerID, sku string, paused bool) error

	// DeleteCalculatedPrice clears a previously written calculated price
	// via the /admin/listings/reset management endpoint.
	DeleteCalculatedPrice(ctx context.Context, sellerID, sku string) error

	// Ping verifies connectivity for /health.
	Ping(ctx context.Context) error

	// Close releases pooled connections.
	Close() error
}
