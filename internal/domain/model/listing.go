// Package model defines the canonical value types shared by the repricing
// pipeline: listings, strategies, offer changes, decisions, and calculated
// prices.
package model

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// FulfillmentChannel identifies who ships an offer.
type FulfillmentChannel string

const (
	FulfillmentAmazon   FulfillmentChannel = "AMAZON"
	FulfillmentMerchant FulfillmentChannel = "MERCHANT"
)

// ListingStatus mirrors the external listing lifecycle state.
type ListingStatus string

const (
	StatusActive   ListingStatus = "Active"
	StatusInactive ListingStatus = "Inactive"
)

// Tier is a B2B quantity break attached to a ProductListing.
type Tier struct {
	MinQuantity int
	Price       decimal.Decimal
	MinPrice    *decimal.Decimal
	MaxPrice    *decimal.Decimal
	DefaultPrice *decimal.Decimal
}

// ProductListing is the seller's current listing state, keyed by
// (ASIN, SellerID, SKU) and stored under the ASIN_<asin> hash (see
// internal/store).
type ProductListing struct {
	ASIN       string
	SellerID   string
	SKU        string
	Marketplace string

	ListedPrice  *decimal.Decimal
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	DefaultPrice *decimal.Decimal

	StrategyID string

	ItemCondition      string
	FulfillmentChannel FulfillmentChannel
	Status             ListingStatus
	Quantity           int

	IsB2B           bool
	B2BTiers        []Tier
	RepricingPaused bool
}

// Validate checks the structural invariants ProductListing must hold. It
// returns the first violated invariant as an error; callers treat a
// failing listing identically to a decode error (structural, skip).
func (p *ProductListing) Validate() error {
	if err := validateBounds("listing", p.MinPrice, p.MaxPrice, p.ListedPrice, p.DefaultPrice); err != nil {
		return err
	}
	prevMinQty := -1
	for i, tier := range p.B2BTiers {
		if tier.MinQuantity <= prevMinQty {
			return fmt.Errorf("listing %s/%s: tier %d min_quantity %d is not strictly increasing", p.SellerID, p.SKU, i, tier.MinQuantity)
		}
		prevMinQty = tier.MinQuantity
		if err := validateBounds(fmt.Sprintf("tier[%d]", i), tier.MinPrice, tier.MaxPrice, &tier.Price, tier.DefaultPrice); err != nil {
			return err
		}
	}
	return nil
}

func validateBounds(label string, min, max, listed, def *decimal.Decimal) error {
	zero := decimal.Zero
	for _, p := range []*decimal.Decimal{min, max, listed, def} {
		if p != nil && p.LessThan(zero) {
			return fmt.Errorf("%s: price %s is negative", label, p.String())
		}
	}
	if min != nil && max != nil {
		if min.GreaterThan(*max) {
			return fmt.Errorf("%s: min_price %s exceeds max_price %s", label, min.String(), max.String())
		}
	}
	if min != nil && max != nil && listed != nil {
		if listed.LessThan(*min) || listed.GreaterThan(*max) {
			return fmt.Errorf("%s: listed_price %s outside [%s, %s]", label, listed.String(), min.String(), max.String())
		}
	}
	if min != nil && max != nil && def != nil {
		if def.LessThan(*min) || def.GreaterThan(*max) {
			return fmt.Errorf("%s: default_price %s outside [%s, %s]", label, def.String(), min.String(), max.String())
		}
	}
	return nil
}

// SortTiers orders B2B tiers by ascending MinQuantity, matching the
// "ordered strictly by increasing min_quantity" invariant.
func SortTiers(tiers []Tier) {
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinQuantity < tiers[j].MinQuantity })
}

// TierForQuantityLow returns the competitor tier with the largest
// min_quantity <= ours (b2b_compete_for=LOW).
func TierForQuantityLow(tiers []Tier, ours int) (Tier, bool) {
	best := -1
	for i, t := range tiers {
		if t.MinQuantity <= ours && (best == -1 || t.MinQuantity > tiers[best].MinQuantity) {
			best = i
		}
	}
	if best == -1 {
		return Tier{}, false
	}
	return tiers[best], true
}

// TierForQuantityHigh returns the competitor tier with the smallest
// min_quantity >= ours (b2b_compete_for=HIGH).
func TierForQuantityHigh(tiers []Tier, ours int) (Tier, bool) {
	best := -1
	for i, t := range tiers {
		if t.MinQuantity >= ours && (best == -1 || t.MinQuantity < tiers[best].MinQuantity) {
			best = i
		}
	}
	if best == -1 {
		return Tier{}, false
	}
	return tiers[best], true
}
