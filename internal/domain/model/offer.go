package model

import "github.com/shopspring/decimal"

// Source identifies which marketplace notification produced an OfferChange.
type Source string

const (
	SourceMarketplaceA Source = "A"
	SourceMarketplaceB Source = "B"
)

// CompetitorOffer is a single seller's visible offer on an ASIN.
type CompetitorOffer struct {
	SellerID           string
	ListingPrice       decimal.Decimal
	LandedPrice        *decimal.Decimal
	FulfillmentChannel FulfillmentChannel
	IsBuyBoxWinner     bool
	SubCondition       string
}

// EffectivePrice returns LandedPrice when present, else ListingPrice; a
// landed price already includes shipping and is the fairer comparison
// point against a competitor's total cost to the buyer.
func (c CompetitorOffer) EffectivePrice() decimal.Decimal {
	if c.LandedPrice != nil {
		return *c.LandedPrice
	}
	return c.ListingPrice
}

// OfferChange is the canonical, source-agnostic record produced by the
// message normalizer (C2) from either marketplace-A or marketplace-B
// payloads.
type OfferChange struct {
	Source        Source
	ASIN          string
	OurSellerID   string
	// SKU lets the store gateway look a ProductListing up by
	// (asin, seller_id, sku), so the normalizer carries whatever SKU it
	// resolved alongside OurSellerID.
	SKU           string
	Marketplace   string
	ItemCondition string

	CompetitorOffers []CompetitorOffer

	BuyBoxWinnerID *string
	BuyBoxPrice    *decimal.Decimal

	TotalOffers            int
	LowestPricesByChannel  map[FulfillmentChannel]decimal.Decimal
}

// NonOwnOffers returns the competitor offers that do not belong to
// ourSellerID.
func (o *OfferChange) NonOwnOffers() []CompetitorOffer {
	out := make([]CompetitorOffer, 0, len(o.CompetitorOffers))
	for _, off := range o.CompetitorOffers {
		if off.SellerID != o.OurSellerID {
			out = append(out, off)
		}
	}
	return out
}

// AllOffersAreOurs reports whether every offer in CompetitorOffers belongs
// to ourSellerID (used by the "sole_seller_trivial" gate).
func (o *OfferChange) AllOffersAreOurs() bool {
	if len(o.CompetitorOffers) == 0 {
		return false
	}
	for _, off := range o.CompetitorOffers {
		if off.SellerID != o.OurSellerID {
			return false
		}
	}
	return true
}
