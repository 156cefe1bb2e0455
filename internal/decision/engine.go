// Package decision implements the repricing decision engine (C4): an
// ordered sequence of gates over a listing, its strategy, and the latest
// offer change, grounded on
// _examples/original_source/src/services/repricing_engine.py's
// _evaluate_product_for_repricing.
package decision

import (
	"github.com/shopspring/decimal"

	"github.com/northfield/repricer/internal/domain/model"
)

// Reason codes: ReasonOK, then the skip reasons in gate order.
const (
	ReasonOK                    = "ok"
	ReasonProductNotFound       = "product_not_found"
	ReasonInactive              = "inactive"
	ReasonPaused                = "paused"
	ReasonOutOfStock            = "out_of_stock"
	ReasonStrategyMissing       = "strategy_missing"
	ReasonNoPriceRoom           = "no_price_room"
	ReasonSelfCompetingBuybox   = "self_competing_buybox"
	ReasonSoleSellerTrivial     = "sole_seller_trivial"
	ReasonSelfCompetingLowest   = "self_competing_lowest"
	ReasonSelfCompetingFBALow   = "self_competing_fba_lowest"
)

// Evaluate runs the ordered eligibility gates against a listing, its
// resolved strategy (nil if unresolved), and the offer change that
// triggered evaluation. listingFound distinguishes a genuine miss from a
// zero-value listing.
func Evaluate(listingFound bool, listing *model.ProductListing, strategy *model.Strategy, offer *model.OfferChange) model.RepricingDecision {
	dec := model.RepricingDecision{Offer: offer}
	if offer != nil {
		dec.ASIN = offer.ASIN
		dec.SellerID = offer.OurSellerID
	}

	if !listingFound || listing == nil {
		dec.Reason = ReasonProductNotFound
		return dec
	}

	dec.SellerID = listing.SellerID
	dec.SKU = listing.SKU
	dec.StrategyID = listing.StrategyID
	dec.StockQuantity = listing.Quantity
	dec.CurrentPrice = listing.ListedPrice

	if listing.Status != model.StatusActive {
		dec.Reason = ReasonInactive
		return dec
	}
	if listing.RepricingPaused {
		dec.Reason = ReasonPaused
		return dec
	}
	if listing.Quantity <= 0 {
		dec.Reason = ReasonOutOfStock
		return dec
	}
	if listing.StrategyID == "" || strategy == nil {
		dec.Reason = ReasonStrategyMissing
		return dec
	}
	if !boundsHaveRoom(listing.MinPrice, listing.MaxPrice) {
		dec.Reason = ReasonNoPriceRoom
		return dec
	}

	if offer != nil {
		if offer.BuyBoxWinnerID != nil && *offer.BuyBoxWinnerID == offer.OurSellerID {
			dec.Reason = ReasonSelfCompetingBuybox
			return dec
		}
		if offer.AllOffersAreOurs() && isCompetitive(offer, strategy) {
			dec.Reason = ReasonSoleSellerTrivial
			return dec
		}
		if strategy.CompeteWith == model.CompeteLowestPrice && weHoldLowestPrice(offer) {
			dec.Reason = ReasonSelfCompetingLowest
			return dec
		}
		if strategy.CompeteWith == model.CompeteLowestFBAPrice && weHoldLowestFBAPrice(offer) {
			dec.Reason = ReasonSelfCompetingFBALow
			return dec
		}
	}

	dec.ShouldReprice = true
	dec.Reason = ReasonOK
	return dec
}

// boundsHaveRoom implements "if both set, min_price <= max_price and
// min_price != max_price". Missing bounds never block repricing on
// their own.
func boundsHaveRoom(min, max *decimal.Decimal) bool {
	if min == nil || max == nil {
		return true
	}
	if min.GreaterThan(*max) {
		return false
	}
	return !min.Equal(*max)
}

// isCompetitive decides the sole-seller gate from the offer count alone:
// it reports true when the marketplace counts more than one offer
// (TotalOffers > 1) even though every visible offer is ours, so the gate
// blocks. With TotalOffers <= 1 the event proceeds and C5 selects
// OnlySeller. The strategy's configuration is not consulted.
func isCompetitive(offer *model.OfferChange, strategy *model.Strategy) bool {
	return offer.TotalOffers > 1
}

func weHoldLowestPrice(offer *model.OfferChange) bool {
	ours, ok := ourLowestListingPrice(offer)
	if !ok {
		return false
	}
	lowestOther, found := lowestNonOwnPrice(offer, nil)
	if !found {
		return false
	}
	return ours.LessThanOrEqual(lowestOther)
}

func weHoldLowestFBAPrice(offer *model.OfferChange) bool {
	fba := model.FulfillmentAmazon
	ours, ok := ourLowestListingPrice(offer)
	if !ok {
		return false
	}
	lowestOther, found := lowestNonOwnPrice(offer, &fba)
	if !found {
		return false
	}
	return ours.LessThanOrEqual(lowestOther)
}

func ourLowestListingPrice(offer *model.OfferChange) (decimal.Decimal, bool) {
	var best *decimal.Decimal
	for _, o := range offer.CompetitorOffers {
		if o.SellerID != offer.OurSellerID {
			continue
		}
		price := o.EffectivePrice()
		if best == nil || price.LessThan(*best) {
			p := price
			best = &p
		}
	}
	if best == nil {
		return decimal.Decimal{}, false
	}
	return *best, true
}

func lowestNonOwnPrice(offer *model.OfferChange, channel *model.FulfillmentChannel) (decimal.Decimal, bool) {
	var best *decimal.Decimal
	for _, o := range offer.NonOwnOffers() {
		if channel != nil && o.FulfillmentChannel != *channel {
			continue
		}
		price := o.EffectivePrice()
		if best == nil || price.LessThan(*best) {
			p := price
			best = &p
		}
	}
	if best == nil {
		return decimal.Decimal{}, false
	}
	return *best, true
}
