// Package pricing implements the strategy engine (C5): strategy
// selection, competitor selection, raw price computation, bounds
// clamping, and B2B tier pricing, grounded on
// _examples/original_source/src/services/repricing_engine.py's
// calculate_new_price and
// _examples/original_source/src/strategies/base_strategy.py's
// process_price_with_bounds_check / apply_b2b_tier_pricing.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/domain/model"
)

const twoDP = 2

// SkipError reports that C5 could not produce a price and carries the
// reason the orchestrator should log and ack-without-write.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "pricing skip: " + e.Reason }

func skip(reason string) error { return &SkipError{Reason: reason} }

// Calculate applies the strategy engine to an accepted RepricingDecision
// and returns the CalculatedPrice to persist, or a *SkipError when no
// price can be produced. competitorTiers carries the B2B tier tables of
// the offer's non-own sellers, resolved by the orchestrator via the store
// gateway before calling in; it is ignored for non-B2B listings.
func Calculate(c clock.Clock, listing *model.ProductListing, strategy *model.Strategy, offer *model.OfferChange, competitorTiers []model.Tier) (model.CalculatedPrice, error) {
	start := c.Now()

	strategyUsed, competitor, err := selectStrategyAndCompetitor(listing, strategy, offer)
	if err != nil {
		return model.CalculatedPrice{}, err
	}

	listed := decimal.Zero
	if listing.ListedPrice != nil {
		listed = *listing.ListedPrice
	}

	raw, err := computeRaw(strategyUsed, strategy, listing, competitor, listed)
	if err != nil {
		return model.CalculatedPrice{}, err
	}
	raw = round2(raw)

	var competitorPrice *decimal.Decimal
	if competitor != nil {
		p := competitor.EffectivePrice()
		competitorPrice = &p
	}

	final, err := clampToBounds(raw, listing.MinPrice, listing.MaxPrice, listing.DefaultPrice, competitorPrice, strategy.MinPriceRule, strategy.MaxPriceRule)
	if err != nil {
		return model.CalculatedPrice{}, err
	}

	result := model.CalculatedPrice{
		SellerID:         listing.SellerID,
		SKU:              listing.SKU,
		ASIN:             listing.ASIN,
		NewPrice:         final,
		OldPrice:         listed,
		StrategyUsed:     strategyUsed,
		StrategyID:       strategy.ID,
		CompetitorPrice:  competitorPrice,
		CalculatedAt:     c.Now(),
		PriceChanged:     !round2(final).Equal(round2(listed)),
		ProcessingTimeMS: float64(c.Now().Sub(start)) / float64(time.Millisecond),
	}

	if listing.IsB2B && len(listing.B2BTiers) > 0 {
		result.Tiers = calculateTiers(listing, strategy, competitorTiers)
	}

	return result, nil
}

// selectStrategyAndCompetitor picks the strategy variant and, where
// applicable, the competitor offer it should chase.
func selectStrategyAndCompetitor(listing *model.ProductListing, strategy *model.Strategy, offer *model.OfferChange) (model.StrategyUsed, *model.CompetitorOffer, error) {
	nonOwn := offer.NonOwnOffers()

	if len(nonOwn) == 0 || offer.TotalOffers <= 1 {
		return model.StrategyOnlySeller, nil, nil
	}

	if offer.BuyBoxWinnerID != nil && *offer.BuyBoxWinnerID == offer.OurSellerID && !listing.IsB2B {
		// Unreachable while the C4 self-competing-buybox gate is active;
		// kept for when that gate is disabled in a future maximisation mode.
		competitor := pickCompetitor(strategy.CompeteWith, offer, nonOwn)
		return model.StrategyMaximiseProfit, competitor, nil
	}

	competitor := pickCompetitor(strategy.CompeteWith, offer, nonOwn)
	if competitor == nil {
		return "", nil, skip("no_valid_competitor")
	}
	return model.StrategyChaseBuyBox, competitor, nil
}

func pickCompetitor(mode model.CompeteWith, offer *model.OfferChange, nonOwn []model.CompetitorOffer) *model.CompetitorOffer {
	switch mode {
	case model.CompeteLowestPrice:
		return cheapest(nonOwn, nil)
	case model.CompeteLowestFBAPrice:
		fba := model.FulfillmentAmazon
		return cheapest(nonOwn, &fba)
	case model.CompeteMatchBuybox:
		if offer.BuyBoxWinnerID == nil {
			return nil
		}
		for i := range nonOwn {
			if nonOwn[i].SellerID == *offer.BuyBoxWinnerID {
				return &nonOwn[i]
			}
		}
		return nil
	default:
		return nil
	}
}

func cheapest(offers []model.CompetitorOffer, channel *model.FulfillmentChannel) *model.CompetitorOffer {
	var best *model.CompetitorOffer
	var bestPrice decimal.Decimal
	for i := range offers {
		o := &offers[i]
		if channel != nil && o.FulfillmentChannel != *channel {
			continue
		}
		price := o.EffectivePrice()
		if best == nil || price.LessThan(bestPrice) {
			best = o
			bestPrice = price
		}
	}
	return best
}

// computeRaw derives the unclamped candidate price for the chosen strategy.
func computeRaw(strategyUsed model.StrategyUsed, strategy *model.Strategy, listing *model.ProductListing, competitor *model.CompetitorOffer, listed decimal.Decimal) (decimal.Decimal, error) {
	switch strategyUsed {
	case model.StrategyChaseBuyBox, model.StrategyMaximiseProfit:
		if competitor == nil {
			return decimal.Decimal{}, skip("no_valid_competitor")
		}
		competitorPrice := competitor.EffectivePrice()
		if strategyUsed == model.StrategyMaximiseProfit {
			if !competitorPrice.GreaterThan(listed) {
				return decimal.Decimal{}, skip("already_cheaper")
			}
			return competitorPrice, nil
		}
		return competitorPrice.Add(strategy.BeatBy), nil
	case model.StrategyOnlySeller:
		if listing.DefaultPrice != nil {
			return *listing.DefaultPrice, nil
		}
		if listing.MinPrice != nil && listing.MaxPrice != nil {
			return listing.MinPrice.Add(*listing.MaxPrice).Div(decimal.NewFromInt(2)), nil
		}
		return decimal.Decimal{}, skip("no_default")
	default:
		return decimal.Decimal{}, skip("unknown_strategy")
	}
}

// clampToBounds enforces the listing's min/max price rules on raw.
func clampToBounds(raw decimal.Decimal, min, max, def, competitorPrice *decimal.Decimal, minRule, maxRule model.BoundsRule) (decimal.Decimal, error) {
	final := raw

	if min != nil && raw.LessThan(*min) {
		v, err := applyBoundsRule(minRule, min, max, def, competitorPrice, "below_min_no_action")
		if err != nil {
			return decimal.Decimal{}, err
		}
		final = v
	} else if max != nil && raw.GreaterThan(*max) {
		v, err := applyBoundsRule(maxRule, min, max, def, competitorPrice, "above_max_no_action")
		if err != nil {
			return decimal.Decimal{}, err
		}
		final = v
	}

	final = round2(final)

	if min != nil && final.LessThan(*min) {
		return decimal.Decimal{}, skip("bounds_violation")
	}
	if max != nil && final.GreaterThan(*max) {
		return decimal.Decimal{}, skip("bounds_violation")
	}
	return final, nil
}

func applyBoundsRule(rule model.BoundsRule, min, max, def, competitorPrice *decimal.Decimal, doNothingReason string) (decimal.Decimal, error) {
	switch rule {
	case model.RuleJumpToMin:
		if min == nil {
			return decimal.Decimal{}, skip("bounds_violation")
		}
		return *min, nil
	case model.RuleJumpToMax:
		if max == nil {
			return decimal.Decimal{}, skip("bounds_violation")
		}
		return *max, nil
	case model.RuleJumpToAvg:
		if min == nil || max == nil {
			return decimal.Decimal{}, skip("bounds_violation")
		}
		return min.Add(*max).Div(decimal.NewFromInt(2)), nil
	case model.RuleDefaultPrice:
		if def == nil {
			return decimal.Decimal{}, skip("bounds_violation")
		}
		return *def, nil
	case model.RuleMatchCompetitor:
		if competitorPrice == nil {
			return decimal.Decimal{}, skip("bounds_violation")
		}
		return *competitorPrice, nil
	case model.RuleDoNothing:
		return decimal.Decimal{}, skip(doNothingReason)
	default:
		return decimal.Decimal{}, skip("bounds_violation")
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(twoDP)
}
