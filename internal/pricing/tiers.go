package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/northfield/repricer/internal/domain/model"
)

// calculateTiers prices each B2B tier independently against a competitor
// tier selected by b2b_compete_for, with a per-tier failure isolated from
// the rest (original_source/src/strategies/base_strategy.py's
// apply_b2b_tier_pricing applies the same isolation). competitorTiers is
// the merged tier table of the offer's non-own sellers, already resolved
// by the caller.
func calculateTiers(listing *model.ProductListing, strategy *model.Strategy, competitorTiers []model.Tier) []model.TierPrice {
	out := make([]model.TierPrice, 0, len(listing.B2BTiers))
	for _, tier := range listing.B2BTiers {
		out = append(out, calculateOneTier(tier, listing, strategy, competitorTiers))
	}
	return out
}

func calculateOneTier(tier model.Tier, listing *model.ProductListing, strategy *model.Strategy, competitorTiers []model.Tier) model.TierPrice {
	result := model.TierPrice{
		MinQuantity: tier.MinQuantity,
		OldPrice:    tier.Price,
	}

	competitorTier, ok := selectCompetitorTier(strategy, competitorTiers, tier.MinQuantity)
	if !ok {
		result.Skipped = true
		result.SkipReason = "no_valid_competitor"
		result.NewPrice = tier.Price
		return result
	}
	result.CompetitorPrice = &competitorTier.Price

	var raw decimal.Decimal
	if strategy.B2BPriceRule != nil && *strategy.B2BPriceRule == model.B2BRuleBeatBy {
		raw = competitorTier.Price.Add(strategy.BeatBy)
	} else {
		raw = tier.Price.Add(competitorTier.Price).Div(decimal.NewFromInt(2))
	}
	raw = round2(raw)

	min, max, def := tier.MinPrice, tier.MaxPrice, tier.DefaultPrice
	if min == nil {
		min = listing.MinPrice
	}
	if max == nil {
		max = listing.MaxPrice
	}
	if def == nil {
		def = listing.DefaultPrice
	}

	final, err := clampToBounds(raw, min, max, def, result.CompetitorPrice, strategy.MinPriceRule, strategy.MaxPriceRule)
	if err != nil {
		result.Skipped = true
		if se, ok := err.(*SkipError); ok {
			result.SkipReason = se.Reason
		} else {
			result.SkipReason = "bounds_violation"
		}
		result.NewPrice = tier.Price
		return result
	}

	result.NewPrice = final
	result.PriceChanged = !round2(final).Equal(round2(tier.Price))
	return result
}

func selectCompetitorTier(strategy *model.Strategy, tiers []model.Tier, ourMinQuantity int) (model.Tier, bool) {
	if len(tiers) == 0 {
		return model.Tier{}, false
	}
	if strategy.B2BCompeteFor != nil && *strategy.B2BCompeteFor == model.B2BCompeteHigh {
		return model.TierForQuantityHigh(tiers, ourMinQuantity)
	}
	return model.TierForQuantityLow(tiers, ourMinQuantity)
}
