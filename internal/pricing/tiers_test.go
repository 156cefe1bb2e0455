package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/pricing"
)

func TestCalculateB2BTiersIndependentOfStandardPrice(t *testing.T) {
	beatBy := model.B2BRuleBeatBy
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("50.00"),
		IsB2B:       true,
		B2BTiers: []model.Tier{
			{MinQuantity: 5, Price: dec("24.00")},
			{MinQuantity: 10, Price: dec("22.00")},
		},
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		BeatBy:       dec("-0.10"),
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
		B2BPriceRule: &beatBy,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00")},
		},
	}
	competitorTiers := []model.Tier{
		{MinQuantity: 5, Price: dec("24.50")},
		{MinQuantity: 10, Price: dec("22.50")},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, competitorTiers)
	require.NoError(t, err)

	require.Len(t, got.Tiers, 2)
	assert.Equal(t, 5, got.Tiers[0].MinQuantity)
	assert.True(t, got.Tiers[0].NewPrice.Equal(dec("24.40")))
	assert.Equal(t, 10, got.Tiers[1].MinQuantity)
	assert.True(t, got.Tiers[1].NewPrice.Equal(dec("22.40")))

	// Standard (non-tier) price is still computed independently.
	assert.True(t, got.NewPrice.Equal(dec("21.90")))
}

func TestCalculateB2BTierFailureIsolatedFromOtherTiers(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("50.00"),
		IsB2B:       true,
		B2BTiers: []model.Tier{
			{MinQuantity: 5, Price: dec("24.00")},
			{MinQuantity: 20, Price: dec("18.00")},
		},
	}
	competeForHigh := model.B2BCompeteHigh
	strategy := &model.Strategy{
		ID:            "strat-1",
		CompeteWith:   model.CompeteLowestPrice,
		MinPriceRule:  model.RuleJumpToMin,
		MaxPriceRule:  model.RuleJumpToMax,
		B2BCompeteFor: &competeForHigh,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00")},
		},
	}
	// Only one competitor tier, covering our first tier's quantity (the
	// smallest competitor tier >= 5 is itself) but nothing >= 20 for the
	// second; the second tier must fail independently while the first
	// still resolves.
	competitorTiers := []model.Tier{
		{MinQuantity: 5, Price: dec("23.50")},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, competitorTiers)
	require.NoError(t, err)

	require.Len(t, got.Tiers, 2)
	assert.False(t, got.Tiers[0].Skipped)
	assert.True(t, got.Tiers[1].Skipped)
	assert.Equal(t, "no_valid_competitor", got.Tiers[1].SkipReason)
}
