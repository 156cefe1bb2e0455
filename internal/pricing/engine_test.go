package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/pricing"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func fixedClock() clock.Clock {
	return clock.Fixed{At: time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)}
}

func TestCalculateChaseBuyBox(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("50.00"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		BeatBy:       dec("-0.01"),
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00")},
		},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyChaseBuyBox, got.StrategyUsed)
	assert.True(t, got.NewPrice.Equal(dec("21.99")))
	assert.True(t, got.PriceChanged)
}

func TestCalculateMatchBuyboxUndercut(t *testing.T) {
	winner := "S2"
	listing := &model.ProductListing{
		SellerID:    "S1",
		SKU:         "K1",
		ASIN:        "X1",
		ListedPrice: decPtr("29.99"),
		MinPrice:    decPtr("20.00"),
		MaxPrice:    decPtr("50.00"),
	}
	strategy := &model.Strategy{
		ID:           "2",
		CompeteWith:  model.CompeteMatchBuybox,
		BeatBy:       dec("-0.01"),
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID:    "S1",
		TotalOffers:    2,
		BuyBoxWinnerID: &winner,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "S2", ListingPrice: dec("26.50"), IsBuyBoxWinner: true},
			{SellerID: "S3", ListingPrice: dec("27.00")},
		},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyChaseBuyBox, got.StrategyUsed)
	assert.True(t, got.NewPrice.Equal(dec("26.49")))
	assert.True(t, got.PriceChanged)
	require.NotNil(t, got.CompetitorPrice)
	assert.True(t, got.CompetitorPrice.Equal(dec("26.50")))
}

func TestCalculateOnlySellerMeanOfBounds(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("12.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("20.00"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID:      "SELLER1",
		TotalOffers:      1,
		CompetitorOffers: []model.CompetitorOffer{{SellerID: "SELLER1", ListingPrice: dec("12.00")}},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyOnlySeller, got.StrategyUsed)
	assert.True(t, got.NewPrice.Equal(dec("15.00")))
	assert.Nil(t, got.CompetitorPrice)
}

func TestCalculateNoFBACompetitorSkips(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("50.00"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestFBAPrice,
		BeatBy:       dec("-0.01"),
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00"), FulfillmentChannel: model.FulfillmentAmazon},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00"), FulfillmentChannel: model.FulfillmentMerchant},
		},
	}

	_, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.Error(t, err)
	se, ok := err.(*pricing.SkipError)
	require.True(t, ok)
	assert.Equal(t, "no_valid_competitor", se.Reason)
}

func TestCalculateOnlySellerNoCompetitors(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:     "SELLER1",
		SKU:          "SKU-1",
		ASIN:         "B000TEST01",
		ListedPrice:  decPtr("25.00"),
		MinPrice:     decPtr("10.00"),
		MaxPrice:     decPtr("50.00"),
		DefaultPrice: decPtr("29.99"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID:      "SELLER1",
		TotalOffers:      1,
		CompetitorOffers: []model.CompetitorOffer{{SellerID: "SELLER1", ListingPrice: dec("25.00")}},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StrategyOnlySeller, got.StrategyUsed)
	assert.True(t, got.NewPrice.Equal(dec("29.99")))
}

func TestCalculateClampsBelowMinWithJumpToMin(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("20.00"),
		MaxPrice:    decPtr("50.00"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		BeatBy:       dec("0"),
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("12.00")},
		},
	}

	got, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.NoError(t, err)
	assert.True(t, got.NewPrice.Equal(dec("20.00")))
}

func TestCalculateDoNothingSkips(t *testing.T) {
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("20.00"),
		MaxPrice:    decPtr("50.00"),
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		BeatBy:       dec("0"),
		MinPriceRule: model.RuleDoNothing,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("12.00")},
		},
	}

	_, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.Error(t, err)
	se, ok := err.(*pricing.SkipError)
	require.True(t, ok)
	assert.Equal(t, "below_min_no_action", se.Reason)
}

func TestCalculateMaximiseProfitAlreadyCheaperSkips(t *testing.T) {
	winner := "SELLER1"
	listing := &model.ProductListing{
		SellerID:    "SELLER1",
		SKU:         "SKU-1",
		ASIN:        "B000TEST01",
		ListedPrice: decPtr("25.00"),
		MinPrice:    decPtr("10.00"),
		MaxPrice:    decPtr("50.00"),
		IsB2B:       false,
	}
	strategy := &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
	offer := &model.OfferChange{
		OurSellerID:    "SELLER1",
		TotalOffers:    2,
		BuyBoxWinnerID: &winner,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("20.00")},
		},
	}

	_, err := pricing.Calculate(fixedClock(), listing, strategy, offer, nil)
	require.Error(t, err)
	se, ok := err.(*pricing.SkipError)
	require.True(t, ok)
	assert.Equal(t, "already_cheaper", se.Reason)
}
