package decision_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/northfield/repricer/internal/decision"
	"github.com/northfield/repricer/internal/domain/model"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func baseListing() *model.ProductListing {
	min := dec("10.00")
	max := dec("50.00")
	listed := dec("25.00")
	return &model.ProductListing{
		ASIN:       "B000TEST01",
		SellerID:   "SELLER1",
		SKU:        "SKU-1",
		StrategyID: "strat-1",
		ListedPrice: &listed,
		MinPrice:   &min,
		MaxPrice:   &max,
		Status:     model.StatusActive,
		Quantity:   5,
	}
}

func baseStrategy() *model.Strategy {
	return &model.Strategy{
		ID:           "strat-1",
		CompeteWith:  model.CompeteLowestPrice,
		MinPriceRule: model.RuleJumpToMin,
		MaxPriceRule: model.RuleJumpToMax,
	}
}

func baseOffer(sellerID string) *model.OfferChange {
	return &model.OfferChange{
		ASIN:        "B000TEST01",
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("25.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00")},
		},
		BuyBoxWinnerID: &sellerID,
	}
}

func TestEvaluateProductNotFound(t *testing.T) {
	got := decision.Evaluate(false, nil, nil, baseOffer("COMPETITOR1"))
	assert.False(t, got.ShouldReprice)
	assert.Equal(t, decision.ReasonProductNotFound, got.Reason)
}

func TestEvaluateInactive(t *testing.T) {
	listing := baseListing()
	listing.Status = model.StatusInactive
	got := decision.Evaluate(true, listing, baseStrategy(), baseOffer("COMPETITOR1"))
	assert.Equal(t, decision.ReasonInactive, got.Reason)
}

func TestEvaluatePaused(t *testing.T) {
	listing := baseListing()
	listing.RepricingPaused = true
	got := decision.Evaluate(true, listing, baseStrategy(), baseOffer("COMPETITOR1"))
	assert.Equal(t, decision.ReasonPaused, got.Reason)
}

func TestEvaluateOutOfStock(t *testing.T) {
	listing := baseListing()
	listing.Quantity = 0
	got := decision.Evaluate(true, listing, baseStrategy(), baseOffer("COMPETITOR1"))
	assert.Equal(t, decision.ReasonOutOfStock, got.Reason)
}

func TestEvaluateStrategyMissing(t *testing.T) {
	listing := baseListing()
	got := decision.Evaluate(true, listing, nil, baseOffer("COMPETITOR1"))
	assert.Equal(t, decision.ReasonStrategyMissing, got.Reason)
}

func TestEvaluateNoPriceRoom(t *testing.T) {
	listing := baseListing()
	same := dec("20.00")
	listing.MinPrice = &same
	listing.MaxPrice = &same
	got := decision.Evaluate(true, listing, baseStrategy(), baseOffer("COMPETITOR1"))
	assert.Equal(t, decision.ReasonNoPriceRoom, got.Reason)
}

func TestEvaluateSelfCompetingBuybox(t *testing.T) {
	listing := baseListing()
	got := decision.Evaluate(true, listing, baseStrategy(), baseOffer("SELLER1"))
	assert.Equal(t, decision.ReasonSelfCompetingBuybox, got.Reason)
}

func TestEvaluateAllowsSingleVisibleOfferThroughToOnlySeller(t *testing.T) {
	listing := baseListing()
	offer := &model.OfferChange{
		ASIN:             "B000TEST01",
		OurSellerID:      "SELLER1",
		TotalOffers:      1,
		CompetitorOffers: []model.CompetitorOffer{{SellerID: "SELLER1", ListingPrice: dec("25.00")}},
	}
	got := decision.Evaluate(true, listing, baseStrategy(), offer)
	assert.True(t, got.ShouldReprice)
	assert.Equal(t, decision.ReasonOK, got.Reason)
}

func TestEvaluateSoleSellerTrivialWithHiddenCompetitors(t *testing.T) {
	listing := baseListing()
	offer := &model.OfferChange{
		ASIN:             "B000TEST01",
		OurSellerID:      "SELLER1",
		TotalOffers:      3,
		CompetitorOffers: []model.CompetitorOffer{{SellerID: "SELLER1", ListingPrice: dec("25.00")}},
	}
	got := decision.Evaluate(true, listing, baseStrategy(), offer)
	assert.Equal(t, decision.ReasonSoleSellerTrivial, got.Reason)
}

func TestEvaluateOK(t *testing.T) {
	got := decision.Evaluate(true, baseListing(), baseStrategy(), baseOffer("COMPETITOR1"))
	assert.True(t, got.ShouldReprice)
	assert.Equal(t, decision.ReasonOK, got.Reason)
}

func TestEvaluateSelfCompetingLowest(t *testing.T) {
	listing := baseListing()
	strategy := baseStrategy()
	strategy.CompeteWith = model.CompeteLowestPrice
	offer := &model.OfferChange{
		ASIN:        "B000TEST01",
		OurSellerID: "SELLER1",
		TotalOffers: 2,
		CompetitorOffers: []model.CompetitorOffer{
			{SellerID: "SELLER1", ListingPrice: dec("19.00")},
			{SellerID: "COMPETITOR1", ListingPrice: dec("22.00")},
		},
	}
	got := decision.Evaluate(true, listing, strategy, offer)
	assert.Equal(t, decision.ReasonSelfCompetingLowest, got.Reason)
}
