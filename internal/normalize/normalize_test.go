package normalize_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/normalize"
)

type stubResolver struct {
	sellerID string
	sku      string
	found    bool
	err      error
}

func (s stubResolver) ResolveOwner(ctx context.Context, asin string, candidates []string) (string, string, bool, error) {
	return s.sellerID, s.sku, s.found, s.err
}

func TestNormalizeAMarketplacePayload(t *testing.T) {
	payload := []byte(`{
		"NotificationType": "ANY_OFFER_CHANGED",
		"Payload": {
			"OfferChangeTrigger": {
				"MarketplaceId": "ATVPDKIKX0DER",
				"ASIN": "B000TEST01",
				"ItemCondition": "New",
				"TimeOfOfferChange": "2026-08-01T12:00:00.000Z"
			},
			"Summary": {
				"NumberOfOffers": [
					{"Condition": "new", "FulfillmentChannel": "Amazon", "OfferCount": 1},
					{"Condition": "new", "FulfillmentChannel": "Merchant", "OfferCount": 2}
				],
				"LowestPrices": [
					{"Condition": "new", "FulfillmentChannel": "AMAZON", "LandedPrice": {"Amount": 23.50, "CurrencyCode": "USD"}, "ListingPrice": {"Amount": 22.00, "CurrencyCode": "USD"}}
				],
				"BuyBoxPrices": [
					{"Condition": "New", "LandedPrice": {"Amount": 23.50, "CurrencyCode": "USD"}}
				]
			},
			"Offers": [
				{"SellerId": "SELLER1", "SubCondition": "new", "ListingPrice": {"Amount": 25.00, "CurrencyCode": "USD"}, "IsBuyBoxWinner": false, "FulfillmentChannel": "MERCHANT"},
				{"SellerId": "COMPETITOR1", "SubCondition": "new", "ListingPrice": {"Amount": 22.00, "CurrencyCode": "USD"}, "LandedPrice": {"Amount": 23.50, "CurrencyCode": "USD"}, "IsBuyBoxWinner": true, "FulfillmentChannel": "AMAZON"}
			]
		}
	}`)

	n := normalize.New([]string{"SELLER1"}, stubResolver{sellerID: "SELLER1", sku: "SKU-1", found: true})
	got, err := n.Normalize(context.Background(), model.SourceMarketplaceA, payload)
	require.NoError(t, err)
	assert.Equal(t, "B000TEST01", got.ASIN)
	assert.Equal(t, "ATVPDKIKX0DER", got.Marketplace)
	assert.Equal(t, "New", got.ItemCondition)
	assert.Equal(t, "SELLER1", got.OurSellerID)
	assert.Equal(t, "SKU-1", got.SKU)
	require.NotNil(t, got.BuyBoxWinnerID)
	assert.Equal(t, "COMPETITOR1", *got.BuyBoxWinnerID)
	assert.Equal(t, 3, got.TotalOffers, "summary counts win over offers length")
	require.Len(t, got.CompetitorOffers, 2)
	require.NotNil(t, got.CompetitorOffers[1].LandedPrice)
	assert.Equal(t, "23.5", got.CompetitorOffers[1].LandedPrice.String())
	require.NotNil(t, got.BuyBoxPrice)
	assert.Equal(t, "23.5", got.BuyBoxPrice.String())
	lowest, ok := got.LowestPricesByChannel[model.FulfillmentChannel("AMAZON")]
	require.True(t, ok)
	assert.Equal(t, "23.5", lowest.String(), "landed price preferred over listing price")
}

func TestNormalizeAWrongNotificationTypeDrops(t *testing.T) {
	payload := []byte(`{"NotificationType": "FEE_CHANGED", "Payload": {}}`)
	n := normalize.New([]string{"SELLER1"}, stubResolver{})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceA, payload)
	require.Error(t, err)
	assert.IsType(t, &normalize.DropError{}, err)
}

func TestNormalizeAUnknownOwnerDrops(t *testing.T) {
	payload := []byte(`{
		"NotificationType": "ANY_OFFER_CHANGED",
		"Payload": {
			"OfferChangeTrigger": {"ASIN": "B000TEST01", "ItemCondition": "New"},
			"Offers": [{"SellerId": "COMPETITOR1", "ListingPrice": {"Amount": 22.00}}]
		}
	}`)
	n := normalize.New([]string{"SELLER1"}, stubResolver{found: false})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceA, payload)
	require.Error(t, err)
	dropErr, ok := err.(*normalize.DropError)
	require.True(t, ok)
	assert.Equal(t, "unknown owner", dropErr.Reason)
}

func TestNormalizeAMissingASINDrops(t *testing.T) {
	payload := []byte(`{
		"NotificationType": "ANY_OFFER_CHANGED",
		"Payload": {"Offers": [{"SellerId": "COMPETITOR1", "ListingPrice": {"Amount": 22.00}}]}
	}`)
	n := normalize.New([]string{"SELLER1"}, stubResolver{})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceA, payload)
	require.Error(t, err)
	assert.IsType(t, &normalize.DropError{}, err)
}

func TestNormalizeAEmptyOffersDrops(t *testing.T) {
	payload := []byte(`{
		"NotificationType": "ANY_OFFER_CHANGED",
		"Payload": {"OfferChangeTrigger": {"ASIN": "B000TEST01"}, "Offers": []}
	}`)
	n := normalize.New([]string{"SELLER1"}, stubResolver{})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceA, payload)
	require.Error(t, err)
	assert.IsType(t, &normalize.DropError{}, err)
}

func TestNormalizeAMalformedJSONDrops(t *testing.T) {
	n := normalize.New(nil, stubResolver{})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceA, []byte("{not json"))
	require.Error(t, err)
	assert.IsType(t, &normalize.DropError{}, err)
}

func TestNormalizeBMarketplacePayload(t *testing.T) {
	payload := []byte(`{
		"eventType": "buybox_changed",
		"itemId": "B000TEST01",
		"sellerId": "SELLER1",
		"timestamp": "2026-08-01T12:00:00Z",
		"currentBuyboxPrice": 22.00,
		"currentBuyboxWinner": "COMPETITOR1",
		"offers": [
			{"sellerId": "SELLER1", "price": 25.00, "condition": "New"},
			{"sellerId": "COMPETITOR1", "price": 22.00, "condition": "New"}
		]
	}`)

	n := normalize.New(nil, stubResolver{sellerID: "SELLER1", sku: "SKU-1", found: true})
	got, err := n.Normalize(context.Background(), model.SourceMarketplaceB, payload)
	require.NoError(t, err)
	assert.Equal(t, "B000TEST01", got.ASIN)
	assert.Equal(t, "SELLER1", got.OurSellerID)
	assert.Equal(t, "SKU-1", got.SKU)
	require.NotNil(t, got.BuyBoxWinnerID)
	assert.Equal(t, "COMPETITOR1", *got.BuyBoxWinnerID)
	require.NotNil(t, got.BuyBoxPrice)
	assert.Equal(t, "22", got.BuyBoxPrice.String())
	require.Len(t, got.CompetitorOffers, 2)
	assert.True(t, got.CompetitorOffers[1].IsBuyBoxWinner)
	assert.False(t, got.CompetitorOffers[0].IsBuyBoxWinner)
}

func TestNormalizeBWrongEventTypeDrops(t *testing.T) {
	payload := []byte(`{"eventType": "price_changed", "itemId": "B000TEST01", "sellerId": "SELLER1", "offers": [{"sellerId": "X", "price": 1}]}`)
	n := normalize.New(nil, stubResolver{found: true})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceB, payload)
	require.Error(t, err)
	assert.IsType(t, &normalize.DropError{}, err)
}

func TestNormalizeBUnknownListingDrops(t *testing.T) {
	payload := []byte(`{"eventType": "buybox_changed", "itemId": "B000TEST01", "sellerId": "SELLER1", "offers": [{"sellerId": "X", "price": 1}]}`)
	n := normalize.New(nil, stubResolver{found: false})
	_, err := n.Normalize(context.Background(), model.SourceMarketplaceB, payload)
	require.Error(t, err)
	dropErr, ok := err.(*normalize.DropError)
	require.True(t, ok)
	assert.Equal(t, "unknown owner", dropErr.Reason)
}
