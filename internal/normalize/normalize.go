// Package normalize implements the message normalizer (C2): it turns
// marketplace-specific wire payloads into the canonical model.OfferChange,
// grounded on _examples/original_source/src/services/sqs_consumer.py's
// ANY_OFFER_CHANGED handling and
// _examples/original_source/src/api/webhook_endpoints.py's buybox_changed
// handling.
package normalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/northfield/repricer/internal/domain/model"
)

const (
	notificationAnyOfferChanged = "ANY_OFFER_CHANGED"
	eventBuyboxChanged          = "buybox_changed"
)

// DropError reports a fail-fast condition (malformed JSON, missing asin,
// empty offers) or an unresolved owner. Both are acked, not retried.
type DropError struct {
	Reason string
}

func (e *DropError) Error() string { return "normalize drop: " + e.Reason }

func drop(reason string) error { return &DropError{Reason: reason} }

// OwnerResolver resolves which of our sellers owns a listing on an ASIN,
// and under which SKU (implemented by store.Gateway.ResolveOwner; kept as
// a narrow interface here so normalize doesn't import store).
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, asin string, candidateSellerIDs []string) (sellerID, sku string, found bool, err error)
}

// Normalizer turns raw marketplace payloads into OfferChange records.
type Normalizer struct {
	ownSellerIDs []string
	resolver     OwnerResolver
}

// New constructs a Normalizer. ownSellerIDs is the merchant's configured
// set of seller identifiers (config.SellersConfig.OwnSellerIDs).
func New(ownSellerIDs []string, resolver OwnerResolver) *Normalizer {
	return &Normalizer{ownSellerIDs: ownSellerIDs, resolver: resolver}
}

// Normalize dispatches to the source-specific parser and resolves
// our_seller_id and sku. It returns a *DropError for every
// malformed-payload or unresolved-owner condition that should be acked
// without retry.
func (n *Normalizer) Normalize(ctx context.Context, source model.Source, payload []byte) (*model.OfferChange, error) {
	switch source {
	case model.SourceMarketplaceA:
		return n.normalizeA(ctx, payload)
	case model.SourceMarketplaceB:
		return n.normalizeB(ctx, payload)
	default:
		return nil, drop(fmt.Sprintf("unknown source %q", source))
	}
}

// moneyWire is marketplace-A's {Amount, CurrencyCode} price shape.
type moneyWire struct {
	Amount       decimal.Decimal `json:"Amount"`
	CurrencyCode string          `json:"CurrencyCode"`
}

// marketplaceANotification mirrors the ANY_OFFER_CHANGED envelope the
// queue delivers: change trigger, per-(condition, channel) summary, and
// the offers list.
type marketplaceANotification struct {
	NotificationType string `json:"NotificationType"`
	Payload          struct {
		OfferChangeTrigger struct {
			MarketplaceID     string `json:"MarketplaceId"`
			ASIN              string `json:"ASIN"`
			ItemCondition     string `json:"ItemCondition"`
			TimeOfOfferChange string `json:"TimeOfOfferChange"`
		} `json:"OfferChangeTrigger"`
		Summary struct {
			NumberOfOffers []struct {
				Condition          string `json:"Condition"`
				FulfillmentChannel string `json:"FulfillmentChannel"`
				OfferCount         int    `json:"OfferCount"`
			} `json:"NumberOfOffers"`
			LowestPrices []struct {
				Condition          string     `json:"Condition"`
				FulfillmentChannel string     `json:"FulfillmentChannel"`
				ListingPrice       *moneyWire `json:"ListingPrice"`
				LandedPrice        *moneyWire `json:"LandedPrice"`
			} `json:"LowestPrices"`
			BuyBoxPrices []struct {
				Condition    string     `json:"Condition"`
				ListingPrice *moneyWire `json:"ListingPrice"`
				LandedPrice  *moneyWire `json:"LandedPrice"`
			} `json:"BuyBoxPrices"`
		} `json:"Summary"`
		Offers []struct {
			SellerID           string     `json:"SellerId"`
			SubCondition       string     `json:"SubCondition"`
			ListingPrice       moneyWire  `json:"ListingPrice"`
			LandedPrice        *moneyWire `json:"LandedPrice"`
			IsBuyBoxWinner     bool       `json:"IsBuyBoxWinner"`
			FulfillmentChannel string     `json:"FulfillmentChannel"`
		} `json:"Offers"`
	} `json:"Payload"`
}

func (n *Normalizer) normalizeA(ctx context.Context, payload []byte) (*model.OfferChange, error) {
	var wire marketplaceANotification
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, drop("malformed json: " + err.Error())
	}
	if wire.NotificationType != notificationAnyOfferChanged {
		return nil, drop(fmt.Sprintf("unexpected notification type %q", wire.NotificationType))
	}
	trigger := wire.Payload.OfferChangeTrigger
	if trigger.ASIN == "" {
		return nil, drop("missing asin")
	}
	if len(wire.Payload.Offers) == 0 {
		return nil, drop("empty offers list")
	}

	offer := &model.OfferChange{
		Source:        model.SourceMarketplaceA,
		ASIN:          trigger.ASIN,
		Marketplace:   trigger.MarketplaceID,
		ItemCondition: trigger.ItemCondition,
	}

	for _, w := range wire.Payload.Offers {
		o := model.CompetitorOffer{
			SellerID:           w.SellerID,
			ListingPrice:       w.ListingPrice.Amount,
			FulfillmentChannel: model.FulfillmentChannel(w.FulfillmentChannel),
			IsBuyBoxWinner:     w.IsBuyBoxWinner,
			SubCondition:       w.SubCondition,
		}
		if w.LandedPrice != nil {
			landed := w.LandedPrice.Amount
			o.LandedPrice = &landed
		}
		offer.CompetitorOffers = append(offer.CompetitorOffers, o)
		if o.IsBuyBoxWinner {
			winner := o.SellerID
			offer.BuyBoxWinnerID = &winner
		}
	}

	// total_offers sums per-(condition, channel) counts for the trigger's
	// condition when the summary carries them, else falls back to the
	// offers list length.
	offer.TotalOffers = len(offer.CompetitorOffers)
	summaryTotal := 0
	for _, nc := range wire.Payload.Summary.NumberOfOffers {
		if conditionMatches(nc.Condition, trigger.ItemCondition) {
			summaryTotal += nc.OfferCount
		}
	}
	if summaryTotal > 0 {
		offer.TotalOffers = summaryTotal
	}

	for _, lp := range wire.Payload.Summary.LowestPrices {
		if !conditionMatches(lp.Condition, trigger.ItemCondition) {
			continue
		}
		price, ok := preferLanded(lp.LandedPrice, lp.ListingPrice)
		if !ok {
			continue
		}
		if offer.LowestPricesByChannel == nil {
			offer.LowestPricesByChannel = make(map[model.FulfillmentChannel]decimal.Decimal)
		}
		offer.LowestPricesByChannel[model.FulfillmentChannel(lp.FulfillmentChannel)] = price
	}
	for _, bb := range wire.Payload.Summary.BuyBoxPrices {
		if !conditionMatches(bb.Condition, trigger.ItemCondition) {
			continue
		}
		if price, ok := preferLanded(bb.LandedPrice, bb.ListingPrice); ok {
			offer.BuyBoxPrice = &price
		}
	}

	ownerID, sku, found, err := n.resolver.ResolveOwner(ctx, trigger.ASIN, n.ownSellerIDs)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, drop("unknown owner")
	}
	offer.OurSellerID = ownerID
	offer.SKU = sku

	return offer, nil
}

// conditionMatches compares summary conditions case-insensitively: the
// trigger carries "New" while summary sections carry "new".
func conditionMatches(summaryCondition, triggerCondition string) bool {
	return summaryCondition == "" || strings.EqualFold(summaryCondition, triggerCondition)
}

func preferLanded(landed, listing *moneyWire) (decimal.Decimal, bool) {
	if landed != nil {
		return landed.Amount, true
	}
	if listing != nil {
		return listing.Amount, true
	}
	return decimal.Decimal{}, false
}

// marketplaceBEvent mirrors the webhook's buybox_changed notification.
type marketplaceBEvent struct {
	EventType           string           `json:"eventType"`
	ItemID              string           `json:"itemId"`
	SellerID            string           `json:"sellerId"`
	Timestamp           string           `json:"timestamp"`
	CurrentBuyboxPrice  *decimal.Decimal `json:"currentBuyboxPrice"`
	CurrentBuyboxWinner string           `json:"currentBuyboxWinner"`
	Offers              []struct {
		SellerID  string          `json:"sellerId"`
		Price     decimal.Decimal `json:"price"`
		Condition string          `json:"condition"`
	} `json:"offers"`
}

func (n *Normalizer) normalizeB(ctx context.Context, payload []byte) (*model.OfferChange, error) {
	var wire marketplaceBEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, drop("malformed json: " + err.Error())
	}
	if wire.EventType != eventBuyboxChanged {
		return nil, drop(fmt.Sprintf("unexpected event type %q", wire.EventType))
	}
	if wire.ItemID == "" {
		return nil, drop("missing asin")
	}
	if wire.SellerID == "" {
		return nil, drop("missing seller id")
	}
	if len(wire.Offers) == 0 {
		return nil, drop("empty offers list")
	}

	offer := &model.OfferChange{
		Source:      model.SourceMarketplaceB,
		ASIN:        wire.ItemID,
		OurSellerID: wire.SellerID,
	}

	for _, w := range wire.Offers {
		offer.CompetitorOffers = append(offer.CompetitorOffers, model.CompetitorOffer{
			SellerID:       w.SellerID,
			ListingPrice:   w.Price,
			SubCondition:   w.Condition,
			IsBuyBoxWinner: wire.CurrentBuyboxWinner != "" && w.SellerID == wire.CurrentBuyboxWinner,
		})
	}
	offer.TotalOffers = len(offer.CompetitorOffers)
	if wire.CurrentBuyboxWinner != "" {
		winner := wire.CurrentBuyboxWinner
		offer.BuyBoxWinnerID = &winner
	}
	offer.BuyBoxPrice = wire.CurrentBuyboxPrice

	// The webhook carries the seller but not the SKU; the listing lookup
	// needs both, so the SKU is resolved off listing ownership like
	// source A's owner is.
	_, sku, found, err := n.resolver.ResolveOwner(ctx, wire.ItemID, []string{wire.SellerID})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, drop("unknown owner")
	}
	offer.SKU = sku

	return offer, nil
}
