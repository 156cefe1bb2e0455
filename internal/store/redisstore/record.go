package redisstore

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/northfield/repricer/internal/domain/model"
)

// listingRecord is the JSON shape stored in each ASIN_<asin> hash field,
// mirroring original_source/src/services/redis_service.py's per-seller
// listing blob.
type listingRecord struct {
	ASIN        string `json:"asin"`
	SellerID    string `json:"seller_id"`
	SKU         string `json:"sku"`
	Marketplace string `json:"marketplace"`

	ListedPrice  *string `json:"listed_price,omitempty"`
	MinPrice     *string `json:"min_price,omitempty"`
	MaxPrice     *string `json:"max_price,omitempty"`
	DefaultPrice *string `json:"default_price,omitempty"`

	StrategyID string `json:"strategy_id"`

	ItemCondition      string `json:"item_condition"`
	FulfillmentChannel string `json:"fulfillment_channel"`
	Status             string `json:"status"`
	Quantity           int    `json:"quantity"`

	IsB2B           bool        `json:"is_b2b"`
	B2BTiers        []tierBlob  `json:"b2b_tiers,omitempty"`
	RepricingPaused bool        `json:"repricing_paused"`
}

type tierBlob struct {
	MinQuantity  int     `json:"min_quantity"`
	Price        string  `json:"price"`
	MinPrice     *string `json:"min_price,omitempty"`
	MaxPrice     *string `json:"max_price,omitempty"`
	DefaultPrice *string `json:"default_price,omitempty"`
}

func decPtr(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", *s, err)
	}
	return &d, nil
}

func strPtr(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func (r listingRecord) toModel() (*model.ProductListing, error) {
	listed, err := decPtr(r.ListedPrice)
	if err != nil {
		return nil, err
	}
	minP, err := decPtr(r.MinPrice)
	if err != nil {
		return nil, err
	}
	maxP, err := decPtr(r.MaxPrice)
	if err != nil {
		return nil, err
	}
	def, err := decPtr(r.DefaultPrice)
	if err != nil {
		return nil, err
	}

	tiers := make([]model.Tier, 0, len(r.B2BTiers))
	for _, tb := range r.B2BTiers {
		price, err := decimal.NewFromString(tb.Price)
		if err != nil {
			return nil, fmt.Errorf("parse tier price %q: %w", tb.Price, err)
		}
		tMin, err := decPtr(tb.MinPrice)
		if err != nil {
			return nil, err
		}
		tMax, err := decPtr(tb.MaxPrice)
		if err != nil {
			return nil, err
		}
		tDef, err := decPtr(tb.DefaultPrice)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, model.Tier{
			MinQuantity:  tb.MinQuantity,
			Price:        price,
			MinPrice:     tMin,
			MaxPrice:     tMax,
			DefaultPrice: tDef,
		})
	}
	model.SortTiers(tiers)

	listing := &model.ProductListing{
		ASIN:               r.ASIN,
		SellerID:           r.SellerID,
		SKU:                r.SKU,
		Marketplace:        r.Marketplace,
		ListedPrice:        listed,
		MinPrice:           minP,
		MaxPrice:           maxP,
		DefaultPrice:       def,
		StrategyID:         r.StrategyID,
		ItemCondition:      r.ItemCondition,
		FulfillmentChannel: model.FulfillmentChannel(r.FulfillmentChannel),
		Status:             model.ListingStatus(r.Status),
		Quantity:           r.Quantity,
		IsB2B:              r.IsB2B,
		B2BTiers:           tiers,
		RepricingPaused:    r.RepricingPaused,
	}
	if err := listing.Validate(); err != nil {
		return nil, err
	}
	return listing, nil
}

// strategyRecord is the flat-scalar shape stored in each strategy.<id> hash,
// read back via HGETALL (original_source's StrategyManager.get_strategy).
type strategyRecord struct {
	CompeteWith   string
	BeatBy        string
	MinPriceRule  string
	MaxPriceRule  string
	B2BCompeteFor string
	B2BPriceRule  string
}

func strategyFromHash(h map[string]string) (*model.Strategy, error) {
	beatBy, err := decimal.NewFromString(h["beat_by"])
	if err != nil {
		return nil, fmt.Errorf("parse beat_by %q: %w", h["beat_by"], err)
	}
	s := &model.Strategy{
		CompeteWith:  model.CompeteWith(h["compete_with"]),
		BeatBy:       beatBy,
		MinPriceRule: model.BoundsRule(h["min_price_rule"]),
		MaxPriceRule: model.BoundsRule(h["max_price_rule"]),
	}
	if v, ok := h["b2b_compete_for"]; ok && v != "" {
		cf := model.B2BCompeteFor(v)
		s.B2BCompeteFor = &cf
	}
	if v, ok := h["b2b_price_rule"]; ok && v != "" {
		pr := model.B2BPriceRule(v)
		s.B2BPriceRule = &pr
	}
	return s, nil
}

func strategyToHash(s *model.Strategy) map[string]string {
	h := map[string]string{
		"compete_with":   string(s.CompeteWith),
		"beat_by":        s.BeatBy.String(),
		"min_price_rule": string(s.MinPriceRule),
		"max_price_rule": string(s.MaxPriceRule),
	}
	if s.B2BCompeteFor != nil {
		h["b2b_compete_for"] = string(*s.B2BCompeteFor)
	}
	if s.B2BPriceRule != nil {
		h["b2b_price_rule"] = string(*s.B2BPriceRule)
	}
	return h
}

// calculatedPriceRecord is the JSON shape stored in each
// CALCULATED_PRICES:<seller_id> hash field, mirroring
// original_source's RepricingEngine.save_price_if_changed payload.
type calculatedPriceRecord struct {
	SellerID string `json:"seller_id"`
	SKU      string `json:"sku"`
	ASIN     string `json:"asin"`

	NewPrice        string  `json:"new_price"`
	OldPrice        string  `json:"old_price"`
	StrategyUsed    string  `json:"strategy_used"`
	StrategyID      string  `json:"strategy_id"`
	CompetitorPrice *string `json:"competitor_price,omitempty"`

	CalculatedAt string `json:"calculated_at"`
	PriceChanged bool   `json:"price_changed"`

	Tiers []tierPriceBlob `json:"tiers,omitempty"`

	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

type tierPriceBlob struct {
	MinQuantity     int     `json:"min_quantity"`
	NewPrice        string  `json:"new_price"`
	OldPrice        string  `json:"old_price"`
	CompetitorPrice *string `json:"competitor_price,omitempty"`
	PriceChanged    bool    `json:"price_changed"`
	Skipped         bool    `json:"skipped"`
	SkipReason      string  `json:"skip_reason,omitempty"`
}

func calculatedPriceToRecord(sellerID, sku string, p model.CalculatedPrice) calculatedPriceRecord {
	tiers := make([]tierPriceBlob, 0, len(p.Tiers))
	for _, t := range p.Tiers {
		tiers = append(tiers, tierPriceBlob{
			MinQuantity:     t.MinQuantity,
			NewPrice:        t.NewPrice.String(),
			OldPrice:        t.OldPrice.String(),
			CompetitorPrice: strPtr(t.CompetitorPrice),
			PriceChanged:    t.PriceChanged,
			Skipped:         t.Skipped,
			SkipReason:      t.SkipReason,
		})
	}
	return calculatedPriceRecord{
		SellerID:         sellerID,
		SKU:              sku,
		ASIN:             p.ASIN,
		NewPrice:         p.NewPrice.String(),
		OldPrice:         p.OldPrice.String(),
		StrategyUsed:     string(p.StrategyUsed),
		StrategyID:       p.StrategyID,
		CompetitorPrice:  strPtr(p.CompetitorPrice),
		CalculatedAt:     p.CalculatedAt.UTC().Format(time.RFC3339Nano),
		PriceChanged:     p.PriceChanged,
		Tiers:            tiers,
		ProcessingTimeMS: p.ProcessingTimeMS,
	}
}

func (r calculatedPriceRecord) toModel() (*model.CalculatedPrice, error) {
	newPrice, err := decimal.NewFromString(r.NewPrice)
	if err != nil {
		return nil, fmt.Errorf("parse new_price %q: %w", r.NewPrice, err)
	}
	oldPrice, err := decimal.NewFromString(r.OldPrice)
	if err != nil {
		return nil, fmt.Errorf("parse old_price %q: %w", r.OldPrice, err)
	}
	competitorPrice, err := decPtr(r.CompetitorPrice)
	if err != nil {
		return nil, err
	}
	calculatedAt, err := time.Parse(time.RFC3339Nano, r.CalculatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse calculated_at %q: %w", r.CalculatedAt, err)
	}

	tiers := make([]model.TierPrice, 0, len(r.Tiers))
	for _, t := range r.Tiers {
		tNew, err := decimal.NewFromString(t.NewPrice)
		if err != nil {
			return nil, fmt.Errorf("parse tier new_price %q: %w", t.NewPrice, err)
		}
		tOld, err := decimal.NewFromString(t.OldPrice)
		if err != nil {
			return nil, fmt.Errorf("parse tier old_price %q: %w", t.OldPrice, err)
		}
		tCompetitor, err := decPtr(t.CompetitorPrice)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, model.TierPrice{
			MinQuantity:     t.MinQuantity,
			NewPrice:        tNew,
			OldPrice:        tOld,
			CompetitorPrice: tCompetitor,
			PriceChanged:    t.PriceChanged,
			Skipped:         t.Skipped,
			SkipReason:      t.SkipReason,
		})
	}

	return &model.CalculatedPrice{
		SellerID:         r.SellerID,
		SKU:              r.SKU,
		ASIN:             r.ASIN,
		NewPrice:         newPrice,
		OldPrice:         oldPrice,
		StrategyUsed:     model.StrategyUsed(r.StrategyUsed),
		StrategyID:       r.StrategyID,
		CompetitorPrice:  competitorPrice,
		CalculatedAt:     calculatedAt,
		PriceChanged:     r.PriceChanged,
		Tiers:            tiers,
		ProcessingTimeMS: r.ProcessingTimeMS,
	}, nil
}

func fieldKey(sellerID, sku string) string {
	return sellerID + ":" + sku
}

func asinKey(asin string) string {
	return "ASIN_" + asin
}

func strategyKey(strategyID string) string {
	return "strategy." + strategyID
}

func calculatedPricesKey(sellerID string) string {
	return "CALCULATED_PRICES:" + sellerID
}
