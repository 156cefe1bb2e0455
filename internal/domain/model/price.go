package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RepricingDecision is the output of the decision engine (C4). Beyond the
// should_reprice/reason pair, it retains enough context
// (asin/seller/sku/strategy/current state) for the orchestrator to log one
// structured record per event without re-deriving it — carried over from
// original_source/src/services/repricing_engine.py's RepricingDecision.
type RepricingDecision struct {
	ShouldReprice bool
	Reason        string

	ASIN       string
	SellerID   string
	SKU        string
	StrategyID string

	CurrentPrice   *decimal.Decimal
	StockQuantity  int

	Offer *OfferChange
}

// StrategyUsed names the concrete strategy variant C5 applied.
type StrategyUsed string

const (
	StrategyChaseBuyBox    StrategyUsed = "ChaseBuyBox"
	StrategyMaximiseProfit StrategyUsed = "MaximiseProfit"
	StrategyOnlySeller     StrategyUsed = "OnlySeller"
)

// TierPrice is a per-tier pricing result, computed independently of the
// standard CalculatedPrice: tiers and the standard price never share an
// outcome, so one tier's failure never blocks another's.
type TierPrice struct {
	MinQuantity      int
	NewPrice         decimal.Decimal
	OldPrice         decimal.Decimal
	CompetitorPrice  *decimal.Decimal
	PriceChanged     bool
	Skipped          bool
	SkipReason       string
}

// CalculatedPrice is the C5 output, persisted via C6 under
// CALCULATED_PRICES:<seller_id>.
type CalculatedPrice struct {
	SellerID string
	SKU      string
	ASIN     string

	NewPrice        decimal.Decimal
	OldPrice        decimal.Decimal
	StrategyUsed    StrategyUsed
	StrategyID      string
	CompetitorPrice *decimal.Decimal

	CalculatedAt time.Time
	PriceChanged bool

	Tiers []TierPrice

	ProcessingTimeMS float64
}
