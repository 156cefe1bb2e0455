package model

import "github.com/shopspring/decimal"

// CompeteWith selects which competing offer a strategy targets.
type CompeteWith string

const (
	CompeteLowestPrice    CompeteWith = "LOWEST_PRICE"
	CompeteLowestFBAPrice CompeteWith = "LOWEST_FBA_PRICE"
	CompeteMatchBuybox    CompeteWith = "MATCH_BUYBOX"
)

// BoundsRule governs what happens when a raw price falls outside
// [min_price, max_price].
type BoundsRule string

const (
	RuleJumpToMin       BoundsRule = "JUMP_TO_MIN"
	RuleJumpToMax       BoundsRule = "JUMP_TO_MAX"
	RuleJumpToAvg       BoundsRule = "JUMP_TO_AVG"
	RuleDoNothing       BoundsRule = "DO_NOTHING"
	RuleDefaultPrice    BoundsRule = "DEFAULT_PRICE"
	RuleMatchCompetitor BoundsRule = "MATCH_COMPETITOR"
)

// B2BCompeteFor selects which competitor tier a B2B comparison targets.
type B2BCompeteFor string

const (
	B2BCompeteLow  B2BCompeteFor = "LOW"
	B2BCompeteHigh B2BCompeteFor = "HIGH"
)

// B2BPriceRule governs how a B2B tier price is derived from the chosen
// competitor tier.
type B2BPriceRule string

const (
	B2BRuleAverage B2BPriceRule = "AVERAGE"
	B2BRuleBeatBy  B2BPriceRule = "BEAT_BY"
)

// Strategy is the seller-configured pricing policy, keyed by StrategyID
// and stored under the strategy.<id> hash (see internal/store).
type Strategy struct {
	ID string

	CompeteWith CompeteWith
	BeatBy      decimal.Decimal

	MinPriceRule BoundsRule
	MaxPriceRule BoundsRule

	B2BCompeteFor *B2BCompeteFor
	B2BPriceRule  *B2BPriceRule
}
