// Package redisstore implements the C6 store gateway contract against
// Redis, grounded on _examples/Sezy0-apis-vhz-v2/internal/cache/redis.go's
// pooled-client, pipeline-first style.
package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/northfield/repricer/internal/errs"

	"github.com/northfield/repricer/internal/clock"
	"github.com/northfield/repricer/internal/config"
	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/store"
)

const component = "store"

var _ store.Gateway = (*Gateway)(nil)

// Gateway is the go-redis-backed implementation of store.Gateway.
type Gateway struct {
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
}

// New dials Redis with a pooled client sized per cfg and returns a ready
// Gateway. It does not block on connectivity; call Ping to verify.
func New(cfg config.StoreConfig, c clock.Clock) *Gateway {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	return &Gateway{
		client: client,
		clock:  c,
		ttl:    cfg.TTL,
	}
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return errs.New(component, errs.CodeNotFound, errs.WithCause(err))
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.New(component, errs.CodeTransient, errs.WithCause(err))
	}
	if strings.Contains(err.Error(), "connection") || strings.Contains(err.Error(), "i/o timeout") {
		return errs.New(component, errs.CodeTransient, errs.WithCause(err))
	}
	return errs.New(component, errs.CodeUnexpected, errs.WithCause(err))
}

// GetListing implements store.Gateway.
func (g *Gateway) GetListing(ctx context.Context, asin, sellerID, sku string) (*model.ProductListing, error) {
	raw, err := g.client.HGet(ctx, asinKey(asin), fieldKey(sellerID, sku)).Result()
	if err != nil {
		return nil, classify(err)
	}
	var rec listingRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("malformed listing record"), errs.WithCause(err),
			errs.WithField("asin", asin), errs.WithField("seller_id", sellerID), errs.WithField("sku", sku))
	}
	listing, err := rec.toModel()
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("malformed listing record"), errs.WithCause(err))
	}
	return listing, nil
}

// GetStrategy implements store.Gateway.
func (g *Gateway) GetStrategy(ctx context.Context, strategyID string) (*model.Strategy, error) {
	h, err := g.client.HGetAll(ctx, strategyKey(strategyID)).Result()
	if err != nil {
		return nil, classify(err)
	}
	if len(h) == 0 {
		return nil, errs.New(component, errs.CodeNotFound, errs.WithField("strategy_id", strategyID))
	}
	strategy, err := strategyFromHash(h)
	if err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("malformed strategy record"), errs.WithCause(err))
	}
	strategy.ID = strategyID
	return strategy, nil
}

// ResolveOwner implements store.Gateway. It mirrors
// original_source/src/services/redis_service.py's
// find_sku_for_asin_seller: HGETALL the ASIN hash and scan field names for
// a "<seller_id>:<sku>" prefix match against a candidate seller.
func (g *Gateway) ResolveOwner(ctx context.Context, asin string, candidateSellerIDs []string) (string, string, bool, error) {
	h, err := g.client.HGetAll(ctx, asinKey(asin)).Result()
	if err != nil {
		return "", "", false, classify(err)
	}
	candidates := make(map[string]struct{}, len(candidateSellerIDs))
	for _, s := range candidateSellerIDs {
		candidates[s] = struct{}{}
	}
	for field := range h {
		sellerID, sku, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		if _, want := candidates[sellerID]; want {
			return sellerID, sku, true, nil
		}
	}
	return "", "", false, nil
}

// GetCompetitorB2BTiers implements store.Gateway. It mirrors ResolveOwner's
// single HGETALL of the ASIN hash, then decodes every field that isn't the
// excluded seller's own and collects the B2B tier tables of whichever of
// those turn out to be B2B listings, matching how SetCompetitorInfo in
// original_source/src/tasks/set_competitor_info.py reads sibling sellers'
// tier prices off the same ASIN's offer data.
func (g *Gateway) GetCompetitorB2BTiers(ctx context.Context, asin, excludeSellerID string) ([]model.Tier, error) {
	h, err := g.client.HGetAll(ctx, asinKey(asin)).Result()
	if err != nil {
		return nil, classify(err)
	}
	var tiers []model.Tier
	for field, raw := range h {
		sellerID, _, ok := strings.Cut(field, ":")
		if !ok || sellerID == excludeSellerID {
			continue
		}
		var rec listingRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		listing, err := rec.toModel()
		if err != nil || !listing.IsB2B {
			continue
		}
		tiers = append(tiers, listing.B2BTiers...)
	}
	return tiers, nil
}

// PutCalculatedPrice implements store.Gateway: HSET the price blob then
// refresh the container key's TTL, matching save_price_if_changed's
// write-then-expire sequence.
func (g *Gateway) PutCalculatedPrice(ctx context.Context, sellerID, sku string, price model.CalculatedPrice) error {
	rec := calculatedPriceToRecord(sellerID, sku, price)
	raw, err := json.Marshal(rec)
	if err != nil {
		return errs.New(component, errs.CodeUnexpected, errs.WithMessage("encode calculated price"), errs.WithCause(err))
	}

	key := calculatedPricesKey(sellerID)
	pipe := g.client.TxPipeline()
	pipe.HSet(ctx, key, sku, raw)
	pipe.Expire(ctx, key, g.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// GetCalculatedPrice implements store.Gateway.
func (g *Gateway) GetCalculatedPrice(ctx context.Context, sellerID, sku string) (*model.CalculatedPrice, error) {
	raw, err := g.client.HGet(ctx, calculatedPricesKey(sellerID), sku).Result()
	if err != nil {
		return nil, classify(err)
	}
	var rec calculatedPriceRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errs.New(component, errs.CodeInvalid, errs.WithMessage("malformed calculated price record"), errs.WithCause(err))
	}
	return rec.toModel()
}

// SetRepricingPaused implements store.Gateway, supporting the supplemented
// /admin/repricing/pause endpoint. It rewrites the stored listing blob with
// repricing_paused flipped, preserving every other field, and refreshes the
// ASIN hash's TTL in the same transaction.
func (g *Gateway) SetRepricingPaused(ctx context.Context, asin, sellerID, sku string, paused bool) error {
	raw, err := g.client.HGet(ctx, asinKey(asin), fieldKey(sellerID, sku)).Result()
	if err != nil {
		return classify(err)
	}
	var rec listingRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return errs.New(component, errs.CodeInvalid, errs.WithMessage("malformed listing record"), errs.WithCause(err))
	}
	rec.RepricingPaused = paused
	updated, err := json.Marshal(rec)
	if err != nil {
		return errs.New(component, errs.CodeUnexpected, errs.WithMessage("encode listing record"), errs.WithCause(err))
	}
	key := asinKey(asin)
	pipe := g.client.TxPipeline()
	pipe.HSet(ctx, key, fieldKey(sellerID, sku), updated)
	pipe.Expire(ctx, key, g.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// DeleteCalculatedPrice implements store.Gateway, supporting the
// supplemented /admin/listings/reset endpoint.
func (g *Gateway) DeleteCalculatedPrice(ctx context.Context, sellerID, sku string) error {
	if err := g.client.HDel(ctx, calculatedPricesKey(sellerID), sku).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Ping implements store.Gateway.
func (g *Gateway) Ping(ctx context.Context) error {
	if err := g.client.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Close implements store.Gateway.
func (g *Gateway) Close() error {
	return g.client.Close()
}
