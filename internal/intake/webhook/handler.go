// Package webhook implements the marketplace-B intake adapter (C1): an
// HTTP endpoint that accepts buybox-changed notifications, validates a
// shared secret, and enqueues onto a bounded internal channel for the
// orchestrator to drain, grounded on
// _examples/original_source/src/api/webhook_router.py's accept-then-queue
// shape and shared-secret check from
// _examples/original_source/src/api/webhook_endpoints.py.
package webhook

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/northfield/repricer/internal/config"
	"github.com/northfield/repricer/internal/domain/model"
	"github.com/northfield/repricer/internal/orchestrator"
)

const sharedSecretHeader = "X-Webhook-Secret"

// Handler accepts marketplace-B webhook POSTs and enqueues them onto Events
// for an orchestrator worker pool to drain. It never touches the pipeline
// itself, keeping the HTTP path free of pipeline latency.
type Handler struct {
	cfg    config.WebhookConfig
	logger *slog.Logger
	Events chan orchestrator.InboundEvent
}

// New constructs a Handler with its internal queue bounded at
// cfg.InternalQueueBound.
func New(cfg config.WebhookConfig, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:    cfg,
		logger: logger,
		Events: make(chan orchestrator.InboundEvent, cfg.InternalQueueBound),
	}
}

// payloadShape is the minimal syntactic check the adapter performs before
// queueing; parsing the business semantics is the normalizer's job.
type payloadShape struct {
	EventType string          `json:"eventType"`
	ItemID    string          `json:"itemId"`
	SellerID  string          `json:"sellerId"`
	Offers    json.RawMessage `json:"offers"`
}

// ServeHTTP implements the webhook contract: 401 on a bad shared secret,
// 400 on an oversized, unreadable, or syntactically malformed body, 202
// once the event is queued, and 503 when the internal queue is full rather
// than blocking the caller.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.cfg.SharedSecret != "" && r.Header.Get(sharedSecretHeader) != h.cfg.SharedSecret {
		http.Error(w, "invalid shared secret", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var shape payloadShape
	if err := json.Unmarshal(body, &shape); err != nil {
		http.Error(w, "malformed json", http.StatusBadRequest)
		return
	}
	if shape.EventType == "" || shape.ItemID == "" || shape.SellerID == "" {
		http.Error(w, "missing eventType, itemId, or sellerId", http.StatusBadRequest)
		return
	}

	ev := orchestrator.InboundEvent{Source: model.SourceMarketplaceB, Payload: body}
	select {
	case h.Events <- ev:
		w.WriteHeader(http.StatusAccepted)
	default:
		h.logger.WarnContext(r.Context(), "webhook queue full, rejecting event")
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}
}
