package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/northfield/repricer/internal/orchestrator"
	"github.com/northfield/repricer/internal/store"
)

// healthResponse is the GET /health payload: component statuses.
type healthResponse struct {
	Status        string `json:"status"`
	Store         string `json:"store"`
	CircuitBreaker string `json:"circuit_breaker"`
	Paused        bool   `json:"repricing_paused"`
}

func healthHandler(st store.Gateway, orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeStatus := "ok"
		if err := st.Ping(r.Context()); err != nil {
			storeStatus = "unreachable"
		}

		resp := healthResponse{
			Status:         "ok",
			Store:          storeStatus,
			CircuitBreaker: orch.BreakerState(),
			Paused:         orch.Paused(),
		}
		if storeStatus != "ok" {
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func statsHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, orch.Snapshot())
	}
}

// resetRequest is the POST /admin/listings/reset body: clears a
// previously-written calculated price.
type resetRequest struct {
	SellerID string `json:"seller_id"`
	SKU      string `json:"sku"`
}

func adminResetHandler(st store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.SellerID == "" || req.SKU == "" {
			writeError(w, http.StatusBadRequest, "seller_id and sku are required")
			return
		}
		if err := st.DeleteCalculatedPrice(r.Context(), req.SellerID, req.SKU); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

// pauseRequest is the POST /admin/repricing/pause body: toggles
// repricing_paused on a single listing without touching strategy math.
type pauseRequest struct {
	ASIN     string `json:"asin"`
	SellerID string `json:"seller_id"`
	SKU      string `json:"sku"`
	Paused   bool   `json:"paused"`
}

func adminPauseHandler(st store.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pauseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
		if req.ASIN == "" || req.SellerID == "" || req.SKU == "" {
			writeError(w, http.StatusBadRequest, "asin, seller_id, and sku are required")
			return
		}
		if err := st.SetRepricingPaused(r.Context(), req.ASIN, req.SellerID, req.SKU, req.Paused); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}
