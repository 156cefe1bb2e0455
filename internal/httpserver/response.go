// Package httpserver is the control-plane HTTP surface: GET /health,
// GET /stats, the marketplace-B webhook, and the supplemented /admin
// routes, grounded on
// _examples/Sezy0-apis-vhz-v2/pkg/response/response.go's envelope shape
// and _examples/Sezy0-apis-vhz-v2/internal/middleware's recovery/request-id/
// logging stack.
package httpserver

import (
	"net/http"

	"github.com/goccy/go-json"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status < 400, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: message})
}
