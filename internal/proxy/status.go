package proxy

import (
	"net/http"

	"github.com/modelrelay/modelrelay/internal/relay"
)

// statusInfo summarizes the live routing configuration. API keys are never
// included.
type statusInfo struct {
	Status            string   `json:"status"`
	PreferredProvider string   `json:"preferred_provider"`
	BigModel          string   `json:"big_model"`
	SmallModel        string   `json:"small_model"`
	Providers         []string `json:"providers"`
}

// statusHandler reports the gateway's routing configuration so operators can
// verify which models the haiku/sonnet aliases resolve to.
func statusHandler(routing relay.Routing, providers []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, statusInfo{
			Status:            "ok",
			PreferredProvider: routing.PreferredProvider,
			BigModel:          routing.BigModel,
			SmallModel:        routing.SmallModel,
			Providers:         providers,
		}, http.StatusOK)
	}
}
