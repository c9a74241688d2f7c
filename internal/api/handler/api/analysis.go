// internal/api/handler/api/analysis.go
package api

import (
	"context"
	"net/http"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
)

// AnalysisApp defines the interface needed from app.App.
type AnalysisApp interface {
	GetWatchlist() []string
	RunOnce(ctx context.Context) map[string]core.SignalResult
	Latest() map[string]core.SignalResult
}

// AnalysisHandler runs and reports watchlist cycles.
type AnalysisHandler struct {
	app AnalysisApp
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(app AnalysisApp) *AnalysisHandler {
	return &AnalysisHandler{app: app}
}

// Trigger starts a watchlist cycle in the background.
func (h *AnalysisHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	watchlist := h.app.GetWatchlist()

	// detached from the request so the cycle outlives the response
	go h.app.RunOnce(context.Background())

	response.JSON(w, http.StatusAccepted, map[string]any{
		"triggered":     true,
		"symbols_count": len(watchlist),
	})
}

// Latest returns the results of the most recent cycle.
func (h *AnalysisHandler) Latest(w http.ResponseWriter, r *http.Request) {
	latest := h.app.Latest()
	response.JSON(w, http.StatusOK, map[string]any{
		"signals": latest,
		"count":   len(latest),
	})
}
