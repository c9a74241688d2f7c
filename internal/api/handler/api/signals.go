// internal/api/handler/api/signals.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/sigma/internal/api/response"
	"github.com/newthinker/sigma/internal/core"
	"github.com/newthinker/sigma/internal/storage/signal"
)

// SignalsHandler serves the history of generated signals.
type SignalsHandler struct {
	store signal.Store
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(store signal.Store) *SignalsHandler {
	return &SignalsHandler{store: store}
}

// List returns recorded signals matching query parameters.
func (h *SignalsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := signal.ListFilter{
		Symbol:    q.Get("symbol"),
		Timeframe: q.Get("timeframe"),
	}

	if class := q.Get("signal"); class != "" {
		filter.Signal = core.SignalClass(strings.ToUpper(class))
		if filter.Signal.Rank() < 0 {
			response.Error(w, http.StatusBadRequest,
				core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unknown signal class %q", class)))
			return
		}
	}

	if from := q.Get("from"); from != "" {
		if t, ok := parseTime(from); ok {
			filter.From = t
		}
	}

	if to := q.Get("to"); to != "" {
		if t, ok := parseTime(to); ok {
			filter.To = t
		}
	}

	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	} else {
		filter.Limit = 50 // Default limit
	}

	if offset := q.Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			filter.Offset = n
		}
	}

	records, err := h.store.List(r.Context(), filter)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	count, _ := h.store.Count(r.Context(), filter)

	response.JSON(w, http.StatusOK, map[string]any{
		"signals": records,
		"total":   count,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
	})
}

// GetByID returns a single recorded signal.
func (h *SignalsHandler) GetByID(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	response.JSON(w, http.StatusOK, rec)
}

func parseTime(s string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
