package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mstgnz/signpay/infra/opensearch"
	"github.com/mstgnz/signpay/infra/response"
)

// EventSearcher reads recorded checkout events
type EventSearcher interface {
	GetQuoteEvents(ctx context.Context, quoteID string) ([]opensearch.CheckoutEvent, error)
}

// EventsHandler serves the checkout event history to back office users
type EventsHandler struct {
	events EventSearcher
}

// NewEventsHandler creates a new events handler. events may be nil when
// OpenSearch logging is disabled.
func NewEventsHandler(events EventSearcher) *EventsHandler {
	return &EventsHandler{events: events}
}

// QuoteEvents handles GET /events/{quoteID}
func (h *EventsHandler) QuoteEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if h.events == nil {
		response.Error(w, http.StatusServiceUnavailable, "Event logging is disabled", nil)
		return
	}

	quoteID := chi.URLParam(r, "quoteID")
	if quoteID == "" {
		response.Error(w, http.StatusBadRequest, "Missing quote ID", nil)
		return
	}

	events, err := h.events.GetQuoteEvents(ctx, quoteID)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "Failed to get checkout events", err)
		return
	}

	response.Success(w, http.StatusOK, "Checkout events retrieved", map[string]any{
		"quote_id": quoteID,
		"count":    len(events),
		"events":   events,
	})
}
