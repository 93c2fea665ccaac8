package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
)

// OrderHandler serves the shopper's own orders and the tracking badge.
type OrderHandler struct {
	query   *usecase.OrderQuery
	tracker *usecase.TrackingNotifier
	slipURL SlipURLFunc
}

func NewOrderHandler(query *usecase.OrderQuery, tracker *usecase.TrackingNotifier, slipURL SlipURLFunc) *OrderHandler {
	return &OrderHandler{query: query, tracker: tracker, slipURL: slipURL}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Get("/orders", h.mine)
	r.Get("/orders/badge", h.badge)
	r.Get("/orders/badge/stream", h.badgeStream)
	r.Post("/orders/viewed", h.markViewed)
	r.Get("/orders/{id}", h.get)
}

// mine lists the shopper's orders. Opening the list marks tracking
// numbers as seen when ?markViewed=true, as the orders page does.
func (h *OrderHandler) mine(w http.ResponseWriter, r *http.Request) {
	xs, err := h.query.Mine(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	if parseBool(r.URL.Query().Get("markViewed")) {
		if err := h.tracker.MarkViewed(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(xs, h.slipURL))
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.query.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDetailDTO(d, h.slipURL))
}

type badgeDTO struct {
	HasUnseenTracking bool `json:"hasUnseenTracking"`
}

func (h *OrderHandler) badge(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, badgeDTO{HasUnseenTracking: h.tracker.HasUnseenTracking()})
}

func (h *OrderHandler) markViewed(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.MarkViewed(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeDTO{HasUnseenTracking: h.tracker.HasUnseenTracking()})
}

// badgeStream pushes the badge state as server-sent events until the
// client goes away.
func (h *OrderHandler) badgeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, errorBody{Error: "streaming unsupported", Code: "internal"})
		return
	}
	ch, cancel := h.tracker.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	send := func(v bool) {
		fmt.Fprintf(w, "event: badge\ndata: {\"hasUnseenTracking\":%t}\n\n", v)
		flusher.Flush()
	}
	// ch already holds the current value.
	for {
		select {
		case <-r.Context().Done():
			return
		case v, ok := <-ch:
			if !ok {
				return
			}
			send(v)
		}
	}
}
