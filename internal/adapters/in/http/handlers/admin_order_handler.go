package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/common"
	orderdom "ayyooya/internal/domain/order"
)

// AdminOrderHandler serves /admin/orders.
type AdminOrderHandler struct {
	board    *usecase.AdminOrders
	workflow *usecase.OrderWorkflow
	guard    *usecase.InFlight
	slipURL  SlipURLFunc
}

func NewAdminOrderHandler(board *usecase.AdminOrders, workflow *usecase.OrderWorkflow, guard *usecase.InFlight, slipURL SlipURLFunc) *AdminOrderHandler {
	return &AdminOrderHandler{board: board, workflow: workflow, guard: guard, slipURL: slipURL}
}

func (h *AdminOrderHandler) Routes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Post("/orders/{id}/confirm", h.confirm)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/reconcile", h.reconcile)
	r.Post("/orders/{id}/tracking", h.tracking)
	r.Delete("/orders/{id}", h.delete)
}

// list returns the board. ?refresh=false serves the cached view with
// unresolved intents.
func (h *AdminOrderHandler) list(w http.ResponseWriter, r *http.Request) {
	if v := r.URL.Query().Get("refresh"); v == "" || parseBool(v) {
		if _, err := h.board.Refresh(r.Context()); err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toBoardDTOs(h.board.View(), h.slipURL))
}

func (h *AdminOrderHandler) confirm(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "confirm", h.board.Confirm)
}

func (h *AdminOrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "cancel", h.board.Cancel)
}

func (h *AdminOrderHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, "reconcile", h.workflow.ReconcileSold)
}

type trackingRequest struct {
	TrackingNumber string `json:"trackingNumber"`
}

func (h *AdminOrderHandler) tracking(w http.ResponseWriter, r *http.Request) {
	var req trackingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.run(w, r, "tracking", func(ctx context.Context, id string) (orderdom.Order, error) {
		return h.board.AttachTracking(ctx, id, req.TrackingNumber)
	})
}

// DELETE /admin/orders/{id}?confirm=true
func (h *AdminOrderHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := parseBool(r.URL.Query().Get("confirm"))
	err := h.guard.Do(r.Context(), "order:"+id, func(ctx context.Context) error {
		return h.board.Delete(ctx, id, confirmed)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// run guards one action per order id. A partial failure still returns the
// saved order alongside the failed product ids.
func (h *AdminOrderHandler) run(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(context.Context, string) (orderdom.Order, error),
) {
	id := chi.URLParam(r, "id")
	var o orderdom.Order
	err := h.guard.Do(r.Context(), "order:"+id, func(ctx context.Context) error {
		var err error
		o, err = fn(ctx, id)
		return err
	})
	if err != nil {
		if common.IsCode(err, common.CodePartial) {
			var pf *usecase.PartialFailure
			body := errorBody{Error: err.Error(), Code: string(common.CodePartial), Order: toOrderDTO(o, h.slipURL)}
			if errors.As(err, &pf) {
				body.FailedProductIDs = pf.ProductIDs
			}
			writeJSON(w, http.StatusMultiStatus, body)
			return
		}
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o, h.slipURL))
}
