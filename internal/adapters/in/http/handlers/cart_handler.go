package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
	cartdom "ayyooya/internal/domain/cart"
	"ayyooya/internal/domain/common"
)

var errAlreadyInCart = errors.New("cart: product already in cart")

// CartHandler serves /cart. The cart is local to this process and works
// without a session.
type CartHandler struct {
	cart *usecase.CartStore
}

func NewCartHandler(cart *usecase.CartStore) *CartHandler {
	return &CartHandler{cart: cart}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart/items", h.add)
	r.Delete("/cart/items/{productID}", h.remove)
	r.Delete("/cart", h.clear)
}

func (h *CartHandler) get(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

// add refuses a product that is already in the cart; the store itself
// keeps duplicates if asked to.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	var in cartdom.CartItem
	if !decodeJSON(w, r, &in) {
		return
	}
	it, err := cartdom.NewItem(in.ProductID, in.Name, in.UnitPrice, in.Image, in.Size)
	if err != nil {
		writeErr(w, common.E(common.CodeValidation, "cart.add", err))
		return
	}
	if h.cart.Contains(it.ProductID) {
		writeErr(w, common.E(common.CodeConflict, "cart.add", errAlreadyInCart))
		return
	}
	if err := h.cart.AddItem(r.Context(), it); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCartDTO(h.cart.Snapshot()))
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "productID"))
	if id == "" {
		badRequest(w, "product id is required")
		return
	}
	if err := h.cart.RemoveItem(r.Context(), id, r.URL.Query().Get("size")); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.cart.Clear(r.Context()); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(h.cart.Snapshot()))
}
