package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/media"
	orderdom "ayyooya/internal/domain/order"
)

// CheckoutHandler serves POST /checkout.
type CheckoutHandler struct {
	checkout *usecase.CheckoutUsecase
	guard    *usecase.InFlight
	slipURL  SlipURLFunc
}

func NewCheckoutHandler(checkout *usecase.CheckoutUsecase, guard *usecase.InFlight, slipURL SlipURLFunc) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, guard: guard, slipURL: slipURL}
}

func (h *CheckoutHandler) Routes(r chi.Router) {
	r.Post("/checkout", h.submit)
}

// submit takes a multipart form: name, phone, address and the slip file.
func (h *CheckoutHandler) submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := usecase.CheckoutForm{
		Name:    r.FormValue("name"),
		Phone:   r.FormValue("phone"),
		Address: r.FormValue("address"),
	}
	if f, fh, err := r.FormFile("slip"); err == nil {
		defer f.Close()
		form.Slip = &media.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		}
	}

	var placed orderdom.Order
	err := h.guard.Do(r.Context(), "checkout", func(ctx context.Context) error {
		var err error
		placed, err = h.checkout.Submit(ctx, form)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(placed, h.slipURL))
}
