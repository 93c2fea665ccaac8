// internal/adapters/in/http/handlers/product_handler.go
package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ayyooya/internal/application/usecase"
	"ayyooya/internal/domain/media"
	productdom "ayyooya/internal/domain/product"
)

// ProductHandler serves the shop catalogue and the admin product pages.
type ProductHandler struct {
	catalog *usecase.CatalogUsecase
	guard   *usecase.InFlight
}

func NewProductHandler(catalog *usecase.CatalogUsecase, guard *usecase.InFlight) *ProductHandler {
	return &ProductHandler{catalog: catalog, guard: guard}
}

func (h *ProductHandler) Routes(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
}

func (h *ProductHandler) AdminRoutes(r chi.Router) {
	r.Get("/products", h.listAll)
	r.Post("/products", h.create)
	r.Patch("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

// ------------------------------------------------------------
// GET /products?category=tops&q=shirt
// ------------------------------------------------------------

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeList(w, r, productdom.Filter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	})
}

func (h *ProductHandler) listAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.writeList(w, r, productdom.Filter{
		Category:    q.Get("category"),
		Search:      q.Get("q"),
		IncludeSold: true,
	})
}

func (h *ProductHandler) writeList(w http.ResponseWriter, r *http.Request, f productdom.Filter) {
	xs, err := h.catalog.List(r.Context(), f)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]productDTO, 0, len(xs))
	for _, p := range xs {
		out = append(out, toProductDTO(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(p))
}

// ------------------------------------------------------------
// POST /admin/products (multipart: name, price, size, category,
// description, images[])
// ------------------------------------------------------------

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	price, err := strconv.Atoi(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		badRequest(w, "price must be a number")
		return
	}
	draft := productdom.Draft{
		Name:        r.FormValue("name"),
		Price:       price,
		Size:        r.FormValue("size"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
	}

	uploads, closeAll, err := openUploads(r.MultipartForm.File["images"])
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	defer closeAll()

	var created productdom.Product
	err = h.guard.Do(r.Context(), "product.create", func(ctx context.Context) error {
		var err error
		created, err = h.catalog.Create(ctx, draft, uploads)
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(created))
}

type productPatchRequest struct {
	Name        *string `json:"name"`
	Price       *int    `json:"price"`
	Size        *string `json:"size"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	IsSold      *bool   `json:"is_sold"`
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	var req productPatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	var updated productdom.Product
	err := h.guard.Do(r.Context(), "product.update:"+id, func(ctx context.Context) error {
		var err error
		updated, err = h.catalog.Update(ctx, id, productdom.Patch{
			Name:        req.Name,
			Price:       req.Price,
			Size:        req.Size,
			Category:    req.Category,
			Description: req.Description,
			IsSold:      req.IsSold,
		})
		return err
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(updated))
}

// DELETE /admin/products/{id}?confirm=true
func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	confirmed := parseBool(r.URL.Query().Get("confirm"))
	err := h.guard.Do(r.Context(), "product.delete:"+id, func(ctx context.Context) error {
		return h.catalog.Delete(ctx, id, confirmed)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// openUploads opens every file header; the returned func closes them.
func openUploads(fhs []*multipart.FileHeader) ([]media.Upload, func(), error) {
	files := make([]multipart.File, 0, len(fhs))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	out := make([]media.Upload, 0, len(fhs))
	for _, fh := range fhs {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		out = append(out, media.Upload{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Body:        f,
		})
	}
	return out, closeAll, nil
}
