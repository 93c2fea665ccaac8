// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ayyooya/internal/adapters/in/http/handlers"
	"ayyooya/internal/adapters/in/http/middleware"
)

// Deps is the storefront handler set.
type Deps struct {
	Log            *zap.Logger
	Sessions       middleware.SessionReader
	AllowedOrigins []string
	Limiter        *middleware.RateLimiter

	Session     *handlers.SessionHandler
	Cart        *handlers.CartHandler
	Product     *handlers.ProductHandler
	Checkout    *handlers.CheckoutHandler
	Order       *handlers.OrderHandler
	AdminOrders *handlers.AdminOrderHandler

	// Ready reports backend health for /readyz. Nil means always ready.
	Ready func(r *http.Request) error
}

// NewRouter wires every route. Nil handlers leave their routes out.
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(log))
	r.Use(middleware.RequestLog(log))
	r.Use(middleware.CORS(d.AllowedOrigins))
	if d.Limiter != nil {
		r.Use(d.Limiter.Handler)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(req); err != nil {
				log.Warn("not ready", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// public
	if d.Session != nil {
		d.Session.Routes(r)
	}
	if d.Product != nil {
		d.Product.Routes(r)
	}
	if d.Cart != nil {
		d.Cart.Routes(r)
	}

	// signed-in shopper
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(d.Sessions))
		if d.Checkout != nil {
			d.Checkout.Routes(r)
		}
		if d.Order != nil {
			d.Order.Routes(r)
		}
	})

	// admin
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(d.Sessions))
		if d.Product != nil {
			d.Product.AdminRoutes(r)
		}
		if d.AdminOrders != nil {
			d.AdminOrders.Routes(r)
		}
	})

	return r
}
