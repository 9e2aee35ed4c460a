package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmakart/cartsync/api/controllers"
	cartcontrollers "github.com/pharmakart/cartsync/api/controllers/cart"
	ordercontrollers "github.com/pharmakart/cartsync/api/controllers/orders"
	sessioncontrollers "github.com/pharmakart/cartsync/api/controllers/session"
	"github.com/pharmakart/cartsync/api/middleware"
	"github.com/pharmakart/cartsync/pkg/config"
	"github.com/pharmakart/cartsync/pkg/logger"
)

// CartEngine is the engine surface the router hands to its controllers.
type CartEngine interface {
	cartcontrollers.Engine
	sessioncontrollers.Engine
}

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Store    controllers.Pinger
	Engine   CartEngine
	Orders   ordercontrollers.Placer
	Sessions sessioncontrollers.TokenBinder
	Registry *prometheus.Registry
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Get("/healthz", controllers.HealthLive(deps.Config))
	r.Get("/readyz", controllers.HealthReady(deps.Config, deps.Logger, deps.Store))

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", cartcontrollers.Fetch(deps.Engine, deps.Logger))
		r.Delete("/", cartcontrollers.Clear(deps.Engine, deps.Logger))
		r.Post("/refresh", cartcontrollers.Refresh(deps.Engine, deps.Logger))
		r.Post("/items", cartcontrollers.AddItem(deps.Engine, deps.Logger))
		r.Patch("/items/{productID}", cartcontrollers.SetQuantity(deps.Engine, deps.Logger))
		r.Delete("/items/{productID}", cartcontrollers.RemoveItem(deps.Engine, deps.Logger))
	})

	r.Post("/orders", ordercontrollers.Place(deps.Orders, deps.Logger))

	r.Route("/session", func(r chi.Router) {
		r.Post("/", sessioncontrollers.Bind(deps.Sessions, deps.Engine, deps.Logger))
		r.Delete("/", sessioncontrollers.Unbind(deps.Engine, deps.Logger))
	})

	return r
}
