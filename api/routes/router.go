package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avidal-labs/brewshop-backend/api/controllers"
	"github.com/avidal-labs/brewshop-backend/api/middleware"
	cartsvc "github.com/avidal-labs/brewshop-backend/internal/cart"
	catalogsvc "github.com/avidal-labs/brewshop-backend/internal/catalog"
	checkoutsvc "github.com/avidal-labs/brewshop-backend/internal/checkout"
	identitysvc "github.com/avidal-labs/brewshop-backend/internal/identity"
	ordersvc "github.com/avidal-labs/brewshop-backend/internal/orders"
	"github.com/avidal-labs/brewshop-backend/pkg/config"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
	"github.com/avidal-labs/brewshop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	catalogService *catalogsvc.Service,
	cartService *cartsvc.Service,
	orderService *ordersvc.Service,
	checkoutService *checkoutsvc.Service,
	identityService *identitysvc.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Session, logg))

		r.Get("/items", controllers.ItemsList(catalogService, logg))
		r.Get("/items/{itemCode}", controllers.ItemGet(catalogService, logg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signin", controllers.AuthSignIn(identityService, logg))
			r.With(middleware.Authenticated(identityService, logg)).
				Get("/me", controllers.AuthMe())
			r.Post("/signout", controllers.AuthSignOut(identityService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items", controllers.CartSetItem(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Get("/shipping/quote", controllers.ShippingQuote(orderService, cartService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.Authenticated(identityService, logg))
			r.Post("/", controllers.OrdersPlace(orderService, cartService, logg))
			r.Get("/", controllers.OrdersList(orderService, logg))
			r.Get("/{orderName}", controllers.OrderGet(orderService, logg))
			r.Put("/{orderName}/shipping", controllers.OrderSetShipping(orderService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(middleware.Authenticated(identityService, logg))
			r.Post("/", controllers.CheckoutCreate(checkoutService, logg))
			r.Post("/validate", controllers.CheckoutValidate(checkoutService, logg))
			r.Get("/{orderName}/status", controllers.CheckoutStatus(checkoutService, logg))
		})
	})

	return r
}
