package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avidal-labs/brewshop-backend/api/middleware"
	"github.com/avidal-labs/brewshop-backend/api/responses"
	"github.com/avidal-labs/brewshop-backend/api/validators"
	cartsvc "github.com/avidal-labs/brewshop-backend/internal/cart"
	ordersvc "github.com/avidal-labs/brewshop-backend/internal/orders"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// OrdersPlace turns the session cart into the customer's draft order.
func OrdersPlace(orders *ordersvc.Service, carts *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := middleware.IdentityFromContext(ctx)
		c, err := carts.Get(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		order, err := orders.PlaceFromCart(ctx, c, identity.Customer)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// OrdersList serves the customer's order history.
func OrdersList(orders *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.IdentityFromContext(r.Context())
		list, err := orders.ListForCustomer(r.Context(), identity.Customer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderGet serves one order, reconciling draft quantities against stock on
// the way out. An adjusted or dropped order surfaces as 409 or 410 with the
// corrected state already persisted.
func OrderGet(orders *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := middleware.IdentityFromContext(ctx)
		orderName := chi.URLParam(r, "orderName")
		order, err := orders.Get(ctx, middleware.SessionIDFromContext(ctx), identity.Customer, orderName)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

type setShippingRequest struct {
	Method string `json:"method" validate:"required,oneof=pickup delivery"`
}

// OrderSetShipping binds a shipping method to a draft order and quotes the
// storefront shipping charge for it.
func OrderSetShipping(orders *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload setShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		identity := middleware.IdentityFromContext(ctx)
		orderName := chi.URLParam(r, "orderName")
		order, err := orders.SetShippingMethod(ctx, identity.Customer, orderName, payload.Method)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cost, err := orders.ShippingCost(payload.Method, order.AmountTotal)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order":         order,
			"shipping_cost": cost.String(),
		})
	}
}

// ShippingQuote prices a shipping method against the current cart total
// before any order exists.
func ShippingQuote(orders *ordersvc.Service, carts *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		method := r.URL.Query().Get("method")
		if method == "" {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "shipping method is required"))
			return
		}
		c, err := carts.Get(ctx, middleware.SessionIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cost, err := orders.ShippingCost(method, c.Total())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"method":        method,
			"cart_total":    c.Total().String(),
			"shipping_cost": cost.String(),
		})
	}
}
