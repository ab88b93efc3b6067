package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avidal-labs/brewshop-backend/api/middleware"
	"github.com/avidal-labs/brewshop-backend/api/responses"
	"github.com/avidal-labs/brewshop-backend/api/validators"
	checkoutsvc "github.com/avidal-labs/brewshop-backend/internal/checkout"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

type createCheckoutRequest struct {
	OrderName string `json:"order_name" validate:"required"`
}

// CheckoutCreate opens a hosted payment checkout for a draft order.
// Repeating the call for an unchanged order returns the same checkout.
func CheckoutCreate(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload createCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		identity := middleware.IdentityFromContext(ctx)
		checkout, err := svc.CreateCheckout(ctx, identity.Customer, payload.OrderName)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

type validateCheckoutRequest struct {
	CheckoutID string `json:"checkout_id" validate:"required"`
}

// CheckoutValidate asks the gateway for the final verdict and, on PAID,
// records the payment against the order.
func CheckoutValidate(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var payload validateCheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		identity := middleware.IdentityFromContext(ctx)
		result, err := svc.ValidateCheckout(ctx,
			middleware.SessionIDFromContext(ctx), identity.Customer, payload.CheckoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CheckoutStatus reports the order's progress through the checkout steps.
func CheckoutStatus(svc *checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := middleware.IdentityFromContext(ctx)
		steps, err := svc.Status(ctx, identity.Customer, chi.URLParam(r, "orderName"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"steps": steps})
	}
}
