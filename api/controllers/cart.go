package controllers

import (
	"net/http"

	"github.com/avidal-labs/brewshop-backend/api/middleware"
	"github.com/avidal-labs/brewshop-backend/api/responses"
	"github.com/avidal-labs/brewshop-backend/api/validators"
	cartsvc "github.com/avidal-labs/brewshop-backend/internal/cart"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// CartGet serves the session cart.
func CartGet(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

type setCartItemRequest struct {
	ItemCode string `json:"item_code" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

// CartSetItem sets the absolute quantity of one cart line. A quantity the
// stock cannot cover still persists the clamped line; the 409 tells the
// client what was actually granted.
func CartSetItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload setCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sid := middleware.SessionIDFromContext(r.Context())
		c, err := svc.SetItem(r.Context(), sid, payload.ItemCode, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

type addCartItemRequest struct {
	ItemCode string `json:"item_code" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// CartAddItem adds units on top of the existing cart line.
func CartAddItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sid := middleware.SessionIDFromContext(r.Context())
		c, err := svc.AddItem(r.Context(), sid, payload.ItemCode, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(c))
	}
}

// CartClear empties the session cart.
func CartClear(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sid := middleware.SessionIDFromContext(r.Context())
		if err := svc.Clear(r.Context(), sid); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(&cartsvc.Cart{}))
	}
}

type cartResponse struct {
	Lines []cartsvc.Line `json:"lines"`
	Total string         `json:"total"`
}

func newCartResponse(c *cartsvc.Cart) cartResponse {
	lines := c.Lines
	if lines == nil {
		lines = []cartsvc.Line{}
	}
	return cartResponse{Lines: lines, Total: c.Total().String()}
}
