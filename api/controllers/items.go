package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avidal-labs/brewshop-backend/api/responses"
	catalogsvc "github.com/avidal-labs/brewshop-backend/internal/catalog"
	pkgerrors "github.com/avidal-labs/brewshop-backend/pkg/errors"
	"github.com/avidal-labs/brewshop-backend/pkg/logger"
)

// ItemsList serves the storefront catalog, filtered by ?item_group= when set.
func ItemsList(svc *catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListItems(r.Context(), r.URL.Query().Get("item_group"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// ItemGet serves a single item with price, availability and variants.
func ItemGet(svc *catalogsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "itemCode")
		if code == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "item code is required"))
			return
		}
		item, err := svc.GetItem(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
