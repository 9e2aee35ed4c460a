package cart

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pharmakart/cartsync/api/responses"
	"github.com/pharmakart/cartsync/api/validators"
	cartsvc "github.com/pharmakart/cartsync/internal/cart"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/types"
)

// Engine is the slice of the reconciliation engine the cart handlers use.
type Engine interface {
	Snapshot() cartsvc.Snapshot
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	AddItem(ctx context.Context, item types.LineItem, delta int) error
	RemoveItem(ctx context.Context, productID string) error
	SetQuantity(ctx context.Context, productID string, quantity int) error
	Clear(ctx context.Context) error
	ScopeName() string
}

// Fetch returns the current cart view.
func Fetch(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}
		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}

// AddItem applies a quantity delta for a product.
func AddItem(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		var payload AddItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.AddItem(r.Context(), payload.toLineItem(), payload.delta()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}

// SetQuantity sets a line item's quantity; zero removes it.
func SetQuantity(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		var payload SetQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.SetQuantity(r.Context(), productID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}

// RemoveItem deletes a line item.
func RemoveItem(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		productID := chi.URLParam(r, "productID")
		if productID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id is required"))
			return
		}

		if err := engine.RemoveItem(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}

// Clear empties the cart.
func Clear(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		if err := engine.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}

// Refresh re-hydrates the cart for the active scope.
func Refresh(engine Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}

		if err := engine.Refresh(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newCartView(engine.Snapshot(), engine.ScopeName()))
	}
}
