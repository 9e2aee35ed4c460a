package orders

import (
	"context"
	"net/http"
	"time"

	"github.com/pharmakart/cartsync/api/responses"
	"github.com/pharmakart/cartsync/api/validators"
	"github.com/pharmakart/cartsync/internal/remote"
	pkgerrors "github.com/pharmakart/cartsync/pkg/errors"
	"github.com/pharmakart/cartsync/pkg/logger"
	"github.com/pharmakart/cartsync/pkg/types"
)

// Placer submits the current cart as an order.
type Placer interface {
	Place(ctx context.Context, shipping types.ShippingInfo) (*remote.OrderRecord, error)
}

// PlaceOrderRequest carries the shipping payload for an order attempt.
type PlaceOrderRequest struct {
	Address    string `json:"address" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Notes      string `json:"notes"`
}

// OrderView is the confirmed order returned to clients.
type OrderView struct {
	OrderID  string    `json:"orderId"`
	Status   string    `json:"status"`
	Total    string    `json:"total"`
	PlacedAt time.Time `json:"placedAt"`
}

// Place validates shipping data and submits the cart as an order.
func Place(placer Placer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if placer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order coordinator unavailable"))
			return
		}

		var payload PlaceOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := placer.Place(r.Context(), types.ShippingInfo{
			Address:    payload.Address,
			Phone:      payload.Phone,
			City:       payload.City,
			PostalCode: payload.PostalCode,
			Notes:      payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, OrderView{
			OrderID:  record.OrderID,
			Status:   record.Status,
			Total:    record.Total.StringFixed(2),
			PlacedAt: record.PlacedAt,
		})
	}
}
