package cart

import (
	"github.com/pharmakart/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// AddItemRequest adds a quantity of a product to the cart.
type AddItemRequest struct {
	ProductID    string          `json:"productId" validate:"required"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"price"`
	Quantity     int             `json:"qty" validate:"omitempty,min=1"`
	ImageRef     string          `json:"image"`
	DosageLabel  string          `json:"dosage"`
	Manufacturer string          `json:"manufacturer"`
	Category     string          `json:"category"`
	StockHint    *int            `json:"stock"`
}

func (r AddItemRequest) toLineItem() types.LineItem {
	return types.LineItem{
		ProductID:    r.ProductID,
		Name:         r.Name,
		UnitPrice:    r.UnitPrice,
		ImageRef:     r.ImageRef,
		DosageLabel:  r.DosageLabel,
		Manufacturer: r.Manufacturer,
		Category:     r.Category,
		StockHint:    r.StockHint,
	}
}

func (r AddItemRequest) delta() int {
	if r.Quantity < 1 {
		return 1
	}
	return r.Quantity
}

// SetQuantityRequest sets a line item's quantity directly.
type SetQuantityRequest struct {
	Quantity int `json:"qty" validate:"min=0"`
}
