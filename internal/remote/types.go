package remote

import (
	"time"

	"github.com/pharmakart/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// wireItem is the remote store's representation of one cart line.
type wireItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Qty          int             `json:"qty"`
	Image        string          `json:"image,omitempty"`
	Dosage       string          `json:"dosage,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Category     string          `json:"category,omitempty"`
	Stock        *int            `json:"stock,omitempty"`
}

type fetchCartResponse struct {
	Success bool       `json:"success"`
	Items   []wireItem `json:"items"`
}

type replaceCartRequest struct {
	Items []wireItem `json:"items"`
}

type placeOrderRequest struct {
	Cart         []wireItem         `json:"cart"`
	ShippingInfo types.ShippingInfo `json:"shippingInfo"`
}

// OrderRecord is the confirmation returned by the order endpoint.
type OrderRecord struct {
	OrderID  string          `json:"orderId"`
	Status   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
	PlacedAt time.Time       `json:"placedAt"`
}

type errorResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Items   []itemIssue `json:"items,omitempty"`
}

type itemIssue struct {
	ProductID string `json:"productId"`
	Name      string `json:"name,omitempty"`
	Message   string `json:"message,omitempty"`
	Available *int   `json:"available,omitempty"`
}

// toLineItem translates the remote shape to the local one. The mapping is
// total: every absent remote field gets a defined default.
func toLineItem(item wireItem) types.LineItem {
	return types.LineItem{
		ProductID:    item.ProductID,
		Name:         item.Name,
		UnitPrice:    item.Price,
		Quantity:     item.Qty,
		ImageRef:     item.Image,
		DosageLabel:  item.Dosage,
		Manufacturer: item.Manufacturer,
		Category:     item.Category,
		StockHint:    copyIntPtr(item.Stock),
	}
}

func fromLineItem(item types.LineItem) wireItem {
	return wireItem{
		ProductID:    item.ProductID,
		Name:         item.Name,
		Price:        item.UnitPrice,
		Qty:          item.Quantity,
		Image:        item.ImageRef,
		Dosage:       item.DosageLabel,
		Manufacturer: item.Manufacturer,
		Category:     item.Category,
		Stock:        copyIntPtr(item.StockHint),
	}
}

func toLineItems(items []wireItem) []types.LineItem {
	out := make([]types.LineItem, len(items))
	for i, item := range items {
		out[i] = toLineItem(item)
	}
	return out
}

func fromLineItems(items []types.LineItem) []wireItem {
	out := make([]wireItem, len(items))
	for i, item := range items {
		out[i] = fromLineItem(item)
	}
	return out
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
