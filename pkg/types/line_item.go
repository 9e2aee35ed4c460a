package types

import "github.com/shopspring/decimal"

// LineItem is one product quantity in a cart. A cart holds at most one
// line item per ProductID; a quantity below 1 is never persisted.
type LineItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Quantity     int             `json:"quantity"`
	ImageRef     string          `json:"image,omitempty"`
	DosageLabel  string          `json:"dosage,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Category     string          `json:"category,omitempty"`

	// StockHint is an advisory ceiling reported by the catalog. Nil means
	// the stock level is unknown and no local ceiling applies.
	StockHint *int `json:"stockHint,omitempty"`
}

// LineTotal returns quantity times unit price.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CloneLineItems returns a deep copy safe to mutate independently.
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	for i := range out {
		if items[i].StockHint != nil {
			hint := *items[i].StockHint
			out[i].StockHint = &hint
		}
	}
	return out
}
