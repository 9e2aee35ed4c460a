package types

// ShippingInfo is the delivery payload submitted with an order.
type ShippingInfo struct {
	Address    string `json:"address" validate:"required"`
	Phone      string `json:"phone" validate:"required"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
