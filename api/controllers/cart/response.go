package cart

import (
	cartsvc "github.com/pharmakart/cartsync/internal/cart"
	"github.com/pharmakart/cartsync/pkg/types"
)

// CartView is the cart state handed to clients.
type CartView struct {
	Items    []types.LineItem `json:"items"`
	Subtotal string           `json:"subtotal"`
	Count    int              `json:"count"`
	Loading  bool             `json:"loading"`
	Scope    string           `json:"scope"`
}

func newCartView(snapshot cartsvc.Snapshot, scope string) CartView {
	items := snapshot.Items
	if items == nil {
		items = []types.LineItem{}
	}
	return CartView{
		Items:    items,
		Subtotal: snapshot.Subtotal.StringFixed(2),
		Count:    snapshot.Count,
		Loading:  snapshot.Loading,
		Scope:    scope,
	}
}
