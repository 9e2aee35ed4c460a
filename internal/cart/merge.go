package cart

import "github.com/pharmakart/cartsync/pkg/types"

// normalizeLineItems collapses duplicate product entries by summing their
// quantities and drops lines whose quantity fell below one. The first
// occurrence of a product keeps its descriptive metadata.
func normalizeLineItems(items []types.LineItem) []types.LineItem {
	out := make([]types.LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range types.CloneLineItems(items) {
		if item.ProductID == "" || item.Quantity < 1 {
			continue
		}
		if at, ok := index[item.ProductID]; ok {
			out[at].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out
}

// mergeLineItems reconciles a guest cart into the user's remote cart. The
// remote list is the base: a product present on both sides sums the two
// quantities, a guest-only product is appended unchanged.
func mergeLineItems(remoteItems, guestItems []types.LineItem) []types.LineItem {
	merged := normalizeLineItems(remoteItems)
	index := make(map[string]int, len(merged))
	for i, item := range merged {
		index[item.ProductID] = i
	}
	for _, guest := range normalizeLineItems(guestItems) {
		if at, ok := index[guest.ProductID]; ok {
			merged[at].Quantity += guest.Quantity
			continue
		}
		index[guest.ProductID] = len(merged)
		merged = append(merged, guest)
	}
	return merged
}
