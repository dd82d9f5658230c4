// Package mirror computes change notices between two snapshots of the
// backend-owned cart. The cart orchestrator never mutates its local copy:
// every mutation round-trips through the backend and re-fetches, so the only
// way the UI learns about server-side adjustments (price changes, items
// dropped for stock, quantity clamping) is by diffing the old mirror against
// the fresh one.
package mirror

import "storefront/internal/model"

// ChangeKind classifies one server-side cart adjustment.
type ChangeKind string

const (
	ChangeItemAdded       ChangeKind = "item_added"
	ChangeItemRemoved     ChangeKind = "item_removed"
	ChangeQuantityChanged ChangeKind = "quantity_changed"
	ChangePriceChanged    ChangeKind = "price_changed"
)

// Change is one observed difference between two cart snapshots. Quantities
// and prices carry both sides so the caller can render "was / is" notices.
type Change struct {
	Kind      ChangeKind
	VariantID int64
	Name      string

	OldQuantity int
	NewQuantity int

	OldUnitPrice int64 // minor units
	NewUnitPrice int64 // minor units
}

// Diff compares two cart snapshots and returns the changes, matched by
// variant ID. Either snapshot may be nil (treated as empty). Order is
// removals, then quantity/price changes, then additions, so a consumer
// applying notices sequentially never references a line it has not seen.
func Diff(old, fresh *model.Cart) []Change {
	oldByVariant := indexByVariant(old)
	freshByVariant := indexByVariant(fresh)

	var changes []Change

	if old != nil {
		for _, item := range old.Items {
			if _, ok := freshByVariant[item.VariantID]; !ok {
				changes = append(changes, Change{
					Kind:        ChangeItemRemoved,
					VariantID:   item.VariantID,
					Name:        item.ProductName,
					OldQuantity: item.Quantity,
				})
			}
		}
	}

	if fresh != nil {
		for _, item := range fresh.Items {
			prev, ok := oldByVariant[item.VariantID]
			if !ok {
				continue
			}
			if prev.Quantity != item.Quantity {
				changes = append(changes, Change{
					Kind:        ChangeQuantityChanged,
					VariantID:   item.VariantID,
					Name:        item.ProductName,
					OldQuantity: prev.Quantity,
					NewQuantity: item.Quantity,
				})
			}
			if prev.UnitPrice != item.UnitPrice {
				changes = append(changes, Change{
					Kind:         ChangePriceChanged,
					VariantID:    item.VariantID,
					Name:         item.ProductName,
					OldUnitPrice: prev.UnitPrice,
					NewUnitPrice: item.UnitPrice,
				})
			}
		}

		for _, item := range fresh.Items {
			if _, ok := oldByVariant[item.VariantID]; !ok {
				changes = append(changes, Change{
					Kind:         ChangeItemAdded,
					VariantID:    item.VariantID,
					Name:         item.ProductName,
					NewQuantity:  item.Quantity,
					NewUnitPrice: item.UnitPrice,
				})
			}
		}
	}

	return changes
}

// Unexpected filters changes down to the ones the client did not ask for.
// After an "add variant 7" mutation, the variant-7 addition is expected; a
// price bump on variant 3 in the same response is not. expectedVariant == 0
// means no mutation was in flight (plain refresh), so everything except
// nothing is unexpected.
func Unexpected(changes []Change, expectedVariant int64, expectedKind ChangeKind) []Change {
	if expectedVariant == 0 {
		return changes
	}
	var out []Change
	for _, c := range changes {
		if c.VariantID == expectedVariant && c.Kind == expectedKind {
			continue
		}
		out = append(out, c)
	}
	return out
}

func indexByVariant(c *model.Cart) map[int64]model.CartItem {
	m := make(map[int64]model.CartItem)
	if c == nil {
		return m
	}
	for _, item := range c.Items {
		m[item.VariantID] = item
	}
	return m
}
