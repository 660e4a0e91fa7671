// Package pricing implements the pure checkout computations: customer price
// resolution, bundle cost roll-up, and order totals.
package pricing

import "github.com/noah-isme/backend-kasir/internal/model"

// Money represents a monetary value stored in minor units.
type Money = int64

// Line describes a cart line used for totals calculation.
type Line struct {
	Qty       int64
	UnitPrice Money
	Total     Money
}

// Totals aggregates computed pricing components.
type Totals struct {
	Subtotal Money
	Tax      Money
	Total    Money
}

// Resolve returns the effective unit price for a product: the customer's
// stored override when one exists, otherwise the catalog price. Overrides are
// trusted verbatim; they are validated only when written.
func Resolve(product model.Product, customer *model.Customer) Money {
	if price, ok := customer.OverrideFor(product.ID); ok {
		return price
	}
	return product.Price
}

// BundleCost computes the aggregate cost of a bundle as the weighted sum of
// its constituents' current costs. A constituent missing from the catalog
// contributes zero rather than failing the computation.
func BundleCost(items []model.BundleItem, catalog map[string]model.Product) Money {
	var cost Money
	for _, it := range items {
		constituent, ok := catalog[it.ProductID]
		if !ok {
			continue
		}
		cost += constituent.Cost * it.Quantity
	}
	return cost
}

// ComputeTotals derives subtotal, tax, and grand total from the cart lines.
// Tax applies to the pre-discount subtotal and the grand total is not floored:
// a discount exceeding subtotal+tax drives it negative.
func ComputeTotals(lines []Line, taxRateBps int, discount Money) Totals {
	var subtotal Money
	for _, l := range lines {
		subtotal += l.Total
	}
	tax := subtotal * Money(taxRateBps) / 10000
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal + tax - discount,
	}
}

// PercentToBps converts a percentage tax rate to basis points, rounding to the
// nearest hundredth of a percent.
func PercentToBps(rate float64) int {
	if rate <= 0 {
		return 0
	}
	return int(rate*100 + 0.5)
}
