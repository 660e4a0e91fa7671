// Package cart implements the checkout cart: an ordered ledger of lines, one
// per product, priced against the current catalog snapshot.
package cart

import (
	"errors"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
)

var (
	// ErrProductNotFound indicates the product is absent from the catalog.
	ErrProductNotFound = errors.New("cart: product not found")
	// ErrOutOfStock indicates the product has zero stock.
	ErrOutOfStock = errors.New("cart: product out of stock")
	// ErrInsufficientStock indicates the requested quantity exceeds stock.
	ErrInsufficientStock = errors.New("cart: insufficient stock")
	// ErrCustomerNotFound indicates the customer is absent from the catalog.
	ErrCustomerNotFound = errors.New("cart: customer not found")
)

// Line is a cart entry. Total is always Qty times UnitPrice.
type Line struct {
	ProductID string        `json:"productId"`
	Name      string        `json:"name"`
	Qty       int64         `json:"qty"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Total     pricing.Money `json:"total"`
}

// Ledger holds the cart state. Lines keep insertion order and are unique per
// product. The zero value is an empty cart with no customer.
type Ledger struct {
	CustomerID string
	Lines      []Line
}

// AddItem adds qty of the product, merging into an existing line. The merged
// quantity is validated against stock; on failure the ledger is unchanged.
func (l *Ledger) AddItem(cat *snapshot.Catalog, productID string, qty int64) error {
	if qty <= 0 {
		return errors.New("cart: quantity must be positive")
	}
	product, ok := cat.Products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if product.Stock <= 0 {
		return ErrOutOfStock
	}
	merged := qty
	idx := l.indexOf(productID)
	if idx >= 0 {
		merged += l.Lines[idx].Qty
	}
	if merged > product.Stock {
		return ErrInsufficientStock
	}
	unit := l.unitPrice(cat, product)
	if idx >= 0 {
		l.Lines[idx].Qty = merged
		l.Lines[idx].UnitPrice = unit
		l.Lines[idx].Total = merged * unit
		return nil
	}
	l.Lines = append(l.Lines, Line{
		ProductID: productID,
		Name:      product.Name,
		Qty:       qty,
		UnitPrice: unit,
		Total:     qty * unit,
	})
	return nil
}

// SetQuantity replaces the quantity of an existing line. A quantity of zero
// or less removes the line. On stock failure the ledger is unchanged.
func (l *Ledger) SetQuantity(cat *snapshot.Catalog, productID string, qty int64) error {
	idx := l.indexOf(productID)
	if idx < 0 {
		return ErrProductNotFound
	}
	if qty <= 0 {
		l.Lines = append(l.Lines[:idx], l.Lines[idx+1:]...)
		return nil
	}
	product, ok := cat.Products[productID]
	if !ok {
		return ErrProductNotFound
	}
	if qty > product.Stock {
		return ErrInsufficientStock
	}
	unit := l.unitPrice(cat, product)
	l.Lines[idx].Qty = qty
	l.Lines[idx].UnitPrice = unit
	l.Lines[idx].Total = qty * unit
	return nil
}

// RemoveItem deletes the product's line. Removing an absent product is a no-op.
func (l *Ledger) RemoveItem(productID string) {
	idx := l.indexOf(productID)
	if idx < 0 {
		return
	}
	l.Lines = append(l.Lines[:idx], l.Lines[idx+1:]...)
}

// SetCustomer switches the cart's customer and re-prices every line under the
// new customer's overrides. An empty id clears the customer.
func (l *Ledger) SetCustomer(cat *snapshot.Catalog, customerID string) error {
	if customerID != "" {
		if _, ok := cat.Customers[customerID]; !ok {
			return ErrCustomerNotFound
		}
	}
	l.CustomerID = customerID
	for i := range l.Lines {
		product, ok := cat.Products[l.Lines[i].ProductID]
		if !ok {
			continue
		}
		unit := l.unitPrice(cat, product)
		l.Lines[i].UnitPrice = unit
		l.Lines[i].Total = l.Lines[i].Qty * unit
	}
	return nil
}

// Totals computes the cart's subtotal, tax, and grand total for the given
// discount using the snapshot's tax rate.
func (l *Ledger) Totals(cat *snapshot.Catalog, discount pricing.Money) pricing.Totals {
	lines := make([]pricing.Line, len(l.Lines))
	for i, line := range l.Lines {
		lines[i] = pricing.Line{Qty: line.Qty, UnitPrice: line.UnitPrice, Total: line.Total}
	}
	return pricing.ComputeTotals(lines, cat.TaxRateBps, discount)
}

// Empty reports whether the cart has no lines.
func (l *Ledger) Empty() bool { return len(l.Lines) == 0 }

func (l *Ledger) indexOf(productID string) int {
	for i, line := range l.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

func (l *Ledger) unitPrice(cat *snapshot.Catalog, product model.Product) pricing.Money {
	var customer *model.Customer
	if l.CustomerID != "" {
		if c, ok := cat.Customers[l.CustomerID]; ok {
			customer = &c
		}
	}
	return pricing.Resolve(product, customer)
}
