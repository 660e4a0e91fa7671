package cart

import (
	"errors"
	"testing"

	"github.com/noah-isme/backend-kasir/internal/model"
	"github.com/noah-isme/backend-kasir/internal/snapshot"
)

func testCatalog() *snapshot.Catalog {
	return &snapshot.Catalog{
		Products: map[string]model.Product{
			"p1": {ID: "p1", Name: "Kopi Susu", Price: 15_000, Stock: 10},
			"p2": {ID: "p2", Name: "Roti Bakar", Price: 12_000, Stock: 3},
			"p3": {ID: "p3", Name: "Es Teh", Price: 5_000, Stock: 0},
		},
		Customers: map[string]model.Customer{
			"c1": {ID: "c1", Name: "Budi", CustomPrices: []model.CustomerPrice{{ProductID: "p1", CustomPrice: 13_000}}},
		},
		TaxRateBps: 1000,
	}
}

func TestAddItemAppendsLine(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	if err := l.AddItem(cat, "p1", 2); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(l.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(l.Lines))
	}
	line := l.Lines[0]
	if line.UnitPrice != 15_000 || line.Total != 30_000 {
		t.Fatalf("unexpected pricing: unit=%d total=%d", line.UnitPrice, line.Total)
	}
}

func TestAddItemMergesExistingLine(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p1", 2)
	_ = l.AddItem(cat, "p2", 1)
	if err := l.AddItem(cat, "p1", 3); err != nil {
		t.Fatalf("merge add: %v", err)
	}
	if len(l.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(l.Lines))
	}
	if l.Lines[0].ProductID != "p1" || l.Lines[0].Qty != 5 {
		t.Fatalf("expected first line p1 qty 5, got %s qty %d", l.Lines[0].ProductID, l.Lines[0].Qty)
	}
	if l.Lines[0].Total != 75_000 {
		t.Fatalf("expected total 75000, got %d", l.Lines[0].Total)
	}
}

func TestAddItemOutOfStock(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	if err := l.AddItem(cat, "p3", 1); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock, got %v", err)
	}
	if !l.Empty() {
		t.Fatal("ledger must be unchanged after failed add")
	}
}

func TestAddItemInsufficientStockOnMerge(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p2", 2)
	if err := l.AddItem(cat, "p2", 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if l.Lines[0].Qty != 2 {
		t.Fatalf("quantity must be unchanged, got %d", l.Lines[0].Qty)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p1", 2)
	_ = l.AddItem(cat, "p2", 1)
	if err := l.SetQuantity(cat, "p1", 0); err != nil {
		t.Fatalf("set quantity: %v", err)
	}
	if len(l.Lines) != 1 || l.Lines[0].ProductID != "p2" {
		t.Fatalf("expected only p2 to remain, got %+v", l.Lines)
	}
}

func TestSetQuantityExceedingStockLeavesLine(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p2", 1)
	if err := l.SetQuantity(cat, "p2", 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if l.Lines[0].Qty != 1 {
		t.Fatalf("quantity must be unchanged, got %d", l.Lines[0].Qty)
	}
}

func TestRemoveItemIdempotent(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p1", 1)
	l.RemoveItem("p1")
	l.RemoveItem("p1")
	if !l.Empty() {
		t.Fatal("expected empty ledger")
	}
}

func TestSetCustomerRepricesLines(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p1", 2)
	_ = l.AddItem(cat, "p2", 1)

	if err := l.SetCustomer(cat, "c1"); err != nil {
		t.Fatalf("set customer: %v", err)
	}
	if l.Lines[0].UnitPrice != 13_000 || l.Lines[0].Total != 26_000 {
		t.Fatalf("expected override price on p1, got unit=%d total=%d", l.Lines[0].UnitPrice, l.Lines[0].Total)
	}
	if l.Lines[1].UnitPrice != 12_000 {
		t.Fatalf("p2 has no override, expected 12000 got %d", l.Lines[1].UnitPrice)
	}

	if err := l.SetCustomer(cat, ""); err != nil {
		t.Fatalf("clear customer: %v", err)
	}
	if l.Lines[0].UnitPrice != 15_000 {
		t.Fatalf("expected catalog price restored, got %d", l.Lines[0].UnitPrice)
	}
}

func TestSetCustomerUnknown(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	if err := l.SetCustomer(cat, "missing"); !errors.Is(err, ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestTotalsUsesSnapshotTaxRate(t *testing.T) {
	cat := testCatalog()
	var l Ledger
	_ = l.AddItem(cat, "p1", 2)

	totals := l.Totals(cat, 5_000)
	if totals.Subtotal != 30_000 {
		t.Fatalf("expected subtotal 30000, got %d", totals.Subtotal)
	}
	if totals.Tax != 3_000 {
		t.Fatalf("expected tax 3000, got %d", totals.Tax)
	}
	if totals.Total != 28_000 {
		t.Fatalf("expected total 28000, got %d", totals.Total)
	}
}
