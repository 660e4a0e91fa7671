package pricing

import (
	"testing"

	"github.com/noah-isme/backend-kasir/internal/model"
)

func TestResolvePrefersOverride(t *testing.T) {
	product := model.Product{ID: "p1", Price: 15_000, Cost: 9_000}
	customer := &model.Customer{
		ID:           "c1",
		CustomPrices: []model.CustomerPrice{{ProductID: "p1", CustomPrice: 20_000}},
	}
	if got := Resolve(product, customer); got != 20_000 {
		t.Fatalf("expected override price 20000, got %d", got)
	}
	if got := Resolve(product, nil); got != 15_000 {
		t.Fatalf("expected catalog price 15000, got %d", got)
	}
}

func TestResolveIgnoresOverrideForOtherProduct(t *testing.T) {
	product := model.Product{ID: "p2", Price: 12_000}
	customer := &model.Customer{
		CustomPrices: []model.CustomerPrice{{ProductID: "p1", CustomPrice: 20_000}},
	}
	if got := Resolve(product, customer); got != 12_000 {
		t.Fatalf("expected catalog price 12000, got %d", got)
	}
}

func TestBundleCost(t *testing.T) {
	catalog := map[string]model.Product{
		"p1": {ID: "p1", Cost: 4_000},
		"p2": {ID: "p2", Cost: 2_500},
	}
	items := []model.BundleItem{
		{ProductID: "p1", Quantity: 2},
		{ProductID: "p2", Quantity: 1},
	}
	if got := BundleCost(items, catalog); got != 10_500 {
		t.Fatalf("expected bundle cost 10500, got %d", got)
	}
}

func TestBundleCostEmpty(t *testing.T) {
	if got := BundleCost(nil, map[string]model.Product{}); got != 0 {
		t.Fatalf("expected 0 for empty bundle, got %d", got)
	}
}

func TestBundleCostMissingConstituentContributesZero(t *testing.T) {
	catalog := map[string]model.Product{"p1": {ID: "p1", Cost: 4_000}}
	items := []model.BundleItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "ghost", Quantity: 3},
	}
	if got := BundleCost(items, catalog); got != 4_000 {
		t.Fatalf("expected missing constituent to contribute zero, got %d", got)
	}
}

func TestComputeTotals(t *testing.T) {
	lines := []Line{{Qty: 3, UnitPrice: 10_000, Total: 30_000}}
	got := ComputeTotals(lines, 1000, 5_000)
	if got.Subtotal != 30_000 {
		t.Fatalf("expected subtotal 30000, got %d", got.Subtotal)
	}
	if got.Tax != 3_000 {
		t.Fatalf("expected tax 3000, got %d", got.Tax)
	}
	if got.Total != 28_000 {
		t.Fatalf("expected total 28000, got %d", got.Total)
	}
}

func TestComputeTotalsTaxesPreDiscountSubtotal(t *testing.T) {
	lines := []Line{{Qty: 1, UnitPrice: 100_000, Total: 100_000}}
	got := ComputeTotals(lines, 1000, 50_000)
	// Tax must be computed before the discount is applied.
	if got.Tax != 10_000 {
		t.Fatalf("expected tax on pre-discount subtotal, got %d", got.Tax)
	}
	if got.Total != 60_000 {
		t.Fatalf("expected total 60000, got %d", got.Total)
	}
}

func TestComputeTotalsUnclampedNegative(t *testing.T) {
	got := ComputeTotals(nil, 1000, 5_000)
	if got.Subtotal != 0 || got.Tax != 0 {
		t.Fatalf("expected zero subtotal and tax for empty cart, got %+v", got)
	}
	if got.Total != -5_000 {
		t.Fatalf("expected unclamped negative total -5000, got %d", got.Total)
	}
}

func TestPercentToBps(t *testing.T) {
	cases := []struct {
		rate float64
		want int
	}{
		{10, 1000},
		{0, 0},
		{-1, 0},
		{10.5, 1050},
		{11.115, 1112},
	}
	for _, c := range cases {
		if got := PercentToBps(c.rate); got != c.want {
			t.Fatalf("PercentToBps(%v) = %d, want %d", c.rate, got, c.want)
		}
	}
}
