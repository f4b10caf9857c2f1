package pricing

import "testing"

func TestPriceAtThresholds(t *testing.T) {
	cases := []struct {
		name     string
		stock    int
		expected int
	}{
		{"below min stock", 0, 100},
		{"at min stock", 10, 100},
		{"at max stock", 100, 10},
		{"above max stock", 500, 10},
		{"midpoint", 55, 55},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Price(10, 100, 10, 100, tc.stock)
			if got != tc.expected {
				t.Fatalf("Price(stock=%d) = %d, want %d", tc.stock, got, tc.expected)
			}
		})
	}
}

func TestPriceDegenerateStockWindow(t *testing.T) {
	// Static-stock items have min == max; price pins to the ceiling.
	if got := Price(1000, 1000, 1, 1, 1); got != 1000 {
		t.Fatalf("static item price = %d, want 1000", got)
	}
	if got := Price(5, 50, 10, 10, 3); got != 50 {
		t.Fatalf("degenerate window price = %d, want 50", got)
	}
}

func TestPriceMonotoneInStock(t *testing.T) {
	prev := Price(10, 100, 0, 50, 0)
	for stock := 1; stock <= 50; stock++ {
		cur := Price(10, 100, 0, 50, stock)
		if cur > prev {
			t.Fatalf("price increased with stock at level %d: %d > %d", stock, cur, prev)
		}
		prev = cur
	}
}

func TestResolvePercent(t *testing.T) {
	if got := ResolvePercent(75, 60, 50); got != 75 {
		t.Fatalf("item percent should win, got %v", got)
	}
	if got := ResolvePercent(-1, 60, 50); got != 60 {
		t.Fatalf("zone percent should win, got %v", got)
	}
	if got := ResolvePercent(-1, -1, 50); got != 50 {
		t.Fatalf("global percent should win, got %v", got)
	}
	if got := ResolvePercent(0, 60, 50); got != 0 {
		t.Fatalf("zero is a valid item percent, got %v", got)
	}
}

func TestSellTotalTiers(t *testing.T) {
	total, tiers := SellTotal(10, 100, 0, 10, 2, 3, 50)
	if len(tiers) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(tiers))
	}

	// Each sold unit lands on the next stock level, so samples walk
	// the curve downward and the total is their exact sum.
	sum := 0
	for i, tier := range tiers {
		if tier.StockLevel != float32(2+i) {
			t.Fatalf("tier %d stock level = %v, want %v", i, tier.StockLevel, float32(2+i))
		}
		expected := ApplyPercent(Price(10, 100, 0, 10, 2+i), 50)
		if int(tier.Price) != expected {
			t.Fatalf("tier %d price = %d, want %d", i, tier.Price, expected)
		}
		sum += int(tier.Price)
	}
	if total != sum {
		t.Fatalf("total %d does not match tier sum %d", total, sum)
	}
}

func TestSellTotalZeroAmount(t *testing.T) {
	total, tiers := SellTotal(10, 100, 0, 10, 5, 0, 100)
	if total != 0 || len(tiers) != 0 {
		t.Fatalf("empty sale priced: total=%d tiers=%d", total, len(tiers))
	}
}
