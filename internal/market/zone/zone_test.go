package zone

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]*catalog.Item{
		{ItemID: 1, ClassName: "apple", MinPriceThreshold: 5, MaxPriceThreshold: 20, MinStockThreshold: 0, MaxStockThreshold: 10},
		{ItemID: 2, ClassName: "goldbar", MinPriceThreshold: 1000, MaxPriceThreshold: 1000, MinStockThreshold: 1, MaxStockThreshold: 1},
		{ItemID: 3, ClassName: "nails", MinPriceThreshold: 1, MaxPriceThreshold: 5, MinStockThreshold: 0, MaxStockThreshold: 500},
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("test catalog: %v", err)
	}
	return cat
}

func testZone(t *testing.T) *TraderZone {
	t.Helper()
	return New("TestZone", testCatalog(t), zerolog.Nop())
}

func mustStock(t *testing.T, z *TraderZone, name string, actual bool) int {
	t.Helper()
	stock, err := z.GetStock(name, actual)
	if err != nil {
		t.Fatalf("GetStock(%q, actual=%v): %v", name, actual, err)
	}
	return stock
}

func TestGetStockUnknownInZone(t *testing.T) {
	z := testZone(t)

	stock, err := z.GetStock("apple", false)
	if !errors.Is(err, ErrItemNotInZone) {
		t.Fatalf("expected ErrItemNotInZone, got %v", err)
	}
	if stock != StockUndefined {
		t.Fatalf("expected StockUndefined sentinel, got %d", stock)
	}

	// The miss must not fire the lazy reserved-entry insert.
	if z.ItemExists("apple") {
		t.Fatal("GetStock miss must not create a ledger entry")
	}
}

func TestSetStockClampsToMaxThreshold(t *testing.T) {
	z := testZone(t)

	z.SetStock("apple", 25)
	if got := mustStock(t, z, "apple", true); got != 10 {
		t.Fatalf("stock = %d, want clamp to 10", got)
	}
}

func TestSetStockNormalizesCase(t *testing.T) {
	z := testZone(t)

	z.SetStock("APPLE", 5)
	if got := mustStock(t, z, "Apple", true); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
}

func TestSetStockUnknownItemIsNoop(t *testing.T) {
	z := testZone(t)

	z.SetStock("banana", 5)
	if z.ItemExists("banana") {
		t.Fatal("unknown catalog item must not enter the ledger")
	}
}

func TestStaticStockAlwaysOne(t *testing.T) {
	z := testZone(t)

	z.SetStock("goldbar", 5)
	if got := mustStock(t, z, "goldbar", true); got != 1 {
		t.Fatalf("static stock = %d, want 1", got)
	}

	// Static items are invariant under add/remove.
	z.AddStock("goldbar", 3)
	if got := mustStock(t, z, "goldbar", true); got != 1 {
		t.Fatalf("static stock after add = %d, want 1", got)
	}
	z.RemoveStock("goldbar", 1, false)
	if got := mustStock(t, z, "goldbar", true); got != 1 {
		t.Fatalf("static stock after remove = %d, want 1", got)
	}
	z.ClearReservedStock("goldbar", 1)
	if got := z.ReservedStock("goldbar"); got != 0 {
		t.Fatalf("static reserved = %d, want 0", got)
	}
}

func TestAddThenRemoveRestoresStock(t *testing.T) {
	z := testZone(t)

	z.SetStock("nails", 100)
	z.AddStock("nails", 50)
	z.RemoveStock("nails", 50, false)
	if got := mustStock(t, z, "nails", true); got != 100 {
		t.Fatalf("stock = %d, want 100", got)
	}
}

func TestRemoveStockClampsAtZero(t *testing.T) {
	z := testZone(t)

	z.SetStock("apple", 3)
	z.RemoveStock("apple", 10, false)
	if got := mustStock(t, z, "apple", true); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestRemoveStockAbsentInsertsZeroEntry(t *testing.T) {
	z := testZone(t)

	z.RemoveStock("apple", 5, false)
	if !z.ItemExists("apple") {
		t.Fatal("remove on absent item must record it at zero")
	}
	if got := mustStock(t, z, "apple", true); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
	if got := z.ReservedStock("apple"); got != 0 {
		t.Fatalf("reserved = %d, want 0", got)
	}
}

func TestReservationLifecycle(t *testing.T) {
	z := testZone(t)

	z.SetStock("apple", 10)

	z.RemoveStock("apple", 3, true)
	if got := z.ReservedStock("apple"); got != 3 {
		t.Fatalf("reserved = %d, want 3", got)
	}
	if got := mustStock(t, z, "apple", false); got != 7 {
		t.Fatalf("visible stock = %d, want 7", got)
	}
	if got := mustStock(t, z, "apple", true); got != 10 {
		t.Fatalf("actual stock = %d, want 10", got)
	}

	z.ClearReservedStock("apple", 3)
	if got := z.ReservedStock("apple"); got != 0 {
		t.Fatalf("reserved after clear = %d, want 0", got)
	}

	z.AddStock("apple", 3)
	if got := mustStock(t, z, "apple", true); got != 10 {
		t.Fatalf("stock = %d, want cap at 10", got)
	}
}

func TestOverReservationStaysVisible(t *testing.T) {
	z := testZone(t)

	z.SetStock("apple", 5)
	z.RemoveStock("apple", 8, true)

	// Negative visible stock signals a double-reservation bug; it is
	// logged but never clamped away.
	if got := mustStock(t, z, "apple", false); got != -3 {
		t.Fatalf("visible stock = %d, want -3", got)
	}
	if got := mustStock(t, z, "apple", true); got != 5 {
		t.Fatalf("actual stock = %d, want 5", got)
	}
}

func TestClearReservedOverReleaseGoesNegative(t *testing.T) {
	z := testZone(t)

	z.SetStock("apple", 5)
	z.ClearReservedStock("apple", 2)
	if got := z.ReservedStock("apple"); got != -2 {
		t.Fatalf("reserved = %d, want -2", got)
	}
	// Which in turn inflates the visible stock, also unclamped.
	if got := mustStock(t, z, "apple", false); got != 7 {
		t.Fatalf("visible stock = %d, want 7", got)
	}
}

func TestReconcilePrunesAndSeeds(t *testing.T) {
	cat := testCatalog(t)
	z := New("TestZone", cat, zerolog.Nop())

	z.SetStock("apple", 5)
	// Simulate a stored item whose catalog entry went away.
	z.Stock["legacy_item"] = 9

	removed, added, err := z.Reconcile(true, cat.Items())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if z.ItemExists("legacy_item") {
		t.Fatal("unresolvable item must be pruned")
	}

	// apple was present; goldbar and nails get seeded.
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if got := mustStock(t, z, "goldbar", true); got != 1 {
		t.Fatalf("seeded static stock = %d, want 1", got)
	}
	if got := mustStock(t, z, "nails", true); got != 500 {
		t.Fatalf("seeded stock = %d, want max threshold 500", got)
	}
	// Existing entries keep their value.
	if got := mustStock(t, z, "apple", true); got != 5 {
		t.Fatalf("apple stock = %d, want 5", got)
	}
}

func TestReconcileNoChangeNoSave(t *testing.T) {
	z := testZone(t)
	z.SetStock("apple", 5)

	// No file bound: a save attempt would error, so a no-change pass
	// must not try.
	removed, added, err := z.Reconcile(true, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if removed != 0 || added != 0 {
		t.Fatalf("expected no changes, got removed=%d added=%d", removed, added)
	}
}
