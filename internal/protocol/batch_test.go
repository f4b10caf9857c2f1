package protocol

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/trader"
	"github.com/opentrader/zonemarket/internal/market/zone"
)

func batchFixture(t *testing.T, n int) (*catalog.Catalog, *zone.TraderZone, *trader.Trader) {
	t.Helper()
	items := make([]*catalog.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, &catalog.Item{
			ItemID:            uint32(i + 1),
			ClassName:         fmt.Sprintf("item_%03d", i),
			MaxStockThreshold: 100,
		})
	}
	cat, err := catalog.New(items, zerolog.Nop())
	if err != nil {
		t.Fatalf("batch catalog: %v", err)
	}

	z := zone.New("BatchZone", cat, zerolog.Nop())
	tr := &trader.Trader{Name: "BatchTrader", Zone: "BatchZone"}
	for _, item := range cat.Items() {
		z.SetStock(item.ClassName, 10)
		tr.Items = append(tr.Items, trader.Item{Market: item, BuySell: trader.CanBuySell})
	}
	return cat, z, tr
}

func TestSerializePagination(t *testing.T) {
	const n, batchSize = 10, 3
	cat, z, tr := batchFixture(t, n)

	full, next := NewBatcher(cat, 0, zerolog.Nop()).Serialize(z, tr, 0, false, nil)
	if len(full) != n || next != n {
		t.Fatalf("unbatched serialization: %d records, next %d", len(full), next)
	}

	b := NewBatcher(cat, batchSize, zerolog.Nop())
	var paged []Record
	calls := 0
	prev := -1
	for start := 0; start < n; {
		records, next := b.Serialize(z, tr, start, false, nil)
		if next <= prev {
			t.Fatalf("resume index not increasing: %d then %d", prev, next)
		}
		prev = next
		paged = append(paged, records...)
		start = next
		calls++
	}

	// ceil(10/3) = 4 calls whose concatenation equals the full pass.
	if calls != 4 {
		t.Fatalf("expected 4 calls, got %d", calls)
	}
	if len(paged) != len(full) {
		t.Fatalf("paged %d records, full %d", len(paged), len(full))
	}
	for i := range full {
		if paged[i].ItemID != full[i].ItemID || paged[i].Stock != full[i].Stock {
			t.Fatalf("record %d diverges: paged=%+v full=%+v", i, paged[i], full[i])
		}
	}
}

func TestSerializeBatchSizeLimitsRecords(t *testing.T) {
	cat, z, tr := batchFixture(t, 10)
	records, next := NewBatcher(cat, 4, zerolog.Nop()).Serialize(z, tr, 0, false, nil)
	if len(records) != 4 || next != 4 {
		t.Fatalf("got %d records, next %d; want 4, 4", len(records), next)
	}

	records, next = NewBatcher(cat, 4, zerolog.Nop()).Serialize(z, tr, 8, false, nil)
	if len(records) != 2 || next != 10 {
		t.Fatalf("tail batch: %d records, next %d; want 2, 10", len(records), next)
	}
}

func TestSerializeZeroBatchSizeTakesAll(t *testing.T) {
	cat, z, tr := batchFixture(t, 7)
	records, next := NewBatcher(cat, 0, zerolog.Nop()).Serialize(z, tr, 0, false, nil)
	if len(records) != 7 || next != 7 {
		t.Fatalf("got %d records, next %d; want 7, 7", len(records), next)
	}
}

func TestSerializeItemIDFilterBypassesPagination(t *testing.T) {
	cat, z, tr := batchFixture(t, 10)

	// Filter mode ignores both the start index and the batch cap.
	records, _ := NewBatcher(cat, 2, zerolog.Nop()).Serialize(z, tr, 5, false, []uint32{1, 4, 9})
	if len(records) != 3 {
		t.Fatalf("expected 3 filtered records, got %d", len(records))
	}
	want := []uint32{1, 4, 9}
	for i, rec := range records {
		if rec.ItemID != want[i] {
			t.Fatalf("filtered record %d = id %d, want %d", i, rec.ItemID, want[i])
		}
	}
}

func TestSerializeStartBeyondEnd(t *testing.T) {
	cat, z, tr := batchFixture(t, 3)
	records, next := NewBatcher(cat, 2, zerolog.Nop()).Serialize(z, tr, 3, false, nil)
	if len(records) != 0 || next != 3 {
		t.Fatalf("got %d records, next %d; want 0, 3", len(records), next)
	}
}
