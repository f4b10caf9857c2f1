package protocol

import (
	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/trader"
	"github.com/opentrader/zonemarket/internal/market/zone"
)

// Batcher walks a trader's listings and emits record batches sized for
// one network tick. It holds no per-zone state: pagination is resumed
// through the index returned by Serialize.
type Batcher struct {
	catalog   *catalog.Catalog
	batchSize int
	log       zerolog.Logger
}

// NewBatcher builds a batcher with the configured per-tick cap. A cap
// of zero disables pagination: every call serializes the full
// remaining listing in one batch.
func NewBatcher(cat *catalog.Catalog, batchSize int, log zerolog.Logger) *Batcher {
	return &Batcher{catalog: cat, batchSize: batchSize, log: log}
}

// Serialize emits records for tr against zone z starting at start and
// returns them with the index of the first unprocessed listing, so the
// caller can resume across ticks.
//
// A non-empty itemIDs filter switches to targeted mode: only matching
// listings are built and pagination is bypassed entirely.
func (b *Batcher) Serialize(z *zone.TraderZone, tr *trader.Trader, start int, stockOnly bool, itemIDs []uint32) ([]Record, int) {
	items := tr.Items
	batchSize := b.batchSize

	if len(itemIDs) > 0 {
		wanted := make(map[uint32]struct{}, len(itemIDs))
		for _, id := range itemIDs {
			wanted[id] = struct{}{}
		}
		filtered := make([]trader.Item, 0, len(itemIDs))
		for _, ti := range tr.Items {
			if _, ok := wanted[ti.Market.ItemID]; ok {
				filtered = append(filtered, ti)
			}
		}
		items = filtered
		start = 0
		batchSize = 0
	}

	count := len(items)
	if batchSize == 0 {
		batchSize = count
	}

	records := make([]Record, 0, batchSize)
	i := start
	for ; i < count; i++ {
		if i == start+batchSize {
			break
		}
		records = append(records, BuildRecord(items[i], z, b.catalog, stockOnly, b.log))
	}

	return records, i
}
