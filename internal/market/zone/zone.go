package zone

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
)

// CurrentVersion is the zone document schema version written by Save.
const CurrentVersion = 6

// Legacy stock sentinels. -3 is kept for third-party compatibility.
const (
	StockUndefined = -3
	StockStatic    = -2
)

var ErrItemNotInZone = errors.New("zone: item not stocked in trader zone")

// TraderZone is the per-zone stock and reservation ledger.
//
// Stock holds the available amount per item; reservations are a
// parallel signed ledger so an in-flight transaction's claim can be
// rolled back exactly without reconstructing the prior available value.
// Not safe for concurrent use: the hosting process serializes all
// access to a given zone.
type TraderZone struct {
	Version     int
	DisplayName string

	BuyPricePercent  float64
	SellPricePercent float64

	Stock map[string]int

	fileName string
	reserved map[string]int
	catalog  *catalog.Catalog
	log      zerolog.Logger
}

// New creates an empty zone with default percents.
func New(name string, cat *catalog.Catalog, log zerolog.Logger) *TraderZone {
	z := &TraderZone{
		Stock:    make(map[string]int),
		reserved: make(map[string]int),
		catalog:  cat,
		log:      log.With().Str("zone", name).Logger(),
	}
	z.defaults()
	z.DisplayName = name
	return z
}

func (z *TraderZone) defaults() {
	z.Version = CurrentVersion
	z.DisplayName = "World Trader Zone"
	z.BuyPricePercent = 100
	// -1 = defer to the global sell price percentage.
	z.SellPricePercent = -1
}

// SetStock overwrites the available stock for an item, clamped to the
// item's max threshold. Unknown items are ignored.
func (z *TraderZone) SetStock(className string, stock int) {
	z.setStock(className, stock, false)
}

// AddStock adds to the available stock for an item, clamped to the
// item's max threshold. Unknown items are ignored.
func (z *TraderZone) AddStock(className string, stock int) {
	z.setStock(className, stock, true)
}

func (z *TraderZone) setStock(className string, stock int, addToExisting bool) {
	className = strings.ToLower(className)

	item, ok := z.catalog.Resolve(className)
	if !ok {
		return
	}

	static := item.IsStaticStock()
	if static {
		stock = 1
	}

	if _, exists := z.Stock[className]; exists {
		if !static && addToExisting {
			stock += z.Stock[className]
		}
		if stock > item.MaxStockThreshold {
			stock = item.MaxStockThreshold
		}
		z.Stock[className] = stock
		return
	}

	if stock > item.MaxStockThreshold {
		stock = item.MaxStockThreshold
	}
	z.Stock[className] = stock
	z.reserved[className] = 0
}

// RemoveStock decrements available stock, clamping at zero, or, when
// inReserve is set, raises the reservation claim instead. Reservations
// are deliberately unclamped: the caller owns not over-reserving, and a
// claim beyond available must stay visible as a negative visible stock
// diagnostic rather than be corrected away. Unknown items are ignored;
// static-stock items never decrement.
func (z *TraderZone) RemoveStock(className string, stock int, inReserve bool) {
	className = strings.ToLower(className)

	item, ok := z.catalog.Resolve(className)
	if !ok {
		return
	}

	if _, exists := z.Stock[className]; !exists {
		// First reference through a decrement: record the item as
		// present with zero stock, nothing to remove.
		z.Stock[className] = 0
		z.reserved[className] = 0
		return
	}

	if item.IsStaticStock() {
		return
	}

	if inReserve {
		z.reserved[className] += stock
		return
	}

	newStock := z.Stock[className] - stock
	if newStock < 0 {
		newStock = 0
	}
	z.Stock[className] = newStock
}

// ClearReservedStock releases a reservation claim. The reserved value
// is not clamped; an over-release goes negative and is logged so that
// the bookkeeping bug stays observable.
func (z *TraderZone) ClearReservedStock(className string, reserved int) {
	className = strings.ToLower(className)

	item, ok := z.catalog.Resolve(className)
	if !ok {
		return
	}
	if item.IsStaticStock() {
		return
	}

	newReserved := z.reserved[className] - reserved
	z.reserved[className] = newReserved
	if newReserved < 0 {
		z.log.Error().
			Str("item", className).
			Int("reserved", newReserved).
			Msg("reserved stock over-released")
	}
}

// ItemExists reports whether the item is independently stocked in this
// zone, as opposed to existing only as an attachment reference.
func (z *TraderZone) ItemExists(className string) bool {
	_, ok := z.Stock[strings.ToLower(className)]
	return ok
}

// GetStock returns the stock for an item. With actual set it returns
// the raw available value; otherwise the visible stock, available minus
// reserved. A negative visible value indicates a reservation
// bookkeeping bug and is returned as-is after logging a diagnostic.
// Items never stocked here return StockUndefined and ErrItemNotInZone.
func (z *TraderZone) GetStock(className string, actual bool) (int, error) {
	className = strings.ToLower(className)

	stock, ok := z.Stock[className]
	if !ok {
		z.log.Error().Str("item", className).Msg("item does not exist in trader zone")
		return StockUndefined, ErrItemNotInZone
	}

	if actual {
		return stock, nil
	}

	reservedStock, ok := z.reserved[className]
	if ok {
		stock -= reservedStock
	} else {
		// Self-heal the pair invariant for entries loaded from
		// documents that predate the reservation ledger.
		z.reserved[className] = 0
	}

	if stock < 0 {
		z.log.Error().
			Str("item", className).
			Int("reserved", reservedStock).
			Int("visible", stock).
			Msg("reserved stock exceeds available stock")
	}

	return stock, nil
}

// ReservedStock returns the current reservation claim for an item.
func (z *TraderZone) ReservedStock(className string) int {
	return z.reserved[strings.ToLower(className)]
}

// Reconcile prunes entries whose item no longer resolves in the
// catalog and/or seeds entries for catalog items not yet stocked
// (static items at 1, everything else at its max threshold). The zone
// document is re-saved iff anything changed.
func (z *TraderZone) Reconcile(pruneMissing bool, topUp []*catalog.Item) (removed, added int, err error) {
	if pruneMissing {
		var toRemove []string
		for className := range z.Stock {
			if _, ok := z.catalog.Resolve(className); !ok {
				toRemove = append(toRemove, className)
			}
		}
		for _, className := range toRemove {
			z.log.Info().Str("item", className).Msg("pruning unresolvable item")
			delete(z.Stock, className)
			delete(z.reserved, className)
		}
		removed = len(toRemove)
	}

	for _, item := range topUp {
		if _, ok := z.Stock[item.ClassName]; ok {
			continue
		}
		stock := item.MaxStockThreshold
		if item.IsStaticStock() {
			stock = 1
		}
		z.log.Info().Str("item", item.ClassName).Int("stock", stock).Msg("seeding item")
		z.Stock[item.ClassName] = stock
		z.reserved[item.ClassName] = 0
		added++
	}

	if (removed > 0 || added > 0) && z.fileName != "" {
		err = z.Save()
	}
	return removed, added, err
}
