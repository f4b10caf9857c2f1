package pricing

// Tier is one audit sample from a multi-unit sale: the credited price
// for a single unit and the stock level it was computed at. Wire types
// (int32 price, float32 stock) are part of the audit channel contract.
type Tier struct {
	Price      int32
	StockLevel float32
}

// Price returns the unit price of an item at the given stock level.
// Price falls linearly from MaxPriceThreshold at MinStockThreshold down
// to MinPriceThreshold at MaxStockThreshold; levels outside the stock
// window clamp to the nearest threshold price.
func Price(minPrice, maxPrice, minStock, maxStock, stock int) int {
	if maxStock <= minStock {
		return maxPrice
	}
	if stock <= minStock {
		return maxPrice
	}
	if stock >= maxStock {
		return minPrice
	}
	span := maxStock - minStock
	return maxPrice - (stock-minStock)*(maxPrice-minPrice)/span
}

// ApplyPercent scales a unit price by a sell-price percentage.
func ApplyPercent(price int, percent float64) int {
	return int(float64(price) * percent / 100.0)
}

// ResolvePercent picks the effective sell-price percentage: the item's,
// unless negative, then the zone's, unless negative, then the global.
func ResolvePercent(itemPercent, zonePercent, globalPercent float64) float64 {
	if itemPercent >= 0 {
		return itemPercent
	}
	if zonePercent >= 0 {
		return zonePercent
	}
	return globalPercent
}

// SellTotal prices a sale of amount units starting at startStock,
// crediting each unit at the price of the stock level it lands on. The
// returned tiers replay the sale sample by sample for dispute audits.
func SellTotal(minPrice, maxPrice, minStock, maxStock, startStock, amount int, percent float64) (int, []Tier) {
	total := 0
	tiers := make([]Tier, 0, amount)
	for i := 0; i < amount; i++ {
		level := startStock + i
		unit := ApplyPercent(Price(minPrice, maxPrice, minStock, maxStock, level), percent)
		total += unit
		tiers = append(tiers, Tier{Price: int32(unit), StockLevel: float32(level)})
	}
	return total, tiers
}
