package sell

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/pricing"
	"github.com/opentrader/zonemarket/internal/market/zone"
)

// PhysicalItem is the in-world object backing a sell line. Destroy must
// cascade to dependent keyed objects; that cleanup is the hosting
// process's concern, not the ledger's.
type PhysicalItem interface {
	ClassName() string
	Quantity() int
	SetQuantity(amount int)
	Destroy()
}

// Line is one physical item or stack being liquidated.
type Line struct {
	ClassName string

	// TakenAmount is removed from the physical object; zero means the
	// object is destroyed unconditionally regardless of its quantity.
	TakenAmount int
	// SoldAmount is credited toward stock and may differ from
	// TakenAmount under quantity modifiers.
	SoldAmount int

	// IsEntity is false for stacks without a physical back-reference,
	// such as loose ammunition or magazine contents.
	IsEntity bool
	Item     PhysicalItem

	// StockIncrement is SoldAmount scaled by the line's stock
	// increment modifier; fractional values are intentional and
	// truncate only at the ledger credit.
	StockIncrement float64

	// Price and Tiers are filled by PriceLines for the audit channel.
	Price int
	Tiers []pricing.Tier
}

// Transaction aggregates the lines of one sale. It is built empty, has
// lines appended per consumed object, is applied to a zone once, and is
// then discarded.
type Transaction struct {
	ID    uuid.UUID
	Valid bool

	Price  int
	Trader string
	Time   time.Time

	// TotalAmount is the physical amount sold, without modifiers.
	TotalAmount int

	// Item is the catalog entry of the primary item being sold.
	Item *catalog.Item

	Lines []*Line

	log zerolog.Logger
}

// NewTransaction starts an empty sale of item at the named trader.
func NewTransaction(traderName string, item *catalog.Item, log zerolog.Logger) *Transaction {
	return &Transaction{
		ID:     uuid.New(),
		Trader: traderName,
		Time:   time.Now(),
		Item:   item,
		log:    log.With().Str("trader", traderName).Logger(),
	}
}

// AddLine appends one consumed object or stack. The class name is
// resolved from the physical reference when not given explicitly.
func (t *Transaction) AddLine(takenAmount, soldAmount int, incrementModifier float64, item PhysicalItem, className string) *Line {
	if className == "" && item != nil {
		className = item.ClassName()
	}

	line := &Line{
		ClassName:      strings.ToLower(className),
		TakenAmount:    takenAmount,
		SoldAmount:     soldAmount,
		Item:           item,
		IsEntity:       item != nil,
		StockIncrement: float64(soldAmount) * incrementModifier,
	}
	t.Lines = append(t.Lines, line)
	t.TotalAmount += takenAmount
	return line
}

// PriceLines computes each line's payout and audit tiers against the
// zone's current visible stock, walking the price curve as the sale
// itself raises stock. Line order is the replay order.
func (t *Transaction) PriceLines(z *zone.TraderZone, cat *catalog.Catalog, globalSellPercent float64) {
	levels := make(map[string]int)

	t.Price = 0
	for _, line := range t.Lines {
		item, ok := cat.Resolve(line.ClassName)
		if !ok {
			t.log.Warn().Str("item", line.ClassName).Msg("sell line does not resolve in catalog")
			continue
		}

		level, seen := levels[line.ClassName]
		if !seen {
			level = startLevel(z, item)
		}

		percent := pricing.ResolvePercent(item.SellPricePercent, z.SellPricePercent, globalSellPercent)
		line.Price, line.Tiers = pricing.SellTotal(
			item.MinPriceThreshold, item.MaxPriceThreshold,
			item.MinStockThreshold, item.MaxStockThreshold,
			level, line.SoldAmount, percent,
		)
		t.Price += line.Price

		levels[line.ClassName] = level + line.SoldAmount
	}
	t.Valid = true
}

func startLevel(z *zone.TraderZone, item *catalog.Item) int {
	if item.IsStaticStock() {
		return 1
	}
	if stock, err := z.GetStock(item.ClassName, false); err == nil {
		return stock
	}
	// Only listed as an attachment here; scarce-default like the codec.
	return item.MinStockThreshold
}

// Apply credits the zone's ledger for every line and reconciles the
// physical objects: consumed objects are destroyed, partially taken
// ones have their quantity reduced in place.
func (t *Transaction) Apply(z *zone.TraderZone) {
	for _, line := range t.Lines {
		z.AddStock(line.ClassName, int(line.StockIncrement))
		line.reconcilePhysical()
	}

	t.log.Info().
		Str("transaction", t.ID.String()).
		Int("lines", len(t.Lines)).
		Int("amount", t.TotalAmount).
		Int("price", t.Price).
		Msg("sell transaction applied")
}

func (l *Line) reconcilePhysical() {
	if l.Item == nil {
		return
	}

	remain := 0
	if l.TakenAmount > 0 {
		remain = l.Item.Quantity() - l.TakenAmount
	}
	if remain <= 0 {
		l.Item.Destroy()
		return
	}
	l.Item.SetQuantity(remain)
}
