package sell

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/zone"
)

// Field order below is the audit channel contract; decode mirrors
// encode exactly. The first record omits its item id: the receiver
// already knows the transaction's primary item and supplies it out of
// band.

const maxAuditItems = 1 << 16

var (
	ErrAuditTruncated    = errors.New("sell: truncated audit record")
	ErrAuditTooManyItems = errors.New("sell: audit item count exceeds limit")
)

// AuditReport mirrors one sale for the debug/audit channel.
type AuditReport struct {
	ZoneSellPricePercent float32
	Items                []AuditItem
}

// AuditItem is one sale line with the catalog and ledger context needed
// to replay its pricing bit-exactly.
type AuditItem struct {
	ItemID uint32
	// ClassName is resolved from the catalog on both ends, never
	// serialized.
	ClassName string

	MaxPriceThreshold int32
	MinPriceThreshold int32

	SellPricePercent float32

	MaxStockThreshold int32
	MinStockThreshold int32

	// Stock is the zone's visible stock, or StockStatic for
	// static-stock items.
	Stock int32

	SoldAmount     int32
	StockIncrement float32
	Price          int32

	Tiers []AuditTier
}

// AuditTier is one (price, stockLevel) replay sample.
type AuditTier struct {
	Price      int32
	StockLevel float32
}

// BuildAuditReport snapshots a transaction against its zone.
func BuildAuditReport(t *Transaction, z *zone.TraderZone, cat *catalog.Catalog) AuditReport {
	report := AuditReport{ZoneSellPricePercent: float32(z.SellPricePercent)}

	for _, line := range t.Lines {
		item, ok := cat.Resolve(line.ClassName)
		if !ok {
			continue
		}

		stock := int32(zone.StockStatic)
		if !item.IsStaticStock() {
			visible, err := z.GetStock(item.ClassName, false)
			if err != nil {
				visible = zone.StockUndefined
			}
			stock = int32(visible)
		}

		auditItem := AuditItem{
			ItemID:            item.ItemID,
			ClassName:         item.ClassName,
			MaxPriceThreshold: int32(item.MaxPriceThreshold),
			MinPriceThreshold: int32(item.MinPriceThreshold),
			SellPricePercent:  float32(item.SellPricePercent),
			MaxStockThreshold: int32(item.MaxStockThreshold),
			MinStockThreshold: int32(item.MinStockThreshold),
			Stock:             stock,
			SoldAmount:        int32(line.SoldAmount),
			StockIncrement:    float32(line.StockIncrement),
			Price:             int32(line.Price),
		}
		for _, tier := range line.Tiers {
			auditItem.Tiers = append(auditItem.Tiers, AuditTier{Price: tier.Price, StockLevel: tier.StockLevel})
		}
		report.Items = append(report.Items, auditItem)
	}
	return report
}

// Encode writes the report in wire order.
func (r AuditReport) Encode(w io.Writer) error {
	if len(r.Items) > maxAuditItems {
		return ErrAuditTooManyItems
	}
	if err := writeF32(w, r.ZoneSellPricePercent); err != nil {
		return err
	}
	if err := writeI32(w, int32(len(r.Items))); err != nil {
		return err
	}
	for i, item := range r.Items {
		if err := item.encode(w, i == 0); err != nil {
			return err
		}
	}
	return nil
}

func (a AuditItem) encode(w io.Writer, isMainItem bool) error {
	if !isMainItem {
		if err := writeU32(w, a.ItemID); err != nil {
			return err
		}
	}
	for _, v := range []int32{a.MaxPriceThreshold, a.MinPriceThreshold} {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	if err := writeF32(w, a.SellPricePercent); err != nil {
		return err
	}
	for _, v := range []int32{a.MaxStockThreshold, a.MinStockThreshold, a.Stock, a.SoldAmount} {
		if err := writeI32(w, v); err != nil {
			return err
		}
	}
	if err := writeF32(w, a.StockIncrement); err != nil {
		return err
	}
	if err := writeI32(w, a.Price); err != nil {
		return err
	}
	if err := writeI32(w, int32(len(a.Tiers))); err != nil {
		return err
	}
	for _, tier := range a.Tiers {
		if err := writeI32(w, tier.Price); err != nil {
			return err
		}
		if err := writeF32(w, tier.StockLevel); err != nil {
			return err
		}
	}
	return nil
}

// DecodeAuditReport reads a report, resolving the elided first item id
// from mainItemID and, when a catalog is given, class names by item id.
func DecodeAuditReport(r io.Reader, mainItemID uint32, cat *catalog.Catalog) (AuditReport, error) {
	var report AuditReport

	percent, err := readF32(r)
	if err != nil {
		return AuditReport{}, err
	}
	report.ZoneSellPricePercent = percent

	count, err := readI32(r)
	if err != nil {
		return AuditReport{}, err
	}
	if count < 0 || count > maxAuditItems {
		return AuditReport{}, fmt.Errorf("%w: %d", ErrAuditTooManyItems, count)
	}

	for i := int32(0); i < count; i++ {
		item, err := decodeAuditItem(r, i == 0)
		if err != nil {
			return AuditReport{}, err
		}
		if i == 0 {
			item.ItemID = mainItemID
		}
		if cat != nil {
			if entry, ok := cat.ByID(item.ItemID); ok {
				item.ClassName = entry.ClassName
			}
		}
		report.Items = append(report.Items, item)
	}
	return report, nil
}

func decodeAuditItem(r io.Reader, isMainItem bool) (AuditItem, error) {
	var a AuditItem
	var err error

	if !isMainItem {
		if a.ItemID, err = readU32(r); err != nil {
			return AuditItem{}, err
		}
	}
	if a.MaxPriceThreshold, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.MinPriceThreshold, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.SellPricePercent, err = readF32(r); err != nil {
		return AuditItem{}, err
	}
	if a.MaxStockThreshold, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.MinStockThreshold, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.Stock, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.SoldAmount, err = readI32(r); err != nil {
		return AuditItem{}, err
	}
	if a.StockIncrement, err = readF32(r); err != nil {
		return AuditItem{}, err
	}
	if a.Price, err = readI32(r); err != nil {
		return AuditItem{}, err
	}

	tierCount, err := readI32(r)
	if err != nil {
		return AuditItem{}, err
	}
	if tierCount < 0 || tierCount > maxAuditItems {
		return AuditItem{}, fmt.Errorf("%w: %d tiers", ErrAuditTooManyItems, tierCount)
	}
	for j := int32(0); j < tierCount; j++ {
		var tier AuditTier
		if tier.Price, err = readI32(r); err != nil {
			return AuditItem{}, err
		}
		if tier.StockLevel, err = readF32(r); err != nil {
			return AuditItem{}, err
		}
		a.Tiers = append(a.Tiers, tier)
	}
	return a, nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeI32(w io.Writer, v int32) error {
	return writeU32(w, uint32(v))
}

func writeF32(w io.Writer, v float32) error {
	return writeU32(w, math.Float32bits(v))
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrAuditTruncated
		}
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func readI32(r io.Reader) (int32, error) {
	v, err := readU32(r)
	return int32(v), err
}

func readF32(r io.Reader) (float32, error) {
	v, err := readU32(r)
	return math.Float32frombits(v), err
}
