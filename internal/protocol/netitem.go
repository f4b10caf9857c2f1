package protocol

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/trader"
	"github.com/opentrader/zonemarket/internal/market/zone"
)

const (
	flagStockOnly uint8 = 0x01

	maxClassNameLen = 1024
	maxAttachments  = 256
	maxVariants     = 256
	maxVariantLen   = 1024
)

// Record is the wire projection of one market item for one trader
// zone. When StockOnly is set only the item id and stock ride the
// wire; everything else is elided for high-frequency stock refreshes.
type Record struct {
	ItemID uint32

	// Stock is the visible stock: available minus reserved. Negative
	// values only ever appear as an oversold error signal.
	Stock int32

	StockOnly bool

	CategoryID uint32
	ClassName  string

	MinPriceThreshold int32
	MaxPriceThreshold int32
	MinStockThreshold int32
	MaxStockThreshold int32

	AttachmentIDs []uint32
	Variants      []string

	Packed uint32
}

// BuildRecord projects one trader listing into its wire record.
//
// Visible stock resolves three ways: static-stock items always show 1;
// items stocked in the zone show available minus reserved so clients
// never see phantom stock; items listed only as attachment references
// show their min threshold so client-side price math treats them as
// scarce rather than absent.
func BuildRecord(ti trader.Item, z *zone.TraderZone, cat *catalog.Catalog, stockOnly bool, log zerolog.Logger) Record {
	item := ti.Market

	var stock int
	switch {
	case item.IsStaticStock():
		stock = 1
	case z.ItemExists(item.ClassName):
		stock, _ = z.GetStock(item.ClassName, false)
	default:
		stock = item.MinStockThreshold
	}

	rec := Record{
		ItemID:    item.ItemID,
		Stock:     int32(stock),
		StockOnly: item.StockOnly,
	}

	if stockOnly || rec.StockOnly {
		rec.StockOnly = true
		return rec
	}

	rec.CategoryID = item.CategoryID
	rec.ClassName = item.ClassName
	rec.MinPriceThreshold = int32(item.MinPriceThreshold)
	rec.MaxPriceThreshold = int32(item.MaxPriceThreshold)
	rec.MinStockThreshold = int32(item.MinStockThreshold)
	rec.MaxStockThreshold = int32(item.MaxStockThreshold)

	for _, className := range item.SpawnAttachments {
		attachment, ok := cat.Resolve(className)
		if !ok {
			// Not fatal: the record just omits the attachment id.
			log.Warn().
				Str("item", item.ClassName).
				Str("attachment", className).
				Msg("attachment does not resolve in catalog")
			continue
		}
		rec.AttachmentIDs = append(rec.AttachmentIDs, attachment.ItemID)
	}

	rec.Variants = append(rec.Variants, item.Variants...)

	rec.Packed = PackItemFlags(uint8(ti.BuySell), item.Rarity, item.QuantityPercent, int(item.SellPricePercent))
	return rec
}

// WriteRecord writes one record body in wire order.
func WriteRecord(w io.Writer, rec Record) error {
	if len(rec.ClassName) > maxClassNameLen {
		return ErrStringTooLong
	}
	if len(rec.AttachmentIDs) > maxAttachments || len(rec.Variants) > maxVariants {
		return ErrListTooLong
	}

	var flags uint8
	if rec.StockOnly {
		flags |= flagStockOnly
	}

	buf := make([]byte, 0, 64)
	buf = binary.BigEndian.AppendUint32(buf, rec.ItemID)
	buf = binary.BigEndian.AppendUint32(buf, uint32(rec.Stock))
	buf = append(buf, flags)

	if rec.StockOnly {
		_, err := w.Write(buf)
		return err
	}

	buf = binary.BigEndian.AppendUint32(buf, rec.CategoryID)
	buf = appendString(buf, rec.ClassName)
	buf = binary.BigEndian.AppendUint32(buf, uint32(rec.MinPriceThreshold))
	buf = binary.BigEndian.AppendUint32(buf, uint32(rec.MaxPriceThreshold))
	buf = binary.BigEndian.AppendUint32(buf, uint32(rec.MinStockThreshold))
	buf = binary.BigEndian.AppendUint32(buf, uint32(rec.MaxStockThreshold))

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(rec.AttachmentIDs)))
	for _, id := range rec.AttachmentIDs {
		buf = binary.BigEndian.AppendUint32(buf, id)
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(rec.Variants)))
	for _, variant := range rec.Variants {
		if len(variant) > maxVariantLen {
			return ErrStringTooLong
		}
		buf = appendString(buf, variant)
	}

	buf = binary.BigEndian.AppendUint32(buf, rec.Packed)

	_, err := w.Write(buf)
	return err
}

// ReadRecord reads one record body, mirroring WriteRecord field order.
func ReadRecord(r io.Reader) (Record, error) {
	var rec Record

	itemID, err := readU32(r)
	if err != nil {
		return Record{}, err
	}
	rec.ItemID = itemID

	stock, err := readU32(r)
	if err != nil {
		return Record{}, err
	}
	rec.Stock = int32(stock)

	flags, err := readU8(r)
	if err != nil {
		return Record{}, err
	}
	rec.StockOnly = flags&flagStockOnly != 0
	if rec.StockOnly {
		return rec, nil
	}

	if rec.CategoryID, err = readU32(r); err != nil {
		return Record{}, err
	}
	if rec.ClassName, err = readString(r, maxClassNameLen); err != nil {
		return Record{}, err
	}

	for _, dst := range []*int32{&rec.MinPriceThreshold, &rec.MaxPriceThreshold, &rec.MinStockThreshold, &rec.MaxStockThreshold} {
		v, err := readU32(r)
		if err != nil {
			return Record{}, err
		}
		*dst = int32(v)
	}

	attachmentCount, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	if attachmentCount > maxAttachments {
		return Record{}, ErrListTooLong
	}
	for i := 0; i < int(attachmentCount); i++ {
		id, err := readU32(r)
		if err != nil {
			return Record{}, err
		}
		rec.AttachmentIDs = append(rec.AttachmentIDs, id)
	}

	variantCount, err := readU16(r)
	if err != nil {
		return Record{}, err
	}
	if variantCount > maxVariants {
		return Record{}, ErrListTooLong
	}
	for i := 0; i < int(variantCount); i++ {
		variant, err := readString(r, maxVariantLen)
		if err != nil {
			return Record{}, err
		}
		rec.Variants = append(rec.Variants, variant)
	}

	if rec.Packed, err = readU32(r); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(r io.Reader, maxLen int) (string, error) {
	length, err := readU16(r)
	if err != nil {
		return "", err
	}
	if int(length) > maxLen {
		return "", ErrStringTooLong
	}
	if length == 0 {
		return "", nil
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", truncated(err)
	}
	return string(buf), nil
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	return buf[0], nil
}

func readU16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	return binary.BigEndian.Uint16(buf[:]), nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, truncated(err)
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}
