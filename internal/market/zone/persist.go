package zone

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
)

// zoneFile is the on-disk zone document at CurrentVersion: one field
// per line with the stock map as a nested table. Reservations are
// runtime-only state and are never persisted.
type zoneFile struct {
	Version          int            `toml:"version"`
	DisplayName      string         `toml:"display_name"`
	BuyPricePercent  float64        `toml:"buy_price_percent"`
	SellPricePercent float64        `toml:"sell_price_percent"`
	Stock            map[string]int `toml:"stock"`
}

// zoneFileV4 is the pre-split document shape carrying a single price
// percent that later became the buy-side percent.
type zoneFileV4 struct {
	Version      int     `toml:"version"`
	PricePercent float64 `toml:"price_percent"`
}

// Load reads a zone document, upgrading it in place when it predates
// CurrentVersion and immediately re-saving at the current schema.
func Load(path string, cat *catalog.Catalog, log zerolog.Logger) (*TraderZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zone load failed (%s): %w", path, err)
	}

	var file zoneFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("zone parse failed (%s): %w", path, err)
	}

	z := New(file.DisplayName, cat, log)
	z.Version = file.Version
	z.DisplayName = file.DisplayName
	z.BuyPricePercent = file.BuyPricePercent
	z.SellPricePercent = file.SellPricePercent
	z.fileName = path

	// Stored keys may carry arbitrary case; the ledger only ever
	// compares lowercase.
	for className, stock := range file.Stock {
		className = strings.ToLower(className)
		z.Stock[className] = stock
		z.reserved[className] = 0
	}

	if file.Version < CurrentVersion {
		if err := z.upgrade(data, file.Version); err != nil {
			return nil, err
		}
	}

	return z, nil
}

func (z *TraderZone) upgrade(data []byte, fromVersion int) error {
	var fresh TraderZone
	fresh.defaults()

	if fromVersion < 4 {
		z.BuyPricePercent = fresh.BuyPricePercent
	} else if fromVersion < 5 {
		var v4 zoneFileV4
		if err := toml.Unmarshal(data, &v4); err != nil {
			return fmt.Errorf("zone v4 parse failed (%s): %w", z.fileName, err)
		}
		z.BuyPricePercent = v4.PricePercent
	}

	z.SellPricePercent = fresh.SellPricePercent
	z.Version = CurrentVersion

	z.log.Info().
		Str("path", z.fileName).
		Int("from", fromVersion).
		Int("to", CurrentVersion).
		Msg("upgraded zone document")

	return z.Save()
}

// Save writes the zone document at CurrentVersion.
func (z *TraderZone) Save() error {
	if z.fileName == "" {
		return fmt.Errorf("zone %q has no backing file", z.DisplayName)
	}

	file := zoneFile{
		Version:          z.Version,
		DisplayName:      z.DisplayName,
		BuyPricePercent:  z.BuyPricePercent,
		SellPricePercent: z.SellPricePercent,
		Stock:            z.Stock,
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(file); err != nil {
		return fmt.Errorf("zone encode failed (%s): %w", z.fileName, err)
	}
	if err := os.WriteFile(z.fileName, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("zone save failed (%s): %w", z.fileName, err)
	}
	return nil
}

// SetFile binds the zone to a backing document path. Zones created
// through New have none until bound; Reconcile only persists bound
// zones.
func (z *TraderZone) SetFile(path string) {
	z.fileName = path
}
