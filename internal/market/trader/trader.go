package trader

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/market/catalog"
)

// Direction is the transaction direction flag for one listing. It
// occupies the low nibble of the packed wire field.
type Direction uint8

const (
	CanBuy     Direction = 1
	CanSell    Direction = 2
	CanBuySell Direction = CanBuy | CanSell
)

func ParseDirection(raw string) (Direction, error) {
	switch raw {
	case "buy":
		return CanBuy, nil
	case "sell":
		return CanSell, nil
	case "", "buysell":
		return CanBuySell, nil
	default:
		return 0, fmt.Errorf("trader: invalid direction %q", raw)
	}
}

// Item is one trader listing: a catalog item plus how it may be traded.
type Item struct {
	Market  *catalog.Item
	BuySell Direction
}

// Trader is a named, ordered list of listings within a zone. The order
// is the pagination order of the network serialization.
type Trader struct {
	Name  string
	Zone  string
	Items []Item
}

type traderFile struct {
	Name  string            `toml:"name"`
	Zone  string            `toml:"zone"`
	Items []traderFileEntry `toml:"items"`
}

type traderFileEntry struct {
	ClassName string `toml:"class_name"`
	BuySell   string `toml:"buy_sell"`
}

// Load reads a trader document and resolves its listings against the
// catalog. Listings that do not resolve are skipped with a warning so
// a trader keeps working across catalog reloads.
func Load(path string, cat *catalog.Catalog, log zerolog.Logger) (*Trader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trader load failed (%s): %w", path, err)
	}
	var file traderFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("trader parse failed (%s): %w", path, err)
	}
	if file.Name == "" {
		return nil, fmt.Errorf("trader document missing name (%s)", path)
	}

	tr := &Trader{Name: file.Name, Zone: file.Zone}
	for _, entry := range file.Items {
		item, ok := cat.Resolve(entry.ClassName)
		if !ok {
			log.Warn().
				Str("trader", file.Name).
				Str("item", entry.ClassName).
				Msg("trader listing does not resolve in catalog")
			continue
		}
		direction, err := ParseDirection(entry.BuySell)
		if err != nil {
			return nil, fmt.Errorf("%w (%s)", err, path)
		}
		tr.Items = append(tr.Items, Item{Market: item, BuySell: direction})
	}
	return tr, nil
}
