package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

var (
	ErrDuplicateClassName = errors.New("catalog: duplicate class name")
	ErrDuplicateItemID    = errors.New("catalog: duplicate item id")
)

// Item is the static market configuration for one item class.
// Thresholds bound what the ledger may store and what the price
// function may produce; everything else rides the wire unchanged.
type Item struct {
	ItemID     uint32 `toml:"item_id"`
	ClassName  string `toml:"class_name"`
	CategoryID uint32 `toml:"category_id"`

	MinPriceThreshold int `toml:"min_price"`
	MaxPriceThreshold int `toml:"max_price"`
	MinStockThreshold int `toml:"min_stock"`
	MaxStockThreshold int `toml:"max_stock"`

	// QuantityPercent is carried as a two's-complement byte on the wire.
	QuantityPercent int `toml:"quantity_percent"`
	// SellPricePercent is carried as a two's-complement halfword on the
	// wire; -1 defers to the zone, which may defer to the global config.
	SellPricePercent float64 `toml:"sell_price_percent"`

	// StockOnly suppresses all descriptive fields on the wire; such
	// items only ever participate in high-frequency stock refreshes.
	StockOnly bool `toml:"stock_only"`

	// Rarity occupies the high nibble of the packed wire field when a
	// rarity system is in play; zero packs identically to absent.
	Rarity uint8 `toml:"rarity"`

	SpawnAttachments []string `toml:"spawn_attachments"`
	Variants         []string `toml:"variants"`
}

// IsStaticStock reports whether the item has a fixed shelf quantity of
// one regardless of trade volume.
func (i *Item) IsStaticStock() bool {
	return i.MaxStockThreshold == 1
}

// Catalog resolves class names and item ids to market item
// configuration. Read-mostly; built once at load and never mutated.
type Catalog struct {
	byName map[string]*Item
	byID   map[uint32]*Item
	order  []*Item
	log    zerolog.Logger
}

// New indexes items by lowercased class name and by id. Class names are
// normalized here so that no caller ever has to care about case.
func New(items []*Item, log zerolog.Logger) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]*Item, len(items)),
		byID:   make(map[uint32]*Item, len(items)),
		order:  make([]*Item, 0, len(items)),
		log:    log,
	}
	for _, item := range items {
		name := strings.ToLower(item.ClassName)
		if name == "" {
			return nil, fmt.Errorf("catalog: item %d missing class name", item.ItemID)
		}
		if _, ok := c.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateClassName, name)
		}
		if _, ok := c.byID[item.ItemID]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateItemID, item.ItemID)
		}
		item.ClassName = name
		c.byName[name] = item
		c.byID[item.ItemID] = item
		c.order = append(c.order, item)
	}
	return c, nil
}

// Resolve looks up an item by class name, case-insensitively.
func (c *Catalog) Resolve(className string) (*Item, bool) {
	item, ok := c.byName[strings.ToLower(className)]
	return item, ok
}

// ByID looks up an item by wire id.
func (c *Catalog) ByID(id uint32) (*Item, bool) {
	item, ok := c.byID[id]
	return item, ok
}

// Items returns all items in load order.
func (c *Catalog) Items() []*Item {
	return c.order
}

func (c *Catalog) Len() int {
	return len(c.order)
}

type catalogFile struct {
	Items []*Item `toml:"items"`
}

// Load reads a catalog document from path.
func Load(path string, log zerolog.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	var file catalogFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog parse failed (%s): %w", path, err)
	}
	cat, err := New(file.Items, log)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("items", cat.Len()).Msg("catalog loaded")
	return cat, nil
}
