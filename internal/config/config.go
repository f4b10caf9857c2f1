package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// MarketConfig configures the zonemarketd runtime.
type MarketConfig struct {
	CatalogPath string `toml:"catalog_path"`
	ZonesDir    string `toml:"zones_dir"`
	TradersDir  string `toml:"traders_dir"`

	AdminAddr string `toml:"admin_addr"`

	// NetworkBatchSize caps records per sync tick; zero means a full
	// listing per tick.
	NetworkBatchSize int `toml:"network_batch_size"`

	// SellPricePercent is the global fallback when neither item nor
	// zone override it.
	SellPricePercent float64 `toml:"sell_price_percent"`

	SyncIntervalMS int `toml:"sync_interval_ms"`
}

func DefaultMarketConfig() MarketConfig {
	return MarketConfig{
		CatalogPath:      "catalog.toml",
		ZonesDir:         "zones",
		TradersDir:       "traders",
		AdminAddr:        ":9400",
		NetworkBatchSize: 100,
		SellPricePercent: 50,
		SyncIntervalMS:   1000,
	}
}

func (c MarketConfig) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMS) * time.Millisecond
}

func LoadMarketConfig(path string) (MarketConfig, error) {
	cfg := DefaultMarketConfig()
	if err := loadToml(path, &cfg); err != nil {
		return MarketConfig{}, err
	}
	if err := ValidateMarketConfig(cfg); err != nil {
		return MarketConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateMarketConfig(cfg MarketConfig) error {
	if strings.TrimSpace(cfg.CatalogPath) == "" {
		return fmt.Errorf("market config missing catalog_path")
	}
	if strings.TrimSpace(cfg.ZonesDir) == "" {
		return fmt.Errorf("market config missing zones_dir")
	}
	if strings.TrimSpace(cfg.TradersDir) == "" {
		return fmt.Errorf("market config missing traders_dir")
	}
	if strings.TrimSpace(cfg.AdminAddr) == "" {
		return fmt.Errorf("market config missing admin_addr")
	}
	if cfg.NetworkBatchSize < 0 {
		return fmt.Errorf("market config network_batch_size must be >= 0")
	}
	if cfg.SellPricePercent < 0 {
		return fmt.Errorf("market config sell_price_percent must be >= 0")
	}
	if cfg.SyncIntervalMS <= 0 {
		return fmt.Errorf("market config sync_interval_ms must be > 0")
	}
	return nil
}
