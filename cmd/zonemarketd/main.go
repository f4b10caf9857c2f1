package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/opentrader/zonemarket/internal/config"
	"github.com/opentrader/zonemarket/internal/logging"
	"github.com/opentrader/zonemarket/internal/marketd"
	"github.com/opentrader/zonemarket/internal/observability"
)

func main() {
	configPath := flag.String("config", "marketd.toml", "path to the market daemon config document")
	flag.Parse()

	logging.ConfigureRuntime()
	log := observability.InitLogger("zonemarketd")

	cfg, err := config.LoadMarketConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "zonemarketd: %v\n", err)
		os.Exit(1)
	}

	svc := marketd.NewService(cfg, log)
	if err := svc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "zonemarketd: %v\n", err)
		os.Exit(1)
	}
}
