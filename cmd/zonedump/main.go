package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/opentrader/zonemarket/internal/logging"
	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/sell"
	"github.com/opentrader/zonemarket/internal/protocol"
	"github.com/rs/zerolog"
)

func main() {
	mode := flag.String("mode", "batch", "dump kind: batch|audit")
	file := flag.String("file", "", "path to the framed dump (defaults to stdin)")
	catalogPath := flag.String("catalog", "", "catalog document for resolving audit class names")
	mainItem := flag.Uint("item", 0, "main item id of the audit report")
	flag.Parse()

	logging.ConfigureRuntime()

	in := os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = f
	}

	switch *mode {
	case "batch":
		dumpBatch(in)
	case "audit":
		dumpAudit(in, *catalogPath, uint32(*mainItem))
	default:
		log.Fatalf("unknown mode: %s", *mode)
	}
}

func dumpBatch(in *os.File) {
	records, err := protocol.ReadBatch(in, protocol.DefaultLimits())
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d records\n", len(records))
	for _, rec := range records {
		if rec.StockOnly {
			fmt.Printf("  %08x stock=%d (stock-only)\n", rec.ItemID, rec.Stock)
			continue
		}
		direction, rarity, quantityPct, sellPct := protocol.UnpackItemFlags(rec.Packed)
		fmt.Printf("  %08x %-40s stock=%d category=%d price=[%d..%d] stockwin=[%d..%d]\n",
			rec.ItemID, rec.ClassName, rec.Stock, rec.CategoryID,
			rec.MinPriceThreshold, rec.MaxPriceThreshold,
			rec.MinStockThreshold, rec.MaxStockThreshold)
		fmt.Printf("           direction=%d rarity=%d quantity%%=%d sell%%=%d attachments=%d variants=%d\n",
			direction, rarity, quantityPct, sellPct,
			len(rec.AttachmentIDs), len(rec.Variants))
	}
}

func dumpAudit(in *os.File, catalogPath string, mainItem uint32) {
	var cat *catalog.Catalog
	if catalogPath != "" {
		loaded, err := catalog.Load(catalogPath, zerolog.Nop())
		if err != nil {
			log.Fatal(err)
		}
		cat = loaded
	}

	report, err := sell.DecodeAuditReport(in, mainItem, cat)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("zone sell%%=%g, %d items\n", report.ZoneSellPricePercent, len(report.Items))
	for _, item := range report.Items {
		name := item.ClassName
		if name == "" {
			name = fmt.Sprintf("item:%08x", item.ItemID)
		}
		fmt.Printf("  %-40s sold=%d price=%d stock=%d increment=%g sell%%=%g\n",
			name, item.SoldAmount, item.Price, item.Stock, item.StockIncrement, item.SellPricePercent)
		for _, tier := range item.Tiers {
			fmt.Printf("    tier price=%d level=%g\n", tier.Price, tier.StockLevel)
		}
	}
}
