package sell

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestAuditReportRoundTrip(t *testing.T) {
	cat := testCatalog(t)
	z := testZone(t, cat)
	z.SellPricePercent = 40
	z.SetStock("apple", 6)
	z.SetStock("mag_stanag", 10)

	apple, _ := cat.Resolve("apple")
	tx := NewTransaction("trader", apple, zerolog.Nop())
	tx.AddLine(2, 2, 1.0, nil, "apple")
	tx.AddLine(1, 1, 1.0, nil, "mag_stanag")
	tx.PriceLines(z, cat, 50)

	report := BuildAuditReport(tx, z, cat)
	if len(report.Items) != 2 {
		t.Fatalf("expected 2 audit items, got %d", len(report.Items))
	}

	var buf bytes.Buffer
	if err := report.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeAuditReport(&buf, apple.ItemID, cat)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.ZoneSellPricePercent != 40 {
		t.Fatalf("zone percent = %v, want 40", decoded.ZoneSellPricePercent)
	}

	// The first record's item id rides out of band.
	if decoded.Items[0].ItemID != apple.ItemID {
		t.Fatalf("main item id = %d, want %d", decoded.Items[0].ItemID, apple.ItemID)
	}
	if decoded.Items[0].ClassName != "apple" || decoded.Items[1].ClassName != "mag_stanag" {
		t.Fatalf("class names = %q, %q", decoded.Items[0].ClassName, decoded.Items[1].ClassName)
	}

	for i := range report.Items {
		in, out := report.Items[i], decoded.Items[i]
		if in.MaxPriceThreshold != out.MaxPriceThreshold ||
			in.MinPriceThreshold != out.MinPriceThreshold ||
			in.SellPricePercent != out.SellPricePercent ||
			in.MaxStockThreshold != out.MaxStockThreshold ||
			in.MinStockThreshold != out.MinStockThreshold ||
			in.Stock != out.Stock ||
			in.SoldAmount != out.SoldAmount ||
			in.StockIncrement != out.StockIncrement ||
			in.Price != out.Price {
			t.Fatalf("item %d mismatch:\nin:  %+v\nout: %+v", i, in, out)
		}
		if len(in.Tiers) != len(out.Tiers) {
			t.Fatalf("item %d tier count mismatch: %d vs %d", i, len(in.Tiers), len(out.Tiers))
		}
		for j := range in.Tiers {
			if in.Tiers[j] != out.Tiers[j] {
				t.Fatalf("item %d tier %d mismatch: %+v vs %+v", i, j, in.Tiers[j], out.Tiers[j])
			}
		}
	}
}

func TestAuditReportVisibleStockExcludesReservation(t *testing.T) {
	cat := testCatalog(t)
	z := testZone(t, cat)
	z.SetStock("apple", 10)
	z.RemoveStock("apple", 4, true)

	apple, _ := cat.Resolve("apple")
	tx := NewTransaction("trader", apple, zerolog.Nop())
	tx.AddLine(1, 1, 1.0, nil, "apple")

	report := BuildAuditReport(tx, z, cat)
	if report.Items[0].Stock != 6 {
		t.Fatalf("audit stock = %d, want visible 6", report.Items[0].Stock)
	}
}

func TestDecodeAuditReportTruncated(t *testing.T) {
	cat := testCatalog(t)
	_, err := DecodeAuditReport(bytes.NewReader([]byte{0, 0}), 1, cat)
	if !errors.Is(err, ErrAuditTruncated) {
		t.Fatalf("expected ErrAuditTruncated, got %v", err)
	}
}

func TestDecodeAuditReportNegativeCount(t *testing.T) {
	cat := testCatalog(t)
	var buf bytes.Buffer
	if err := writeF32(&buf, 50); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := writeI32(&buf, -1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := DecodeAuditReport(&buf, 1, cat); !errors.Is(err, ErrAuditTooManyItems) {
		t.Fatalf("expected ErrAuditTooManyItems, got %v", err)
	}
}
