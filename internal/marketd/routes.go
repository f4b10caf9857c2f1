package marketd

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/sell"
	"github.com/opentrader/zonemarket/internal/market/zone"
	"github.com/opentrader/zonemarket/internal/observability"
	"github.com/opentrader/zonemarket/internal/protocol"
)

type stockMutation struct {
	Op     string `json:"op" binding:"required"`
	Amount int    `json:"amount"`
}

type sellRequest struct {
	Trader string     `json:"trader"`
	Item   string     `json:"item" binding:"required"`
	Lines  []sellLine `json:"lines" binding:"required"`
}

type sellLine struct {
	ClassName         string  `json:"class_name"`
	TakenAmount       int     `json:"taken_amount"`
	SoldAmount        int     `json:"sold_amount"`
	IncrementModifier float64 `json:"increment_modifier"`
}

func (s *Service) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.appeared).String(),
			"service": "zonemarketd",
			"version": "0.0.1",
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.appeared).String(),
			"service": "zonemarketd",
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/zones", s.handleListZones)
	s.router.GET("/zones/:zone/stock", s.handleZoneStock)
	s.router.POST("/zones/:zone/stock/:item", s.handleStockMutation)
	s.router.POST("/zones/:zone/reconcile", s.handleReconcile)
	s.router.POST("/zones/:zone/sell", s.handleSell)

	s.router.GET("/traders", s.handleListTraders)
	s.router.GET("/traders/:trader/batch", s.handleTraderBatch)
	s.router.GET("/traders/:trader/frame", s.handleTraderFrame)
}

func (s *Service) zoneByName(name string) (*zone.TraderZone, bool) {
	z, ok := s.zones[strings.ToLower(name)]
	return z, ok
}

func (s *Service) handleListZones(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]gin.H, 0, len(s.zones))
	for name, z := range s.zones {
		out = append(out, gin.H{
			"name":               name,
			"display_name":       z.DisplayName,
			"version":            z.Version,
			"buy_price_percent":  z.BuyPricePercent,
			"sell_price_percent": z.SellPricePercent,
			"items":              len(z.Stock),
		})
	}
	c.JSON(http.StatusOK, gin.H{"zones": out})
}

func (s *Service) handleZoneStock(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zoneByName(c.Param("zone"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrZoneNotFound.Error()})
		return
	}

	out := make(map[string]gin.H, len(z.Stock))
	for name, stock := range z.Stock {
		visible, err := z.GetStock(name, false)
		if err != nil {
			continue
		}
		out[name] = gin.H{
			"stock":    stock,
			"reserved": z.ReservedStock(name),
			"visible":  visible,
		}
	}
	c.JSON(http.StatusOK, gin.H{"stock": out})
}

func (s *Service) handleStockMutation(c *gin.Context) {
	var req stockMutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	zoneName := c.Param("zone")
	z, ok := s.zoneByName(zoneName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrZoneNotFound.Error()})
		return
	}
	item := strings.ToLower(c.Param("item"))

	switch req.Op {
	case "set":
		z.SetStock(item, req.Amount)
	case "add":
		z.AddStock(item, req.Amount)
	case "remove":
		z.RemoveStock(item, req.Amount, false)
	case "reserve":
		z.RemoveStock(item, req.Amount, true)
	case "release":
		z.ClearReservedStock(item, req.Amount)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown op: " + req.Op})
		return
	}
	observability.RecordStockMutation(zoneName, req.Op)

	if err := z.Save(); err != nil {
		s.log.Warn().Err(err).Str("zone", zoneName).Msg("zone save after mutation failed")
	}

	stock, err := z.GetStock(item, true)
	if errors.Is(err, zone.ErrItemNotInZone) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	visible, _ := z.GetStock(item, false)
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"stock":    stock,
		"reserved": z.ReservedStock(item),
		"visible":  visible,
	})
}

func (s *Service) handleReconcile(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zoneName := c.Param("zone")
	z, ok := s.zoneByName(zoneName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrZoneNotFound.Error()})
		return
	}

	prune := c.Query("prune") == "true"
	var seed []*catalog.Item
	if c.Query("topup") == "true" {
		seed = s.catalog.Items()
	}

	removed, added, err := z.Reconcile(prune, seed)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	observability.RecordStockMutation(zoneName, "reconcile")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "removed": removed, "added": added})
}

func (s *Service) handleSell(c *gin.Context) {
	var req sellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	zoneName := c.Param("zone")
	z, ok := s.zoneByName(zoneName)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrZoneNotFound.Error()})
		return
	}
	item, ok := s.catalog.Resolve(req.Item)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not in catalog: " + req.Item})
		return
	}

	tx := sell.NewTransaction(req.Trader, item, s.log)
	for _, line := range req.Lines {
		className := line.ClassName
		if className == "" {
			className = item.ClassName
		}
		tx.AddLine(line.TakenAmount, line.SoldAmount, line.IncrementModifier, nil, className)
	}
	tx.PriceLines(z, s.catalog, s.cfg.SellPricePercent)

	// Snapshot the audit before the ledger credit so its stock levels
	// match the levels the pricing walked.
	report := sell.BuildAuditReport(tx, z, s.catalog)

	tx.Apply(z)
	observability.RecordSell(zoneName, len(tx.Lines))

	if err := z.Save(); err != nil {
		s.log.Warn().Err(err).Str("zone", zoneName).Msg("zone save after sell failed")
	}
	var audit bytes.Buffer
	if err := report.Encode(&audit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	lines := make([]gin.H, 0, len(tx.Lines))
	for _, line := range tx.Lines {
		lines = append(lines, gin.H{
			"class_name": line.ClassName,
			"sold":       line.SoldAmount,
			"price":      line.Price,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"transaction": tx.ID.String(),
		"price":       tx.Price,
		"amount":      tx.TotalAmount,
		"lines":       lines,
		"audit_bytes": audit.Len(),
	})
}

func (s *Service) handleListTraders(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]gin.H, 0, len(s.traders))
	for _, tr := range s.traders {
		out = append(out, gin.H{
			"name":     tr.Name,
			"zone":     tr.Zone,
			"listings": len(tr.Items),
		})
	}
	c.JSON(http.StatusOK, gin.H{"traders": out})
}

// handleTraderBatch serializes a batch on demand, independent of the
// sync tick, so operators can inspect exactly what goes on the wire.
func (s *Service) handleTraderBatch(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.traders[strings.ToLower(c.Param("trader"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrTraderNotFound.Error()})
		return
	}
	z, ok := s.zoneByName(tr.Zone)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrZoneNotFound.Error()})
		return
	}

	start := 0
	if raw := c.Query("start"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start index"})
			return
		}
		start = parsed
	}
	stockOnly := c.Query("stock_only") == "true"

	var itemIDs []uint32
	if raw := c.Query("items"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 32)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item id: " + part})
				return
			}
			itemIDs = append(itemIDs, uint32(id))
		}
	}

	records, next := s.batcher.Serialize(z, tr, start, stockOnly, itemIDs)
	var buf bytes.Buffer
	if err := protocol.WriteBatch(&buf, records, s.limits); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("X-Next-Index", strconv.Itoa(next))
	c.Header("X-Record-Count", strconv.Itoa(len(records)))
	c.Data(http.StatusOK, "application/octet-stream", buf.Bytes())
}

func (s *Service) handleTraderFrame(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := strings.ToLower(c.Param("trader"))
	if _, ok := s.traders[key]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrTraderNotFound.Error()})
		return
	}
	frame, ok := s.frames[key]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame serialized yet"})
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", frame)
}
