package marketd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/opentrader/zonemarket/internal/config"
	"github.com/opentrader/zonemarket/internal/market/catalog"
	"github.com/opentrader/zonemarket/internal/market/trader"
	"github.com/opentrader/zonemarket/internal/market/zone"
	"github.com/opentrader/zonemarket/internal/observability"
	"github.com/opentrader/zonemarket/internal/protocol"
)

var (
	ErrZoneNotFound   = errors.New("marketd: trader zone not found")
	ErrTraderNotFound = errors.New("marketd: trader not found")
	ErrNoZones        = errors.New("marketd: no trader zones loaded")
)

// Service runs the market daemon lifecycle as a standalone process.
type Service struct {
	cfg config.MarketConfig
	log zerolog.Logger

	catalog *catalog.Catalog
	batcher *protocol.Batcher
	limits  protocol.Limits
	router  *gin.Engine

	mu      sync.RWMutex
	zones   map[string]*zone.TraderZone
	traders map[string]*trader.Trader
	cursors map[string]int
	frames  map[string][]byte

	appeared time.Time
}

func NewService(cfg config.MarketConfig, log zerolog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		limits:   protocol.DefaultLimits(),
		zones:    make(map[string]*zone.TraderZone),
		traders:  make(map[string]*trader.Trader),
		cursors:  make(map[string]int),
		frames:   make(map[string][]byte),
		appeared: time.Now(),
	}
}

// Run blocks until process signal shutdown.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.bootstrap(); err != nil {
		return err
	}
	return s.serve(ctx)
}

func (s *Service) bootstrap() error {
	cat, err := catalog.Load(s.cfg.CatalogPath, s.log)
	if err != nil {
		return err
	}
	s.catalog = cat
	s.batcher = protocol.NewBatcher(cat, s.cfg.NetworkBatchSize, s.log)

	if err := s.loadZones(); err != nil {
		return err
	}
	if err := s.loadTraders(); err != nil {
		return err
	}
	if len(s.zones) == 0 {
		return ErrNoZones
	}

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(s.log))
	r.Use(observability.RequestMetricsMiddleware())
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})
	s.router = r
	s.registerRoutes()

	s.log.Info().
		Int("items", s.catalog.Len()).
		Int("zones", len(s.zones)).
		Int("traders", len(s.traders)).
		Str("admin_addr", s.cfg.AdminAddr).
		Msg("marketd ready")
	return nil
}

func (s *Service) loadZones() error {
	entries, err := os.ReadDir(s.cfg.ZonesDir)
	if err != nil {
		return fmt.Errorf("marketd: reading zones dir %s: %w", s.cfg.ZonesDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(s.cfg.ZonesDir, entry.Name())
		z, err := zone.Load(path, s.catalog, s.log)
		if err != nil {
			return err
		}
		name := zoneKey(entry.Name())
		s.zones[name] = z
	}
	return nil
}

func (s *Service) loadTraders() error {
	entries, err := os.ReadDir(s.cfg.TradersDir)
	if err != nil {
		return fmt.Errorf("marketd: reading traders dir %s: %w", s.cfg.TradersDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		path := filepath.Join(s.cfg.TradersDir, entry.Name())
		tr, err := trader.Load(path, s.catalog, s.log)
		if err != nil {
			return err
		}
		key := strings.ToLower(tr.Name)
		if _, ok := s.zones[strings.ToLower(tr.Zone)]; !ok {
			s.log.Warn().
				Str("trader", tr.Name).
				Str("zone", tr.Zone).
				Msg("trader references an unloaded zone, skipping sync for it")
		}
		s.traders[key] = tr
	}
	return nil
}

func zoneKey(fileName string) string {
	return strings.ToLower(strings.TrimSuffix(fileName, ".toml"))
}

func (s *Service) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.AdminAddr,
		Handler: s.router,
	}

	httpErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
			return
		}
		httpErr <- nil
	}()

	ticker := time.NewTicker(s.cfg.SyncInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("marketd shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.Warn().Err(err).Msg("admin server shutdown")
			}
			<-httpErr
			s.saveZones()
			return nil
		case err := <-httpErr:
			return fmt.Errorf("marketd: admin server: %w", err)
		case <-ticker.C:
			s.syncTick()
		}
	}
}

// syncTick serializes the next batch for every trader, advancing each
// trader's resume cursor and wrapping once the full listing has gone
// out. The framed bytes are retained for the admin frame endpoint.
func (s *Service) syncTick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, tr := range s.traders {
		z, ok := s.zones[strings.ToLower(tr.Zone)]
		if !ok {
			continue
		}

		begin := time.Now()
		cursor := s.cursors[key]
		records, next := s.batcher.Serialize(z, tr, cursor, false, nil)

		var buf bytes.Buffer
		if err := protocol.WriteBatch(&buf, records, s.limits); err != nil {
			s.log.Error().Err(err).Str("trader", tr.Name).Msg("batch serialization failed")
			continue
		}

		if next >= len(tr.Items) {
			next = 0
		}
		s.cursors[key] = next
		s.frames[key] = buf.Bytes()

		observability.RecordSyncBatch(tr.Name, len(records), buf.Len(), false, time.Since(begin))
	}
}

func (s *Service) saveZones() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, z := range s.zones {
		if err := z.Save(); err != nil {
			s.log.Warn().Err(err).Str("zone", name).Msg("zone save on shutdown failed")
		}
	}
}
