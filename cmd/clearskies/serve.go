package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/api"
	"github.com/lox/clearskies/internal/cache"
	"github.com/lox/clearskies/internal/places"
	"github.com/lox/clearskies/internal/refresh"
	"github.com/lox/clearskies/internal/store"
	"github.com/lox/clearskies/internal/waitlist"
	"github.com/lox/clearskies/internal/weather"
)

type ServeCmd struct {
	Port   string `env:"PORT" default:"8080" help:"HTTP listen port."`
	DBPath string `name:"db" env:"DB_PATH" default:"data/clearskies.db" help:"Path to SQLite database."`

	Cache          string        `env:"CACHE_BACKEND" enum:"memory,memcached" default:"memory" help:"Forecast payload cache (memory or memcached)."`
	CacheTTL       time.Duration `name:"cache-ttl" env:"CACHE_TTL" default:"10m" help:"How long a fetched payload is reused."`
	MemcachedAddrs string        `name:"memcached-addrs" env:"MEMCACHED_ADDRS" default:"localhost:11211" help:"Comma-separated memcached servers."`

	RefreshSpec string        `name:"refresh-spec" env:"REFRESH_SPEC" default:"@every 15m" help:"Cron spec for snapshot refreshes."`
	Retention   time.Duration `env:"PAYLOAD_RETENTION" default:"720h" help:"How long raw payloads are archived."`
	NoRefresh   bool          `name:"no-refresh" help:"Disable the background refresher."`
	PlacesFile  string        `name:"places" env:"POPULAR_PLACES" type:"existingfile" help:"YAML file overriding the popular places list."`

	SheetsEmail string `name:"sheets-client-email" env:"GOOGLE_CLIENT_EMAIL" help:"Service account email for the waitlist sheet."`
	SheetsKey   string `name:"sheets-private-key" env:"GOOGLE_PRIVATE_KEY" help:"Service account private key (PEM)."`
	SheetID     string `name:"sheet-id" env:"GOOGLE_SHEET_ID" help:"Spreadsheet id for waitlist signups."`
	SheetRange  string `name:"sheet-range" env:"GOOGLE_SHEET_RANGE" default:"${sheet_range}" help:"A1 range signups are appended to."`
}

func (c *ServeCmd) Run(g *Globals, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if c.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.Open(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, logger.Named("store"))
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	popular, err := places.Load(c.PlacesFile)
	if err != nil {
		return err
	}

	payloadCache := c.cache(logger)

	client := g.client(logger.Named("openmeteo"))
	wx := weather.NewService(client, payloadCache, st, weather.Config{CacheTTL: c.CacheTTL}, logger.Named("weather"))

	signups, err := c.waitlist(ctx, st, logger)
	if err != nil {
		return err
	}

	server := api.NewServer(st, wx, client, signups, popular, c.Port, logger.Named("http"))

	if c.NoRefresh {
		logger.Info("background refresh disabled")
	} else {
		scheduler := refresh.NewScheduler(st, wx, st, refresh.Config{
			Spec:      c.RefreshSpec,
			Retention: c.Retention,
			Extra:     popular,
		}, logger.Named("refresh"))
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				logger.Error("refresh scheduler stopped", zap.Error(err))
				cancel()
			}
		}()
	}

	return server.Run(ctx)
}

func (c *ServeCmd) cache(logger *zap.Logger) cache.Cache {
	if c.Cache != "memcached" {
		return cache.NewMemory()
	}
	mc := cache.NewMemcached(c.MemcachedAddrs, 500*time.Millisecond)
	if err := mc.Ping(); err != nil {
		// Lookups degrade to misses, so an unreachable memcached is not fatal.
		logger.Warn("memcached unreachable", zap.String("addrs", c.MemcachedAddrs), zap.Error(err))
	}
	return mc
}

func (c *ServeCmd) waitlist(ctx context.Context, st *store.Store, logger *zap.Logger) (*waitlist.Service, error) {
	cfg := waitlist.SheetsConfig{
		ClientEmail: c.SheetsEmail,
		PrivateKey:  c.SheetsKey,
		SheetID:     c.SheetID,
		Range:       c.SheetRange,
	}
	if !cfg.Enabled() {
		logger.Info("waitlist sheet not configured, recording signups locally only")
		return waitlist.NewService(st, nil, logger.Named("waitlist")), nil
	}
	sheet, err := waitlist.NewSheets(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return waitlist.NewService(st, sheet, logger.Named("waitlist")), nil
}
