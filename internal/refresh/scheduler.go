package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/metrics"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/weather"
)

const (
	DefaultSpec        = "@every 15m"
	DefaultCleanupSpec = "@daily"
	DefaultRetention   = 30 * 24 * time.Hour
	maxConcurrent      = 4
)

// Locations lists the places clients have saved.
type Locations interface {
	SavedLocations() ([]models.Preference, error)
}

type Refresher interface {
	Refresh(ctx context.Context, place models.Place, unit forecast.Unit) (weather.Snapshot, bool)
}

// Janitor prunes the payload archive.
type Janitor interface {
	CleanupOldRawPayloads(retention time.Duration) (int64, error)
}

type Config struct {
	Spec        string
	CleanupSpec string
	Retention   time.Duration
	// Extra places refreshed every run in Fahrenheit, e.g. the popular list.
	Extra []models.Place
}

type Scheduler struct {
	locations Locations
	refresher Refresher
	janitor   Janitor
	cfg       Config
	logger    *zap.Logger
}

// NewScheduler creates a Scheduler. janitor may be nil to skip archive cleanup.
func NewScheduler(locations Locations, refresher Refresher, janitor Janitor, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Spec == "" {
		cfg.Spec = DefaultSpec
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = DefaultCleanupSpec
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		locations: locations,
		refresher: refresher,
		janitor:   janitor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run refreshes immediately, then on the cron schedule until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Spec, func() { s.RefreshAll(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", s.cfg.Spec, err)
	}
	if s.janitor != nil {
		if _, err := c.AddFunc(s.cfg.CleanupSpec, s.Cleanup); err != nil {
			return fmt.Errorf("cleanup schedule %q: %w", s.cfg.CleanupSpec, err)
		}
	}

	s.RefreshAll(ctx)
	c.Start()
	s.logger.Info("refresh scheduler started", zap.String("spec", s.cfg.Spec))

	<-ctx.Done()
	s.logger.Info("refresh scheduler shutting down")
	<-c.Stop().Done()
	return nil
}

type target struct {
	place models.Place
	unit  forecast.Unit
}

// RefreshAll refreshes every saved location once and returns how many
// snapshots were updated.
func (s *Scheduler) RefreshAll(ctx context.Context) int {
	targets, err := s.targets()
	if err != nil {
		s.logger.Error("list saved locations failed", zap.Error(err))
		return 0
	}

	start := time.Now()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updated int
		sem     = make(chan struct{}, maxConcurrent)
	)
loop:
	for _, t := range targets {
		if ctx.Err() != nil {
			break
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)
		go func(t target) {
			defer wg.Done()
			defer func() { <-sem }()

			_, ok := s.refresher.Refresh(ctx, t.place, t.unit)
			outcome := "updated"
			if !ok {
				outcome = "skipped"
			}
			metrics.SnapshotRefreshes.WithLabelValues(outcome).Inc()
			if ok {
				mu.Lock()
				updated++
				mu.Unlock()
			}
		}(t)
	}
	wg.Wait()

	s.logger.Info("refreshed saved locations",
		zap.Int("locations", len(targets)),
		zap.Int("updated", updated),
		zap.Duration("duration", time.Since(start)))
	return updated
}

func (s *Scheduler) targets() ([]target, error) {
	prefs, err := s.locations.SavedLocations()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []target
	add := func(p models.Place, u forecast.Unit) {
		key := weather.Key(p, u)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, target{place: p, unit: u})
	}

	for _, p := range prefs {
		unit, err := forecast.ParseUnit(p.Unit)
		if err != nil {
			s.logger.Warn("skipping saved location with bad unit",
				zap.String("location", p.Place.Name),
				zap.String("unit", p.Unit))
			continue
		}
		add(p.Place, unit)
	}
	for _, p := range s.cfg.Extra {
		add(p, forecast.Fahrenheit)
	}
	return out, nil
}

// Cleanup deletes archived payloads older than the retention period.
func (s *Scheduler) Cleanup() {
	n, err := s.janitor.CleanupOldRawPayloads(s.cfg.Retention)
	if err != nil {
		s.logger.Error("payload cleanup failed", zap.Error(err))
		return
	}
	s.logger.Info("payload cleanup complete", zap.Int64("deleted", n))
}
