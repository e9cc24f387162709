package weather

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/cache"
	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/metrics"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/openmeteo"
	"github.com/lox/clearskies/internal/store"
)

const DefaultCacheTTL = 10 * time.Minute

const forecastEndpoint = "forecast"

// Fetcher returns the raw forecast JSON for a coordinate.
type Fetcher interface {
	FetchForecast(ctx context.Context, lat, lon float64, unit forecast.Unit) ([]byte, error)
}

// Archive keeps an audit trail of upstream fetches. *store.Store implements it.
type Archive interface {
	StartFetchRun(endpoint, locationKey string) (*store.FetchRun, error)
	CompleteFetchRun(run *store.FetchRun) error
	StoreRawPayload(runID *int64, endpoint, locationKey string, payload []byte) (int64, error)
}

type Config struct {
	CacheTTL time.Duration
}

// Snapshot is the latest forecast refreshed for a location. Seq orders
// refreshes; a lower Seq never replaces a higher one.
type Snapshot struct {
	Seq       uint64             `json:"seq"`
	Forecast  *forecast.Forecast `json:"forecast"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Service loads and normalizes forecasts. Any failure yields a nil forecast
// so callers only need to handle "absent".
type Service struct {
	fetcher Fetcher
	cache   cache.Cache
	archive Archive
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	seq       uint64
	snapshots map[string]Snapshot
}

// NewService creates a Service. cache and archive may be nil.
func NewService(fetcher Fetcher, c cache.Cache, archive Archive, cfg Config, logger *zap.Logger) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		fetcher:   fetcher,
		cache:     c,
		archive:   archive,
		ttl:       cfg.CacheTTL,
		logger:    logger,
		now:       time.Now,
		snapshots: make(map[string]Snapshot),
	}
}

// Key identifies a place and unit for caching and snapshots.
func Key(place models.Place, unit forecast.Unit) string {
	return cache.ForecastKey(place.Latitude, place.Longitude, string(unit))
}

// Load returns the forecast for place, using a cached payload when one is
// fresh. It returns nil if the payload cannot be fetched, decoded or normalized.
func (s *Service) Load(ctx context.Context, place models.Place, unit forecast.Unit) *forecast.Forecast {
	return s.load(ctx, place, unit, true)
}

func (s *Service) load(ctx context.Context, place models.Place, unit forecast.Unit, useCache bool) (f *forecast.Forecast) {
	key := Key(place, unit)
	logger := s.logger.With(zap.String("location", place.Name), zap.String("key", key))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("forecast load panicked", zap.Any("panic", r))
			f = nil
		}
		if f == nil {
			metrics.ForecastsNormalized.WithLabelValues("absent").Inc()
		} else {
			metrics.ForecastsNormalized.WithLabelValues("ok").Inc()
		}
	}()

	body, fresh, err := s.payload(ctx, key, place, unit, useCache)
	if err != nil {
		logger.Warn("forecast unavailable", zap.Error(err))
		return nil
	}

	p, err := openmeteo.DecodeForecast(body)
	if err != nil {
		logger.Warn("forecast payload undecodable", zap.Error(err))
		return nil
	}

	f = forecast.Normalize(p, place.Name, unit, s.now())
	if f == nil {
		logger.Warn("forecast payload incomplete")
		return nil
	}

	// Only payloads that normalized are cached.
	if fresh && s.cache != nil {
		if err := s.cache.Set(ctx, key, body, s.ttl); err != nil {
			logger.Warn("cache set failed", zap.Error(err))
		}
	}
	return f
}

// payload returns the forecast body for key. fresh is true when it came from
// upstream rather than the cache.
func (s *Service) payload(ctx context.Context, key string, place models.Place, unit forecast.Unit, useCache bool) (body []byte, fresh bool, err error) {
	if useCache && s.cache != nil {
		body, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return body, false, nil
		}
	}

	run := s.startRun(key)
	body, err = s.fetcher.FetchForecast(ctx, place.Latitude, place.Longitude, unit)
	if err != nil {
		s.completeRun(run, nil, err)
		return nil, false, fmt.Errorf("fetch forecast: %w", err)
	}
	s.completeRun(run, body, nil)

	if s.archive != nil {
		var runID *int64
		if run != nil {
			runID = &run.ID
		}
		if _, err := s.archive.StoreRawPayload(runID, forecastEndpoint, key, body); err != nil {
			s.logger.Warn("archive payload failed", zap.String("key", key), zap.Error(err))
		}
	}

	return body, true, nil
}

func (s *Service) startRun(key string) *store.FetchRun {
	if s.archive == nil {
		return nil
	}
	run, err := s.archive.StartFetchRun(forecastEndpoint, key)
	if err != nil {
		s.logger.Warn("start fetch run failed", zap.Error(err))
		return nil
	}
	return run
}

func (s *Service) completeRun(run *store.FetchRun, body []byte, fetchErr error) {
	if run == nil {
		return
	}
	if fetchErr != nil {
		run.Fail(fetchErr)
		var se *openmeteo.StatusError
		if errors.As(fetchErr, &se) {
			run.HTTPStatus = sql.NullInt64{Int64: int64(se.Code), Valid: true}
		}
	} else {
		run.Success = true
		run.HTTPStatus = sql.NullInt64{Int64: 200, Valid: true}
		run.ResponseSizeBytes = sql.NullInt64{Int64: int64(len(body)), Valid: true}
	}
	if err := s.archive.CompleteFetchRun(run); err != nil {
		s.logger.Warn("complete fetch run failed", zap.Error(err))
	}
}

// Refresh fetches a fresh forecast for place and records it as the snapshot
// unless a newer refresh has already landed. It reports whether the snapshot
// was updated.
func (s *Service) Refresh(ctx context.Context, place models.Place, unit forecast.Unit) (Snapshot, bool) {
	key := Key(place, unit)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	f := s.load(ctx, place, unit, false)
	if f == nil {
		return Snapshot{}, false
	}
	return s.commit(key, seq, f)
}

func (s *Service) commit(key string, seq uint64, f *forecast.Forecast) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.snapshots[key]; ok && cur.Seq > seq {
		s.logger.Debug("discarding stale refresh",
			zap.String("key", key),
			zap.Uint64("seq", seq),
			zap.Uint64("current", cur.Seq))
		return cur, false
	}
	snap := Snapshot{Seq: seq, Forecast: f, UpdatedAt: s.now()}
	s.snapshots[key] = snap
	return snap, true
}

// Snapshot returns the latest refreshed forecast for key.
func (s *Service) Snapshot(key string) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[key]
	return snap, ok
}
