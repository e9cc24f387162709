package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lox/clearskies/internal/httputil"
	"github.com/lox/clearskies/internal/metrics"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultGeocodeURL  = "https://geocoding-api.open-meteo.com/v1/search"
)

type Config struct {
	ForecastURL string
	GeocodeURL  string

	// RequestsPerSecond and Burst bound outgoing calls across all endpoints.
	RequestsPerSecond float64
	Burst             int

	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	BreakerTimeout  time.Duration
	BreakerFailures uint32
}

func DefaultConfig() Config {
	return Config{
		ForecastURL:       DefaultForecastURL,
		GeocodeURL:        DefaultGeocodeURL,
		RequestsPerSecond: 5,
		Burst:             10,
		InitialInterval:   500 * time.Millisecond,
		MaxElapsedTime:    30 * time.Second,
		BreakerTimeout:    30 * time.Second,
		BreakerFailures:   5,
	}
}

// StatusError is a non-200 response from Open-Meteo.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Code, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client talks to the Open-Meteo forecast and geocoding APIs.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	def := DefaultConfig()
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = def.ForecastURL
	}
	if cfg.GeocodeURL == "" {
		cfg.GeocodeURL = def.GeocodeURL
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxElapsedTime <= 0 {
		cfg.MaxElapsedTime = def.MaxElapsedTime
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "open-meteo",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Client errors say nothing about upstream health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.retryable()
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		cfg:     cfg,
		http:    httputil.NewClient(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker: breaker,
		logger:  logger,
	}
}

// get fetches u with rate limiting, retries and the circuit breaker. Retries
// happen on transport errors, 429 and 5xx; anything else fails immediately.
func (c *Client) get(ctx context.Context, endpoint string, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit: %w", endpoint, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		var body []byte
		attempt := 0
		operation := func() error {
			attempt++
			b, err := c.do(ctx, endpoint, u)
			if err != nil {
				var se *StatusError
				if errors.As(err, &se) && !se.retryable() {
					return backoff.Permanent(err)
				}
				c.logger.Debug("upstream request failed, retrying",
					zap.String("endpoint", endpoint),
					zap.Int("attempt", attempt),
					zap.Error(err))
				return err
			}
			body = b
			return nil
		}

		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = c.cfg.InitialInterval
		bo.MaxElapsedTime = c.cfg.MaxElapsedTime
		if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (c *Client) do(ctx context.Context, endpoint string, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%s: build request: %w", endpoint, err))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCallsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamCallsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode, Body: string(b)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	return body, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func withQuery(base string, q url.Values) string {
	return base + "?" + q.Encode()
}
