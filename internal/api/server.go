package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/store"
	"github.com/lox/clearskies/internal/weather"
)

// Forecaster loads normalized forecasts. A nil forecast means absent.
type Forecaster interface {
	Load(ctx context.Context, place models.Place, unit forecast.Unit) *forecast.Forecast
	Snapshot(key string) (weather.Snapshot, bool)
}

// Searcher resolves free-text place names.
type Searcher interface {
	Search(ctx context.Context, name string, count int) ([]models.Place, error)
}

// Signups records waitlist emails.
type Signups interface {
	Submit(ctx context.Context, email string) error
}

type Server struct {
	store    *store.Store
	weather  Forecaster
	search   Searcher
	waitlist Signups
	popular  []models.Place
	port     string
	logger   *zap.Logger
}

func NewServer(st *store.Store, wx Forecaster, search Searcher, signups Signups, popular []models.Place, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		store:    st,
		weather:  wx,
		search:   search,
		waitlist: signups,
		popular:  popular,
		port:     port,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(CorrelationIDMiddleware(s.logger))
	r.Use(RecoveryMiddleware)
	r.Use(MetricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/forecast", s.handleForecast).Methods(http.MethodGet)
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/geocode", s.handleGeocode).Methods(http.MethodGet)
	api.HandleFunc("/locations/popular", s.handlePopular).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	api.HandleFunc("/preferences", s.handlePutPreferences).Methods(http.MethodPut)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	// Method checking is done in the handler so the 405 carries a JSON body.
	api.HandleFunc("/waitlist", s.handleWaitlist)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("http shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
