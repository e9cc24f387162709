package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/logging"
	"github.com/lox/clearskies/internal/openmeteo"
	"github.com/lox/clearskies/internal/waitlist"
)

// Globals are shared by every command.
type Globals struct {
	EnvFile  kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to .env file'"`
	LogLevel string                   `name:"log-level" env:"LOG_LEVEL" default:"INFO" help:"DEBUG, INFO, WARN or ERROR."`

	ForecastURL string        `name:"forecast-url" env:"OPEN_METEO_FORECAST_URL" default:"${forecast_url}" help:"Open-Meteo forecast endpoint."`
	GeocodeURL  string        `name:"geocode-url" env:"OPEN_METEO_GEOCODE_URL" default:"${geocode_url}" help:"Open-Meteo geocoding endpoint."`
	RateLimit   float64       `name:"rate-limit" env:"OPEN_METEO_RATE_LIMIT" default:"5" help:"Upstream requests per second."`
	RetryBudget time.Duration `name:"retry-budget" env:"OPEN_METEO_RETRY_BUDGET" default:"30s" help:"Total time spent retrying one upstream call."`
}

func (g *Globals) client(logger *zap.Logger) *openmeteo.Client {
	cfg := openmeteo.DefaultConfig()
	cfg.ForecastURL = g.ForecastURL
	cfg.GeocodeURL = g.GeocodeURL
	if g.RateLimit > 0 {
		cfg.RequestsPerSecond = g.RateLimit
	}
	if g.RetryBudget > 0 {
		cfg.MaxElapsedTime = g.RetryBudget
	}
	return openmeteo.New(cfg, logger)
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API and the snapshot refresher."`
	Forecast ForecastCmd `cmd:"" help:"Fetch and print a forecast once."`
	Geocode  GeocodeCmd  `cmd:"" help:"Search for places by name."`
	Moon     MoonCmd     `cmd:"" help:"Print the moon phase."`
	Waitlist WaitlistCmd `cmd:"" help:"List recorded waitlist signups."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("clearskies"),
		kong.Description("Weather forecasts from Open-Meteo with plain-language summaries."),
		kong.UsageOnError(),
		kong.Vars{
			"forecast_url": openmeteo.DefaultForecastURL,
			"geocode_url":  openmeteo.DefaultGeocodeURL,
			"sheet_range":  waitlist.DefaultRange,
		},
	)

	logger, err := logging.New(cli.LogLevel)
	if err != nil {
		ctx.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	if err := ctx.Run(&cli.Globals, logger); err != nil {
		logger.Error("command failed", zap.String("command", ctx.Command()), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
