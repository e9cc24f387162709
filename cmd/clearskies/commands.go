package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/lox/clearskies/internal/forecast"
	"github.com/lox/clearskies/internal/models"
	"github.com/lox/clearskies/internal/places"
	"github.com/lox/clearskies/internal/store"
	"github.com/lox/clearskies/internal/weather"
)

type ForecastCmd struct {
	Name string  `help:"Place name. Geocoded when --lat and --lon are not set."`
	Lat  float64 `help:"Latitude."`
	Lon  float64 `help:"Longitude."`
	Unit string  `default:"F" help:"F or C."`
	JSON bool    `name:"json" help:"Print the full forecast as JSON."`
}

func (c *ForecastCmd) Run(g *Globals, logger *zap.Logger) error {
	ctx := context.Background()
	unit, err := forecast.ParseUnit(c.Unit)
	if err != nil {
		return err
	}

	client := g.client(logger)
	place := models.Place{Name: c.Name, Latitude: c.Lat, Longitude: c.Lon}
	if c.Lat == 0 && c.Lon == 0 {
		if c.Name == "" {
			return errors.New("either --name or --lat and --lon are required")
		}
		if place, err = client.Geocode(ctx, c.Name); err != nil {
			return err
		}
	}
	if place.Name == "" {
		place.Name = fmt.Sprintf("%.2f, %.2f", place.Latitude, place.Longitude)
	}

	f := weather.NewService(client, nil, nil, weather.Config{}, logger).Load(ctx, place, unit)
	if f == nil {
		return fmt.Errorf("no forecast available for %s", places.Label(place))
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(f)
	}
	fmt.Printf("%s: %s, %.0f°%s (high %.0f°, low %.0f°)\n", f.Location, f.ConditionLabel, f.CurrentTemp, f.Unit, f.High, f.Low)
	fmt.Println(f.Description)
	fmt.Printf("%s %s\n", f.Moon.Emoji, f.Moon.Name)
	return nil
}

type GeocodeCmd struct {
	Query string `arg:"" help:"Place name to search for."`
	Count int    `default:"5" help:"Maximum results."`
}

func (c *GeocodeCmd) Run(g *Globals, logger *zap.Logger) error {
	results, err := g.client(logger).Search(context.Background(), c.Query, c.Count)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, p := range results {
		fmt.Printf("%-40s %8.4f %9.4f %s\n", places.Label(p), p.Latitude, p.Longitude, p.Timezone)
	}
	return nil
}

type MoonCmd struct {
	At time.Time `help:"Instant to compute the phase for (RFC3339). Defaults to now."`
}

func (c *MoonCmd) Run() error {
	at := c.At
	if at.IsZero() {
		at = time.Now()
	}
	phase := forecast.MoonPhaseAt(at)
	fmt.Printf("%s %s (%d%% illuminated)\n", phase.Emoji(), phase.Name(), forecast.MoonIllumination(at))
	return nil
}

type WaitlistCmd struct {
	DBPath string `name:"db" env:"DB_PATH" default:"data/clearskies.db" help:"Path to SQLite database."`
}

func (c *WaitlistCmd) Run(logger *zap.Logger) error {
	db, err := store.Open(c.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	st := store.New(db, logger.Named("store"))
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	entries, err := st.ListWaitlist()
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%s\t%s\n", e.CreatedAt.UTC().Format(time.RFC3339), e.Email)
	}
	fmt.Printf("%d signups\n", len(entries))
	return nil
}
