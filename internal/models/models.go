package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Payload is the decoded Open-Meteo forecast response. Blocks are pointers so
// that a missing block can be told apart from an empty one.
type Payload struct {
	Latitude         float64     `json:"latitude"`
	Longitude        float64     `json:"longitude"`
	Timezone         string      `json:"timezone"`
	UTCOffsetSeconds int         `json:"utc_offset_seconds"`
	Current          *Current    `json:"current"`
	Hourly           *Hourly     `json:"hourly"`
	Daily            *Daily      `json:"daily"`
	Minutely15       *Minutely15 `json:"minutely_15"`
}

type Current struct {
	Time                LocalTime `json:"time"`
	Temperature         float64   `json:"temperature_2m"`
	RelativeHumidity    float64   `json:"relative_humidity_2m"`
	ApparentTemperature float64   `json:"apparent_temperature"`
	IsDay               int       `json:"is_day"`
	Precipitation       float64   `json:"precipitation"`
	WeatherCode         int       `json:"weather_code"`
	SurfacePressure     float64   `json:"surface_pressure"`
	WindSpeed           float64   `json:"wind_speed_10m"`
	WindDirection       float64   `json:"wind_direction_10m"`
	WindGusts           float64   `json:"wind_gusts_10m"`
}

type Hourly struct {
	Time                     []LocalTime `json:"time"`
	Temperature              []float64   `json:"temperature_2m"`
	PrecipitationProbability []float64   `json:"precipitation_probability"`
	WeatherCode              []int       `json:"weather_code"`
	Visibility               []float64   `json:"visibility"`
}

// Daily arrays start at yesterday (index 0); index 1 is today.
type Daily struct {
	Time                        []LocalTime `json:"time"`
	WeatherCode                 []int       `json:"weather_code"`
	TemperatureMax              []float64   `json:"temperature_2m_max"`
	TemperatureMin              []float64   `json:"temperature_2m_min"`
	Sunrise                     []LocalTime `json:"sunrise"`
	Sunset                      []LocalTime `json:"sunset"`
	UVIndexMax                  []float64   `json:"uv_index_max"`
	PrecipitationSum            []float64   `json:"precipitation_sum"`
	PrecipitationProbabilityMax []float64   `json:"precipitation_probability_max"`
}

type Minutely15 struct {
	Time          []LocalTime `json:"time"`
	Precipitation []float64   `json:"precipitation"`
}

// Location returns the fixed zone the payload's wall-clock times are in.
func (p *Payload) Location() *time.Location {
	if p.Timezone == "" && p.UTCOffsetSeconds == 0 {
		return time.UTC
	}
	return time.FixedZone(p.Timezone, p.UTCOffsetSeconds)
}

// LocalTime is an ISO-8601 timestamp without offset, as Open-Meteo returns
// with timezone=auto. The wall clock is kept in UTC fields; use At to attach
// the payload's zone.
type LocalTime struct {
	time.Time
}

var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func ParseLocalTime(s string) (LocalTime, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return LocalTime{t}, nil
		}
	}
	return LocalTime{}, fmt.Errorf("parse local time %q", s)
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = LocalTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*t = LocalTime{}
		return nil
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04"))
}

// At reinterprets the wall clock in loc and returns the real instant.
func (t LocalTime) At(loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// Place is a resolved location.
type Place struct {
	Name      string  `json:"name" yaml:"name"`
	Country   string  `json:"country,omitempty" yaml:"country"`
	Admin1    string  `json:"admin1,omitempty" yaml:"admin1,omitempty"`
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
	Timezone  string  `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Preference is a client's saved location and temperature unit.
type Preference struct {
	ClientID  string    `json:"-"`
	Place     Place     `json:"location"`
	Unit      string    `json:"unit"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WaitlistEntry struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}
