package forecast

import (
	"strings"
	"testing"
	"time"

	"github.com/lox/clearskies/internal/models"
)

var testNow = time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)

// testPayload covers yesterday and today hourly (48h) and yesterday plus
// seven days daily, with the current time at 10:30 today.
func testPayload() *models.Payload {
	hourTimes := hoursFrom(0, 48) // 2025-06-01 00:00 .. 2025-06-02 23:00
	temps := make([]float64, 48)
	for i := range temps {
		temps[i] = 60
	}
	days := make([]models.LocalTime, 8)
	for i := range days {
		days[i] = models.LocalTime{Time: time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC)}
	}

	return &models.Payload{
		Current: &models.Current{
			Time:             models.LocalTime{Time: time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)},
			Temperature:      60,
			RelativeHumidity: 80,
			IsDay:            1,
			WeatherCode:      61,
			WindSpeed:        8,
			WindGusts:        15,
		},
		Hourly: &models.Hourly{
			Time:                     hourTimes,
			Temperature:              temps,
			PrecipitationProbability: make([]float64, 48),
			WeatherCode:              make([]int, 48),
		},
		Daily: &models.Daily{
			Time:                        days,
			WeatherCode:                 []int{0, 61, 3, 0, 0, 95, 71, 0},
			TemperatureMax:              []float64{70, 78, 75, 72, 71, 70, 69, 68},
			TemperatureMin:              []float64{50, 55, 54, 53, 52, 51, 50, 49},
			Sunrise:                     []models.LocalTime{{}, {Time: time.Date(2025, 6, 2, 5, 42, 0, 0, time.UTC)}},
			Sunset:                      []models.LocalTime{{}, {Time: time.Date(2025, 6, 2, 20, 31, 0, 0, time.UTC)}},
			UVIndexMax:                  []float64{5, 7},
			PrecipitationProbabilityMax: []float64{0, 65},
		},
	}
}

func TestNormalizeMissingBlocks(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *models.Payload) *models.Payload
	}{
		{"nil payload", func(*models.Payload) *models.Payload { return nil }},
		{"no current", func(p *models.Payload) *models.Payload { p.Current = nil; return p }},
		{"no hourly", func(p *models.Payload) *models.Payload { p.Hourly = nil; return p }},
		{"no daily", func(p *models.Payload) *models.Payload { p.Daily = nil; return p }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.mutate(testPayload()), "X", Fahrenheit, testNow); got != nil {
				t.Errorf("Normalize() = %+v, want nil", got)
			}
		})
	}
}

func TestNormalizeRainyDay(t *testing.T) {
	f := Normalize(testPayload(), "Springfield", Fahrenheit, testNow)
	if f == nil {
		t.Fatal("Normalize() returned nil")
	}

	if f.Condition != ConditionRainy {
		t.Errorf("condition = %q, want rainy", f.Condition)
	}
	if !f.Precipitating {
		t.Error("rainy forecast should be precipitating")
	}
	if !strings.HasPrefix(f.Description, "Today will be warmer than yesterday, with rain expected.") {
		t.Errorf("description = %q", f.Description)
	}
	if f.High != 78 || f.Low != 55 {
		t.Errorf("high/low = %v/%v, want 78/55", f.High, f.Low)
	}
	if f.PrecipitationChance != 65 || f.UVIndex != 7 {
		t.Errorf("precip chance/uv = %v/%v", f.PrecipitationChance, f.UVIndex)
	}
	if f.VisibilityMiles != 10 {
		t.Errorf("visibility = %v, want fallback 10", f.VisibilityMiles)
	}
	if f.DewPoint != 56 {
		t.Errorf("dew point = %v, want 56", f.DewPoint)
	}
	if f.SunriseLabel != "5:42 AM" || f.SunsetLabel != "8:31 PM" {
		t.Errorf("sunrise/sunset = %q/%q", f.SunriseLabel, f.SunsetLabel)
	}
	if f.LastUpdatedLabel != "10:30 AM" {
		t.Errorf("last updated = %q", f.LastUpdatedLabel)
	}
	if f.Location != "Springfield" || f.Unit != Fahrenheit {
		t.Errorf("location/unit = %q/%q", f.Location, f.Unit)
	}
	if !f.IsDay {
		t.Error("expected day")
	}
	if f.Precipitation.Duration != DurationUnknown {
		t.Errorf("precipitation duration = %q", f.Precipitation.Duration)
	}
	if f.Palettes != PalettesFor(ConditionRainy) {
		t.Errorf("palettes = %+v", f.Palettes)
	}
}

func TestNormalizeSeries(t *testing.T) {
	f := Normalize(testPayload(), "Springfield", Fahrenheit, testNow)
	if f == nil {
		t.Fatal("Normalize() returned nil")
	}

	// Now is index 34 (10:00 today); 14 hours remain in the payload.
	if len(f.Hourly) != 14 {
		t.Fatalf("hourly len = %d, want 14", len(f.Hourly))
	}
	if f.Hourly[0].Time != "10am" || !f.Hourly[0].IsNow {
		t.Errorf("first hourly = %+v", f.Hourly[0])
	}
	if f.Hourly[1].IsNow {
		t.Error("only the first hourly entry is now")
	}
	if f.Hourly[2].Time != "12pm" {
		t.Errorf("hourly[2].Time = %q, want 12pm", f.Hourly[2].Time)
	}
	if len(f.TemperatureChart) != 5 || len(f.PrecipitationChart) != 5 {
		t.Errorf("chart lens = %d/%d, want 5/5", len(f.TemperatureChart), len(f.PrecipitationChart))
	}
	if f.TemperatureChart[1].Time != "1pm" {
		t.Errorf("chart[1].Time = %q, want 1pm", f.TemperatureChart[1].Time)
	}

	if len(f.Daily) != 7 {
		t.Fatalf("daily len = %d, want 7", len(f.Daily))
	}
	first := f.Daily[0]
	if !first.IsToday || first.Day != "Mon" || first.High != 78 || first.Condition != ConditionRainy {
		t.Errorf("daily[0] = %+v", first)
	}
	if f.Daily[4].Condition != ConditionStormy || f.Daily[4].IsToday {
		t.Errorf("daily[4] = %+v", f.Daily[4])
	}
}

func TestNormalizeNight(t *testing.T) {
	p := testPayload()
	p.Current.IsDay = 0
	p.Current.WeatherCode = 0
	p.Current.Temperature = 66 // 24h earlier was 60
	p.Hourly.Visibility = make([]float64, 48)
	p.Hourly.Visibility[34] = 16090

	f := Normalize(p, "Springfield", Fahrenheit, testNow)
	if f == nil {
		t.Fatal("Normalize() returned nil")
	}
	if f.Description != "Tonight is warmer than last night, and clear." {
		t.Errorf("description = %q", f.Description)
	}
	if f.VisibilityMiles != 10 {
		t.Errorf("visibility = %v, want 10", f.VisibilityMiles)
	}
	want := MoonPhaseAt(time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC))
	if f.Moon.Phase != want || f.Moon.Name != want.Name() {
		t.Errorf("moon = %+v, want phase %d", f.Moon, want)
	}
}

func TestNormalizeVisibility(t *testing.T) {
	tests := []struct {
		name    string
		reading float64
		want    float64
	}{
		{"zero falls back", 0, 10},
		{"reduced", 3218, 2},
		{"not clamped", 32180, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPayload()
			p.Hourly.Visibility = make([]float64, 48)
			p.Hourly.Visibility[34] = tt.reading
			f := Normalize(p, "Springfield", Fahrenheit, testNow)
			if f == nil {
				t.Fatal("Normalize() returned nil")
			}
			if f.VisibilityMiles != tt.want {
				t.Errorf("visibility = %v, want %v", f.VisibilityMiles, tt.want)
			}
		})
	}
}

func TestNormalizeUpcomingRain(t *testing.T) {
	p := testPayload()
	p.Current.WeatherCode = 0
	p.Daily.TemperatureMax[1] = 70
	p.Hourly.PrecipitationProbability[36] = 90
	p.Minutely15 = &models.Minutely15{Precipitation: make([]float64, 8)}

	f := Normalize(p, "Springfield", Fahrenheit, testNow)
	if f == nil {
		t.Fatal("Normalize() returned nil")
	}
	want := "Today will be about the same temperature as yesterday, and sunny. Rain likely starting around 12:00."
	if f.Description != want {
		t.Errorf("description = %q, want %q", f.Description, want)
	}
	if f.Precipitation.OnsetHourFromNow == nil || *f.Precipitation.OnsetHourFromNow != 2 {
		t.Errorf("onset = %v, want 2", f.Precipitation.OnsetHourFromNow)
	}
}

func TestNormalizeShortArrays(t *testing.T) {
	p := testPayload()
	p.Hourly.Temperature = nil
	p.Daily.TemperatureMax = []float64{70}
	p.Daily.Time = p.Daily.Time[:3]

	f := Normalize(p, "Springfield", Celsius, testNow)
	if f == nil {
		t.Fatal("Normalize() returned nil")
	}
	if f.High != 0 {
		t.Errorf("high = %v, want 0", f.High)
	}
	if len(f.Daily) != 2 {
		t.Errorf("daily len = %d, want 2", len(f.Daily))
	}
	if !strings.HasPrefix(f.Description, "Today will be about the same temperature as yesterday") {
		t.Errorf("description = %q", f.Description)
	}
}

func TestNowIndex(t *testing.T) {
	times := hoursFrom(0, 48)
	tests := []struct {
		name    string
		current models.LocalTime
		want    int
	}{
		{"exact hour", models.LocalTime{Time: time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC)}, 27},
		{"truncates minutes", models.LocalTime{Time: time.Date(2025, 6, 1, 5, 45, 0, 0, time.UTC)}, 5},
		{"not found", models.LocalTime{Time: time.Date(2025, 7, 1, 5, 0, 0, 0, time.UTC)}, 24},
		{"zero time", models.LocalTime{}, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NowIndex(times, tt.current); got != tt.want {
				t.Errorf("NowIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHourLabel(t *testing.T) {
	want := map[int]string{0: "12am", 1: "1am", 11: "11am", 12: "12pm", 13: "1pm", 23: "11pm"}
	for h, w := range want {
		if got := HourLabel(h); got != w {
			t.Errorf("HourLabel(%d) = %q, want %q", h, got, w)
		}
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{"", Fahrenheit, false},
		{"F", Fahrenheit, false},
		{"fahrenheit", Fahrenheit, false},
		{"c", Celsius, false},
		{" Celsius ", Celsius, false},
		{"kelvin", "", true},
	}
	for _, tt := range tests {
		got, err := ParseUnit(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseUnit(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseUnit(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
