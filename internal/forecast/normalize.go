package forecast

import (
	"strconv"
	"time"

	"github.com/lox/clearskies/internal/models"
)

const (
	// defaultNowIndex is the first hour of today when one day of history is requested.
	defaultNowIndex   = 24
	hourlyWindow      = 24
	chartStride       = 3
	dailyWindow       = 7
	metersPerMile     = 1609.0
	defaultVisibility = 10.0
)

// Forecast is the view-model rendered for one location. It is rebuilt from a
// fresh payload on every fetch and never mutated afterwards.
type Forecast struct {
	Location            string              `json:"location"`
	Unit                Unit                `json:"unit"`
	CurrentTemp         float64             `json:"current_temp"`
	Condition           Condition           `json:"condition"`
	ConditionLabel      string              `json:"condition_label"`
	Icon                string              `json:"icon"`
	Precipitating       bool                `json:"precipitating"`
	Description         string              `json:"description"`
	High                float64             `json:"high"`
	Low                 float64             `json:"low"`
	PrecipitationChance float64             `json:"precipitation_chance"`
	Humidity            float64             `json:"humidity"`
	WindSpeed           float64             `json:"wind_speed"`
	WindGust            float64             `json:"wind_gust"`
	VisibilityMiles     float64             `json:"visibility_miles"`
	FeelsLike           float64             `json:"feels_like"`
	Pressure            float64             `json:"pressure"`
	UVIndex             float64             `json:"uv_index"`
	SunriseLabel        string              `json:"sunrise"`
	SunsetLabel         string              `json:"sunset"`
	DewPoint            float64             `json:"dew_point"`
	IsDay               bool                `json:"is_day"`
	Hourly              []HourlyEntry       `json:"hourly"`
	TemperatureChart    []ChartPoint        `json:"temperature_chart"`
	PrecipitationChart  []ChartPoint        `json:"precipitation_chart"`
	Daily               []DailyEntry        `json:"daily"`
	Precipitation       PrecipitationWindow `json:"precipitation"`
	Moon                MoonData            `json:"moon"`
	Palettes            Palettes            `json:"palettes"`
	LastUpdatedLabel    string              `json:"last_updated"`
}

type HourlyEntry struct {
	Time          string    `json:"time"`
	Temp          float64   `json:"temp"`
	Condition     Condition `json:"condition"`
	Precipitation float64   `json:"precipitation"`
	IsNow         bool      `json:"is_now"`
}

type ChartPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type DailyEntry struct {
	Day           string    `json:"day"`
	Date          string    `json:"date"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Condition     Condition `json:"condition"`
	Precipitation float64   `json:"precipitation"`
	IsToday       bool      `json:"is_today"`
}

// MoonData is the moon phase information shown at night.
type MoonData struct {
	Phase        MoonPhase `json:"phase"`
	Name         string    `json:"name"`
	Emoji        string    `json:"emoji"`
	Illumination int       `json:"illumination"`
}

// Normalize reshapes a decoded payload into a Forecast. It returns nil when
// the payload is missing a required block; short arrays fall back to defaults.
func Normalize(p *models.Payload, location string, unit Unit, now time.Time) *Forecast {
	if p == nil || p.Current == nil || p.Hourly == nil || p.Daily == nil {
		return nil
	}

	cur := p.Current
	hourly := p.Hourly
	daily := p.Daily
	loc := p.Location()

	nowIdx := NowIndex(hourly.Time, cur.Time)
	condition := Classify(cur.WeatherCode)
	isDay := cur.IsDay != 0

	var minutely []float64
	if p.Minutely15 != nil {
		minutely = p.Minutely15.Precipitation
	}
	kind := PrecipKindFor(condition, cur.Temperature, unit)
	precipSentence, window := AnalyzePrecipitation(minutely, HourlyPrecip{
		Probability: hourly.PrecipitationProbability,
		Times:       hourly.Time,
	}, nowIdx, kind)

	todayMax, haveToday := at(daily.TemperatureMax, 1)
	yesterdayMax, haveYesterday := at(daily.TemperatureMax, 0)

	description := Compose(NarrativeInput{
		Condition:      condition,
		IsDay:          isDay,
		TodayMax:       todayMax,
		YesterdayMax:   yesterdayMax,
		HaveDaily:      haveToday && haveYesterday,
		NightTempDelta: nightDelta(cur.Temperature, hourly.Temperature, nowIdx),
		Precipitation:  precipSentence,
	})

	f := &Forecast{
		Location:         location,
		Unit:             unit,
		CurrentTemp:      cur.Temperature,
		Condition:        condition,
		ConditionLabel:   condition.Label(),
		Icon:             condition.Icon(),
		Precipitating:    condition.Precipitating(),
		Description:      description,
		High:             todayMax,
		Humidity:         cur.RelativeHumidity,
		WindSpeed:        cur.WindSpeed,
		WindGust:         cur.WindGusts,
		FeelsLike:        cur.ApparentTemperature,
		Pressure:         cur.SurfacePressure,
		DewPoint:         DewPoint(cur.Temperature, cur.RelativeHumidity),
		VisibilityMiles:  visibilityMiles(hourly.Visibility, nowIdx),
		IsDay:            isDay,
		Precipitation:    window,
		Palettes:         PalettesFor(condition),
		LastUpdatedLabel: now.In(loc).Format("03:04 PM"),
	}
	f.Low, _ = at(daily.TemperatureMin, 1)
	f.PrecipitationChance, _ = at(daily.PrecipitationProbabilityMax, 1)
	f.UVIndex, _ = at(daily.UVIndexMax, 1)
	f.SunriseLabel = clockLabel(daily.Sunrise, 1)
	f.SunsetLabel = clockLabel(daily.Sunset, 1)

	f.Hourly, f.TemperatureChart, f.PrecipitationChart = hourlySeries(hourly, nowIdx)
	f.Daily = dailySeries(daily)

	instant := now
	if !cur.Time.IsZero() {
		instant = cur.Time.At(loc)
	}
	phase := MoonPhaseAt(instant)
	f.Moon = MoonData{
		Phase:        phase,
		Name:         phase.Name(),
		Emoji:        phase.Emoji(),
		Illumination: MoonIllumination(instant),
	}

	return f
}

// NowIndex finds the hourly slot matching current, truncated to the hour,
// falling back to the first hour of today.
func NowIndex(times []models.LocalTime, current models.LocalTime) int {
	if current.IsZero() {
		return defaultNowIndex
	}
	hour := current.Truncate(time.Hour)
	for i, t := range times {
		if t.Equal(hour) {
			return i
		}
	}
	return defaultNowIndex
}

// DewPoint approximates the dew point from temperature and relative humidity.
func DewPoint(temp, humidity float64) float64 {
	return temp - (100-humidity)/5
}

func nightDelta(current float64, temps []float64, nowIdx int) *float64 {
	idx := nowIdx - 24
	if idx < 0 {
		idx = 0
	}
	prior, ok := at(temps, idx)
	if !ok {
		return nil
	}
	delta := current - prior
	return &delta
}

func visibilityMiles(visibility []float64, nowIdx int) float64 {
	v, ok := at(visibility, nowIdx)
	if !ok || v <= 0 {
		return defaultVisibility
	}
	return v / metersPerMile
}

func hourlySeries(h *models.Hourly, nowIdx int) ([]HourlyEntry, []ChartPoint, []ChartPoint) {
	var (
		entries []HourlyEntry
		temps   []ChartPoint
		precips []ChartPoint
	)
	if nowIdx < 0 {
		return entries, temps, precips
	}
	for i := 0; i < hourlyWindow; i++ {
		idx := nowIdx + i
		if idx >= len(h.Time) {
			break
		}
		label := HourLabel(h.Time[idx].Hour())
		temp, _ := at(h.Temperature, idx)
		prob, _ := at(h.PrecipitationProbability, idx)
		code, _ := at(h.WeatherCode, idx)

		entries = append(entries, HourlyEntry{
			Time:          label,
			Temp:          temp,
			Condition:     Classify(code),
			Precipitation: prob,
			IsNow:         i == 0,
		})
		if i%chartStride == 0 {
			temps = append(temps, ChartPoint{Time: label, Value: temp})
			precips = append(precips, ChartPoint{Time: label, Value: prob})
		}
	}
	return entries, temps, precips
}

func dailySeries(d *models.Daily) []DailyEntry {
	var days []DailyEntry
	for i := 1; i <= dailyWindow; i++ {
		if i >= len(d.Time) {
			break
		}
		high, _ := at(d.TemperatureMax, i)
		low, _ := at(d.TemperatureMin, i)
		code, _ := at(d.WeatherCode, i)
		prob, _ := at(d.PrecipitationProbabilityMax, i)
		days = append(days, DailyEntry{
			Day:           d.Time[i].Weekday().String()[:3],
			Date:          d.Time[i].Format("2006-01-02"),
			High:          high,
			Low:           low,
			Condition:     Classify(code),
			Precipitation: prob,
			IsToday:       i == 1,
		})
	}
	return days
}

// HourLabel renders an hour of day as "12am", "1pm", etc.
func HourLabel(h int) string {
	switch {
	case h == 0:
		return "12am"
	case h == 12:
		return "12pm"
	case h > 12:
		return strconv.Itoa(h-12) + "pm"
	default:
		return strconv.Itoa(h) + "am"
	}
}

func clockLabel(times []models.LocalTime, idx int) string {
	t, ok := at(times, idx)
	if !ok || t.IsZero() {
		return ""
	}
	return t.Format("3:04 PM")
}

func at[T any](s []T, i int) (T, bool) {
	var zero T
	if i < 0 || i >= len(s) {
		return zero, false
	}
	return s[i], true
}
