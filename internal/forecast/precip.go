package forecast

import (
	"fmt"
	"strings"

	"github.com/lox/clearskies/internal/models"
)

// PrecipKind names the falling precipitation in sentences.
type PrecipKind string

const (
	PrecipRain PrecipKind = "Rain"
	PrecipSnow PrecipKind = "Snow"
)

// DurationClass describes how long detected precipitation is expected to last.
type DurationClass string

const (
	DurationUnknown   DurationClass = "unknown"
	DurationShort     DurationClass = "short"
	DurationSustained DurationClass = "sustained"
	DurationAllNight  DurationClass = "allNight"
)

const (
	imminentSlots        = 4  // 15-minute slots in the next hour
	slotMinutes          = 15
	laterScanHours       = 18
	runScanHours         = 12 // onset hour included
	probabilityThreshold = 40.0
	sustainedRunHours    = 5
	eveningHour          = 18
)

// PrecipitationWindow is the derived onset/duration classification.
type PrecipitationWindow struct {
	OnsetMinutesFromNow *int          `json:"onset_minutes_from_now,omitempty"`
	OnsetHourFromNow    *int          `json:"onset_hour_from_now,omitempty"`
	IsImminent          bool          `json:"is_imminent"`
	IsIntermittent      bool          `json:"is_intermittent"`
	Duration            DurationClass `json:"duration"`
}

// HourlyPrecip is the hourly probability series with its timestamps.
type HourlyPrecip struct {
	Probability []float64
	Times       []models.LocalTime
}

// PrecipKindFor picks Snow for snowy conditions or sub-freezing temperatures
// in the given unit, otherwise Rain.
func PrecipKindFor(c Condition, temp float64, unit Unit) PrecipKind {
	if c == ConditionSnowy || temp < unit.Freezing() {
		return PrecipSnow
	}
	return PrecipRain
}

// AnalyzePrecipitation looks for rain in the next hour using the 15-minute
// series, then falls back to hourly probabilities starting at nowIndex. It
// returns an empty sentence when neither finds anything.
func AnalyzePrecipitation(minutely []float64, hourly HourlyPrecip, nowIndex int, kind PrecipKind) (string, PrecipitationWindow) {
	if sentence, window, ok := imminentPrecipitation(minutely, kind); ok {
		return sentence, window
	}
	if sentence, window, ok := laterPrecipitation(hourly, nowIndex, kind); ok {
		return sentence, window
	}
	return "", PrecipitationWindow{Duration: DurationUnknown}
}

func imminentPrecipitation(minutely []float64, kind PrecipKind) (string, PrecipitationWindow, bool) {
	startIdx := -1
	for i := 0; i < min(imminentSlots, len(minutely)); i++ {
		if minutely[i] > 0 {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return "", PrecipitationWindow{}, false
	}

	minutes := startIdx * slotMinutes
	timeText := "starting now"
	if minutes > 0 {
		timeText = fmt.Sprintf("starting in %d minutes", minutes)
	}

	endIdx := -1
	for i := startIdx + 1; i < len(minutely); i++ {
		if minutely[i] == 0 {
			endIdx = i
			break
		}
	}

	window := PrecipitationWindow{
		OnsetMinutesFromNow: &minutes,
		IsImminent:          true,
		Duration:            DurationSustained,
	}
	if endIdx != -1 && endIdx-startIdx <= imminentSlots {
		window.Duration = DurationShort
		return fmt.Sprintf("%s likely %s, stopping shortly after.", kind, timeText), window, true
	}
	return fmt.Sprintf("%s likely %s, continuing for a while.", kind, timeText), window, true
}

func laterPrecipitation(hourly HourlyPrecip, nowIndex int, kind PrecipKind) (string, PrecipitationWindow, bool) {
	probs := hourly.Probability
	if nowIndex < 0 || nowIndex >= len(probs) {
		return "", PrecipitationWindow{}, false
	}

	onset := -1
	for i := 0; i < min(laterScanHours, len(probs)-nowIndex); i++ {
		if probs[nowIndex+i] > probabilityThreshold {
			onset = i
			break
		}
	}
	if onset == -1 {
		return "", PrecipitationWindow{}, false
	}

	onsetIdx := nowIndex + onset
	run := 1
	gap, spotted := false, false
	for i := 1; i < runScanHours && onsetIdx+i < len(probs); i++ {
		if probs[onsetIdx+i] > probabilityThreshold {
			if gap {
				spotted = true
				break
			}
			run++
		} else {
			gap = true
		}
	}

	window := PrecipitationWindow{
		OnsetHourFromNow: &onset,
		IsIntermittent:   spotted,
		Duration:         DurationUnknown,
	}

	if spotted {
		return fmt.Sprintf("Spotted %s showers likely today.", strings.ToLower(string(kind))), window, true
	}

	hour, haveHour := clockHour(hourly.Times, onsetIdx)
	startText := ""
	if haveHour {
		startText = fmt.Sprintf(" starting around %d:00", hour)
	} else if onset == 0 {
		startText = " starting now"
	} else {
		startText = fmt.Sprintf(" starting in %d hours", onset)
	}

	if run > sustainedRunHours {
		timeOfDay := "for the rest of the day"
		window.Duration = DurationSustained
		if haveHour && hour >= eveningHour {
			timeOfDay = "all night"
			window.Duration = DurationAllNight
		}
		return fmt.Sprintf("%s likely%s, continuing %s.", kind, startText, timeOfDay), window, true
	}
	return fmt.Sprintf("%s likely%s.", kind, startText), window, true
}

func clockHour(times []models.LocalTime, idx int) (int, bool) {
	if idx < 0 || idx >= len(times) || times[idx].IsZero() {
		return 0, false
	}
	return times[idx].Hour(), true
}
