package forecast

import (
	"math"
	"time"
)

// MoonPhase is one of eight phase buckets, 0 (new) through 7 (waning crescent).
type MoonPhase int

const (
	MoonNew MoonPhase = iota
	MoonWaxingCrescent
	MoonFirstQuarter
	MoonWaxingGibbous
	MoonFull
	MoonWaningGibbous
	MoonLastQuarter
	MoonWaningCrescent
)

const (
	// SynodicMonth is the mean length of a lunation in days.
	SynodicMonth = 29.53058867

	// referenceNewMoonJD is the new moon of 2000-01-06 18:14 UTC.
	referenceNewMoonJD = 2451550.1

	moonPhases = 8
)

var moonNames = [moonPhases]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

var moonEmoji = [moonPhases]string{"🌑", "🌒", "🌓", "🌔", "🌕", "🌖", "🌗", "🌘"}

// Name returns the display name, e.g. "Waxing Gibbous".
func (p MoonPhase) Name() string {
	return moonNames[p.normalize()]
}

func (p MoonPhase) Emoji() string {
	return moonEmoji[p.normalize()]
}

func (p MoonPhase) normalize() int {
	i := int(p) % moonPhases
	if i < 0 {
		i += moonPhases
	}
	return i
}

// JulianDay returns the Julian Date of t, computed from its UTC calendar fields.
func JulianDay(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()

	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3
	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045

	secs := t.Hour()*3600 + t.Minute()*60 + t.Second()
	frac := (float64(secs) + float64(t.Nanosecond())/1e9) / 86400
	return float64(jdn) - 0.5 + frac
}

// lunationPosition returns where t falls in the synodic cycle, in [0, 1).
func lunationPosition(t time.Time) float64 {
	cycles := (JulianDay(t) - referenceNewMoonJD) / SynodicMonth
	pos := cycles - math.Floor(cycles)
	if pos >= 1 {
		pos = 0
	}
	return pos
}

// MoonPhaseAt buckets the lunation position of t. The half-step offset centers
// bucket 0 on the new moon instant.
func MoonPhaseAt(t time.Time) MoonPhase {
	idx := int(math.Floor(lunationPosition(t)*moonPhases+0.5)) % moonPhases
	return MoonPhase(idx)
}

// MoonIllumination returns the approximate lit fraction as a percentage (0-100).
func MoonIllumination(t time.Time) int {
	angle := lunationPosition(t) * 2 * math.Pi
	return int(math.Round((1 - math.Cos(angle)) / 2 * 100))
}
