package forecast

import (
	"math"
	"testing"
	"time"
)

func TestJulianDay(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want float64
	}{
		{"J2000 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"midnight", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 2451544.5},
		{"unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"offset zone uses UTC fields", time.Date(2000, 1, 1, 22, 0, 0, 0, time.FixedZone("AEDT", 10*3600)), 2451545.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JulianDay(tt.t); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("JulianDay() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestMoonPhaseAt(t *testing.T) {
	ref := time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		name string
		t    time.Time
		want MoonPhase
	}{
		{"reference new moon", ref, MoonNew},
		{"one day later still new", ref.Add(day), MoonNew},
		{"waxing crescent", ref.Add(4 * day), MoonWaxingCrescent},
		{"first quarter", ref.Add(7*day + 9*time.Hour), MoonFirstQuarter},
		{"full moon", ref.Add(14*day + 18*time.Hour), MoonFull},
		{"last quarter", ref.Add(22 * day), MoonLastQuarter},
		{"waning crescent", ref.Add(26 * day), MoonWaningCrescent},
		{"before reference", ref.Add(-4 * day), MoonWaningCrescent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MoonPhaseAt(tt.t); got != tt.want {
				t.Errorf("MoonPhaseAt() = %d (%s), want %d (%s)", got, got.Name(), tt.want, tt.want.Name())
			}
		})
	}
}

func TestMoonPhasePeriodic(t *testing.T) {
	month := time.Duration(SynodicMonth * 24 * float64(time.Hour))
	// Offsets stay away from bucket edges so float drift cannot flip a phase.
	base := time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)
	for _, offsetDays := range []float64{0, 4, 11, 16, 19, 25} {
		t0 := base.Add(time.Duration(offsetDays * 24 * float64(time.Hour)))
		for k := 1; k <= 24; k++ {
			tk := t0.Add(time.Duration(k) * month)
			if MoonPhaseAt(tk) != MoonPhaseAt(t0) {
				t.Errorf("offset %.0fd, +%d months: phase %d != %d", offsetDays, k, MoonPhaseAt(tk), MoonPhaseAt(t0))
			}
		}
	}
}

func TestMoonPhaseInRange(t *testing.T) {
	start := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 2000; i++ {
		p := MoonPhaseAt(start.Add(time.Duration(i) * 37 * time.Hour))
		if p < MoonNew || p > MoonWaningCrescent {
			t.Fatalf("phase %d out of range", p)
		}
	}
}

func TestMoonIllumination(t *testing.T) {
	ref := time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)
	if got := MoonIllumination(ref); got > 1 {
		t.Errorf("new moon illumination = %d, want ~0", got)
	}
	full := ref.Add(time.Duration(SynodicMonth / 2 * 24 * float64(time.Hour)))
	if got := MoonIllumination(full); got < 99 {
		t.Errorf("full moon illumination = %d, want ~100", got)
	}
}

func TestMoonPhaseNames(t *testing.T) {
	if MoonFull.Name() != "Full Moon" {
		t.Errorf("MoonFull.Name() = %q", MoonFull.Name())
	}
	if MoonPhase(9).Name() != MoonWaxingCrescent.Name() {
		t.Errorf("out of range phase should wrap")
	}
	if MoonNew.Emoji() != "🌑" {
		t.Errorf("MoonNew.Emoji() = %q", MoonNew.Emoji())
	}
}
