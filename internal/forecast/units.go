package forecast

import (
	"fmt"
	"strings"
)

// Unit is the temperature unit the payload was requested in.
type Unit string

const (
	Fahrenheit Unit = "F"
	Celsius    Unit = "C"
)

// ParseUnit accepts "F"/"C" and the long forms, case-insensitively. An empty
// string is Fahrenheit.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "f", "fahrenheit":
		return Fahrenheit, nil
	case "c", "celsius":
		return Celsius, nil
	default:
		return "", fmt.Errorf("unknown temperature unit %q", s)
	}
}

// Freezing returns the freezing point of water in u.
func (u Unit) Freezing() float64 {
	if u == Celsius {
		return 0
	}
	return 32
}

// QueryValue is the Open-Meteo temperature_unit parameter for u.
func (u Unit) QueryValue() string {
	if u == Celsius {
		return "celsius"
	}
	return "fahrenheit"
}
