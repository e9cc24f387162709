package places

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lox/clearskies/internal/models"
)

//go:embed popular.yaml
var popularYAML []byte

// MinQueryLength is the shortest search text sent to the geocoder; shorter
// queries get the popular list.
const MinQueryLength = 2

// Parse decodes a YAML list of places, rejecting entries without a name or
// with out-of-range coordinates.
func Parse(data []byte) ([]models.Place, error) {
	var list []models.Place
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse places: %w", err)
	}
	for i, p := range list {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("place %d: missing name", i)
		}
		if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
			return nil, fmt.Errorf("place %q: coordinates out of range", p.Name)
		}
	}
	return list, nil
}

// Popular returns the built-in quick-pick cities.
func Popular() []models.Place {
	list, err := Parse(popularYAML)
	if err != nil {
		panic(err)
	}
	return list
}

// Load reads places from a YAML file, or returns the built-in list when path
// is empty.
func Load(path string) ([]models.Place, error) {
	if path == "" {
		return Popular(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read places: %w", err)
	}
	return Parse(data)
}

// Label formats a place as "Name, Admin1, Country", skipping empty parts.
func Label(p models.Place) string {
	parts := []string{p.Name}
	for _, s := range []string{p.Admin1, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// ShortQuery reports whether q is too short to send to the geocoder.
func ShortQuery(q string) bool {
	return len([]rune(strings.TrimSpace(q))) < MinQueryLength
}
