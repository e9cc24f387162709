package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/lox/clearskies/internal/models"
)

// ErrLocationNotFound is returned when a geocode lookup has no results.
var ErrLocationNotFound = errors.New("location not found")

const DefaultSearchCount = 5

type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Timezone  string  `json:"timezone"`
	} `json:"results"`
}

// Search returns up to count places matching name. No matches is an empty
// slice, not an error.
func (c *Client) Search(ctx context.Context, name string, count int) ([]models.Place, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return []models.Place{}, nil
	}
	if count <= 0 {
		count = DefaultSearchCount
	}

	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(count))
	q.Set("language", "en")
	q.Set("format", "json")

	body, err := c.get(ctx, "geocode", withQuery(c.cfg.GeocodeURL, q))
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode geocode: %w", err)
	}

	places := make([]models.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		places = append(places, models.Place{
			Name:      r.Name,
			Country:   r.Country,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  r.Timezone,
		})
	}
	return places, nil
}

// Geocode resolves free text to its best match.
func (c *Client) Geocode(ctx context.Context, name string) (models.Place, error) {
	places, err := c.Search(ctx, name, 1)
	if err != nil {
		return models.Place{}, err
	}
	if len(places) == 0 {
		return models.Place{}, fmt.Errorf("%q: %w", name, ErrLocationNotFound)
	}
	return places[0], nil
}
