package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lox/clearskies/internal/models"
)

// SavePreference inserts or replaces the client's saved location and unit.
func (s *Store) SavePreference(p models.Preference) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO preferences (client_id, name, country, admin1, latitude, longitude, timezone, unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			admin1 = excluded.admin1,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			timezone = excluded.timezone,
			unit = excluded.unit,
			updated_at = excluded.updated_at
	`, p.ClientID, p.Place.Name, p.Place.Country, p.Place.Admin1, p.Place.Latitude, p.Place.Longitude,
		p.Place.Timezone, p.Unit, p.UpdatedAt)
	return err
}

// GetPreference returns ErrNotFound when the client has nothing saved.
func (s *Store) GetPreference(clientID string) (*models.Preference, error) {
	var p models.Preference
	var country, admin1, tz sql.NullString
	err := s.db.QueryRow(`
		SELECT client_id, name, country, admin1, latitude, longitude, timezone, unit, updated_at
		FROM preferences WHERE client_id = ?
	`, clientID).Scan(&p.ClientID, &p.Place.Name, &country, &admin1, &p.Place.Latitude,
		&p.Place.Longitude, &tz, &p.Unit, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Place.Country = country.String
	p.Place.Admin1 = admin1.String
	p.Place.Timezone = tz.String
	return &p, nil
}

func (s *Store) DeletePreference(clientID string) error {
	_, err := s.db.Exec(`DELETE FROM preferences WHERE client_id = ?`, clientID)
	return err
}

// SavedLocations returns one preference per distinct rounded coordinate and
// unit, the most recently updated winning.
func (s *Store) SavedLocations() ([]models.Preference, error) {
	rows, err := s.db.Query(`
		SELECT name, country, admin1, latitude, longitude, timezone, unit, MAX(updated_at)
		FROM preferences
		GROUP BY ROUND(latitude, 2), ROUND(longitude, 2), unit
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefs []models.Preference
	for rows.Next() {
		var p models.Preference
		var country, admin1, tz, updated sql.NullString
		if err := rows.Scan(&p.Place.Name, &country, &admin1, &p.Place.Latitude, &p.Place.Longitude,
			&tz, &p.Unit, &updated); err != nil {
			return nil, err
		}
		p.Place.Country = country.String
		p.Place.Admin1 = admin1.String
		p.Place.Timezone = tz.String
		p.UpdatedAt = parseSQLiteTime(updated)
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}
