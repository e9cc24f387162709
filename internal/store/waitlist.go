package store

import (
	"time"

	"github.com/lox/clearskies/internal/models"
)

// AddWaitlistEntry records email. created is false when the address (compared
// case-insensitively) was already on the list.
func (s *Store) AddWaitlistEntry(email string) (created bool, err error) {
	result, err := s.db.Exec(`
		INSERT INTO waitlist (email, created_at) VALUES (?, ?)
		ON CONFLICT(email) DO NOTHING
	`, email, time.Now().UTC())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasWaitlistEntry reports whether email (compared case-insensitively) is
// already on the list.
func (s *Store) HasWaitlistEntry(email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM waitlist WHERE email = ?)`, email).Scan(&exists)
	return exists, err
}

func (s *Store) ListWaitlist() ([]models.WaitlistEntry, error) {
	rows, err := s.db.Query(`SELECT id, email, created_at FROM waitlist ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WaitlistEntry
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) WaitlistCount() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM waitlist`).Scan(&n)
	return n, err
}
