package store

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// RawPayload is an archived upstream response.
type RawPayload struct {
	ID                int64
	FetchRunID        sql.NullInt64
	FetchedAt         time.Time
	Endpoint          string
	LocationKey       sql.NullString
	PayloadCompressed []byte
	PayloadHash       string
	SchemaVersion     int
}

// StoreRawPayload archives a gzip-compressed copy of payload. It returns the
// new row ID, or 0 when an identical payload is already stored.
func (s *Store) StoreRawPayload(runID *int64, endpoint, locationKey string, payload []byte) (int64, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return 0, fmt.Errorf("compress payload: %w", err)
	}
	if err := gz.Close(); err != nil {
		return 0, fmt.Errorf("close gzip: %w", err)
	}

	hash := sha256.Sum256(payload)

	var fetchRunID sql.NullInt64
	if runID != nil {
		fetchRunID = sql.NullInt64{Int64: *runID, Valid: true}
	}
	loc := sql.NullString{String: locationKey, Valid: locationKey != ""}

	result, err := s.db.Exec(`
		INSERT INTO raw_payloads
		(fetch_run_id, fetched_at, endpoint, location_key, payload_compressed, payload_hash, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(payload_hash) DO NOTHING
	`, fetchRunID, time.Now().UTC(), endpoint, loc, buf.Bytes(), hex.EncodeToString(hash[:]))
	if err != nil {
		return 0, fmt.Errorf("insert raw payload: %w", err)
	}

	if n, err := result.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, nil
	}
	return result.LastInsertId()
}

// GetRawPayload returns the decompressed payload with the given ID.
func (s *Store) GetRawPayload(id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRow(`SELECT payload_compressed FROM raw_payloads WHERE id = ?`, id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decompress(compressed)
}

// LatestRawPayload returns the most recently archived payload for a location key.
func (s *Store) LatestRawPayload(locationKey string) ([]byte, time.Time, error) {
	var compressed []byte
	var fetchedAt time.Time
	err := s.db.QueryRow(`
		SELECT payload_compressed, fetched_at FROM raw_payloads
		WHERE location_key = ?
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`, locationKey).Scan(&compressed, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	payload, err := decompress(compressed)
	return payload, fetchedAt, err
}

func decompress(compressed []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("create gzip reader: %w", err)
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

// RawPayloadStats summarises the payload archive.
type RawPayloadStats struct {
	TotalCount      int              `json:"total_count"`
	TotalSizeBytes  int64            `json:"total_size_bytes"`
	OldestFetchedAt time.Time        `json:"oldest_fetched_at"`
	NewestFetchedAt time.Time        `json:"newest_fetched_at"`
	CountByEndpoint map[string]int   `json:"count_by_endpoint"`
	SizeByEndpoint  map[string]int64 `json:"size_by_endpoint"`
}

func (s *Store) GetRawPayloadStats() (*RawPayloadStats, error) {
	stats := &RawPayloadStats{
		CountByEndpoint: make(map[string]int),
		SizeByEndpoint:  make(map[string]int64),
	}

	var oldest, newest sql.NullString
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_compressed)), 0),
		       MIN(fetched_at), MAX(fetched_at)
		FROM raw_payloads
	`).Scan(&stats.TotalCount, &stats.TotalSizeBytes, &oldest, &newest)
	if err != nil {
		return nil, err
	}
	stats.OldestFetchedAt = parseSQLiteTime(oldest)
	stats.NewestFetchedAt = parseSQLiteTime(newest)

	rows, err := s.db.Query(`
		SELECT endpoint, COUNT(*), SUM(LENGTH(payload_compressed))
		FROM raw_payloads
		GROUP BY endpoint
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var endpoint string
		var count int
		var size int64
		if err := rows.Scan(&endpoint, &count, &size); err != nil {
			return nil, err
		}
		stats.CountByEndpoint[endpoint] = count
		stats.SizeByEndpoint[endpoint] = size
	}
	return stats, rows.Err()
}

// CleanupOldRawPayloads deletes payloads fetched before now minus retention
// and returns the number removed.
func (s *Store) CleanupOldRawPayloads(retention time.Duration) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM raw_payloads WHERE fetched_at < ?`, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// parseSQLiteTime reads aggregate timestamps, which the driver returns as text.
func parseSQLiteTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999 -0700 MST",
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, v.String); err == nil {
			return t
		}
	}
	return time.Time{}
}
