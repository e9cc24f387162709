package store

import (
	"database/sql"
	"time"
)

// FetchRun records one upstream fetch for auditing.
type FetchRun struct {
	ID                int64
	StartedAt         time.Time
	FinishedAt        sql.NullTime
	Endpoint          string // "forecast", "geocode"
	LocationKey       sql.NullString
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	CacheHit          bool
	Success           bool
	ErrorMessage      sql.NullString
}

// StartFetchRun inserts an unfinished run and returns it.
func (s *Store) StartFetchRun(endpoint, locationKey string) (*FetchRun, error) {
	run := &FetchRun{
		StartedAt:   time.Now().UTC(),
		Endpoint:    endpoint,
		LocationKey: sql.NullString{String: locationKey, Valid: locationKey != ""},
	}

	result, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, endpoint, location_key, success)
		VALUES (?, ?, ?, FALSE)
	`, run.StartedAt, run.Endpoint, run.LocationKey)
	if err != nil {
		return nil, err
	}

	run.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return run, nil
}

// CompleteFetchRun records the outcome of run.
func (s *Store) CompleteFetchRun(run *FetchRun) error {
	if run == nil {
		return nil
	}

	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE fetch_runs SET
			finished_at = ?,
			http_status = ?,
			response_size_bytes = ?,
			cache_hit = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, run.FinishedAt, run.HTTPStatus, run.ResponseSizeBytes, run.CacheHit,
		run.Success, run.ErrorMessage, run.ID)
	return err
}

// Fail marks run unsuccessful with err's message.
func (r *FetchRun) Fail(err error) {
	r.Success = false
	r.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
}

// FetchHealthSummary aggregates fetch runs per day and endpoint.
type FetchHealthSummary struct {
	Date        string `json:"date"`
	Endpoint    string `json:"endpoint"`
	TotalRuns   int    `json:"total_runs"`
	SuccessRuns int    `json:"success_runs"`
	FailedRuns  int    `json:"failed_runs"`
	CacheHits   int    `json:"cache_hits"`
}

// GetFetchHealth returns daily summaries for the last days days.
func (s *Store) GetFetchHealth(days int) ([]FetchHealthSummary, error) {
	rows, err := s.db.Query(`
		SELECT
			DATE(SUBSTR(started_at, 1, 19)) as date,
			endpoint,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 1 ELSE 0 END) as success_runs,
			SUM(CASE WHEN NOT success THEN 1 ELSE 0 END) as failed_runs,
			SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END) as cache_hits
		FROM fetch_runs
		WHERE SUBSTR(started_at, 1, 19) > datetime('now', '-' || ? || ' days')
		GROUP BY date, endpoint
		ORDER BY date DESC, endpoint
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchHealthSummary
	for rows.Next() {
		var h FetchHealthSummary
		if err := rows.Scan(&h.Date, &h.Endpoint, &h.TotalRuns, &h.SuccessRuns, &h.FailedRuns, &h.CacheHits); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}

// GetRecentFetchErrors returns the latest failed runs, newest first.
func (s *Store) GetRecentFetchErrors(limit int) ([]FetchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, endpoint, location_key,
			   http_status, response_size_bytes, cache_hit, success, error_message
		FROM fetch_runs
		WHERE success = FALSE AND finished_at IS NOT NULL
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		var r FetchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Endpoint, &r.LocationKey,
			&r.HTTPStatus, &r.ResponseSizeBytes, &r.CacheHit, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
