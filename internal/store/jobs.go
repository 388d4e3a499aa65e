package store

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	JobPending    = "pending"
	JobProcessing = "processing"
	JobDone       = "done"
	JobError      = "error"
)

type Job struct {
	ID         int64  `json:"id"`
	SiteID     string `json:"site_id"`
	CategoryID string `json:"category_id"`
	Status     string `json:"status"`
	Attempts   int    `json:"attempts"`
	LastError  string `json:"last_error"`
	UpdatedAt  string `json:"updated_at"`
}

// ClaimBatch selects up to limit pending jobs for a site, oldest first.
// This is an at-least-once claim; MarkProcessing is the step that actually
// takes a job, and it only succeeds for rows still pending.
func ClaimBatch(ctx context.Context, db *sql.DB, siteID string, limit int) ([]Job, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, site_id, category_id, status, attempts, last_error, updated_at
FROM trend_jobs
WHERE status = ? AND site_id = ?
ORDER BY id ASC
LIMIT ?;`, JobPending, siteID, limit)
	if err != nil {
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.SiteID, &j.CategoryID, &j.Status, &j.Attempts, &j.LastError, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// MarkProcessing transitions pending -> processing, bumping attempts and
// clearing last_error. Returns false when the row was no longer pending,
// i.e. a concurrent invocation took it first.
func MarkProcessing(ctx context.Context, db *sql.DB, id int64, prevAttempts int) (bool, error) {
	res, err := db.ExecContext(ctx, `
UPDATE trend_jobs
SET status = ?, attempts = ?, last_error = '', updated_at = ?
WHERE id = ? AND status = ?;`,
		JobProcessing, prevAttempts+1, nowISO(), id, JobPending,
	)
	if err != nil {
		return false, fmt.Errorf("mark processing job=%d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func MarkDone(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `
UPDATE trend_jobs
SET status = ?, last_error = '', updated_at = ?
WHERE id = ?;`, JobDone, nowISO(), id)
	if err != nil {
		return fmt.Errorf("mark done job=%d: %w", id, err)
	}
	return nil
}

func MarkError(ctx context.Context, db *sql.DB, id int64, msg string) error {
	_, err := db.ExecContext(ctx, `
UPDATE trend_jobs
SET status = ?, last_error = ?, updated_at = ?
WHERE id = ?;`, JobError, msg, nowISO(), id)
	if err != nil {
		return fmt.Errorf("mark error job=%d: %w", id, err)
	}
	return nil
}

// InsertJob enqueues a pending job. Job creation is normally external; this
// exists for the seeding endpoint and tests.
func InsertJob(ctx context.Context, db *sql.DB, siteID, categoryID string) (int64, error) {
	now := nowISO()
	res, err := db.ExecContext(ctx, `
INSERT INTO trend_jobs (site_id, category_id, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?);`, siteID, categoryID, JobPending, now, now)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	return res.LastInsertId()
}

// ListJobs returns recent jobs for the inspection endpoint, newest first.
func ListJobs(ctx context.Context, db *sql.DB, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT id, site_id, category_id, status, attempts, last_error, updated_at
FROM trend_jobs
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.SiteID, &j.CategoryID, &j.Status, &j.Attempts, &j.LastError, &j.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
