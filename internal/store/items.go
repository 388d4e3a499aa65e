package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ItemRow is one normalized listing scan. Descriptive fields are pointers:
// seller search returns bare item ids, which persist with every descriptive
// column NULL.
type ItemRow struct {
	JobID      int64    `json:"job_id"`
	SiteID     string   `json:"site_id"`
	CategoryID string   `json:"category_id"`
	ItemID     string   `json:"item_id"`
	Title      *string  `json:"title"`
	Permalink  *string  `json:"permalink"`
	Price      *float64 `json:"price"`
	CurrencyID *string  `json:"currency_id"`
	SellerID   *string  `json:"seller_id"`
	RawPayload string   `json:"-"`
}

// UpsertItems writes all rows in one transaction, keyed by (site_id,
// item_id). A later scan overwrites an earlier one for the same listing
// since the payload and display fields may have changed. Returns the number
// of rows written.
func UpsertItems(ctx context.Context, db *sql.DB, rows []ItemRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert items: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO trend_items (job_id, site_id, category_id, item_id, title, permalink, price, currency_id, seller_id, raw_payload, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(site_id, item_id) DO UPDATE SET
  job_id      = excluded.job_id,
  category_id = excluded.category_id,
  title       = excluded.title,
  permalink   = excluded.permalink,
  price       = excluded.price,
  currency_id = excluded.currency_id,
  seller_id   = excluded.seller_id,
  raw_payload = excluded.raw_payload,
  updated_at  = excluded.updated_at;`)
	if err != nil {
		return 0, fmt.Errorf("upsert items: prepare: %w", err)
	}
	defer stmt.Close()

	now := nowISO()
	written := 0
	for _, r := range rows {
		if r.ItemID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			r.JobID, r.SiteID, r.CategoryID, r.ItemID,
			r.Title, r.Permalink, r.Price, r.CurrencyID, r.SellerID,
			r.RawPayload, now,
		); err != nil {
			return 0, fmt.Errorf("upsert item %s: %w", r.ItemID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert items: commit: %w", err)
	}
	return written, nil
}

// ListItems returns recently scanned listings, newest first.
func ListItems(ctx context.Context, db *sql.DB, limit int) ([]ItemRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
SELECT job_id, site_id, category_id, item_id, title, permalink, price, currency_id, seller_id
FROM trend_items
ORDER BY updated_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		var r ItemRow
		if err := rows.Scan(&r.JobID, &r.SiteID, &r.CategoryID, &r.ItemID,
			&r.Title, &r.Permalink, &r.Price, &r.CurrencyID, &r.SellerID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountItems reports the listing table size.
func CountItems(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trend_items;`).Scan(&n)
	return n, err
}
