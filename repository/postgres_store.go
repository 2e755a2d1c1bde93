package repository

import (
	"context"
	"database/sql"
	"fmt"

	"pricewatch/models"
)

// storeLockKey serialises load-modify-save cycles across every process sharing the database.
const storeLockKey = 7_734_211

const selectItems = `
	SELECT id, url, email, title, image_url, price_at_add, last_known_price, lowest_30d,
		currency, status, created_at, last_checked
	FROM tracked_items
	ORDER BY created_at, id
`

const insertItem = `
	INSERT INTO tracked_items (id, url, email, title, image_url, price_at_add, last_known_price,
		lowest_30d, currency, status, created_at, last_checked)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// PostgresStore keeps the collection in the tracked_items table. Every write
// replaces the table contents inside one transaction.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over the tracked_items table.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) LoadAll(ctx context.Context) ([]models.TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, selectItems)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get tracked items: %v", models.ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *PostgresStore) SaveAll(ctx context.Context, items []models.TrackedItem) error {
	return s.Update(ctx, func([]models.TrackedItem) ([]models.TrackedItem, error) {
		return items, nil
	})
}

// Update runs fn inside one transaction holding an advisory lock, so concurrent
// writers from other processes are serialised too.
func (s *PostgresStore) Update(ctx context.Context, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", models.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, storeLockKey); err != nil {
		return fmt.Errorf("failed to lock tracked items: %w", err)
	}

	rows, err := tx.QueryContext(ctx, selectItems)
	if err != nil {
		return fmt.Errorf("failed to get tracked items: %w", err)
	}
	items, err := scanItems(rows)
	rows.Close()
	if err != nil {
		return err
	}

	updated, err := fn(items)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_items`); err != nil {
		return fmt.Errorf("failed to clear tracked items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertItem)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range updated {
		if _, err := stmt.ExecContext(ctx,
			item.ID, item.URL, item.Email, item.Title, item.ImageURL,
			item.PriceAtAdd, item.LastKnownPrice, item.Lowest30D,
			item.Currency, string(item.Status), item.CreatedAt, item.LastChecked,
		); err != nil {
			return fmt.Errorf("failed to insert tracked item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tracked items: %w", err)
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]models.TrackedItem, error) {
	items := []models.TrackedItem{}
	for rows.Next() {
		var (
			item   models.TrackedItem
			status string
		)
		if err := rows.Scan(
			&item.ID, &item.URL, &item.Email, &item.Title, &item.ImageURL,
			&item.PriceAtAdd, &item.LastKnownPrice, &item.Lowest30D,
			&item.Currency, &status, &item.CreatedAt, &item.LastChecked,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tracked item: %w", err)
		}
		item.Status = models.Verdict(status)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tracked items: %w", err)
	}
	return items, nil
}
