package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/qet/internal/errors"
)

// SQLiteArea is a storage.Area backed by one partition of the kv table.
type SQLiteArea struct {
	db   *sql.DB
	area string
}

// NewSQLiteArea returns the named area (storage.AreaSync or storage.AreaLocal).
func NewSQLiteArea(db *sql.DB, area string) *SQLiteArea {
	return &SQLiteArea{db: db, area: area}
}

// Get retrieves the value stored under key.
func (a *SQLiteArea) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := a.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE area = ? AND key = ?`,
		a.area, key,
	).Scan(&value)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.NewInternal(err)
	}
	return []byte(value), true, nil
}

// Set upserts the value stored under key.
func (a *SQLiteArea) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO kv (area, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(area, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := a.db.ExecContext(ctx, query, a.area, key, string(value), time.Now().UnixMilli()); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// Remove deletes key from the area.
func (a *SQLiteArea) Remove(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM kv WHERE area = ? AND key = ?`, a.area, key); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
