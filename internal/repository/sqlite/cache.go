// Package sqlite keeps the in-progress measurement cache in a local
// SQLite file for booths that run without PostgreSQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.

	"github.com/RMahshie/tinfoil/pkg/models"
)

// Cache implements repository.MeasurementCache on SQLite
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at path
func Open(path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS measurement_cache (
		type TEXT NOT NULL CHECK (type IN ('baseline', 'hat')),
		frequency INTEGER NOT NULL,
		power REAL NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (datetime('now')),
		PRIMARY KEY (type, frequency)
	);`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create measurement_cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) Store(ctx context.Context, kind models.MeasurementKind, f models.Frequency, power float64) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO measurement_cache (type, frequency, power, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (type, frequency)
		DO UPDATE SET power = excluded.power, updated_at = excluded.updated_at`,
		string(kind), int64(f), power)
	return err
}

func (c *Cache) FetchAll(ctx context.Context, kind models.MeasurementKind) (map[models.Frequency]float64, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT frequency, power FROM measurement_cache WHERE type = ?`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	readings := make(map[models.Frequency]float64)
	for rows.Next() {
		var f int64
		var power float64
		if err := rows.Scan(&f, &power); err != nil {
			return nil, err
		}
		readings[models.Frequency(f)] = power
	}
	return readings, rows.Err()
}

func (c *Cache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM measurement_cache`)
	return err
}
