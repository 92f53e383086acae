package postgres

import (
	"context"
	"database/sql"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// PostgresMeasurementCache implements MeasurementCache for PostgreSQL
type PostgresMeasurementCache struct {
	db *sql.DB
}

// NewPostgresMeasurementCache creates a new PostgreSQL measurement cache
func NewPostgresMeasurementCache(db *sql.DB) repository.MeasurementCache {
	return &PostgresMeasurementCache{db: db}
}

// Store upserts one reading
func (c *PostgresMeasurementCache) Store(ctx context.Context, kind models.MeasurementKind, f models.Frequency, power float64) error {
	query := `
		INSERT INTO measurement_cache (type, frequency, power, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (type, frequency)
		DO UPDATE SET power = EXCLUDED.power, updated_at = EXCLUDED.updated_at`

	_, err := c.db.ExecContext(ctx, query, kind, int64(f), power)
	return err
}

// FetchAll returns every cached reading of kind
func (c *PostgresMeasurementCache) FetchAll(ctx context.Context, kind models.MeasurementKind) (map[models.Frequency]float64, error) {
	query := `SELECT frequency, power FROM measurement_cache WHERE type = $1`

	rows, err := c.db.QueryContext(ctx, query, kind)
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

// Clear removes every cached reading
func (c *PostgresMeasurementCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM measurement_cache`)
	return err
}
