package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// PostgresContestantRepository implements ContestantRepository for PostgreSQL
type PostgresContestantRepository struct {
	db *sql.DB
}

// NewPostgresContestantRepository creates a new PostgreSQL contestant repository
func NewPostgresContestantRepository(db *sql.DB) repository.ContestantRepository {
	return &PostgresContestantRepository{db: db}
}

// Create inserts a new contestant and fills in its ID and creation time
func (r *PostgresContestantRepository) Create(ctx context.Context, c *models.Contestant) error {
	query := `
		INSERT INTO contestants (name, phone_number, email, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		c.Name,
		nullString(c.PhoneNumber),
		nullString(c.Email),
		nullString(c.Notes),
	).Scan(&c.ID, &c.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrDuplicateContestant, c.Name)
	}
	return err
}

// GetByID retrieves a contestant by ID
func (r *PostgresContestantRepository) GetByID(ctx context.Context, id int64) (*models.Contestant, error) {
	query := `
		SELECT id, name, phone_number, email, notes, created_at
		FROM contestants
		WHERE id = $1`

	return scanContestant(r.db.QueryRowContext(ctx, query, id))
}

// GetByName retrieves a contestant by exact name
func (r *PostgresContestantRepository) GetByName(ctx context.Context, name string) (*models.Contestant, error) {
	query := `
		SELECT id, name, phone_number, email, notes, created_at
		FROM contestants
		WHERE name = $1`

	return scanContestant(r.db.QueryRowContext(ctx, query, name))
}

// List returns all contestants ordered by name
func (r *PostgresContestantRepository) List(ctx context.Context) ([]*models.Contestant, error) {
	query := `
		SELECT id, name, phone_number, email, notes, created_at
		FROM contestants
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contestants []*models.Contestant
	for rows.Next() {
		c, err := scanContestant(rows)
		if err != nil {
			return nil, err
		}
		contestants = append(contestants, c)
	}

	return contestants, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContestant(row rowScanner) (*models.Contestant, error) {
	var c models.Contestant
	var phone, email, notes sql.NullString

	err := row.Scan(&c.ID, &c.Name, &phone, &email, &notes, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	c.PhoneNumber = phone.String
	c.Email = email.String
	c.Notes = notes.String
	return &c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
