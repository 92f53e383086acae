package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// PostgresResultRepository implements ResultRepository for PostgreSQL
type PostgresResultRepository struct {
	db *sql.DB
}

// NewPostgresResultRepository creates a new PostgreSQL result repository
func NewPostgresResultRepository(db *sql.DB) repository.ResultRepository {
	return &PostgresResultRepository{db: db}
}

const resultColumns = `
	id, session_id, contestant_id, hat_type, average_attenuation, effectiveness,
	max_attenuation, max_frequency, min_attenuation, min_frequency,
	valid_frequencies, is_best_score, previous_best, created_at`

// PersistResult stores the result header and its points in one transaction
func (r *PostgresResultRepository) PersistResult(ctx context.Context, result *models.SessionResult) error {
	bands, err := json.Marshal(result.Bands)
	if err != nil {
		return fmt.Errorf("failed to marshal band effectiveness: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO test_results (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	var previous sql.NullFloat64
	if result.PreviousBest != nil {
		previous = sql.NullFloat64{Float64: *result.PreviousBest, Valid: true}
	}

	if _, err := tx.ExecContext(ctx, query,
		result.ID,
		result.SessionID,
		result.ContestantID,
		result.HatType,
		result.AverageAttenuation,
		bands,
		result.Peak.Value,
		int64(result.Peak.Frequency),
		result.Trough.Value,
		int64(result.Trough.Frequency),
		result.ValidCount,
		result.IsBestScore,
		previous,
		result.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert result: %w", err)
	}

	if err := copyPoints(ctx, tx, result); err != nil {
		return err
	}

	if result.IsBestScore {
		if err := demote(ctx, tx, result.ContestantID, result.HatType, result.ID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func copyPoints(ctx context.Context, tx *sql.Tx, result *models.SessionResult) error {
	if len(result.Points) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("test_data",
		"result_id", "position", "frequency", "baseline", "hat", "attenuation", "valid"))
	if err != nil {
		return fmt.Errorf("failed to prepare point copy: %w", err)
	}
	defer stmt.Close()

	for i, p := range result.Points {
		if _, err := stmt.ExecContext(ctx, result.ID, i, int64(p.Frequency), p.Baseline, p.Hat, p.Attenuation, p.Valid); err != nil {
			return fmt.Errorf("failed to copy point %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to flush points: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func demote(ctx context.Context, db execer, contestantID int64, hatType models.HatType, exceptID string) error {
	query := `
		UPDATE test_results
		SET is_best_score = FALSE
		WHERE contestant_id = $1 AND hat_type = $2 AND id <> $3 AND is_best_score`

	if _, err := db.ExecContext(ctx, query, contestantID, hatType, exceptID); err != nil {
		return fmt.Errorf("failed to demote previous best: %w", err)
	}
	return nil
}

// DemotePreviousBest clears the best flag on every other result of the pair
func (r *PostgresResultRepository) DemotePreviousBest(ctx context.Context, contestantID int64, hatType models.HatType, exceptID string) error {
	return demote(ctx, r.db, contestantID, hatType, exceptID)
}

// BestScore returns the highest average attenuation for the pair
func (r *PostgresResultRepository) BestScore(ctx context.Context, contestantID int64, hatType models.HatType) (*float64, error) {
	query := `
		SELECT MAX(average_attenuation)
		FROM test_results
		WHERE contestant_id = $1 AND hat_type = $2`

	var best sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, contestantID, hatType).Scan(&best); err != nil {
		return nil, err
	}
	if !best.Valid {
		return nil, nil
	}
	return &best.Float64, nil
}

// GetResult retrieves a result and its points by ID
func (r *PostgresResultRepository) GetResult(ctx context.Context, id string) (*models.SessionResult, error) {
	query := `SELECT ` + resultColumns + ` FROM test_results WHERE id = $1`

	result, err := scanResult(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadPoints(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// LatestResult retrieves the most recently finalized result
func (r *PostgresResultRepository) LatestResult(ctx context.Context) (*models.SessionResult, error) {
	query := `SELECT ` + resultColumns + ` FROM test_results ORDER BY created_at DESC LIMIT 1`

	result, err := scanResult(r.db.QueryRowContext(ctx, query))
	if err != nil {
		return nil, err
	}
	if err := r.loadPoints(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresResultRepository) loadPoints(ctx context.Context, result *models.SessionResult) error {
	query := `
		SELECT frequency, baseline, hat, attenuation, valid
		FROM test_data
		WHERE result_id = $1
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, result.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	result.Points = result.Points[:0]
	for rows.Next() {
		var p models.ResultPoint
		var freq int64
		if err := rows.Scan(&freq, &p.Baseline, &p.Hat, &p.Attenuation, &p.Valid); err != nil {
			return err
		}
		p.Frequency = models.Frequency(freq)
		result.Points = append(result.Points, p)
	}
	return rows.Err()
}

func scanResult(row rowScanner) (*models.SessionResult, error) {
	var res models.SessionResult
	var bands []byte
	var maxFreq, minFreq int64
	var previous sql.NullFloat64

	err := row.Scan(
		&res.ID,
		&res.SessionID,
		&res.ContestantID,
		&res.HatType,
		&res.AverageAttenuation,
		&bands,
		&res.Peak.Value,
		&maxFreq,
		&res.Trough.Value,
		&minFreq,
		&res.ValidCount,
		&res.IsBestScore,
		&previous,
		&res.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(bands, &res.Bands); err != nil {
		return nil, fmt.Errorf("failed to unmarshal band effectiveness: %w", err)
	}
	res.Peak.Frequency = models.Frequency(maxFreq)
	res.Trough.Frequency = models.Frequency(minFreq)
	if previous.Valid {
		res.PreviousBest = &previous.Float64
	}
	res.Points = []models.ResultPoint{}
	return &res, nil
}
