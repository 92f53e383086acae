package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// DefaultLeaderboardLimit caps the board when the filter sets no limit
const DefaultLeaderboardLimit = 100

// PostgresLeaderboardRepository implements LeaderboardRepository for PostgreSQL
type PostgresLeaderboardRepository struct {
	db *sql.DB
}

// NewPostgresLeaderboardRepository creates a new PostgreSQL leaderboard repository
func NewPostgresLeaderboardRepository(db *sql.DB) repository.LeaderboardRepository {
	return &PostgresLeaderboardRepository{db: db}
}

// Leaderboard ranks each contestant's best score. With a hat type only that
// category is ranked; with AllTypes every (contestant, hat type) pair gets
// its own row; otherwise each contestant appears once with their overall
// best.
func (r *PostgresLeaderboardRepository) Leaderboard(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	distinct := "c.id"
	where := ""
	args := []any{limit}

	switch {
	case filter.HatType != "":
		if err := filter.HatType.Validate(); err != nil {
			return nil, err
		}
		where = "WHERE r.hat_type = $2"
		args = append(args, filter.HatType)
	case filter.AllTypes:
		distinct = "c.id, r.hat_type"
	}

	query := fmt.Sprintf(`
		SELECT contestant_id, name, average_attenuation, hat_type, created_at
		FROM (
			SELECT DISTINCT ON (%[1]s)
				c.id AS contestant_id, c.name, r.average_attenuation, r.hat_type, r.created_at
			FROM test_results r
			JOIN contestants c ON c.id = r.contestant_id
			%[2]s
			ORDER BY %[1]s, r.average_attenuation DESC, r.created_at ASC
		) best
		ORDER BY average_attenuation DESC, created_at ASC
		LIMIT $1`, distinct, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ContestantID, &e.Name, &e.AverageAttenuation, &e.HatType, &e.TestedAt); err != nil {
			return nil, err
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
