package repository

import (
	"context"

	"github.com/RMahshie/tinfoil/pkg/models"
)

// MeasurementCache persists in-progress readings so a restart does not
// lose a half-finished session
type MeasurementCache interface {
	Store(ctx context.Context, kind models.MeasurementKind, f models.Frequency, power float64) error
	FetchAll(ctx context.Context, kind models.MeasurementKind) (map[models.Frequency]float64, error)
	Clear(ctx context.Context) error
}

// ResultRepository defines the interface for finalized session results
type ResultRepository interface {
	// PersistResult stores the result and its points. When the result is a
	// best score, prior records for the same contestant and hat type are
	// demoted in the same transaction.
	PersistResult(ctx context.Context, result *models.SessionResult) error
	DemotePreviousBest(ctx context.Context, contestantID int64, hatType models.HatType, exceptID string) error
	// BestScore returns nil when the pair has no finalized result yet
	BestScore(ctx context.Context, contestantID int64, hatType models.HatType) (*float64, error)
	GetResult(ctx context.Context, id string) (*models.SessionResult, error)
	LatestResult(ctx context.Context) (*models.SessionResult, error)
}

// ContestantRepository defines the interface for contestant operations
type ContestantRepository interface {
	Create(ctx context.Context, contestant *models.Contestant) error
	GetByID(ctx context.Context, id int64) (*models.Contestant, error)
	GetByName(ctx context.Context, name string) (*models.Contestant, error)
	List(ctx context.Context) ([]*models.Contestant, error)
}

// LeaderboardRepository ranks best scores
type LeaderboardRepository interface {
	Leaderboard(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, error)
}
