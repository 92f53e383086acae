package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/RMahshie/tinfoil/pkg/models"
)

// setupDB starts a PostgreSQL container and applies the migrations
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := pgContainer.Run(ctx,
		"postgres:15-alpine",
		pgContainer.WithDatabase("tinfoil_test"),
		pgContainer.WithUsername("testuser"),
		pgContainer.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	// A second run must be a no-op
	require.NoError(t, Migrate(ctx, db))
	return db
}

func createContestant(t *testing.T, repo interface {
	Create(context.Context, *models.Contestant) error
}, name string) *models.Contestant {
	t.Helper()
	c := &models.Contestant{Name: name}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

func newResult(contestantID int64, hat models.HatType, avg float64, at time.Time) *models.SessionResult {
	return &models.SessionResult{
		ID:                 uuid.New().String(),
		SessionID:          uuid.New().String(),
		ContestantID:       contestantID,
		HatType:            hat,
		AverageAttenuation: avg,
		Bands:              models.BandEffectiveness{VHF: avg, UHF: avg},
		Peak:               models.Extremum{Value: avg + 1, Frequency: models.MHz(100)},
		Trough:             models.Extremum{Value: avg - 1, Frequency: models.MHz(2400)},
		ValidCount:         2,
		IsBestScore:        true,
		CreatedAt:          at,
		Points: []models.ResultPoint{
			{Frequency: models.MHz(100), Baseline: -60, Hat: -61 - avg, Attenuation: avg + 1, Valid: true},
			{Frequency: models.MHz(700), Baseline: models.PlaceholderPower, Hat: models.PlaceholderPower, Valid: false},
			{Frequency: models.MHz(2400), Baseline: -60, Hat: -59 - avg, Attenuation: avg - 1, Valid: true},
		},
	}
}

func TestPostgres_Integration(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	contestants := NewPostgresContestantRepository(db)
	results := NewPostgresResultRepository(db)
	board := NewPostgresLeaderboardRepository(db)
	cache := NewPostgresMeasurementCache(db)

	t.Run("contestants", func(t *testing.T) {
		c := &models.Contestant{Name: "Alice", Email: "alice@example.com"}
		require.NoError(t, contestants.Create(ctx, c))
		assert.NotZero(t, c.ID)
		assert.False(t, c.CreatedAt.IsZero())

		err := contestants.Create(ctx, &models.Contestant{Name: "Alice"})
		assert.ErrorIs(t, err, models.ErrDuplicateContestant)

		got, err := contestants.GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Empty(t, got.PhoneNumber)

		got, err = contestants.GetByName(ctx, "Alice")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)

		_, err = contestants.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, models.ErrNotFound)

		list, err := contestants.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("results and best score", func(t *testing.T) {
		bob := createContestant(t, contestants, "Bob")
		now := time.Now().UTC().Truncate(time.Millisecond)

		best, err := results.BestScore(ctx, bob.ID, models.HatClassic)
		require.NoError(t, err)
		assert.Nil(t, best)

		first := newResult(bob.ID, models.HatClassic, 10, now)
		require.NoError(t, results.PersistResult(ctx, first))

		best, err = results.BestScore(ctx, bob.ID, models.HatClassic)
		require.NoError(t, err)
		require.NotNil(t, best)
		assert.InDelta(t, 10.0, *best, 1e-9)

		second := newResult(bob.ID, models.HatClassic, 12, now.Add(time.Minute))
		second.PreviousBest = best
		require.NoError(t, results.PersistResult(ctx, second))

		got, err := results.GetResult(ctx, first.ID)
		require.NoError(t, err)
		assert.False(t, got.IsBestScore, "previous best is demoted")
		assert.Len(t, got.Points, 3)
		assert.False(t, got.Points[1].Valid)
		assert.Equal(t, models.MHz(2400), got.Points[2].Frequency)
		assert.Equal(t, first.Bands, got.Bands)

		latest, err := results.LatestResult(ctx)
		require.NoError(t, err)
		assert.Equal(t, second.ID, latest.ID)
		assert.True(t, latest.IsBestScore)
		require.NotNil(t, latest.PreviousBest)
		assert.InDelta(t, 10.0, *latest.PreviousBest, 1e-9)
		assert.Equal(t, first.Peak.Frequency, latest.Peak.Frequency)

		// A hybrid result does not compete with classic ones
		hybrid := newResult(bob.ID, models.HatHybrid, 3, now.Add(2*time.Minute))
		require.NoError(t, results.PersistResult(ctx, hybrid))
		got, err = results.GetResult(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, got.IsBestScore)

		_, err = results.GetResult(ctx, uuid.New().String())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("leaderboard modes", func(t *testing.T) {
		carol := createContestant(t, contestants, "Carol")
		now := time.Now().UTC()
		require.NoError(t, results.PersistResult(ctx, newResult(carol.ID, models.HatHybrid, 20, now)))
		require.NoError(t, results.PersistResult(ctx, newResult(carol.ID, models.HatClassic, 5, now)))

		overall, err := board.Leaderboard(ctx, models.LeaderboardFilter{})
		require.NoError(t, err)
		require.Len(t, overall, 2)
		assert.Equal(t, "Carol", overall[0].Name)
		assert.InDelta(t, 20.0, overall[0].AverageAttenuation, 1e-9)
		assert.Equal(t, models.HatHybrid, overall[0].HatType)
		assert.Equal(t, 1, overall[0].Rank)
		assert.Equal(t, "Bob", overall[1].Name)
		assert.Equal(t, 2, overall[1].Rank)

		classic, err := board.Leaderboard(ctx, models.LeaderboardFilter{HatType: models.HatClassic})
		require.NoError(t, err)
		require.Len(t, classic, 2)
		assert.Equal(t, "Bob", classic[0].Name)
		assert.InDelta(t, 12.0, classic[0].AverageAttenuation, 1e-9)

		all, err := board.Leaderboard(ctx, models.LeaderboardFilter{AllTypes: true})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		limited, err := board.Leaderboard(ctx, models.LeaderboardFilter{AllTypes: true, Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		_, err = board.Leaderboard(ctx, models.LeaderboardFilter{HatType: "fedora"})
		assert.ErrorIs(t, err, models.ErrInvalidHatType)
	})

	t.Run("measurement cache", func(t *testing.T) {
		require.NoError(t, cache.Store(ctx, models.KindBaseline, models.MHz(100), -60))
		require.NoError(t, cache.Store(ctx, models.KindBaseline, models.MHz(100), -62))
		require.NoError(t, cache.Store(ctx, models.KindHat, models.MHz(100), -70))

		baseline, err := cache.FetchAll(ctx, models.KindBaseline)
		require.NoError(t, err)
		assert.Equal(t, map[models.Frequency]float64{models.MHz(100): -62}, baseline)

		require.NoError(t, cache.Clear(ctx))
		hat, err := cache.FetchAll(ctx, models.KindHat)
		require.NoError(t, err)
		assert.Empty(t, hat)
	})
}
