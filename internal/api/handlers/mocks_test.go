package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/RMahshie/tinfoil/internal/processing"
	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// MockReceiver implements Receiver for testing
type MockReceiver struct {
	mock.Mock
}

func (m *MockReceiver) EnsureReady(ctx context.Context) sampler.Availability {
	args := m.Called(ctx)
	return args.Get(0).(sampler.Availability)
}

func (m *MockReceiver) Sample(ctx context.Context, f models.Frequency, repeatCount int) (float64, error) {
	args := m.Called(ctx, f, repeatCount)
	return args.Get(0).(float64), args.Error(1)
}

// MockSweeper implements processing.SweepService for testing
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) RunSweep(ctx context.Context, kind models.MeasurementKind) (processing.Progress, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).(processing.Progress), args.Error(1)
}

func (m *MockSweeper) StartSweep(ctx context.Context, kind models.MeasurementKind) error {
	args := m.Called(ctx, kind)
	return args.Error(0)
}

func (m *MockSweeper) Cancel() {
	m.Called()
}

func (m *MockSweeper) Progress() processing.Progress {
	args := m.Called()
	return args.Get(0).(processing.Progress)
}

// MockContestantRepository implements repository.ContestantRepository for testing
type MockContestantRepository struct {
	mock.Mock
}

func (m *MockContestantRepository) Create(ctx context.Context, c *models.Contestant) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContestantRepository) GetByID(ctx context.Context, id int64) (*models.Contestant, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*models.Contestant)
	return c, args.Error(1)
}

func (m *MockContestantRepository) GetByName(ctx context.Context, name string) (*models.Contestant, error) {
	args := m.Called(ctx, name)
	c, _ := args.Get(0).(*models.Contestant)
	return c, args.Error(1)
}

func (m *MockContestantRepository) List(ctx context.Context) ([]*models.Contestant, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*models.Contestant)
	return list, args.Error(1)
}

// MockResultRepository implements repository.ResultRepository for testing
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) PersistResult(ctx context.Context, result *models.SessionResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) DemotePreviousBest(ctx context.Context, contestantID int64, hatType models.HatType, exceptID string) error {
	args := m.Called(ctx, contestantID, hatType, exceptID)
	return args.Error(0)
}

func (m *MockResultRepository) BestScore(ctx context.Context, contestantID int64, hatType models.HatType) (*float64, error) {
	args := m.Called(ctx, contestantID, hatType)
	best, _ := args.Get(0).(*float64)
	return best, args.Error(1)
}

func (m *MockResultRepository) GetResult(ctx context.Context, id string) (*models.SessionResult, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.SessionResult)
	return r, args.Error(1)
}

func (m *MockResultRepository) LatestResult(ctx context.Context) (*models.SessionResult, error) {
	args := m.Called(ctx)
	r, _ := args.Get(0).(*models.SessionResult)
	return r, args.Error(1)
}

// MockLeaderboardRepository implements repository.LeaderboardRepository for testing
type MockLeaderboardRepository struct {
	mock.Mock
}

func (m *MockLeaderboardRepository) Leaderboard(ctx context.Context, filter models.LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, filter)
	entries, _ := args.Get(0).([]models.LeaderboardEntry)
	return entries, args.Error(1)
}

// MockReportStore implements storage.ReportStore for testing
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) UploadReport(ctx context.Context, result *models.SessionResult) (string, error) {
	args := m.Called(ctx, result)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) FetchReport(ctx context.Context, key string) (*models.SessionResult, error) {
	args := m.Called(ctx, key)
	r, _ := args.Get(0).(*models.SessionResult)
	return r, args.Error(1)
}
