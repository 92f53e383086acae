package handlers

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// BillboardSize is the number of rows per hat type on the billboard
const BillboardSize = 10

// LeaderboardHandler serves rankings and the billboard
type LeaderboardHandler struct {
	board       repository.LeaderboardRepository
	results     repository.ResultRepository
	contestants repository.ContestantRepository
	now         func() time.Time
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(board repository.LeaderboardRepository, results repository.ResultRepository, contestants repository.ContestantRepository) *LeaderboardHandler {
	return &LeaderboardHandler{
		board:       board,
		results:     results,
		contestants: contestants,
		now:         time.Now,
	}
}

// GetLeaderboard ranks best scores
func (h *LeaderboardHandler) GetLeaderboard(ctx context.Context, req *models.LeaderboardRequest) (*models.LeaderboardResponse, error) {
	filter := models.LeaderboardFilter{AllTypes: req.ShowAllTypes, Limit: req.Limit}
	if req.HatType != "" {
		hatType, err := models.ParseHatType(req.HatType)
		if err != nil {
			return nil, toHTTPError(err, "Invalid hat type")
		}
		filter.HatType = hatType
	}

	entries, err := h.board.Leaderboard(ctx, filter)
	if err != nil {
		return nil, toHTTPError(err, "Failed to load leaderboard")
	}

	resp := &models.LeaderboardResponse{}
	resp.Body.Entries = h.withAge(entries)
	return resp, nil
}

// GetBillboard returns the latest spectrum and both top-10 boards
func (h *LeaderboardHandler) GetBillboard(ctx context.Context, _ *struct{}) (*models.BillboardResponse, error) {
	b, err := h.Billboard(ctx)
	if err != nil {
		return nil, toHTTPError(err, "Failed to build billboard")
	}
	return &models.BillboardResponse{Body: b}, nil
}

// Billboard builds the billboard payload
func (h *LeaderboardHandler) Billboard(ctx context.Context) (*models.Billboard, error) {
	classic, err := h.board.Leaderboard(ctx, models.LeaderboardFilter{HatType: models.HatClassic, Limit: BillboardSize})
	if err != nil {
		return nil, err
	}
	hybrid, err := h.board.Leaderboard(ctx, models.LeaderboardFilter{HatType: models.HatHybrid, Limit: BillboardSize})
	if err != nil {
		return nil, err
	}

	b := &models.Billboard{
		Classic:   h.withAge(classic),
		Hybrid:    h.withAge(hybrid),
		UpdatedAt: h.now(),
	}

	latest, err := h.results.LatestResult(ctx)
	switch {
	case err == nil:
		b.Latest = h.spectrum(ctx, latest)
	case isNotFound(err):
	default:
		return nil, err
	}
	return b, nil
}

// spectrum keeps only valid points so placeholders never reach the chart
func (h *LeaderboardHandler) spectrum(ctx context.Context, r *models.SessionResult) *models.BillboardSpectrum {
	s := &models.BillboardSpectrum{
		ResultID:           r.ID,
		HatType:            r.HatType,
		AverageAttenuation: r.AverageAttenuation,
		TestedAt:           r.CreatedAt,
		TestedAgo:          humanize.RelTime(r.CreatedAt, h.now(), "ago", "from now"),
		Frequencies:        []models.Frequency{},
		BaselineLevels:     []float64{},
		HatLevels:          []float64{},
		Attenuations:       []float64{},
	}
	if c, err := h.contestants.GetByID(ctx, r.ContestantID); err == nil {
		s.ContestantName = c.Name
	} else {
		log.Warn().Err(err).Int64("contestantId", r.ContestantID).Msg("Billboard contestant lookup failed")
	}

	for _, p := range r.ValidPoints() {
		s.Frequencies = append(s.Frequencies, p.Frequency)
		s.BaselineLevels = append(s.BaselineLevels, p.Baseline)
		s.HatLevels = append(s.HatLevels, p.Hat)
		s.Attenuations = append(s.Attenuations, p.Attenuation)
	}
	return s
}

func (h *LeaderboardHandler) withAge(entries []models.LeaderboardEntry) []models.LeaderboardEntry {
	if entries == nil {
		return []models.LeaderboardEntry{}
	}
	now := h.now()
	for i := range entries {
		entries[i].TestedAgo = humanize.RelTime(entries[i].TestedAt, now, "ago", "from now")
	}
	return entries
}
