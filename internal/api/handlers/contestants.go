package handlers

import (
	"context"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// ContestantHandler handles contestant registration
type ContestantHandler struct {
	repo repository.ContestantRepository
}

// NewContestantHandler creates a new contestant handler
func NewContestantHandler(repo repository.ContestantRepository) *ContestantHandler {
	return &ContestantHandler{repo: repo}
}

// CreateContestant registers a contestant
func (h *ContestantHandler) CreateContestant(ctx context.Context, req *models.CreateContestantRequest) (*models.ContestantResponse, error) {
	name := strings.TrimSpace(req.Body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest("Contestant name is required", nil)
	}

	c := &models.Contestant{
		Name:        name,
		PhoneNumber: strings.TrimSpace(req.Body.PhoneNumber),
		Email:       strings.TrimSpace(req.Body.Email),
		Notes:       req.Body.Notes,
	}
	if err := h.repo.Create(ctx, c); err != nil {
		return nil, toHTTPError(err, "Failed to create contestant")
	}

	log.Info().Int64("contestantId", c.ID).Str("name", c.Name).Msg("Contestant registered")
	return &models.ContestantResponse{Body: c}, nil
}

// ListContestants returns every contestant
func (h *ContestantHandler) ListContestants(ctx context.Context, _ *struct{}) (*models.ListContestantsResponse, error) {
	contestants, err := h.repo.List(ctx)
	if err != nil {
		return nil, toHTTPError(err, "Failed to list contestants")
	}
	if contestants == nil {
		contestants = []*models.Contestant{}
	}

	resp := &models.ListContestantsResponse{}
	resp.Body.Contestants = contestants
	return resp, nil
}
