package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/internal/storage"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// reportURLExpiry matches the archive's presign window
const reportURLExpiry = 24 * 60 * 60

// ResultHandler serves finalized results
type ResultHandler struct {
	results repository.ResultRepository
	reports storage.ReportStore
}

// NewResultHandler creates a new result handler. reports may be nil.
func NewResultHandler(results repository.ResultRepository, reports storage.ReportStore) *ResultHandler {
	return &ResultHandler{results: results, reports: reports}
}

// GetResult returns one result with all its points
func (h *ResultHandler) GetResult(ctx context.Context, req *models.GetResultRequest) (*models.GetResultResponse, error) {
	result, err := h.results.GetResult(ctx, req.ID)
	if err != nil {
		return nil, toHTTPError(err, "Result not found")
	}
	return &models.GetResultResponse{Body: result}, nil
}

// GetReport returns a download link for the archived JSON report
func (h *ResultHandler) GetReport(ctx context.Context, req *models.GetResultRequest) (*models.ReportResponse, error) {
	if h.reports == nil {
		return nil, huma.Error404NotFound("Report archive is not configured", storage.ErrArchiveDisabled)
	}

	result, err := h.results.GetResult(ctx, req.ID)
	if err != nil {
		return nil, toHTTPError(err, "Result not found")
	}

	// Archive on demand when the upload at finalize time failed
	key := storage.ReportKey(result.ContestantID, result.ID)
	if _, err := h.reports.FetchReport(ctx, key); isNotFound(err) {
		if key, err = h.reports.UploadReport(ctx, result); err != nil {
			return nil, toHTTPError(err, "Failed to archive report")
		}
	}

	url, err := h.reports.GenerateDownloadURL(ctx, key)
	if err != nil {
		return nil, toHTTPError(err, "Failed to generate report link")
	}

	resp := &models.ReportResponse{}
	resp.Body.Key = key
	resp.Body.URL = url
	resp.Body.ExpiresIn = reportURLExpiry
	return resp, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
