package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

const hardwareHint = "HackRF device not available. Please check the hardware connection and try again."

// toHTTPError maps domain errors onto huma status errors
func toHTTPError(err error, msg string) error {
	switch {
	case errors.Is(err, sampler.ErrDeviceUnavailable):
		return huma.Error503ServiceUnavailable(hardwareHint, err)
	case errors.Is(err, models.ErrSessionBusy),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrWrongKind),
		errors.Is(err, models.ErrDuplicateContestant):
		return huma.Error409Conflict(err.Error(), err)
	case errors.Is(err, models.ErrContractViolation):
		return huma.Error400BadRequest(err.Error(), err)
	case errors.Is(err, models.ErrNotFound):
		return huma.Error404NotFound(msg, err)
	default:
		log.Error().Err(err).Msg(msg)
		return huma.Error500InternalServerError(msg, err)
	}
}
