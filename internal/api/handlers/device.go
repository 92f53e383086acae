package handlers

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// Receiver is the sampling side of the device
type Receiver interface {
	EnsureReady(ctx context.Context) sampler.Availability
	Sample(ctx context.Context, f models.Frequency, repeatCount int) (float64, error)
}

// DeviceHandler reports receiver health
type DeviceHandler struct {
	receiver Receiver
}

// NewDeviceHandler creates a new device handler
func NewDeviceHandler(receiver Receiver) *DeviceHandler {
	return &DeviceHandler{receiver: receiver}
}

// GetDeviceStatus probes the receiver
func (h *DeviceHandler) GetDeviceStatus(ctx context.Context, _ *struct{}) (*models.DeviceStatusResponse, error) {
	av := h.receiver.EnsureReady(ctx)

	resp := &models.DeviceStatusResponse{}
	resp.Body.Available = av.Available
	resp.Body.Serial = av.Serial
	if av.Available {
		resp.Body.Message = "HackRF device is connected and ready"
	} else {
		resp.Body.Message = hardwareHint
		log.Warn().Err(av.Err).Msg("Device status check failed")
	}
	return resp, nil
}
