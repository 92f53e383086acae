package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/processing"
	"github.com/RMahshie/tinfoil/internal/repository"
	"github.com/RMahshie/tinfoil/internal/session"
	"github.com/RMahshie/tinfoil/internal/storage"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// SessionEngine is the part of the session engine the HTTP layer drives
type SessionEngine interface {
	Plan() models.FrequencyPlan
	Phase() session.Phase
	Snapshot() session.Snapshot
	StartBaseline(ctx context.Context) (session.Phase, error)
	StartHat(ctx context.Context) (session.Phase, error)
	RecordPhase(ctx context.Context, p session.Phase, f models.Frequency, power float64) (*models.MeasurementEvent, error)
	CompleteKind(kind models.MeasurementKind) error
	Finalize(ctx context.Context, contestantID int64, hatType models.HatType) (*models.SessionResult, error)
	Reset(ctx context.Context)
}

// SessionStatusResponse combines the engine snapshot with sweep progress
type SessionStatusResponse struct {
	Body struct {
		session.Snapshot
		Sweep processing.Progress `json:"sweep" doc:"Current or last background sweep"`
	}
}

// SessionHandler handles the measurement session lifecycle
type SessionHandler struct {
	engine              SessionEngine
	receiver            Receiver
	sweeper             processing.SweepService
	contestants         repository.ContestantRepository
	reports             storage.ReportStore
	samplesPerFrequency int

	// startMu makes the sweep check, phase start and sweep launch one step
	startMu sync.Mutex
}

// NewSessionHandler creates a new session handler. reports may be nil
// when the archive is disabled.
func NewSessionHandler(engine SessionEngine, receiver Receiver, sweeper processing.SweepService,
	contestants repository.ContestantRepository, reports storage.ReportStore, samplesPerFrequency int) *SessionHandler {
	if samplesPerFrequency < 1 {
		samplesPerFrequency = 1
	}
	return &SessionHandler{
		engine:              engine,
		receiver:            receiver,
		sweeper:             sweeper,
		contestants:         contestants,
		reports:             reports,
		samplesPerFrequency: samplesPerFrequency,
	}
}

// GetFrequencies returns the active plan
func (h *SessionHandler) GetFrequencies(ctx context.Context, _ *struct{}) (*models.GetFrequenciesResponse, error) {
	plan := h.engine.Plan()
	resp := &models.GetFrequenciesResponse{}
	resp.Body.Frequencies = plan
	resp.Body.Count = plan.Len()
	return resp, nil
}

// StartBaseline begins a new session with the baseline phase
func (h *SessionHandler) StartBaseline(ctx context.Context, req *models.StartPhaseRequest) (*models.StartPhaseResponse, error) {
	return h.startPhase(ctx, models.KindBaseline, req.Sweep)
}

// StartHat begins the hat phase of the current session
func (h *SessionHandler) StartHat(ctx context.Context, req *models.StartPhaseRequest) (*models.StartPhaseResponse, error) {
	return h.startPhase(ctx, models.KindHat, req.Sweep)
}

func (h *SessionHandler) startPhase(ctx context.Context, kind models.MeasurementKind, sweep bool) (*models.StartPhaseResponse, error) {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.sweeper.Progress().Running {
		return nil, toHTTPError(processing.ErrSweepRunning, "Failed to start measurement")
	}

	var phase session.Phase
	var err error
	if kind == models.KindBaseline {
		av := h.receiver.EnsureReady(ctx)
		if !av.Available {
			return nil, huma.Error503ServiceUnavailable(hardwareHint, av.Err)
		}
		phase, err = h.engine.StartBaseline(ctx)
	} else {
		phase, err = h.engine.StartHat(ctx)
	}
	if err != nil {
		return nil, toHTTPError(err, "Failed to start measurement")
	}

	log.Info().Str("sessionId", phase.SessionID).Str("phase", string(kind)).Bool("sweep", sweep).Msg("Measurement phase started")

	if sweep {
		if err := h.sweeper.StartSweep(ctx, kind); err != nil {
			// A baseline session created here is discarded. A hat phase
			// cannot be undone without losing the baseline, so it stays
			// active and can be measured frequency by frequency.
			if kind == models.KindBaseline {
				h.engine.Reset(ctx)
			}
			log.Warn().Err(err).Str("sessionId", phase.SessionID).Str("phase", string(kind)).Msg("Sweep did not start")
			return nil, toHTTPError(err, "Failed to start sweep")
		}
	}

	return &models.StartPhaseResponse{
		Body: models.StartPhaseBody{
			SessionID:   phase.SessionID,
			Phase:       kind,
			Frequencies: h.engine.Plan().Frequencies(),
			Sweeping:    sweep,
		},
	}, nil
}

// Measure samples one planned frequency and records it
func (h *SessionHandler) Measure(ctx context.Context, req *models.MeasureRequest) (*models.MeasureResponse, error) {
	kind, err := models.ParseMeasurementKind(req.Body.MeasurementType)
	if err != nil {
		return nil, toHTTPError(err, "Invalid measurement type")
	}
	f := models.Frequency(req.Body.Frequency)

	if h.sweeper.Progress().Running {
		return nil, toHTTPError(processing.ErrSweepRunning, "Measurement rejected")
	}

	// Check the phase before touching the device
	phase := h.engine.Phase()
	if !phase.Active {
		return nil, toHTTPError(fmt.Errorf("%w: no %s measurement in progress", models.ErrInvalidState, kind), "Measurement rejected")
	}
	if phase.Kind != kind {
		return nil, toHTTPError(fmt.Errorf("%w: %s measurement in progress", models.ErrWrongKind, phase.Kind), "Measurement rejected")
	}
	if !h.engine.Plan().Contains(f) {
		return nil, toHTTPError(fmt.Errorf("%w: %s", models.ErrUnknownFrequency, f), "Measurement rejected")
	}

	power, err := h.receiver.Sample(ctx, f, h.samplesPerFrequency)
	if err != nil {
		return nil, toHTTPError(err, "Failed to measure frequency")
	}

	ev, err := h.engine.RecordPhase(ctx, phase, f, power)
	if err != nil {
		return nil, toHTTPError(err, "Failed to record measurement")
	}

	log.Info().Str("kind", string(kind)).Int64("frequencyHz", int64(f)).Float64("power", power).Msg("Measurement recorded")
	return &models.MeasureResponse{Body: ev}, nil
}

// CompletePhase ends a phase early
func (h *SessionHandler) CompletePhase(ctx context.Context, req *models.CompletePhaseRequest) (*models.StatusResponse, error) {
	kind, err := models.ParseMeasurementKind(req.Body.MeasurementType)
	if err != nil {
		return nil, toHTTPError(err, "Invalid measurement type")
	}
	if h.sweeper.Progress().Running {
		h.sweeper.Cancel()
	}
	if err := h.engine.CompleteKind(kind); err != nil {
		return nil, toHTTPError(err, "Failed to complete measurement")
	}

	resp := &models.StatusResponse{}
	resp.Body.Status = "success"
	resp.Body.Message = fmt.Sprintf("%s measurements complete", kind)
	return resp, nil
}

// Finalize computes and stores the result for a contestant
func (h *SessionHandler) Finalize(ctx context.Context, req *models.FinalizeRequest) (*models.FinalizeResponse, error) {
	hatType, err := models.ParseHatType(req.Body.HatType)
	if err != nil {
		return nil, toHTTPError(err, "Invalid hat type")
	}

	contestant, err := h.contestants.GetByID(ctx, req.Body.ContestantID)
	if err != nil {
		return nil, toHTTPError(err, "Contestant not found")
	}

	result, err := h.engine.Finalize(ctx, contestant.ID, hatType)
	if err != nil {
		return nil, toHTTPError(err, "Failed to finalize session")
	}

	resp := &models.FinalizeResponse{
		Body: models.FinalizeBody{
			Result:  result,
			Message: result.ScoreMessage(contestant.Name),
		},
	}

	if h.reports != nil {
		key, err := h.reports.UploadReport(ctx, result)
		if err != nil {
			// Archive failures do not fail the request
			log.Error().Err(err).Str("resultId", result.ID).Msg("Failed to archive report")
		} else {
			resp.Body.ReportKey = key
		}
	}

	return resp, nil
}

// Reset discards the current session
func (h *SessionHandler) Reset(ctx context.Context, _ *struct{}) (*models.StatusResponse, error) {
	h.engine.Reset(ctx)
	h.sweeper.Cancel()

	resp := &models.StatusResponse{}
	resp.Body.Status = "success"
	resp.Body.Message = "Measurement session reset"
	return resp, nil
}

// GetSession returns the engine snapshot and sweep progress
func (h *SessionHandler) GetSession(ctx context.Context, _ *struct{}) (*SessionStatusResponse, error) {
	resp := &SessionStatusResponse{}
	resp.Body.Snapshot = h.engine.Snapshot()
	resp.Body.Sweep = h.sweeper.Progress()
	return resp, nil
}

