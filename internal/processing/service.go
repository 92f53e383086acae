package processing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/internal/session"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// ErrSweepRunning is returned when a sweep is requested while one is active
var ErrSweepRunning = fmt.Errorf("%w: a sweep is already running", models.ErrSessionBusy)

// Progress reports how far the current or last sweep got
type Progress struct {
	Kind       models.MeasurementKind `json:"measurement_type,omitempty" doc:"Phase being swept"`
	Done       int                    `json:"done" doc:"Frequencies attempted"`
	Total      int                    `json:"total" doc:"Frequencies in the plan"`
	Missing    int                    `json:"missing" doc:"Frequencies without a reading"`
	Running    bool                   `json:"running" doc:"Sweep in progress"`
	LastError  string                 `json:"last_error,omitempty" doc:"Error that stopped the sweep"`
	StartedAt  *time.Time             `json:"started_at,omitempty" doc:"Sweep start time"`
	FinishedAt *time.Time             `json:"finished_at,omitempty" doc:"Sweep end time"`
}

// PowerSampler measures one frequency
type PowerSampler interface {
	Sample(ctx context.Context, f models.Frequency, repeatCount int) (float64, error)
}

// SweepEngine is the part of the session engine a sweep drives
type SweepEngine interface {
	Phase() session.Phase
	Plan() models.FrequencyPlan
	RecordPhase(ctx context.Context, p session.Phase, f models.Frequency, power float64) (*models.MeasurementEvent, error)
	MarkMissingPhase(p session.Phase, f models.Frequency) error
}

type SweepService interface {
	// RunSweep measures every planned frequency for kind and blocks until
	// done
	RunSweep(ctx context.Context, kind models.MeasurementKind) (Progress, error)
	// StartSweep runs the sweep in the background
	StartSweep(ctx context.Context, kind models.MeasurementKind) error
	Cancel()
	Progress() Progress
}

type sweepService struct {
	engine              SweepEngine
	sampler             PowerSampler
	samplesPerFrequency int

	mu       sync.Mutex
	progress Progress
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweepService(engine SweepEngine, sampler PowerSampler, samplesPerFrequency int) SweepService {
	if samplesPerFrequency < 1 {
		samplesPerFrequency = 1
	}
	return &sweepService{
		engine:              engine,
		sampler:             sampler,
		samplesPerFrequency: samplesPerFrequency,
	}
}

func (s *sweepService) RunSweep(ctx context.Context, kind models.MeasurementKind) (Progress, error) {
	phase, err := s.begin(kind)
	if err != nil {
		return Progress{}, err
	}
	ctx, cancel := context.WithCancel(ctx)
	s.setCancel(cancel)
	defer cancel()

	err = s.sweep(ctx, phase)
	return s.finish(err), err
}

func (s *sweepService) StartSweep(ctx context.Context, kind models.MeasurementKind) error {
	phase, err := s.begin(kind)
	if err != nil {
		return err
	}

	// Detach from the request so the sweep outlives it
	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.setCancel(cancel)

	go func() {
		defer cancel()
		err := s.sweep(bg, phase)
		p := s.finish(err)
		if err != nil {
			log.Error().Err(err).Str("kind", string(kind)).Int("done", p.Done).Msg("Sweep stopped")
			return
		}
		log.Info().Str("kind", string(kind)).Int("done", p.Done).Int("missing", p.Missing).Msg("Sweep finished")
	}()
	return nil
}

// Cancel stops the running sweep and waits for it to wind down
func (s *sweepService) Cancel() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *sweepService) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress
}

func (s *sweepService) begin(kind models.MeasurementKind) (session.Phase, error) {
	if err := kind.Validate(); err != nil {
		return session.Phase{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.progress.Running {
		return session.Phase{}, ErrSweepRunning
	}
	phase := s.engine.Phase()
	if !phase.Active {
		return session.Phase{}, fmt.Errorf("%w: no %s measurement in progress", models.ErrInvalidState, kind)
	}
	if phase.Kind != kind {
		return session.Phase{}, fmt.Errorf("%w: %s measurement in progress", models.ErrWrongKind, phase.Kind)
	}

	now := time.Now()
	s.progress = Progress{
		Kind:      kind,
		Total:     s.engine.Plan().Len(),
		Running:   true,
		StartedAt: &now,
	}
	s.done = make(chan struct{})
	return phase, nil
}

func (s *sweepService) setCancel(cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

func (s *sweepService) finish(err error) Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	s.progress.Running = false
	s.progress.FinishedAt = &now
	if err != nil {
		s.progress.LastError = err.Error()
	}
	s.cancel = nil
	close(s.done)
	return s.progress
}

// sweep walks the plan once. Sampler failures leave the frequency
// missing; caller misuse, cancellation and a reset stop the sweep.
func (s *sweepService) sweep(ctx context.Context, phase session.Phase) error {
	for _, pt := range s.engine.Plan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		power, err := s.sampler.Sample(ctx, pt.Frequency, s.samplesPerFrequency)
		switch {
		case err == nil:
			_, err = s.engine.RecordPhase(ctx, phase, pt.Frequency, power)
			if err != nil {
				return err
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, models.ErrContractViolation):
			return err
		default:
			log.Warn().Err(err).
				Str("kind", string(phase.Kind)).
				Int64("frequencyHz", int64(pt.Frequency)).
				Bool("deviceUnavailable", errors.Is(err, sampler.ErrDeviceUnavailable)).
				Msg("Sampling failed, frequency left missing")
			if err := s.engine.MarkMissingPhase(phase, pt.Frequency); err != nil {
				return err
			}
			s.mu.Lock()
			s.progress.Missing++
			s.mu.Unlock()
		}

		s.mu.Lock()
		s.progress.Done++
		s.mu.Unlock()
	}
	return nil
}
