package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/pkg/models"
)

var (
	// ErrDeviceUnavailable means the receiver could not be reached even
	// after a reconnection attempt
	ErrDeviceUnavailable = errors.New("device unavailable")

	// ErrCaptureTimeout is returned by capturers when a capture exceeds
	// its deadline
	ErrCaptureTimeout = errors.New("capture timed out")

	ErrInvalidRepeat = fmt.Errorf("%w: repeat count must be at least 1", models.ErrContractViolation)
)

// Defaults used when Config fields are zero
const (
	DefaultSampleCount    = 262144 // 2^18 IQ pairs per capture
	DefaultCaptureTimeout = 10 * time.Second
	DefaultPacing         = 500 * time.Millisecond
)

// Availability is the result of a device health check
type Availability struct {
	Available bool   `json:"available" doc:"Device answered the probe"`
	Serial    string `json:"serial,omitempty" doc:"Device serial number"`
	Err       error  `json:"-"`
}

// Capturer is the hardware-access collaborator. Capture returns raw
// interleaved int8 I/Q bytes and reports ErrDeviceUnavailable or
// ErrCaptureTimeout for the two recoverable failure kinds.
type Capturer interface {
	Capture(ctx context.Context, f models.Frequency, gain Gain, sampleCount int) ([]byte, error)
	Refresh(ctx context.Context) Availability
}

// Config tunes the sampling policy
type Config struct {
	SampleCount    int
	CaptureTimeout time.Duration
	// Pacing is the minimum gap between consecutive captures. Zero
	// disables it.
	Pacing time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleCount <= 0 {
		c.SampleCount = DefaultSampleCount
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = DefaultCaptureTimeout
	}
	if c.Pacing < 0 {
		c.Pacing = 0
	}
	return c
}

// Sampler turns flaky single captures into one calibrated reading. It owns
// the single physical device, so calls are serialised.
type Sampler struct {
	dev    Capturer
	cfg    Config
	logger zerolog.Logger

	mu          sync.Mutex
	lastCapture time.Time
}

// Option configures a Sampler
type Option func(s *Sampler)

// WithLogger sets the logger for the sampler
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger.With().Str("component", "sampler").Logger()
	}
}

// New creates a Sampler on top of dev
func New(dev Capturer, cfg Config, opts ...Option) *Sampler {
	s := &Sampler{
		dev:    dev,
		cfg:    cfg.withDefaults(),
		logger: log.Logger.With().Str("component", "sampler").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureReady probes the device and reports whether sessions can start
func (s *Sampler) EnsureReady(ctx context.Context) Availability {
	s.mu.Lock()
	defer s.mu.Unlock()

	av := s.dev.Refresh(ctx)
	if av.Available {
		s.logger.Info().Str("serial", av.Serial).Msg("Device ready")
	} else {
		s.logger.Warn().Err(av.Err).Msg("Device not available")
	}
	return av
}

// Sample measures f repeatCount times and returns the corrected average
// in dBm, rounded to 2 decimals
func (s *Sampler) Sample(ctx context.Context, f models.Frequency, repeatCount int) (float64, error) {
	if !f.InDeviceRange() {
		return 0, fmt.Errorf("%w: %s", models.ErrFrequencyOutOfRange, f)
	}
	if repeatCount < 1 {
		return 0, ErrInvalidRepeat
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	gain := GainFor(f)
	var sum float64
	for i := 0; i < repeatCount; i++ {
		if err := s.pace(ctx); err != nil {
			return 0, err
		}

		a := s.capture(ctx, f, gain)
		switch a.state {
		case stateSuccess, stateFallback:
			sum += a.power
		default:
			return 0, a.err
		}
	}

	power := round2(sum/float64(repeatCount) + PathLossCorrection(f))
	s.logger.Debug().
		Int64("frequencyHz", int64(f)).
		Int("repeat", repeatCount).
		Float64("powerDbm", power).
		Msg("Sampled frequency")
	return power, nil
}

// pace waits until the configured gap since the previous capture elapsed
func (s *Sampler) pace(ctx context.Context) error {
	if s.cfg.Pacing == 0 || s.lastCapture.IsZero() {
		return ctx.Err()
	}
	wait := s.cfg.Pacing - time.Since(s.lastCapture)
	if wait <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type attemptState int

const (
	stateCapturing attemptState = iota
	stateSuccess
	stateFallback
	stateUnavailable
	stateFailed
)

func (s attemptState) String() string {
	switch s {
	case stateCapturing:
		return "capturing"
	case stateSuccess:
		return "success"
	case stateFallback:
		return "fallback"
	case stateUnavailable:
		return "unavailable"
	default:
		return "failed"
	}
}

type attempt struct {
	state       attemptState
	power       float64
	err         error
	reconnected bool
}

// capture runs one capture through the attempt state machine:
// Capturing -> Success | Timeout -> Fallback | DeviceUnavailable.
// An unavailable device gets a single refresh and retry.
func (s *Sampler) capture(ctx context.Context, f models.Frequency, gain Gain) attempt {
	a := attempt{state: stateCapturing}

	for a.state == stateCapturing {
		cctx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
		raw, err := s.dev.Capture(cctx, f, gain, s.cfg.SampleCount)
		deadlineHit := errors.Is(cctx.Err(), context.DeadlineExceeded)
		cancel()
		s.lastCapture = time.Now()

		switch {
		case err == nil:
			a.state, a.power = stateSuccess, AnalyzeIQ(raw)

		case ctx.Err() != nil:
			a.state, a.err = stateFailed, ctx.Err()

		case errors.Is(err, ErrCaptureTimeout) || deadlineHit:
			if av := s.dev.Refresh(ctx); !av.Available {
				a.state = stateUnavailable
				a.err = fmt.Errorf("%w: connection lost after timeout at %s", ErrDeviceUnavailable, f)
				break
			}
			a.state, a.power = stateFallback, FallbackPower(f)
			s.logger.Warn().
				Int64("frequencyHz", int64(f)).
				Float64("fallbackDbm", a.power).
				Msg("Capture timed out, using fallback estimate")

		case errors.Is(err, ErrDeviceUnavailable):
			if a.reconnected {
				a.state, a.err = stateUnavailable, fmt.Errorf("capture at %s: %w", f, err)
				break
			}
			s.logger.Warn().Err(err).Int64("frequencyHz", int64(f)).Msg("Device unavailable, refreshing connection")
			if av := s.dev.Refresh(ctx); !av.Available {
				a.state = stateUnavailable
				a.err = fmt.Errorf("%w: reconnection failed at %s", ErrDeviceUnavailable, f)
				break
			}
			a.reconnected = true

		default:
			a.state, a.err = stateFailed, fmt.Errorf("capture at %s: %w", f, err)
		}
	}

	s.logger.Debug().
		Int64("frequencyHz", int64(f)).
		Int("lna", gain.LNA).
		Int("vga", gain.VGA).
		Str("outcome", a.state.String()).
		Msg("Capture finished")
	return a
}
