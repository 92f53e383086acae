package hackrf

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

// SimulatorSerial is reported by the simulator's health check
const SimulatorSerial = "SIMULATOR"

// simulatedPairs caps synthesized captures; the level estimate does not
// improve beyond a few thousand pairs
const simulatedPairs = 4096

// Simulator is a deterministic stand-in for the HackRF used for demos and
// development without hardware. It models an ambient floor that drops with
// frequency and a hat that attenuates more at higher frequencies.
type Simulator struct {
	latency time.Duration

	mu          sync.Mutex
	available   bool
	hatPresent  bool
	captures    uint64
	attenuation func(f models.Frequency) float64
}

// SimulatorOption configures a Simulator
type SimulatorOption func(s *Simulator)

// WithLatency delays every capture by d
func WithLatency(d time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.latency = d
	}
}

// WithAttenuation overrides the hat model
func WithAttenuation(fn func(f models.Frequency) float64) SimulatorOption {
	return func(s *Simulator) {
		s.attenuation = fn
	}
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		available:   true,
		attenuation: defaultHatAttenuation,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultHatAttenuation(f models.Frequency) float64 {
	return 6 + 12*f.MHz()/6000
}

// AmbientPower is the simulated no-hat level at f in dBm
func AmbientPower(f models.Frequency) float64 {
	return -55 - 15*f.MHz()/6000
}

// SetHatPresent toggles the hat model
func (s *Simulator) SetHatPresent(present bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hatPresent = present
}

// SetAvailable simulates plugging or unplugging the board
func (s *Simulator) SetAvailable(available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = available
}

func (s *Simulator) Capture(ctx context.Context, f models.Frequency, _ sampler.Gain, sampleCount int) ([]byte, error) {
	if s.latency > 0 {
		t := time.NewTimer(s.latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return nil, sampler.ErrCaptureTimeout
			}
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	s.mu.Lock()
	available, hat := s.available, s.hatPresent
	s.captures++
	n := s.captures
	s.mu.Unlock()

	if !available {
		return nil, sampler.ErrDeviceUnavailable
	}

	power := AmbientPower(f) + jitter(f, n)
	if hat {
		power -= s.attenuation(f)
	}

	pairs := sampleCount
	if pairs > simulatedPairs {
		pairs = simulatedPairs
	}
	return sampler.SynthesizeIQ(power, pairs), nil
}

func (s *Simulator) Refresh(context.Context) sampler.Availability {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.available {
		return sampler.Availability{Err: sampler.ErrDeviceUnavailable}
	}
	return sampler.Availability{Available: true, Serial: SimulatorSerial}
}

// Follow tracks session events so the hat model switches on for the hat
// phase and off otherwise. It returns when events is closed or ctx ends.
func (s *Simulator) Follow(ctx context.Context, events <-chan models.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case models.EventSessionStarted:
				s.SetHatPresent(ev.Phase == models.KindHat)
			case models.EventSessionReset, models.EventSessionFinalized:
				s.SetHatPresent(false)
			}
		}
	}
}

// jitter is a reproducible +-0.5 dB wobble per frequency and capture
func jitter(f models.Frequency, n uint64) float64 {
	h := fnv.New64a()
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(uint64(f) >> (8 * i))
		buf[8+i] = byte(n >> (8 * i))
	}
	h.Write(buf[:])
	return float64(h.Sum64()%1001)/1000 - 0.5
}
