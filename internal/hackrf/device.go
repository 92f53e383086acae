package hackrf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/tinfoil/internal/sampler"
	"github.com/RMahshie/tinfoil/pkg/models"
)

const (
	TransferRuntime = "hackrf_transfer"
	InfoRuntime     = "hackrf_info"
)

// Config locates the HackRF tools and tunes the health check
type Config struct {
	TransferCmd string
	InfoCmd     string
	// Serial pins a specific board when several are attached
	Serial  string
	TempDir string

	InfoAttempts   int
	InfoRetryDelay time.Duration
	InfoTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	if c.TransferCmd == "" {
		c.TransferCmd = TransferRuntime
	}
	if c.InfoCmd == "" {
		c.InfoCmd = InfoRuntime
	}
	if c.InfoAttempts <= 0 {
		c.InfoAttempts = 3
	}
	if c.InfoRetryDelay <= 0 {
		c.InfoRetryDelay = time.Second
	}
	if c.InfoTimeout <= 0 {
		c.InfoTimeout = 5 * time.Second
	}
	return c
}

// Device drives a HackRF One through the vendor command line tools
type Device struct {
	cfg    Config
	logger zerolog.Logger

	mu     sync.Mutex
	serial string
}

// New creates a device handle. The tools are looked up lazily so the
// service can start without them and report the device as unavailable.
func New(cfg Config) *Device {
	return &Device{
		cfg:    cfg.withDefaults(),
		logger: log.Logger.With().Str("component", "hackrf").Logger(),
	}
}

// Serial returns the serial number seen on the last successful probe
func (d *Device) Serial() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serial
}

// Capture receives sampleCount IQ pairs at f and returns the raw
// interleaved int8 bytes
func (d *Device) Capture(ctx context.Context, f models.Frequency, gain sampler.Gain, sampleCount int) ([]byte, error) {
	out, err := os.CreateTemp(d.cfg.TempDir, "hackrf_capture_*.bin")
	if err != nil {
		return nil, fmt.Errorf("error creating capture file: %w", err)
	}
	path := out.Name()
	out.Close()
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove capture file")
		}
	}()

	tc := TransferConfig{
		OutputFile:   path,
		Frequency:    f,
		LNAGain:      gain.LNA,
		VGAGain:      gain.VGA,
		EnableAmp:    gain.Amp,
		NumSamples:   sampleCount,
		SerialNumber: d.cfg.Serial,
	}
	args, err := tc.Args()
	if err != nil {
		return nil, fmt.Errorf("error creating args: %w", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.cfg.TransferCmd, args...)
	cmd.Stderr = &stderr

	d.logger.Debug().
		Int64("frequencyHz", int64(f)).
		Int("lna", gain.LNA).
		Int("vga", gain.VGA).
		Msg("Starting capture")

	if err := cmd.Run(); err != nil {
		return nil, classifyRunError(ctx, f, err, stderr.String())
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("no output file created for %s: %w", f, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no data captured for %s (empty file)", f)
	}
	return raw, nil
}

// classifyRunError maps a failed tool run onto the sampler's recoverable
// error kinds
func classifyRunError(ctx context.Context, f models.Frequency, err error, stderr string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %s", sampler.ErrCaptureTimeout, f)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %s not installed: %v", sampler.ErrDeviceUnavailable, TransferRuntime, err)
	}

	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "hackrf") || strings.Contains(lower, "usb") {
		return fmt.Errorf("%w: %s", sampler.ErrDeviceUnavailable, msg)
	}
	if msg != "" {
		return fmt.Errorf("capture at %s failed: %w: %s", f, err, msg)
	}
	return fmt.Errorf("capture at %s failed: %w", f, err)
}
