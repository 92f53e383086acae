package hackrf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/RMahshie/tinfoil/internal/sampler"
)

const boardName = "HackRF One"

// BoardInfo is what `hackrf_info` reports about attached boards
type BoardInfo struct {
	Found   bool
	Serials []string
}

// ParseInfo extracts board presence and serial numbers from `hackrf_info`
// output
func ParseInfo(output string) BoardInfo {
	var info BoardInfo
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.Contains(line, boardName) {
			info.Found = true
		}
		if strings.HasPrefix(line, "Serial number:") {
			serial := strings.TrimSpace(line[strings.LastIndex(line, ":")+1:])
			if serial != "" {
				info.Serials = append(info.Serials, serial)
			}
		}
	}
	return info
}

// Refresh probes the board with `hackrf_info`, retrying a few times
// because freshly plugged boards often miss the first probe
func (d *Device) Refresh(ctx context.Context) sampler.Availability {
	var lastErr error
	for attempt := 1; attempt <= d.cfg.InfoAttempts; attempt++ {
		serial, err := d.probe(ctx)
		if err == nil {
			d.mu.Lock()
			d.serial = serial
			d.mu.Unlock()
			return sampler.Availability{Available: true, Serial: serial}
		}
		lastErr = err

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) || ctx.Err() != nil {
			break
		}

		d.logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("attempts", d.cfg.InfoAttempts).
			Msg("HackRF not detected")

		if attempt < d.cfg.InfoAttempts {
			select {
			case <-ctx.Done():
				return sampler.Availability{Err: ctx.Err()}
			case <-time.After(d.cfg.InfoRetryDelay):
			}
		}
	}

	d.mu.Lock()
	d.serial = ""
	d.mu.Unlock()
	return sampler.Availability{Err: lastErr}
}

func (d *Device) probe(ctx context.Context) (string, error) {
	pctx, cancel := context.WithTimeout(ctx, d.cfg.InfoTimeout)
	defer cancel()

	out, err := exec.CommandContext(pctx, d.cfg.InfoCmd).CombinedOutput()
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%s not installed: %w", InfoRuntime, err)
	}
	if pctx.Err() != nil {
		return "", fmt.Errorf("%s timed out: %w", InfoRuntime, pctx.Err())
	}

	// hackrf_info exits non-zero when no board is attached, so the output
	// decides
	info := ParseInfo(string(out))
	if !info.Found {
		if err != nil {
			return "", fmt.Errorf("%s not detected: %w", boardName, err)
		}
		return "", fmt.Errorf("%s not detected", boardName)
	}

	if d.cfg.Serial == "" {
		if len(info.Serials) > 0 {
			return info.Serials[0], nil
		}
		return "", nil
	}
	for _, s := range info.Serials {
		if strings.EqualFold(s, d.cfg.Serial) || strings.HasSuffix(s, d.cfg.Serial) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%s with serial %s not attached", boardName, d.cfg.Serial)
}
