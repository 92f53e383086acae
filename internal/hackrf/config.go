package hackrf

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/RMahshie/tinfoil/pkg/models"
)

const (
	MinNumSamples = 8192
	MaxLNAGain    = 40
	MaxVGAGain    = 62
	LNAGainStep   = 8
	VGAGainStep   = 2
)

// TransferConfig describes one `hackrf_transfer` receive run.
// See `man hackrf_transfer`:
// https://manpages.debian.org/bookworm/hackrf/hackrf_transfer.1.en.html
/*
	cfg := hackrf.TransferConfig{
		OutputFile: "/tmp/capture.bin",
		Frequency:  models.MHz(915),
		LNAGain:    24,
		VGAGain:    20,
		EnableAmp:  true,
		NumSamples: 262144,
	}
	// Executes: hackrf_transfer -r /tmp/capture.bin -f 915000000 -l 24 -g 20 -a 1 -n 262144
*/
type TransferConfig struct {
	OutputFile   string           // -r filename Receive data into file
	Frequency    models.Frequency // -f freq_hz Center frequency in Hz
	LNAGain      int              // -l gain_db LNA (IF) gain, 0-40dB, 8dB steps
	VGAGain      int              // -g gain_db VGA (baseband) gain, 0-62dB, 2dB steps
	EnableAmp    bool             // -a amp_enable RX RF amplifier 1=Enable, 0=Disable
	NumSamples   int              // -n num_samples Number of samples to transfer
	SerialNumber string           // -d serial_number Serial number of desired HackRF
}

func (c *TransferConfig) Validate() error {
	if c.OutputFile == "" {
		return errors.New("hackrf.TransferConfig: output file is required")
	}

	if !c.Frequency.InDeviceRange() {
		return fmt.Errorf("hackrf.TransferConfig: frequency %s outside device range", c.Frequency)
	}

	// LNA gain validation (0-40dB in 8dB steps)
	if c.LNAGain < 0 || c.LNAGain > MaxLNAGain {
		return fmt.Errorf("hackrf.TransferConfig: LNA gain must be between 0 and 40 dB: %d given", c.LNAGain)
	}
	if c.LNAGain%LNAGainStep != 0 {
		return errors.New("hackrf.TransferConfig: LNA gain must be a multiple of 8 dB")
	}

	// VGA gain validation (0-62dB in 2dB steps)
	if c.VGAGain < 0 || c.VGAGain > MaxVGAGain {
		return fmt.Errorf("hackrf.TransferConfig: VGA gain must be between 0 and 62 dB: %d given", c.VGAGain)
	}
	if c.VGAGain%VGAGainStep != 0 {
		return errors.New("hackrf.TransferConfig: VGA gain must be a multiple of 2 dB")
	}

	if c.NumSamples < MinNumSamples {
		return fmt.Errorf("hackrf.TransferConfig: number of samples must be at least 8192: %d given", c.NumSamples)
	}

	return nil
}

// Args builds the command line arguments for `hackrf_transfer`
func (c *TransferConfig) Args() ([]string, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	args := []string{
		"-r", c.OutputFile,
		"-f", strconv.FormatInt(int64(c.Frequency), 10),
		"-l", strconv.Itoa(c.LNAGain),
		"-g", strconv.Itoa(c.VGAGain),
	}

	if c.EnableAmp {
		args = append(args, "-a", "1")
	} else {
		args = append(args, "-a", "0")
	}

	args = append(args, "-n", strconv.Itoa(c.NumSamples))

	if c.SerialNumber != "" {
		args = append(args, "-d", c.SerialNumber)
	}

	return args, nil
}
