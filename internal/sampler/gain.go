package sampler

import (
	"math"

	"github.com/RMahshie/tinfoil/pkg/models"
)

// Gain holds the receiver amplifier settings for one capture
type Gain struct {
	LNA int  // IF gain, 0-40 dB in 8 dB steps
	VGA int  // baseband gain, 0-62 dB in 2 dB steps
	Amp bool // RF front-end amplifier
}

type gainStep struct {
	below models.Frequency
	gain  Gain
}

// Lower frequencies overload the front end easily, so gain rises with
// frequency. The last entry covers everything up to the device limit.
var gainTable = []gainStep{
	{below: models.MHz(100), gain: Gain{LNA: 8, VGA: 12, Amp: true}},
	{below: models.MHz(500), gain: Gain{LNA: 16, VGA: 16, Amp: true}},
	{below: models.MHz(1500), gain: Gain{LNA: 24, VGA: 20, Amp: true}},
	{below: models.MHz(3000), gain: Gain{LNA: 32, VGA: 24, Amp: true}},
	{below: models.MHz(4500), gain: Gain{LNA: 40, VGA: 26, Amp: true}},
	{below: models.MaxDeviceFrequency + 1, gain: Gain{LNA: 40, VGA: 30, Amp: true}},
}

// GainFor returns the gain settings used at f
func GainFor(f models.Frequency) Gain {
	for _, step := range gainTable {
		if f < step.below {
			return step.gain
		}
	}
	return gainTable[len(gainTable)-1].gain
}

// FallbackPower is the estimate used when a capture times out on a device
// that is still connected. It decreases with frequency and saturates at 2 GHz.
func FallbackPower(f models.Frequency) float64 {
	factor := math.Min(1.0, f.MHz()/2000.0)
	return round2(-75 - factor*10)
}

// PathLossCorrection compensates for cable and path loss, 0.15 dB per GHz.
// It stays below 1 dB in magnitude across the device range.
func PathLossCorrection(f models.Frequency) float64 {
	return -0.15 * float64(f) / 1e9
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
