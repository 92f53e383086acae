package models

import (
	"fmt"
	"math"
	"sort"
)

// Device tuning limits in Hz
const (
	MinDeviceFrequency Frequency = 1_000_000
	MaxDeviceFrequency Frequency = 6_000_000_000
)

// Frequency is a frequency in Hz. Every boundary of the service uses Hz.
type Frequency int64

// MHz converts a value in MHz to a Frequency, rounding to the nearest Hz
func MHz(mhz float64) Frequency {
	return Frequency(math.Round(mhz * 1e6))
}

// MHz returns the frequency in MHz
func (f Frequency) MHz() float64 {
	return float64(f) / 1e6
}

// InDeviceRange reports whether the device can tune to f
func (f Frequency) InDeviceRange() bool {
	return f >= MinDeviceFrequency && f <= MaxDeviceFrequency
}

func (f Frequency) String() string {
	return fmt.Sprintf("%.3f MHz", f.MHz())
}

// FrequencyLabel is display metadata for well-known frequencies
type FrequencyLabel struct {
	Name        string `json:"name" yaml:"name" doc:"Short band name"`
	Description string `json:"description" yaml:"description" doc:"Band description"`
}

// FrequencyPoint represents a single planned test frequency
type FrequencyPoint struct {
	Frequency Frequency       `json:"frequency" doc:"Frequency in Hz"`
	Label     *FrequencyLabel `json:"label,omitempty" doc:"Display label for well-known frequencies"`
}

// FrequencyPlan is the ordered list of frequencies measured in one session
type FrequencyPlan []FrequencyPoint

// Len returns the number of planned frequencies
func (p FrequencyPlan) Len() int {
	return len(p)
}

// Frequencies returns the planned frequencies in order
func (p FrequencyPlan) Frequencies() []Frequency {
	out := make([]Frequency, len(p))
	for i, pt := range p {
		out[i] = pt.Frequency
	}
	return out
}

// Index returns the plan position of f. Values within 1 Hz of a planned
// frequency match it, which absorbs MHz float round-trips from clients.
func (p FrequencyPlan) Index(f Frequency) (int, bool) {
	i := sort.Search(len(p), func(i int) bool { return p[i].Frequency >= f-1 })
	if i < len(p) && p[i].Frequency-f <= 1 && f-p[i].Frequency <= 1 {
		return i, true
	}
	return -1, false
}

// Contains reports whether f is a planned frequency
func (p FrequencyPlan) Contains(f Frequency) bool {
	_, ok := p.Index(f)
	return ok
}

// Validate checks ordering, uniqueness and device range
func (p FrequencyPlan) Validate() error {
	for i, pt := range p {
		if !pt.Frequency.InDeviceRange() {
			return fmt.Errorf("%w: %s outside device range", ErrInvalidPlan, pt.Frequency)
		}
		if i > 0 && pt.Frequency <= p[i-1].Frequency {
			return fmt.Errorf("%w: %s not strictly increasing", ErrInvalidPlan, pt.Frequency)
		}
	}
	return nil
}
