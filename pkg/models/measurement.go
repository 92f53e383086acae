package models

import (
	"fmt"
	"strings"
)

// MeasurementKind tags a reading as taken without or with the hat
type MeasurementKind string

const (
	KindBaseline MeasurementKind = "baseline"
	KindHat      MeasurementKind = "hat"
)

// ParseMeasurementKind normalises and validates a kind string
func ParseMeasurementKind(s string) (MeasurementKind, error) {
	k := MeasurementKind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

func (k MeasurementKind) Validate() error {
	switch k {
	case KindBaseline, KindHat:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(k))
	}
}

// HatType is the competition category a hat is entered in
type HatType string

const (
	HatClassic HatType = "classic"
	HatHybrid  HatType = "hybrid"
)

// ParseHatType normalises a hat type, defaulting to classic when empty
func ParseHatType(s string) (HatType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return HatClassic, nil
	}
	h := HatType(s)
	if err := h.Validate(); err != nil {
		return "", err
	}
	return h, nil
}

func (h HatType) Validate() error {
	switch h {
	case HatClassic, HatHybrid:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidHatType, string(h))
	}
}

// MeasurementSet holds the power readings of one kind, keyed by frequency.
// Writes overwrite earlier readings for the same frequency.
type MeasurementSet struct {
	Kind     MeasurementKind
	Readings map[Frequency]float64
}

// NewMeasurementSet creates an empty set of the given kind
func NewMeasurementSet(kind MeasurementKind) *MeasurementSet {
	return &MeasurementSet{Kind: kind, Readings: make(map[Frequency]float64)}
}

// Put upserts a reading
func (s *MeasurementSet) Put(f Frequency, power float64) {
	s.Readings[f] = power
}

// Get returns the reading at f
func (s *MeasurementSet) Get(f Frequency) (float64, bool) {
	p, ok := s.Readings[f]
	return p, ok
}

func (s *MeasurementSet) Len() int {
	return len(s.Readings)
}

// Clone returns a deep copy
func (s *MeasurementSet) Clone() *MeasurementSet {
	c := NewMeasurementSet(s.Kind)
	for f, p := range s.Readings {
		c.Readings[f] = p
	}
	return c
}
