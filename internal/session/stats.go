package session

import (
	"github.com/RMahshie/tinfoil/pkg/models"
)

// Band edges in Hz. SHF is closed on its upper edge.
const (
	hfLow   models.Frequency = 2_000_000
	vhfLow  models.Frequency = 30_000_000
	uhfLow  models.Frequency = 300_000_000
	shfLow  models.Frequency = 3_000_000_000
	shfHigh models.Frequency = 5_900_000_000
)

type bandAccumulator struct {
	sum   float64
	count int
}

func (b *bandAccumulator) add(v float64) {
	b.sum += v
	b.count++
}

func (b bandAccumulator) mean() float64 {
	if b.count == 0 {
		return 0
	}
	return b.sum / float64(b.count)
}

// Compute derives the attenuation curve and its statistics. Frequencies
// missing from either set keep their slot with placeholder readings but
// never enter an aggregate.
func Compute(plan models.FrequencyPlan, baseline, hat *models.MeasurementSet) *models.SessionResult {
	result := &models.SessionResult{
		Points: make([]models.ResultPoint, len(plan)),
	}

	var (
		sum               float64
		hf, vhf, uhf, shf bandAccumulator
		peak, trough      models.Extremum
		haveExtremum      bool
	)

	for i, pt := range plan {
		f := pt.Frequency
		b, okB := lookup(baseline, f)
		h, okH := lookup(hat, f)

		if !okB || !okH {
			result.Points[i] = models.ResultPoint{
				Frequency: f,
				Baseline:  models.PlaceholderPower,
				Hat:       models.PlaceholderPower,
			}
			continue
		}

		att := b - h
		result.Points[i] = models.ResultPoint{
			Frequency:   f,
			Baseline:    b,
			Hat:         h,
			Attenuation: att,
			Valid:       true,
		}
		result.ValidCount++
		sum += att

		switch {
		case f >= hfLow && f < vhfLow:
			hf.add(att)
		case f >= vhfLow && f < uhfLow:
			vhf.add(att)
		case f >= uhfLow && f < shfLow:
			uhf.add(att)
		case f >= shfLow && f <= shfHigh:
			shf.add(att)
		}

		// Strict comparisons keep the first occurrence on ties
		if !haveExtremum {
			peak = models.Extremum{Value: att, Frequency: f}
			trough = peak
			haveExtremum = true
			continue
		}
		if att > peak.Value {
			peak = models.Extremum{Value: att, Frequency: f}
		}
		if att < trough.Value {
			trough = models.Extremum{Value: att, Frequency: f}
		}
	}

	if result.ValidCount > 0 {
		result.AverageAttenuation = sum / float64(result.ValidCount)
	}
	result.Bands = models.BandEffectiveness{
		HF:  hf.mean(),
		VHF: vhf.mean(),
		UHF: uhf.mean(),
		SHF: shf.mean(),
	}
	result.Peak = peak
	result.Trough = trough
	return result
}

func lookup(set *models.MeasurementSet, f models.Frequency) (float64, bool) {
	if set == nil {
		return 0, false
	}
	return set.Get(f)
}
