package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/tinfoil/pkg/models"
)

func planOf(mhz ...float64) models.FrequencyPlan {
	plan := make(models.FrequencyPlan, len(mhz))
	for i, m := range mhz {
		plan[i] = models.FrequencyPoint{Frequency: models.MHz(m)}
	}
	return plan
}

func setOf(kind models.MeasurementKind, plan models.FrequencyPlan, powers ...float64) *models.MeasurementSet {
	set := models.NewMeasurementSet(kind)
	for i, p := range powers {
		set.Put(plan[i].Frequency, p)
	}
	return set
}

func TestCompute_Average(t *testing.T) {
	plan := planOf(100, 200, 400, 800)
	baseline := setOf(models.KindBaseline, plan, -80, -85, -90, -75)
	hat := setOf(models.KindHat, plan, -82, -90, -92, -76)

	r := Compute(plan, baseline, hat)

	require.Len(t, r.Points, 4)
	atts := make([]float64, len(r.Points))
	for i, p := range r.Points {
		atts[i] = p.Attenuation
		assert.True(t, p.Valid)
	}
	assert.Equal(t, []float64{2, 5, 2, 1}, atts)
	assert.Equal(t, 2.5, r.AverageAttenuation)
	assert.Equal(t, 4, r.ValidCount)
}

func TestCompute_AttenuationIsExactDifference(t *testing.T) {
	plan := planOf(915)
	baseline := setOf(models.KindBaseline, plan, -61.37)
	hat := setOf(models.KindHat, plan, -73.91)

	r := Compute(plan, baseline, hat)

	assert.Equal(t, -61.37-(-73.91), r.Points[0].Attenuation)
	assert.Equal(t, -61.37-(-73.91), r.AverageAttenuation)
}

func TestCompute_Bands(t *testing.T) {
	plan := planOf(20, 150, 700, 5000)
	baseline := setOf(models.KindBaseline, plan, -70, -70, -70, -70)
	hat := setOf(models.KindHat, plan, -72, -74, -75, -70.5)

	r := Compute(plan, baseline, hat)

	assert.Equal(t, models.BandEffectiveness{HF: 2.0, VHF: 4.0, UHF: 5.0, SHF: 0.5}, r.Bands)
}

func TestCompute_BandEdges(t *testing.T) {
	tests := []struct {
		name string
		mhz  float64
		want models.BandEffectiveness
	}{
		{"below HF", 1.5, models.BandEffectiveness{}},
		{"HF lower edge", 2, models.BandEffectiveness{HF: 3}},
		{"VHF lower edge", 30, models.BandEffectiveness{VHF: 3}},
		{"UHF lower edge", 300, models.BandEffectiveness{UHF: 3}},
		{"SHF lower edge", 3000, models.BandEffectiveness{SHF: 3}},
		{"SHF upper edge", 5900, models.BandEffectiveness{SHF: 3}},
		{"above SHF", 5950, models.BandEffectiveness{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := planOf(tt.mhz)
			r := Compute(plan, setOf(models.KindBaseline, plan, -60), setOf(models.KindHat, plan, -63))

			assert.Equal(t, tt.want, r.Bands)
			// Out-of-band points still count towards the overall average
			assert.Equal(t, 3.0, r.AverageAttenuation)
		})
	}
}

func TestCompute_MissingDataExcluded(t *testing.T) {
	plan := planOf(100, 700, 2400)
	baseline := setOf(models.KindBaseline, plan, -70, -70, -70)
	// 2400 MHz has a baseline but no hat reading
	hat := setOf(models.KindHat, plan, -74, -76)

	r := Compute(plan, baseline, hat)

	require.Len(t, r.Points, 3)
	assert.Equal(t, []bool{true, true, false}, r.ValidityMask())
	assert.Equal(t, models.ResultPoint{
		Frequency: models.MHz(2400),
		Baseline:  models.PlaceholderPower,
		Hat:       models.PlaceholderPower,
	}, r.Points[2])

	assert.Equal(t, 2, r.ValidCount)
	assert.Equal(t, 5.0, r.AverageAttenuation)
	assert.Equal(t, models.BandEffectiveness{VHF: 4, UHF: 6}, r.Bands)
	assert.Equal(t, models.Extremum{Value: 4, Frequency: models.MHz(100)}, r.Trough)
	assert.Len(t, r.ValidPoints(), 2)
}

func TestCompute_PeakTroughFirstOccurrence(t *testing.T) {
	plan := planOf(100, 200, 300, 400)
	baseline := setOf(models.KindBaseline, plan, -70, -70, -70, -70)
	hat := setOf(models.KindHat, plan, -71, -75, -75, -71)

	r := Compute(plan, baseline, hat)

	assert.Equal(t, models.Extremum{Value: 5, Frequency: models.MHz(200)}, r.Peak)
	assert.Equal(t, models.Extremum{Value: 1, Frequency: models.MHz(100)}, r.Trough)
}

func TestCompute_NegativeAttenuation(t *testing.T) {
	plan := planOf(100, 200)
	baseline := setOf(models.KindBaseline, plan, -80, -80)
	hat := setOf(models.KindHat, plan, -78, -77)

	r := Compute(plan, baseline, hat)

	assert.Equal(t, -2.5, r.AverageAttenuation)
	assert.Equal(t, models.Extremum{Value: -2, Frequency: models.MHz(100)}, r.Peak)
	assert.Equal(t, models.Extremum{Value: -3, Frequency: models.MHz(200)}, r.Trough)
}

func TestCompute_NoValidFrequencies(t *testing.T) {
	plan := planOf(100, 700, 2400)

	r := Compute(plan, models.NewMeasurementSet(models.KindBaseline), models.NewMeasurementSet(models.KindHat))

	assert.Equal(t, 0, r.ValidCount)
	assert.Equal(t, 0.0, r.AverageAttenuation)
	assert.Equal(t, models.BandEffectiveness{}, r.Bands)
	assert.Equal(t, models.Extremum{}, r.Peak)
	assert.Equal(t, models.Extremum{}, r.Trough)
	require.Len(t, r.Points, 3)
	for _, p := range r.Points {
		assert.False(t, p.Valid)
		assert.Equal(t, 0.0, p.Attenuation)
	}
}
