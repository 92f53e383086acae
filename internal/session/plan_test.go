package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/tinfoil/pkg/models"
)

func TestPlanFrequencies_Deterministic(t *testing.T) {
	p := NewPlanner(nil)

	first, err := p.PlanFrequencies(20, 1, 6000)
	require.NoError(t, err)
	second, err := p.PlanFrequencies(20, 1, 6000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, func() models.FrequencyPlan {
		again, err := NewPlanner(DefaultCatalog).PlanFrequencies(20, 1, 6000)
		require.NoError(t, err)
		return again
	}())
}

func TestPlanFrequencies_Invariants(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		minMHz float64
		maxMHz float64
	}{
		{"full range", 20, 1, 6000},
		{"small plan", 3, 1, 6000},
		{"single point", 1, 100, 200},
		{"narrow cellular", 15, 700, 1000},
		{"catalog exhausted", 60, 1, 6000},
		{"no catalog entries", 10, 10, 80},
		{"dense filler", 200, 100, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewPlanner(nil).PlanFrequencies(tt.count, tt.minMHz, tt.maxMHz)
			require.NoError(t, err)
			require.NotEmpty(t, plan)
			assert.LessOrEqual(t, plan.Len(), tt.count)

			lo, hi := models.MHz(tt.minMHz), models.MHz(tt.maxMHz)
			for i, pt := range plan {
				assert.GreaterOrEqual(t, pt.Frequency, lo)
				assert.LessOrEqual(t, pt.Frequency, hi)
				if i == 0 {
					continue
				}
				prev := plan[i-1]
				assert.Greater(t, pt.Frequency, prev.Frequency, "plan must be strictly increasing")

				bothCurated := pt.Label != nil && prev.Label != nil
				if !bothCurated {
					assert.GreaterOrEqual(t, pt.Frequency-prev.Frequency, minSpacing,
						"%s and %s are closer than 5 MHz", prev.Frequency, pt.Frequency)
				}
			}
		})
	}
}

func TestPlanFrequencies_CuratedShare(t *testing.T) {
	plan, err := NewPlanner(nil).PlanFrequencies(20, 1, 6000)
	require.NoError(t, err)

	curated := 0
	for _, pt := range plan {
		if pt.Label != nil {
			curated++
		}
	}
	assert.Equal(t, 14, curated)
	// The lowest catalog entry is always picked by the subsampler
	assert.Equal(t, models.MHz(88.5), plan[0].Frequency)
}

func TestPlanFrequencies_FillerOnly(t *testing.T) {
	plan, err := NewPlanner(nil).PlanFrequencies(3, 10, 50)
	require.NoError(t, err)

	assert.Equal(t, []models.Frequency{
		models.MHz(20),
		models.MHz(30),
		models.MHz(40),
	}, plan.Frequencies())
}

func TestPlanFrequencies_Validation(t *testing.T) {
	tests := []struct {
		name   string
		count  int
		minMHz float64
		maxMHz float64
	}{
		{"zero count", 0, 1, 6000},
		{"inverted range", 10, 3000, 100},
		{"empty range", 10, 100, 100},
		{"below device", 10, 0.5, 100},
		{"above device", 10, 100, 7000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanner(nil).PlanFrequencies(tt.count, tt.minMHz, tt.maxMHz)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrContractViolation)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	doc := `
frequencies:
  - mhz: 915
    name: ISM 915MHz
    description: ISM Band
  - mhz: 433.92
    name: ISM 433MHz
    description: Remote Controls/Sensors
`
	entries, err := LoadCatalog(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 433.92, entries[1].MHz)

	plan, err := NewPlanner(entries).PlanFrequencies(2, 400, 1000)
	require.NoError(t, err)
	// 70% of 2 leaves one curated slot, the lowest entry
	require.NotEmpty(t, plan)
	assert.Equal(t, models.MHz(433.92), plan[0].Frequency)
	assert.Equal(t, "ISM 433MHz", plan[0].Label.Name)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", "frequencies: []\n"},
		{"out of range", "frequencies:\n  - mhz: 7000\n    name: nope\n"},
		{"malformed", "frequencies: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCatalog(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}
