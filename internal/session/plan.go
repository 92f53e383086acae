package session

import (
	"fmt"
	"sort"

	"github.com/RMahshie/tinfoil/pkg/models"
)

const (
	// curatedShare is the fraction of plan slots reserved for catalog entries
	curatedShare = 0.7
	// minSpacing keeps filler points away from already selected ones
	minSpacing = models.Frequency(5_000_000)
)

// Planner builds frequency plans from a catalog of well-known frequencies
type Planner struct {
	catalog []CatalogEntry
}

// NewPlanner creates a planner. A nil or empty catalog falls back to
// DefaultCatalog.
func NewPlanner(catalog []CatalogEntry) *Planner {
	if len(catalog) == 0 {
		catalog = DefaultCatalog
	}
	return &Planner{catalog: sortedCatalog(catalog)}
}

// PlanFrequencies returns a deterministic plan of at most count points in
// [minMHz, maxMHz]. Roughly 70% of the slots come from the catalog, evenly
// subsampled; the rest are evenly spaced across the range, skipping any
// candidate within 5 MHz of a point already chosen. Skipped candidates are
// not replaced, so the plan can be shorter than count.
func (p *Planner) PlanFrequencies(count int, minMHz, maxMHz float64) (models.FrequencyPlan, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1, got %d", models.ErrInvalidPlan, count)
	}
	lo, hi := models.MHz(minMHz), models.MHz(maxMHz)
	if !lo.InDeviceRange() || !hi.InDeviceRange() {
		return nil, fmt.Errorf("%w: range %.3f-%.3f MHz", models.ErrFrequencyOutOfRange, minMHz, maxMHz)
	}
	if lo >= hi {
		return nil, fmt.Errorf("%w: min %.3f MHz must be below max %.3f MHz", models.ErrInvalidPlan, minMHz, maxMHz)
	}

	var inRange []CatalogEntry
	for _, e := range p.catalog {
		if f := models.MHz(e.MHz); f >= lo && f <= hi {
			inRange = append(inRange, e)
		}
	}

	curatedCount := int(float64(count) * curatedShare)
	selected := make([]models.FrequencyPoint, 0, count)
	if len(inRange) > curatedCount {
		// Evenly spaced indices over the sorted catalog
		for i := 0; i < curatedCount; i++ {
			e := inRange[i*len(inRange)/curatedCount]
			selected = append(selected, models.FrequencyPoint{Frequency: models.MHz(e.MHz), Label: e.label()})
		}
	} else {
		for _, e := range inRange {
			selected = append(selected, models.FrequencyPoint{Frequency: models.MHz(e.MHz), Label: e.label()})
		}
	}

	remaining := count - len(selected)
	if remaining > 0 {
		step := (hi - lo).MHz() / float64(remaining+1)
		for i := 1; i <= remaining; i++ {
			candidate := models.MHz(minMHz + float64(i)*step)
			if tooClose(selected, candidate) {
				continue
			}
			selected = append(selected, models.FrequencyPoint{Frequency: candidate})
		}
	}

	sort.SliceStable(selected, func(i, j int) bool { return selected[i].Frequency < selected[j].Frequency })
	plan := models.FrequencyPlan(selected)
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func tooClose(selected []models.FrequencyPoint, candidate models.Frequency) bool {
	for _, p := range selected {
		d := p.Frequency - candidate
		if d < 0 {
			d = -d
		}
		if d < minSpacing {
			return true
		}
	}
	return false
}
