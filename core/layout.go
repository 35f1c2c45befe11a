package core

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/agrisight/intercrop-scenegen/model"
)

// Jitter half-widths and the clamp border keeping plants off the plot edge,
// all in metres.
const (
	jitterX   = 0.02
	jitterY   = 0.015
	edgeClamp = 0.05
)

// GenerateLayout draws plant positions for the configured plot. The draw is
// fully determined by cfg.Seed: species are shuffled across row slots, then
// jittered around an even grid and clamped to the plot interior.
//
// Positions are in plot coordinates with the origin at the plot corner; the
// scene builder shifts them by the soil margin.
func GenerateLayout(cfg LayoutConfig) (model.Layout, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("layout config: %w", err)
	}

	area := cfg.PlotWidth * cfg.PlotLength
	beans := emergedCount(cfg.BeanDensity, area, cfg.BeanEmergence)
	wheats := emergedCount(cfg.WheatDensity, area, cfg.WheatEmergence)
	total := beans + wheats
	if total == 0 {
		return model.Layout{}, nil
	}

	species := make([]model.Species, 0, total)
	for i := 0; i < beans; i++ {
		species = append(species, model.SpeciesBean)
	}
	for i := 0; i < wheats; i++ {
		species = append(species, model.SpeciesWheat)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rng.Shuffle(len(species), func(i, j int) {
		species[i], species[j] = species[j], species[i]
	})

	rowX := linspace(cfg.RowSpacing, cfg.PlotWidth-cfg.RowSpacing, cfg.Rows)
	perRow := rowCounts(total, cfg.Rows)

	layout := make(model.Layout, 0, total)
	next := 0
	for r, n := range perRow {
		if n == 0 {
			continue
		}
		yStep := cfg.PlotLength / float64(n+1)
		for k := 1; k <= n; k++ {
			x := rowX[r] + uniform(rng, jitterX)
			y := yStep*float64(k) + uniform(rng, jitterY)
			layout = append(layout, model.Placement{
				Species: species[next],
				Pos: model.Vec3{
					X: clamp(x, edgeClamp, cfg.PlotWidth-edgeClamp),
					Y: clamp(y, edgeClamp, cfg.PlotLength-edgeClamp),
					Z: 0,
				},
			})
			next++
		}
	}
	return layout, nil
}

// emergedCount truncates once: sown seeds that fail to emerge never become
// plants.
func emergedCount(density, area, emergence float64) int {
	return int(math.Floor(density * area * emergence))
}

// rowCounts splits total over rows so populations differ by at most one,
// front rows taking the remainder.
func rowCounts(total, rows int) []int {
	counts := make([]int, rows)
	base := total / rows
	extra := total % rows
	for r := range counts {
		counts[r] = base
		if r < extra {
			counts[r]++
		}
	}
	return counts
}

func linspace(start, stop float64, n int) []float64 {
	pts := make([]float64, n)
	if n == 1 {
		pts[0] = start
		return pts
	}
	step := (stop - start) / float64(n-1)
	for i := range pts {
		pts[i] = start + step*float64(i)
	}
	return pts
}

// uniform draws from U(-half, half).
func uniform(rng *rand.Rand, half float64) float64 {
	return rng.Float64()*2*half - half
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
