package model

// Placement is one emerged plant: the species and where it stands. Z is
// always 0; plants are sown at ground level.
type Placement struct {
	Species Species
	Pos     Vec3
}

// Layout is the full planting plan for a plot, in sowing order.
type Layout []Placement

// Count returns the number of placements of the given species.
func (l Layout) Count(s Species) int {
	n := 0
	for _, p := range l {
		if p.Species == s {
			n++
		}
	}
	return n
}

// CountBySpecies returns per-species totals for every species present.
func (l Layout) CountBySpecies() map[Species]int {
	counts := make(map[Species]int)
	for _, p := range l {
		counts[p.Species]++
	}
	return counts
}
