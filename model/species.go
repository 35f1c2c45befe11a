package model

// Species identifies a crop in the growth engine's plant library.
type Species string

const (
	SpeciesBean  Species = "bean"
	SpeciesWheat Species = "wheat"
)

// KnownSpecies returns the supported species in canonical sowing order.
func KnownSpecies() []Species {
	return []Species{SpeciesBean, SpeciesWheat}
}

// Valid reports whether s names a supported species.
func (s Species) Valid() bool {
	switch s {
	case SpeciesBean, SpeciesWheat:
		return true
	}
	return false
}
