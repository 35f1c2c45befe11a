package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

// SurfaceClass distinguishes the two radiative surface kinds in a scene.
type SurfaceClass string

const (
	SurfaceGround     SurfaceClass = "ground"
	SurfaceVegetation SurfaceClass = "vegetation"
)

// OpticalCoeff holds per-band radiative coefficients. Whatever is neither
// reflected nor transmitted is absorbed.
type OpticalCoeff struct {
	Reflectivity   float64
	Transmissivity float64
}

// OpticsTable maps surface class and band name to radiative coefficients.
type OpticsTable map[SurfaceClass]map[string]OpticalCoeff

// DefaultOpticsTable returns field-measured coefficients for bare soil and
// green leaves. Leaves transmit strongly in the near infrared, soil not at
// all.
func DefaultOpticsTable() OpticsTable {
	return OpticsTable{
		SurfaceGround: {
			model.BandRed:   {Reflectivity: 0.35},
			model.BandGreen: {Reflectivity: 0.25},
			model.BandBlue:  {Reflectivity: 0.18},
			model.BandNIR:   {Reflectivity: 0.38},
		},
		SurfaceVegetation: {
			model.BandRed:   {Reflectivity: 0.10, Transmissivity: 0.05},
			model.BandGreen: {Reflectivity: 0.35, Transmissivity: 0.15},
			model.BandBlue:  {Reflectivity: 0.15, Transmissivity: 0.08},
			model.BandNIR:   {Reflectivity: 0.50, Transmissivity: 0.40},
		},
	}
}

// Validate checks every coefficient pair: each component non-negative and
// reflectivity + transmissivity in (0, 1]. A surface that returns no energy
// at all would render black and is treated as a table mistake.
func (t OpticsTable) Validate() error {
	for class, bands := range t {
		if class != SurfaceGround && class != SurfaceVegetation {
			return fmt.Errorf("unknown surface class %q", class)
		}
		for band, c := range bands {
			if c.Reflectivity < 0 || c.Transmissivity < 0 {
				return fmt.Errorf("%s/%s: negative coefficient", class, band)
			}
			sum := c.Reflectivity + c.Transmissivity
			if sum <= 0 || sum > 1 {
				return fmt.Errorf("%s/%s: reflectivity+transmissivity = %.3f outside (0, 1]", class, band, sum)
			}
		}
	}
	return nil
}

// Covers reports whether the table has coefficients for every band in the
// set, for both surface classes.
func (t OpticsTable) Covers(bands model.BandSet) error {
	for _, class := range []SurfaceClass{SurfaceGround, SurfaceVegetation} {
		for _, band := range bands.Names() {
			if _, ok := t[class][band]; !ok {
				return fmt.Errorf("no %s coefficients for band %s", class, band)
			}
		}
	}
	return nil
}

// ReflectivityKey returns the per-primitive data key for a band's
// reflectivity.
func ReflectivityKey(band string) string { return "reflectivity_" + band }

// TransmissivityKey returns the per-primitive data key for a band's
// transmissivity.
func TransmissivityKey(band string) string { return "transmissivity_" + band }

type opticsCoeffJSON struct {
	Reflectivity   float64 `json:"reflectivity"`
	Transmissivity float64 `json:"transmissivity"`
}

// LoadOpticsTable reads a JSON coefficient override and overlays it on the
// built-in table, so a file may adjust a single class or band. The merged
// table is validated before it is returned.
//
// File shape:
//
//	{"vegetation": {"NIR": {"reflectivity": 0.45, "transmissivity": 0.42}}}
func LoadOpticsTable(r io.Reader) (OpticsTable, error) {
	var raw map[string]map[string]opticsCoeffJSON
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding optics table: %w", err)
	}

	table := DefaultOpticsTable()
	for class, bands := range raw {
		sc := SurfaceClass(class)
		if sc != SurfaceGround && sc != SurfaceVegetation {
			return nil, fmt.Errorf("unknown surface class %q", class)
		}
		for band, c := range bands {
			table[sc][band] = OpticalCoeff{
				Reflectivity:   c.Reflectivity,
				Transmissivity: c.Transmissivity,
			}
		}
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("optics table: %w", err)
	}
	return table, nil
}

// AssignOptics writes reflectivity and transmissivity data onto every scene
// primitive for every band in the set: ground primitives get soil
// coefficients, all others vegetation coefficients. The table must cover the
// band set; on a coverage miss nothing is written.
func AssignOptics(scene engine.Scene, table OpticsTable, bands model.BandSet, ground []engine.PrimitiveID) error {
	if err := table.Validate(); err != nil {
		return err
	}
	if err := table.Covers(bands); err != nil {
		return err
	}

	all := scene.Primitives()
	isGround := make(map[engine.PrimitiveID]bool, len(ground))
	for _, id := range ground {
		isGround[id] = true
	}
	groundIDs := make([]engine.PrimitiveID, 0, len(ground))
	vegIDs := make([]engine.PrimitiveID, 0, len(all))
	for _, id := range all {
		if isGround[id] {
			groundIDs = append(groundIDs, id)
		} else {
			vegIDs = append(vegIDs, id)
		}
	}

	for _, band := range bands.Names() {
		writes := []struct {
			ids []engine.PrimitiveID
			key string
			val float64
		}{
			{groundIDs, ReflectivityKey(band), table[SurfaceGround][band].Reflectivity},
			{groundIDs, TransmissivityKey(band), table[SurfaceGround][band].Transmissivity},
			{vegIDs, ReflectivityKey(band), table[SurfaceVegetation][band].Reflectivity},
			{vegIDs, TransmissivityKey(band), table[SurfaceVegetation][band].Transmissivity},
		}
		for _, w := range writes {
			if len(w.ids) == 0 {
				continue
			}
			if err := scene.SetFloat(w.ids, w.key, w.val); err != nil {
				return fmt.Errorf("writing %s: %w", w.key, err)
			}
		}
	}
	return nil
}
