package core

import (
	"strings"
	"testing"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/engine/stubengine"
	"github.com/agrisight/intercrop-scenegen/model"
)

func TestDefaultOpticsTable(t *testing.T) {
	table := DefaultOpticsTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("built-in table invalid: %v", err)
	}
	if err := table.Covers(model.MultispectralBands()); err != nil {
		t.Fatalf("built-in table incomplete: %v", err)
	}
	c := table[SurfaceVegetation][model.BandNIR]
	if c.Reflectivity != 0.50 || c.Transmissivity != 0.40 {
		t.Errorf("vegetation NIR = %+v, want 0.50/0.40", c)
	}
	if tr := table[SurfaceGround][model.BandRed].Transmissivity; tr != 0 {
		t.Errorf("ground transmissivity = %.3f, want 0", tr)
	}
}

func TestOpticsTableValidate(t *testing.T) {
	cases := []struct {
		name  string
		table OpticsTable
	}{
		{
			"sum above one",
			OpticsTable{SurfaceVegetation: {model.BandRed: {Reflectivity: 0.7, Transmissivity: 0.5}}},
		},
		{
			"all absorbed",
			OpticsTable{SurfaceGround: {model.BandRed: {}}},
		},
		{
			"negative coefficient",
			OpticsTable{SurfaceGround: {model.BandRed: {Reflectivity: -0.1, Transmissivity: 0.5}}},
		},
		{
			"unknown class",
			OpticsTable{"water": {model.BandRed: {Reflectivity: 0.1}}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.table.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestOpticsTableCovers(t *testing.T) {
	table := DefaultOpticsTable()
	delete(table[SurfaceVegetation], model.BandNIR)
	if err := table.Covers(model.RGBBands()); err != nil {
		t.Errorf("rgb coverage: %v", err)
	}
	err := table.Covers(model.MultispectralBands())
	if err == nil {
		t.Fatal("expected coverage error for missing NIR")
	}
	if !strings.Contains(err.Error(), model.BandNIR) {
		t.Errorf("error %q does not name the missing band", err)
	}
}

func TestLoadOpticsTableOverlay(t *testing.T) {
	in := `{"vegetation": {"NIR": {"reflectivity": 0.45, "transmissivity": 0.42}}}`
	table, err := LoadOpticsTable(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadOpticsTable: %v", err)
	}
	if c := table[SurfaceVegetation][model.BandNIR]; c.Reflectivity != 0.45 || c.Transmissivity != 0.42 {
		t.Errorf("override not applied: %+v", c)
	}
	// Untouched entries keep their built-in values.
	if c := table[SurfaceVegetation][model.BandRed]; c.Reflectivity != 0.10 {
		t.Errorf("default entry lost: %+v", c)
	}
	if c := table[SurfaceGround][model.BandRed]; c.Reflectivity != 0.35 {
		t.Errorf("default ground entry lost: %+v", c)
	}
}

func TestLoadOpticsTableRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bad class", `{"water": {"Red": {"reflectivity": 0.1}}}`},
		{"invalid sum", `{"ground": {"Red": {"reflectivity": 0.9, "transmissivity": 0.9}}}`},
		{"malformed json", `{"ground": `},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadOpticsTable(strings.NewReader(tc.in)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAssignOptics(t *testing.T) {
	rt := stubengine.New()
	scene, err := rt.NewScene(engine.SceneConfig{Seed: 1})
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	defer scene.Close()

	ground, err := scene.AddPatch(model.Vec3{X: 0.8, Y: 0.8}, 1.6, 1.6, model.RGB{R: 0.35, G: 0.25, B: 0.18})
	if err != nil {
		t.Fatalf("AddPatch: %v", err)
	}
	growth, err := scene.Growth()
	if err != nil {
		t.Fatalf("Growth: %v", err)
	}
	if err := growth.LoadSpecies(model.SpeciesBean); err != nil {
		t.Fatalf("LoadSpecies: %v", err)
	}
	plant, err := growth.BuildInstance(model.SpeciesBean, model.Vec3{X: 0.8, Y: 0.8}, 5)
	if err != nil {
		t.Fatalf("BuildInstance: %v", err)
	}
	prims, err := growth.PlantPrimitives(plant)
	if err != nil {
		t.Fatalf("PlantPrimitives: %v", err)
	}
	if err := growth.Close(); err != nil {
		t.Fatalf("growth close: %v", err)
	}

	bands := model.RGBBands()
	if err := AssignOptics(scene, DefaultOpticsTable(), bands, []engine.PrimitiveID{ground}); err != nil {
		t.Fatalf("AssignOptics: %v", err)
	}

	stub := scene.(*stubengine.Scene)
	if v, ok := stub.FloatData(ground, ReflectivityKey(model.BandRed)); !ok || v != 0.35 {
		t.Errorf("ground reflectivity_Red = %.3f (ok=%v), want 0.35", v, ok)
	}
	if v, ok := stub.FloatData(ground, TransmissivityKey(model.BandRed)); !ok || v != 0 {
		t.Errorf("ground transmissivity_Red = %.3f (ok=%v), want 0", v, ok)
	}
	for _, id := range prims {
		if v, ok := stub.FloatData(id, ReflectivityKey(model.BandGreen)); !ok || v != 0.35 {
			t.Errorf("plant prim %d reflectivity_Green = %.3f (ok=%v), want 0.35", id, v, ok)
		}
		if v, ok := stub.FloatData(id, TransmissivityKey(model.BandBlue)); !ok || v != 0.08 {
			t.Errorf("plant prim %d transmissivity_Blue = %.3f (ok=%v), want 0.08", id, v, ok)
		}
	}
	// No NIR keys for an rgb band set.
	if _, ok := stub.FloatData(ground, ReflectivityKey(model.BandNIR)); ok {
		t.Error("reflectivity_NIR written for rgb band set")
	}
}

func TestAssignOpticsRejectsUncoveredBands(t *testing.T) {
	rt := stubengine.New()
	scene, err := rt.NewScene(engine.SceneConfig{Seed: 1})
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	defer scene.Close()

	table := DefaultOpticsTable()
	delete(table[SurfaceGround], model.BandNIR)
	err = AssignOptics(scene, table, model.MultispectralBands(), nil)
	if err == nil {
		t.Fatal("expected coverage error")
	}
}
