package core

import (
	"context"
	"os"
	"testing"

	"github.com/agrisight/intercrop-scenegen/engine/stubengine"
	"github.com/agrisight/intercrop-scenegen/model"
)

// openConfig finds a shipped config file whether the test runs from the
// package directory or the repo root.
func openConfig(t *testing.T, name string) *os.File {
	t.Helper()
	for _, path := range []string{
		"configs/" + name,
		"../configs/" + name,
	} {
		if f, err := os.Open(path); err == nil {
			return f
		}
	}
	t.Fatalf("%s not found in any expected location", name)
	return nil
}

// The shipped example scenario must stay loadable and runnable; this is a
// smoke test against silent drift between the file and the loader.
func TestShippedScenarioRuns(t *testing.T) {
	f := openConfig(t, "scenario_intercrop.json")
	defer f.Close()

	cfg, err := LoadScenario(f)
	if err != nil {
		t.Fatalf("loading shipped scenario: %v", err)
	}
	if cfg.Layout.PlotWidth != 2.0 || cfg.Layout.PlotLength != 1.5 || cfg.Layout.Rows != 6 {
		t.Errorf("plot geometry drifted: %+v", cfg.Layout)
	}
	if !cfg.Imaging.Enabled || !cfg.Imaging.Segmentation || !cfg.Labeling {
		t.Error("shipped scenario no longer requests labeled imagery")
	}

	// 31 and 100 seeds/m² on 3 m² at the shipped emergence rates.
	layout, err := GenerateLayout(cfg.Layout)
	if err != nil {
		t.Fatalf("GenerateLayout: %v", err)
	}
	if got := layout.Count(model.SpeciesBean); got != 81 {
		t.Errorf("bean count = %d, want 81", got)
	}
	if got := layout.Count(model.SpeciesWheat); got != 240 {
		t.Errorf("wheat count = %d, want 240", got)
	}

	cfg.Export.OutputDir = t.TempDir()
	p, err := NewPipeline(cfg, stubengine.New(), nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	st, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.Failed() {
		t.Errorf("shipped scenario degraded: %+v", st.Outcomes)
	}
	counts := st.PlantCounts()
	if counts[model.SpeciesBean] != 81 || counts[model.SpeciesWheat] != 240 {
		t.Errorf("plant counts = %v, want 81 bean / 240 wheat", counts)
	}
	if len(st.Images) == 0 {
		t.Error("shipped scenario produced no images")
	}
}

func TestShippedOpticsOverlayLoads(t *testing.T) {
	f := openConfig(t, "optics_field.json")
	defer f.Close()

	table, err := LoadOpticsTable(f)
	if err != nil {
		t.Fatalf("loading shipped optics: %v", err)
	}
	if got := table[SurfaceGround]["Red"].Reflectivity; got != 0.32 {
		t.Errorf("ground red reflectivity = %v, want 0.32", got)
	}
	if got := table[SurfaceVegetation]["Green"].Transmissivity; got != 0.12 {
		t.Errorf("vegetation green transmissivity = %v, want 0.12", got)
	}
	// Bands the overlay leaves out keep their defaults.
	if got := table[SurfaceVegetation]["Blue"].Reflectivity; got != 0.15 {
		t.Errorf("vegetation blue reflectivity = %v, want default 0.15", got)
	}
	if err := table.Covers(model.MultispectralBands()); err != nil {
		t.Errorf("overlay broke band coverage: %v", err)
	}
}
