package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/engine/stubengine"
	"github.com/agrisight/intercrop-scenegen/model"
)

// captureRuntime hands out stub scenes while keeping a typed handle for
// introspection after the run finishes.
type captureRuntime struct {
	inner *stubengine.Runtime
	scene *stubengine.Scene
}

func (c *captureRuntime) Name() string { return c.inner.Name() }

func (c *captureRuntime) Has(cp engine.Capability) bool { return c.inner.Has(cp) }

func (c *captureRuntime) Close() error { return c.inner.Close() }

func (c *captureRuntime) NewScene(cfg engine.SceneConfig) (engine.Scene, error) {
	s, err := c.inner.NewScene(cfg)
	if err != nil {
		return nil, err
	}
	c.scene = s.(*stubengine.Scene)
	return s, nil
}

func assertStage(t *testing.T, st *RunState, s Stage, want StageStatus) {
	t.Helper()
	o, ok := st.Outcome(s)
	if !ok {
		t.Fatalf("stage %s not recorded", s)
	}
	if o.Status != want {
		t.Errorf("stage %s = %s (err %v), want %s", s, o.Status, o.Err, want)
	}
}

func TestPipelineDefaultRun(t *testing.T) {
	rt := &captureRuntime{inner: stubengine.New()}
	cfg := DefaultRunConfig()
	cfg.Labeling = true

	p, err := NewPipeline(cfg, rt, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	st, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := len(st.Outcomes); got != len(Stages()) {
		t.Fatalf("recorded %d outcomes, want %d", got, len(Stages()))
	}
	assertStage(t, st, StageInit, StageOK)
	assertStage(t, st, StageScene, StageOK)
	assertStage(t, st, StageLabels, StageOK)
	assertStage(t, st, StageSolar, StageOK)
	assertStage(t, st, StageImage, StageSkipped)
	assertStage(t, st, StageExport, StageSkipped)
	assertStage(t, st, StageViewer, StageSkipped)
	if st.Failed() {
		t.Error("degraded run reported for a clean one")
	}

	// 36 seeds/m² on 1 m² at 87.5% emergence.
	counts := st.PlantCounts()
	if counts[model.SpeciesBean] != 31 || counts[model.SpeciesWheat] != 0 {
		t.Errorf("plant counts = %v, want 31 bean / 0 wheat", counts)
	}
	if len(st.Species) != 31 || len(st.InstancePrims) != 31 {
		t.Errorf("identity maps sized %d/%d, want 31/31", len(st.Species), len(st.InstancePrims))
	}
	built := rt.scene.PlantSpecies()
	if len(built) != 31 {
		t.Fatalf("engine built %d plants, want 31", len(built))
	}
	for id, sp := range built {
		if sp != string(model.SpeciesBean) {
			t.Errorf("plant %d species %q, want bean", id, sp)
		}
	}

	if len(st.Ground) < 2 {
		t.Fatalf("ground prims = %d, want obstacle patch plus decoration", len(st.Ground))
	}
	if v, ok := rt.scene.StringData(st.Ground[0], cfg.Imaging.SegmentationField); !ok || v != GroundLabel {
		t.Errorf("obstacle patch labeled %q, want %q", v, GroundLabel)
	}
	for id, prims := range st.InstancePrims {
		if len(prims) == 0 {
			t.Fatalf("plant %d has no primitives", id)
		}
		if v, _ := rt.scene.StringData(prims[0], cfg.Imaging.SegmentationField); v != string(model.SpeciesBean) {
			t.Errorf("plant %d labeled %q, want bean", id, v)
		}
	}

	if st.FallbackLabeled != 0 {
		t.Errorf("%d primitives needed the fallback label", st.FallbackLabeled)
	}
	if st.Primitives != rt.scene.PrimitiveCount() {
		t.Errorf("recorded %d primitives, scene has %d", st.Primitives, rt.scene.PrimitiveCount())
	}
	if st.Primitives <= len(st.Ground) {
		t.Errorf("primitive count %d not above ground count %d", st.Primitives, len(st.Ground))
	}

	if st.Solar == nil {
		t.Fatal("no solar record")
	}
	if st.Solar.ElevationDeg < 45 {
		t.Errorf("midsummer noon elevation %.1f, want above 45", st.Solar.ElevationDeg)
	}
	if st.Solar.FluxWm2 <= 0 {
		t.Errorf("daytime flux %.1f, want positive", st.Solar.FluxWm2)
	}
	if st.OutputDir != "" {
		t.Errorf("output dir %q allocated without save", st.OutputDir)
	}
}

func TestPipelineImagingWithoutSave(t *testing.T) {
	rt := &captureRuntime{inner: stubengine.New()}
	cfg := DefaultRunConfig()
	cfg.Imaging.Enabled = true
	cfg.Imaging.Segmentation = true
	out := filepath.Join(t.TempDir(), "out")
	cfg.Export.OutputDir = out

	p, err := NewPipeline(cfg, rt, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	st, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertStage(t, st, StageLabels, StageOK)
	assertStage(t, st, StageImage, StageOK)
	assertStage(t, st, StageExport, StageSkipped)

	if len(st.Images) != 0 {
		t.Errorf("images recorded without save: %v", st.Images)
	}
	if st.OutputDir != "" {
		t.Errorf("output dir %q allocated without save", st.OutputDir)
	}
	if _, serr := os.Stat(out); !errors.Is(serr, fs.ErrNotExist) {
		t.Errorf("output base created without save (stat err %v)", serr)
	}

	wantBands := []string{"Red", "Green", "Blue"}
	got := rt.scene.LastRunBands()
	if len(got) != len(wantBands) {
		t.Fatalf("simulated bands %v, want %v", got, wantBands)
	}
	for i, b := range wantBands {
		if got[i] != b {
			t.Fatalf("simulated bands %v, want %v", got, wantBands)
		}
	}

	// Optics landed on the primitives even though nothing was persisted.
	if v, ok := rt.scene.FloatData(st.Ground[0], ReflectivityKey("Red")); !ok || v != 0.35 {
		t.Errorf("ground red reflectivity = %v (ok %v), want 0.35", v, ok)
	}
	for _, prims := range st.InstancePrims {
		if v, ok := rt.scene.FloatData(prims[0], ReflectivityKey("Green")); !ok || v != 0.35 {
			t.Errorf("vegetation green reflectivity = %v (ok %v), want 0.35", v, ok)
		}
		break
	}
}

func TestPipelineSavedRunWritesArtifacts(t *testing.T) {
	rt := &captureRuntime{inner: stubengine.New()}
	cfg := DefaultRunConfig()
	cfg.Imaging.Enabled = true
	cfg.Imaging.Segmentation = true
	cfg.Export.Save = true
	cfg.Export.OutputDir = filepath.Join(t.TempDir(), "runs")

	p, err := NewPipeline(cfg, rt, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	st, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDir := filepath.Join(cfg.Export.OutputDir, "1")
	if st.OutputDir != wantDir {
		t.Fatalf("output dir %q, want %q", st.OutputDir, wantDir)
	}
	wantImages := []string{
		filepath.Join(ImagesDirName, "rgb.jpeg"),
		filepath.Join(ImagesDirName, "rgb_normalized.jpeg"),
		filepath.Join(ImagesDirName, SegmentationName),
	}
	if len(st.Images) != len(wantImages) {
		t.Fatalf("images = %v, want %v", st.Images, wantImages)
	}
	for i, want := range wantImages {
		if st.Images[i] != want {
			t.Fatalf("images = %v, want %v", st.Images, wantImages)
		}
	}

	files := append([]string{PLYName, OBJName, ManifestName}, wantImages...)
	for _, f := range files {
		if _, serr := os.Stat(filepath.Join(st.OutputDir, f)); serr != nil {
			t.Errorf("artifact %s: %v", f, serr)
		}
	}
	assertStage(t, st, StageExport, StageOK)
}

func TestPipelineCapabilityProbe(t *testing.T) {
	tests := []struct {
		name      string
		caps      []engine.Capability
		imaging   bool
		wantAbort bool
	}{
		{
			name: "radiation optional without imaging",
			caps: []engine.Capability{engine.CapGrowth, engine.CapViewer, engine.CapSolar},
		},
		{
			name:      "radiation required for imaging",
			caps:      []engine.Capability{engine.CapGrowth, engine.CapViewer, engine.CapSolar},
			imaging:   true,
			wantAbort: true,
		},
		{
			name:      "solar always required",
			caps:      []engine.Capability{engine.CapGrowth, engine.CapViewer, engine.CapRadiation},
			wantAbort: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &captureRuntime{inner: stubengine.NewWithCapabilities(tt.caps...)}
			cfg := DefaultRunConfig()
			cfg.Imaging.Enabled = tt.imaging

			p, err := NewPipeline(cfg, rt, nil, nil, nil)
			if err != nil {
				t.Fatalf("NewPipeline: %v", err)
			}
			st, err := p.Run(context.Background())
			if !tt.wantAbort {
				if err != nil {
					t.Fatalf("Run: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrRunAborted) || !errors.Is(err, engine.ErrCapabilityMissing) {
				t.Fatalf("err = %v, want run-aborted wrapping capability-missing", err)
			}
			assertStage(t, st, StageInit, StageFailed)
			if rt.scene != nil {
				t.Error("scene opened despite failed probe")
			}
		})
	}
}

func TestPipelineExportFailureDegrades(t *testing.T) {
	rt := &captureRuntime{inner: stubengine.New()}
	cfg := DefaultRunConfig()
	cfg.Export.Save = true
	base := filepath.Join(t.TempDir(), "base")
	if err := os.WriteFile(base, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Export.OutputDir = base // a file, so run dir allocation fails

	p, err := NewPipeline(cfg, rt, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	st, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run aborted on a non-fatal stage: %v", err)
	}
	assertStage(t, st, StageExport, StageFailed)
	if !st.Failed() {
		t.Error("degraded run not reported")
	}
	if st.OutputDir != "" {
		t.Errorf("output dir %q recorded after failed allocation", st.OutputDir)
	}
}

func TestPipelineCancellationSkipsRemainder(t *testing.T) {
	rt := &captureRuntime{inner: stubengine.New()}
	cfg := DefaultRunConfig()

	p, err := NewPipeline(cfg, rt, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := p.Run(ctx)
	if !errors.Is(err, ErrRunAborted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want run-aborted wrapping canceled", err)
	}

	assertStage(t, st, StageInit, StageOK)
	assertStage(t, st, StageScene, StageFailed)
	for _, s := range []Stage{StageLabels, StageSolar, StageImage, StageExport, StageViewer} {
		assertStage(t, st, s, StageSkipped)
	}
	if got := len(st.Outcomes); got != len(Stages()) {
		t.Errorf("recorded %d outcomes, want %d", got, len(Stages()))
	}
}

func TestPipelineInteractiveViewer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sky.jpg"), []byte("jpg"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		skyDome bool
		assets  AssetResolver
	}{
		{name: "flat background"},
		{name: "sky texture missing falls back", skyDome: true},
		{name: "sky texture resolved", skyDome: true, assets: DirResolver(dir)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &captureRuntime{inner: stubengine.New()}
			cfg := DefaultRunConfig()
			cfg.Viewer.Interactive = true
			cfg.Viewer.ShowGrid = true
			cfg.Viewer.UseSkyDome = tt.skyDome
			cfg.Viewer.SkyTexture = "sky.jpg"

			p, err := NewPipeline(cfg, rt, tt.assets, nil, nil)
			if err != nil {
				t.Fatalf("NewPipeline: %v", err)
			}
			st, err := p.Run(context.Background())
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			assertStage(t, st, StageViewer, StageOK)
		})
	}
}

func TestStageCriticality(t *testing.T) {
	cfg := DefaultRunConfig()
	crit := StageCriticality(cfg)
	if !crit[StageInit] {
		t.Error("init not critical")
	}
	if crit[StageSolar] {
		t.Error("solar critical without imaging or viewer")
	}
	if crit[StageScene] || crit[StageExport] {
		t.Error("non-fatal stage marked critical")
	}

	cfg.Imaging.Enabled = true
	if !StageCriticality(cfg)[StageSolar] {
		t.Error("solar not critical with imaging on")
	}

	cfg = DefaultRunConfig()
	cfg.Viewer.Interactive = true
	if !StageCriticality(cfg)[StageSolar] {
		t.Error("solar not critical with viewer on")
	}
}

func TestNewPipelineRejects(t *testing.T) {
	rt := stubengine.New()

	bad := DefaultRunConfig()
	bad.Layout.Rows = 0
	if _, err := NewPipeline(bad, rt, nil, nil, nil); err == nil {
		t.Error("invalid config accepted")
	}

	if _, err := NewPipeline(DefaultRunConfig(), nil, nil, nil, nil); err == nil {
		t.Error("nil runtime accepted")
	}
}
