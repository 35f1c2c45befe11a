package stubengine

import (
	"context"
	"encoding/json"
	"errors"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

func newScene(t *testing.T, seed int64) *Scene {
	t.Helper()
	sc, err := New().NewScene(engine.SceneConfig{Seed: seed})
	if err != nil {
		t.Fatalf("NewScene error: %v", err)
	}
	return sc.(*Scene)
}

func buildPlants(t *testing.T, sc *Scene, n int) []engine.PlantID {
	t.Helper()
	g, err := sc.Growth()
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	defer g.Close()
	if err := g.LoadSpecies(model.SpeciesBean); err != nil {
		t.Fatalf("LoadSpecies error: %v", err)
	}
	ids := make([]engine.PlantID, 0, n)
	for i := 0; i < n; i++ {
		id, err := g.BuildInstance(model.SpeciesBean, model.Vec3{X: float64(i)}, 5)
		if err != nil {
			t.Fatalf("BuildInstance error: %v", err)
		}
		ids = append(ids, id)
	}
	if err := g.Advance(context.Background(), 10); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	return ids
}

func TestSceneDeterministicForSeed(t *testing.T) {
	a := newScene(t, 42)
	b := newScene(t, 42)
	buildPlants(t, a, 5)
	buildPlants(t, b, 5)

	if a.PrimitiveCount() != b.PrimitiveCount() {
		t.Fatalf("primitive counts differ: %d vs %d", a.PrimitiveCount(), b.PrimitiveCount())
	}
	ga, _ := a.Growth()
	gb, _ := b.Growth()
	for id := engine.PlantID(1); id <= 5; id++ {
		pa, err := ga.PlantPrimitives(id)
		if err != nil {
			t.Fatalf("PlantPrimitives error: %v", err)
		}
		pb, err := gb.PlantPrimitives(id)
		if err != nil {
			t.Fatalf("PlantPrimitives error: %v", err)
		}
		if len(pa) != len(pb) {
			t.Fatalf("plant %d primitive counts differ: %d vs %d", id, len(pa), len(pb))
		}
	}
}

func TestAdvanceGrowsOrganCounts(t *testing.T) {
	sc := newScene(t, 1)
	g, err := sc.Growth()
	if err != nil {
		t.Fatalf("Growth error: %v", err)
	}
	defer g.Close()
	if err := g.LoadSpecies(model.SpeciesWheat); err != nil {
		t.Fatalf("LoadSpecies error: %v", err)
	}
	id, err := g.BuildInstance(model.SpeciesWheat, model.Vec3{}, 5)
	if err != nil {
		t.Fatalf("BuildInstance error: %v", err)
	}
	before, _ := g.PlantPrimitives(id)
	if err := g.Advance(context.Background(), 35); err != nil {
		t.Fatalf("Advance error: %v", err)
	}
	after, _ := g.PlantPrimitives(id)
	if len(after) <= len(before) {
		t.Fatalf("organ count did not grow: %d -> %d", len(before), len(after))
	}
}

func TestBuildRequiresLoadedSpecies(t *testing.T) {
	sc := newScene(t, 1)
	g, _ := sc.Growth()
	defer g.Close()
	if _, err := g.BuildInstance(model.SpeciesBean, model.Vec3{}, 5); err == nil {
		t.Fatal("BuildInstance before LoadSpecies succeeded")
	}
}

func TestSetStringOnUnknownPrimitive(t *testing.T) {
	sc := newScene(t, 1)
	if err := sc.SetString([]engine.PrimitiveID{99}, "plant_part", "bean"); err == nil {
		t.Fatal("SetString on unknown primitive succeeded")
	}
}

func TestClosedSceneRejectsMutation(t *testing.T) {
	sc := newScene(t, 1)
	id, err := sc.AddPatch(model.Vec3{}, 1, 1, model.RGB{})
	if err != nil {
		t.Fatalf("AddPatch error: %v", err)
	}
	if err := sc.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := sc.AddPatch(model.Vec3{}, 1, 1, model.RGB{}); !errors.Is(err, engine.ErrSceneClosed) {
		t.Errorf("AddPatch after close: err = %v, want ErrSceneClosed", err)
	}
	if err := sc.SetString([]engine.PrimitiveID{id}, "k", "v"); !errors.Is(err, engine.ErrSceneClosed) {
		t.Errorf("SetString after close: err = %v, want ErrSceneClosed", err)
	}
	if _, err := sc.Growth(); !errors.Is(err, engine.ErrSceneClosed) {
		t.Errorf("Growth after close: err = %v, want ErrSceneClosed", err)
	}
}

func TestRadiationRunOrdering(t *testing.T) {
	sc := newScene(t, 1)
	r, err := sc.Radiation()
	if err != nil {
		t.Fatalf("Radiation error: %v", err)
	}
	defer r.Close()

	ctx := context.Background()
	if err := r.Run(ctx, []string{model.BandRed}); err == nil {
		t.Fatal("Run with unregistered band succeeded")
	}
	for _, b := range model.RGBBands() {
		if err := r.AddBand(b); err != nil {
			t.Fatalf("AddBand error: %v", err)
		}
	}
	if err := r.Run(ctx, model.RGBBands().Names()); err == nil {
		t.Fatal("Run before UpdateGeometry succeeded")
	}
	if err := r.UpdateGeometry(ctx); err != nil {
		t.Fatalf("UpdateGeometry error: %v", err)
	}
	if err := r.Run(ctx, model.RGBBands().Names()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	got := sc.LastRunBands()
	if len(got) != 3 || got[0] != model.BandRed {
		t.Fatalf("LastRunBands = %v", got)
	}
}

func TestWriteImageProducesDecodableJPEG(t *testing.T) {
	sc := newScene(t, 1)
	r, _ := sc.Radiation()
	defer r.Close()
	ctx := context.Background()

	for _, b := range model.RGBBands() {
		if err := r.AddBand(b); err != nil {
			t.Fatalf("AddBand error: %v", err)
		}
	}
	props := model.DefaultCameraProperties()
	props.WidthPx, props.HeightPx = 64, 48
	if err := r.AddCamera(engine.CameraPlacement{
		Label:    "nadir_camera",
		Bands:    model.RGBBands().Names(),
		Position: model.Vec3{Z: 2},
		Props:    props,
	}); err != nil {
		t.Fatalf("AddCamera error: %v", err)
	}
	if err := r.UpdateGeometry(ctx); err != nil {
		t.Fatalf("UpdateGeometry error: %v", err)
	}
	if err := r.Run(ctx, model.RGBBands().Names()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	dir := t.TempDir()
	name, err := r.WriteImage("nadir_camera", "rgb", dir, model.RGBBands().Names())
	if err != nil {
		t.Fatalf("WriteImage error: %v", err)
	}
	if name != "rgb.jpeg" {
		t.Fatalf("WriteImage name = %q, want rgb.jpeg", name)
	}
	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("open written image: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode written image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("image bounds = %v, want 64x48", b)
	}
}

func TestWriteSegmentationCategories(t *testing.T) {
	sc := newScene(t, 1)
	ground, err := sc.AddPatch(model.Vec3{}, 1, 1, model.RGB{})
	if err != nil {
		t.Fatalf("AddPatch error: %v", err)
	}
	ids := buildPlants(t, sc, 2)
	if err := sc.SetString([]engine.PrimitiveID{ground}, "plant_part", "ground"); err != nil {
		t.Fatalf("SetString error: %v", err)
	}
	g, _ := sc.Growth()
	for _, id := range ids {
		prims, err := g.PlantPrimitives(id)
		if err != nil {
			t.Fatalf("PlantPrimitives error: %v", err)
		}
		if err := sc.SetString(prims, "plant_part", "bean"); err != nil {
			t.Fatalf("SetString error: %v", err)
		}
	}

	r, _ := sc.Radiation()
	defer r.Close()
	ctx := context.Background()
	for _, b := range model.RGBBands() {
		if err := r.AddBand(b); err != nil {
			t.Fatalf("AddBand error: %v", err)
		}
	}
	if err := r.AddCamera(engine.CameraPlacement{
		Label: "nadir_camera",
		Bands: model.RGBBands().Names(),
		Props: model.DefaultCameraProperties(),
	}); err != nil {
		t.Fatalf("AddCamera error: %v", err)
	}
	if err := r.UpdateGeometry(ctx); err != nil {
		t.Fatalf("UpdateGeometry error: %v", err)
	}
	if err := r.Run(ctx, model.RGBBands().Names()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "segmentation.json")
	if err := r.WriteSegmentation("nadir_camera", "plant_part", 1, path, "rgb.jpeg"); err != nil {
		t.Fatalf("WriteSegmentation error: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read annotation: %v", err)
	}
	var out struct {
		Images []struct {
			FileName string `json:"file_name"`
		} `json:"images"`
		Categories []struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("unmarshal annotation: %v", err)
	}
	if len(out.Images) != 1 || out.Images[0].FileName != "rgb.jpeg" {
		t.Fatalf("images = %+v", out.Images)
	}
	if len(out.Categories) != 2 {
		t.Fatalf("categories = %+v, want bean and ground", out.Categories)
	}
	if out.Categories[0].Name != "bean" || out.Categories[1].Name != "ground" {
		t.Fatalf("category order = %+v, want sorted names", out.Categories)
	}
	if out.Categories[0].ID != 1 || out.Categories[1].ID != 2 {
		t.Fatalf("category ids = %+v, want 1,2", out.Categories)
	}
}

func TestViewerShowRequiresBuild(t *testing.T) {
	sc := newScene(t, 1)
	v, err := sc.Viewer(engine.ViewerOptions{WidthPx: 320, HeightPx: 200})
	if err != nil {
		t.Fatalf("Viewer error: %v", err)
	}
	defer v.Close()
	if err := v.Show(context.Background()); err == nil {
		t.Fatal("Show before BuildGeometry succeeded")
	}
	if err := v.BuildGeometry(); err != nil {
		t.Fatalf("BuildGeometry error: %v", err)
	}
	if err := v.Show(context.Background()); err != nil {
		t.Fatalf("Show error: %v", err)
	}
}
