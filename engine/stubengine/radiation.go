package stubengine

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

type radiationSession struct {
	scene   *Scene
	bands   map[string]model.Band
	sources map[engine.SourceID]bool
	cameras map[string]engine.CameraPlacement

	nextSource  engine.SourceID
	geomCurrent bool
	ran         bool
	closed      bool
}

func (r *radiationSession) AddBand(b model.Band) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if b.Name == "" || b.MinNm >= b.MaxNm {
		return fmt.Errorf("stubengine: malformed band %+v", b)
	}
	r.bands[b.Name] = b
	return nil
}

func (r *radiationSession) AddSunSphereSource(zenithDeg, azimuthDeg, radius float64) (engine.SourceID, error) {
	if r.closed {
		return 0, engine.ErrSceneClosed
	}
	if radius <= 0 {
		return 0, fmt.Errorf("stubengine: sun sphere radius %.2f", radius)
	}
	r.nextSource++
	r.sources[r.nextSource] = true
	return r.nextSource, nil
}

func (r *radiationSession) SetSourceFlux(src engine.SourceID, band string, fluxWm2 float64) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if !r.sources[src] {
		return fmt.Errorf("stubengine: unknown source %d", src)
	}
	return r.checkBand(band)
}

func (r *radiationSession) SetDiffuseFlux(band string, fluxWm2 float64) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	return r.checkBand(band)
}

func (r *radiationSession) SetRayCounts(band string, direct, diffuse int) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if direct <= 0 || diffuse <= 0 {
		return fmt.Errorf("stubengine: ray counts %d/%d", direct, diffuse)
	}
	return r.checkBand(band)
}

func (r *radiationSession) SetScatteringDepth(band string, depth int) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if depth < 0 {
		return fmt.Errorf("stubengine: scattering depth %d", depth)
	}
	return r.checkBand(band)
}

func (r *radiationSession) SetEmission(band string, on bool) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	return r.checkBand(band)
}

func (r *radiationSession) AddCamera(cam engine.CameraPlacement) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if cam.Label == "" {
		return fmt.Errorf("stubengine: camera label empty")
	}
	for _, b := range cam.Bands {
		if err := r.checkBand(b); err != nil {
			return err
		}
	}
	if r.cameras == nil {
		r.cameras = make(map[string]engine.CameraPlacement)
	}
	r.cameras[cam.Label] = cam
	return nil
}

func (r *radiationSession) UpdateGeometry(ctx context.Context) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.geomCurrent = true
	return nil
}

// Run records the batch. The stub renders nothing; image writes later
// produce flat frames.
func (r *radiationSession) Run(ctx context.Context, bands []string) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(bands) == 0 {
		return fmt.Errorf("stubengine: run with no bands")
	}
	for _, b := range bands {
		if err := r.checkBand(b); err != nil {
			return err
		}
	}
	if !r.geomCurrent {
		return fmt.Errorf("stubengine: run before geometry update")
	}
	r.ran = true

	sc := r.scene
	sc.mu.Lock()
	sc.lastRunBands = append([]string(nil), bands...)
	sc.mu.Unlock()
	return nil
}

func (r *radiationSession) WriteImage(camera, base, dir string, bands []string) (string, error) {
	return r.writeFlatImage(camera, base, dir, bands)
}

func (r *radiationSession) WriteNormalizedImage(camera, base, dir string, bands []string) (string, error) {
	return r.writeFlatImage(camera, base, dir, bands)
}

func (r *radiationSession) writeFlatImage(camera, base, dir string, bands []string) (string, error) {
	if r.closed {
		return "", engine.ErrSceneClosed
	}
	cam, err := r.lookupCamera(camera)
	if err != nil {
		return "", err
	}
	if !r.ran {
		return "", fmt.Errorf("stubengine: image write before run")
	}
	for _, b := range bands {
		if err := r.checkBand(b); err != nil {
			return "", err
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, cam.Props.WidthPx, cam.Props.HeightPx))
	flat := color.RGBA{R: 120, G: 120, B: 120, A: 255}
	for y := 0; y < cam.Props.HeightPx; y++ {
		for x := 0; x < cam.Props.WidthPx; x++ {
			img.SetRGBA(x, y, flat)
		}
	}

	name := base + ".jpeg"
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return name, nil
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type cocoAnnotationFile struct {
	Images      []cocoImage    `json:"images"`
	Annotations []struct{}     `json:"annotations"`
	Categories  []cocoCategory `json:"categories"`
}

// WriteSegmentation writes a COCO-style annotation whose categories are the
// distinct values stored under dataKey. The stub renders no masks, so the
// annotation list is empty but structurally valid.
func (r *radiationSession) WriteSegmentation(camera, dataKey string, classID int, jsonPath, imageFile string) error {
	if r.closed {
		return engine.ErrSceneClosed
	}
	cam, err := r.lookupCamera(camera)
	if err != nil {
		return err
	}
	if !r.ran {
		return fmt.Errorf("stubengine: segmentation write before run")
	}

	sc := r.scene
	sc.mu.RLock()
	seen := make(map[string]bool)
	for _, p := range sc.prims {
		if v, ok := p.strData[dataKey]; ok {
			seen[v] = true
		}
	}
	sc.mu.RUnlock()

	labels := make([]string, 0, len(seen))
	for v := range seen {
		labels = append(labels, v)
	}
	sort.Strings(labels)

	out := cocoAnnotationFile{
		Images: []cocoImage{{
			ID:       1,
			FileName: imageFile,
			Width:    cam.Props.WidthPx,
			Height:   cam.Props.HeightPx,
		}},
		Annotations: []struct{}{},
	}
	for i, name := range labels {
		out.Categories = append(out.Categories, cocoCategory{
			ID:            classID + i,
			Name:          name,
			Supercategory: dataKey,
		})
	}

	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal annotation: %w", err)
	}
	return os.WriteFile(jsonPath, body, 0o644)
}

func (r *radiationSession) Close() error {
	r.closed = true
	return nil
}

func (r *radiationSession) checkBand(name string) error {
	if _, ok := r.bands[name]; !ok {
		return fmt.Errorf("stubengine: band %q not registered", name)
	}
	return nil
}

func (r *radiationSession) lookupCamera(label string) (engine.CameraPlacement, error) {
	cam, ok := r.cameras[label]
	if !ok {
		return engine.CameraPlacement{}, fmt.Errorf("stubengine: camera %q not registered", label)
	}
	return cam, nil
}
