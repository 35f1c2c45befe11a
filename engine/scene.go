package engine

import (
	"context"

	"github.com/agrisight/intercrop-scenegen/model"
)

// Scene is one engine scene session: the primitive store plus factories for
// the per-stage worker sessions. Scenes are not safe for concurrent use; the
// pipeline drives a scene from a single goroutine and engine calls block
// until done.
type Scene interface {
	// AddPatch creates a single rectangular patch lying in the ground
	// plane, centred at center, and returns its identity.
	AddPatch(center model.Vec3, sizeX, sizeY float64, color model.RGB) (PrimitiveID, error)
	// AddTexturedGround covers a sizeX by sizeY rectangle anchored at
	// origin with textured geometry slightly above the ground plane (so it
	// never z-fights the obstacle patch underneath). repeat is the texture
	// tiling factor.
	AddTexturedGround(origin model.Vec3, sizeX, sizeY float64, texturePath string, repeat float64) ([]PrimitiveID, error)
	// AddTile creates a subdivided flat tile, the untextured soil
	// fallback.
	AddTile(center model.Vec3, sizeX, sizeY float64, subdiv int, color model.RGB) ([]PrimitiveID, error)

	// SetString attaches string primitive data under key to every listed
	// primitive.
	SetString(ids []PrimitiveID, key, value string) error
	// SetFloat attaches float primitive data under key to every listed
	// primitive.
	SetFloat(ids []PrimitiveID, key string, value float64) error

	// Primitives returns a snapshot of every primitive identity in the
	// scene.
	Primitives() []PrimitiveID
	PrimitiveCount() int

	WritePLY(path string) error
	WriteOBJ(path string) error

	Growth() (GrowthSession, error)
	Radiation() (RadiationSession, error)
	Viewer(opts ViewerOptions) (ViewerSession, error)

	Close() error
}

// GrowthSession drives the procedural plant-architecture module for one
// scene. Sessions hold engine resources and must be closed when the build
// stage ends, success or not.
type GrowthSession interface {
	// LoadSpecies loads the species' model from the plant library. Must be
	// called before the first BuildInstance of that species.
	LoadSpecies(s model.Species) error
	// BuildInstance creates one plant of the species at pos with the given
	// starting age in days.
	BuildInstance(s model.Species, pos model.Vec3, ageDays float64) (PlantID, error)
	// EnableCollision turns on soft collision avoidance with the given
	// tuning and registers the ground primitives as solid obstacles.
	EnableCollision(cfg model.CollisionConfig, ground []PrimitiveID) error
	// Advance grows every built plant forward by days, with collision
	// avoidance active if enabled. Blocking.
	Advance(ctx context.Context, days float64) error
	// PlantPrimitives returns the primitive identities currently belonging
	// to the plant, including organs added during growth.
	PlantPrimitives(id PlantID) ([]PrimitiveID, error)
	Close() error
}

// CameraPlacement describes one radiation camera.
type CameraPlacement struct {
	Label     string
	Bands     []string
	Position  model.Vec3
	LookAt    model.Vec3
	Props     model.CameraProperties
	AASamples int
}

// RadiationSession drives the ray-tracing module for one scene.
type RadiationSession interface {
	AddBand(b model.Band) error
	// AddSunSphereSource places a spherical sun source at the given zenith
	// and azimuth (degrees) and returns its identity.
	AddSunSphereSource(zenithDeg, azimuthDeg, radius float64) (SourceID, error)
	SetSourceFlux(src SourceID, band string, fluxWm2 float64) error
	SetDiffuseFlux(band string, fluxWm2 float64) error
	SetRayCounts(band string, direct, diffuse int) error
	SetScatteringDepth(band string, depth int) error
	SetEmission(band string, on bool) error
	AddCamera(cam CameraPlacement) error
	// UpdateGeometry pushes current scene geometry to the ray tracer.
	UpdateGeometry(ctx context.Context) error
	// Run simulates every named band in one batched call. Per-band calls
	// repay the device setup cost once per band; batching pays it once.
	Run(ctx context.Context, bands []string) error
	// WriteImage renders the camera's view of the listed bands to
	// dir/<base>.jpeg and returns the file name written.
	WriteImage(camera, base, dir string, bands []string) (string, error)
	// WriteNormalizedImage is WriteImage with per-band brightness
	// auto-scaling.
	WriteNormalizedImage(camera, base, dir string, bands []string) (string, error)
	// WriteSegmentation writes a COCO-style annotation built from the
	// string primitive data under dataKey, referencing imageFile.
	WriteSegmentation(camera, dataKey string, classID int, jsonPath, imageFile string) error
	Close() error
}

// ViewerOptions configures an interactive viewer window.
type ViewerOptions struct {
	WidthPx   int
	HeightPx  int
	AASamples int
}

// LightingModel selects the viewer's shading.
type LightingModel string

const (
	LightingNone          LightingModel = "none"
	LightingPhong         LightingModel = "phong"
	LightingPhongShadowed LightingModel = "phong_shadowed"
)

// ViewerSession drives the interactive 3-D viewer for one scene.
type ViewerSession interface {
	// BuildGeometry loads the scene's current geometry into the viewer.
	BuildGeometry() error
	SetBackgroundColor(c model.RGB) error
	SetBackgroundSky(texturePath string) error
	SetLight(direction model.Vec3, intensity float64) error
	SetLightingModel(m LightingModel) error
	AddGridWireframe(center model.Vec3, sizeX, sizeY float64, subdiv int) error
	SetCamera(position, lookAt model.Vec3) error
	// Show runs the interactive loop. It blocks until the window closes or
	// ctx is cancelled.
	Show(ctx context.Context) error
	Close() error
}
