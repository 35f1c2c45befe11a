// Package stubengine is an in-process engine backend that does bookkeeping
// instead of simulation. It allocates primitive and plant identities, stores
// primitive data, and writes small but well-formed artifacts (PLY, OBJ,
// JPEG, COCO JSON), which is enough to run the whole pipeline end to end in
// tests and CI. It grows no geometry and traces no rays; hardware-backed
// runtimes live out of tree and register themselves the same way.
package stubengine

import (
	"math/rand"
	"sync"

	"github.com/agrisight/intercrop-scenegen/engine"
)

// Name is the registry name of this backend.
const Name = "stub"

func init() {
	engine.Register(Name, func() (engine.Runtime, error) {
		return New(), nil
	})
}

// Runtime implements engine.Runtime with every capability present.
type Runtime struct {
	caps map[engine.Capability]bool
}

// New returns a runtime advertising all capabilities.
func New() *Runtime {
	return NewWithCapabilities(
		engine.CapGrowth,
		engine.CapRadiation,
		engine.CapViewer,
		engine.CapSolar,
	)
}

// NewWithCapabilities returns a runtime advertising only the given
// capabilities. Tests use it to exercise the pipeline's capability probe.
func NewWithCapabilities(caps ...engine.Capability) *Runtime {
	m := make(map[engine.Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return &Runtime{caps: m}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) Has(c engine.Capability) bool { return r.caps[c] }

// NewScene opens a fresh in-memory scene session.
func (r *Runtime) NewScene(cfg engine.SceneConfig) (engine.Scene, error) {
	return &Scene{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		prims:  make(map[engine.PrimitiveID]*primitive),
		plants: make(map[engine.PlantID]*plant),
	}, nil
}

func (r *Runtime) Close() error { return nil }

// Scene is the stub's in-memory primitive and plant store. All methods are
// safe for concurrent use, though the pipeline drives a scene from one
// goroutine.
type Scene struct {
	mu     sync.RWMutex
	closed bool

	rng *rand.Rand

	nextPrim  engine.PrimitiveID
	primOrder []engine.PrimitiveID
	prims     map[engine.PrimitiveID]*primitive

	nextPlant engine.PlantID
	plants    map[engine.PlantID]*plant

	lastRunBands []string
}

type primitive struct {
	strData   map[string]string
	floatData map[string]float64
}

type plant struct {
	species      string
	ageDays      float64
	organsPerDay int
	prims        []engine.PrimitiveID
}
