// Package engine defines the boundary to the procedural-plant and
// ray-tracing backend. The pipeline only ever talks to these interfaces; a
// concrete runtime (GPU-accelerated, out of tree) or the in-process stub
// (package stubengine) provides them. Runtimes register themselves by name,
// database/sql style, and are opened by the pipeline at INIT.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Capability identifies an engine module a runtime may provide. The
// pipeline probes for the capabilities a run needs before any scene work
// starts; building half a scene against a runtime that cannot grow plants
// helps nobody.
type Capability string

const (
	CapGrowth    Capability = "growth"
	CapRadiation Capability = "radiation"
	CapViewer    Capability = "viewer"
	CapSolar     Capability = "solar"
)

// PrimitiveID is an opaque handle to one geometric primitive in a scene.
type PrimitiveID uint32

// PlantID is an opaque handle to one built plant instance.
type PlantID uint32

// SourceID is an opaque handle to a radiation source.
type SourceID uint32

var (
	ErrUnknownRuntime    = errors.New("engine: unknown runtime")
	ErrCapabilityMissing = errors.New("engine: required capability missing")
	ErrSceneClosed       = errors.New("engine: scene closed")
	ErrUnknownPlant      = errors.New("engine: unknown plant")
)

// SceneConfig seeds a new scene session.
type SceneConfig struct {
	// Seed drives engine-internal stochasticity (organ geometry and the
	// like) so repeated runs produce identical scenes.
	Seed int64
}

// Runtime is a handle to an engine backend. A runtime is opened once per
// process and can serve multiple scene sessions over its lifetime.
type Runtime interface {
	Name() string
	Has(c Capability) bool
	NewScene(cfg SceneConfig) (Scene, error)
	Close() error
}

// Probe checks the runtime for every wanted capability and returns an error
// wrapping ErrCapabilityMissing that names all the absent ones.
func Probe(rt Runtime, want ...Capability) error {
	var missing []string
	for _, c := range want {
		if !rt.Has(c) {
			missing = append(missing, string(c))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: runtime %q lacks %s", ErrCapabilityMissing, rt.Name(), strings.Join(missing, ", "))
}
