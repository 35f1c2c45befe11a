package stubengine

import (
	"fmt"
	"os"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

func (s *Scene) allocPrimLocked() engine.PrimitiveID {
	s.nextPrim++
	id := s.nextPrim
	s.prims[id] = &primitive{
		strData:   make(map[string]string),
		floatData: make(map[string]float64),
	}
	s.primOrder = append(s.primOrder, id)
	return id
}

// AddPatch allocates a single primitive. The stub keeps no geometry, only
// the identity.
func (s *Scene) AddPatch(center model.Vec3, sizeX, sizeY float64, color model.RGB) (engine.PrimitiveID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, engine.ErrSceneClosed
	}
	return s.allocPrimLocked(), nil
}

// AddTexturedGround allocates two primitives, one per triangle of the
// textured quad.
func (s *Scene) AddTexturedGround(origin model.Vec3, sizeX, sizeY float64, texturePath string, repeat float64) ([]engine.PrimitiveID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, engine.ErrSceneClosed
	}
	if texturePath == "" {
		return nil, fmt.Errorf("stubengine: empty texture path")
	}
	ids := []engine.PrimitiveID{s.allocPrimLocked(), s.allocPrimLocked()}
	return ids, nil
}

// AddTile allocates subdiv by subdiv subpatch primitives.
func (s *Scene) AddTile(center model.Vec3, sizeX, sizeY float64, subdiv int, color model.RGB) ([]engine.PrimitiveID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, engine.ErrSceneClosed
	}
	if subdiv < 1 {
		subdiv = 1
	}
	ids := make([]engine.PrimitiveID, 0, subdiv*subdiv)
	for i := 0; i < subdiv*subdiv; i++ {
		ids = append(ids, s.allocPrimLocked())
	}
	return ids, nil
}

func (s *Scene) SetString(ids []engine.PrimitiveID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return engine.ErrSceneClosed
	}
	for _, id := range ids {
		p, ok := s.prims[id]
		if !ok {
			return fmt.Errorf("stubengine: set string on unknown primitive %d", id)
		}
		p.strData[key] = value
	}
	return nil
}

func (s *Scene) SetFloat(ids []engine.PrimitiveID, key string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return engine.ErrSceneClosed
	}
	for _, id := range ids {
		p, ok := s.prims[id]
		if !ok {
			return fmt.Errorf("stubengine: set float on unknown primitive %d", id)
		}
		p.floatData[key] = value
	}
	return nil
}

// Primitives returns every primitive identity in allocation order.
func (s *Scene) Primitives() []engine.PrimitiveID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.PrimitiveID, len(s.primOrder))
	copy(out, s.primOrder)
	return out
}

func (s *Scene) PrimitiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.primOrder)
}

// WritePLY writes a valid, geometry-free PLY file recording the primitive
// count in a header comment.
func (s *Scene) WritePLY(path string) error {
	s.mu.RLock()
	n := len(s.primOrder)
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return engine.ErrSceneClosed
	}
	body := fmt.Sprintf(`ply
format ascii 1.0
comment stub scene export, %d primitives
element vertex 0
property float x
property float y
property float z
element face 0
property list uchar int vertex_indices
end_header
`, n)
	return os.WriteFile(path, []byte(body), 0o644)
}

// WriteOBJ writes a valid, geometry-free OBJ file.
func (s *Scene) WriteOBJ(path string) error {
	s.mu.RLock()
	n := len(s.primOrder)
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return engine.ErrSceneClosed
	}
	body := fmt.Sprintf("# stub scene export, %d primitives\no scene\n", n)
	return os.WriteFile(path, []byte(body), 0o644)
}

func (s *Scene) Growth() (engine.GrowthSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, engine.ErrSceneClosed
	}
	return &growthSession{scene: s, loaded: make(map[model.Species]bool)}, nil
}

func (s *Scene) Radiation() (engine.RadiationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, engine.ErrSceneClosed
	}
	return &radiationSession{
		scene:   s,
		bands:   make(map[string]model.Band),
		sources: make(map[engine.SourceID]bool),
	}, nil
}

func (s *Scene) Viewer(opts engine.ViewerOptions) (engine.ViewerSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, engine.ErrSceneClosed
	}
	return &viewerSession{scene: s, opts: opts}, nil
}

func (s *Scene) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ---- Introspection for tests ----

// StringData returns the string primitive data stored under key, if any.
func (s *Scene) StringData(id engine.PrimitiveID, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[id]
	if !ok {
		return "", false
	}
	v, ok := p.strData[key]
	return v, ok
}

// FloatData returns the float primitive data stored under key, if any.
func (s *Scene) FloatData(id engine.PrimitiveID, key string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prims[id]
	if !ok {
		return 0, false
	}
	v, ok := p.floatData[key]
	return v, ok
}

// PlantSpecies returns a snapshot of plant identity to species name.
func (s *Scene) PlantSpecies() map[engine.PlantID]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[engine.PlantID]string, len(s.plants))
	for id, p := range s.plants {
		out[id] = p.species
	}
	return out
}

// LastRunBands returns the band list of the most recent radiation run.
func (s *Scene) LastRunBands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.lastRunBands))
	copy(out, s.lastRunBands)
	return out
}
