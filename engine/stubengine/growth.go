package stubengine

import (
	"context"
	"fmt"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

type growthSession struct {
	scene  *Scene
	loaded map[model.Species]bool
	closed bool
}

func (g *growthSession) LoadSpecies(s model.Species) error {
	if g.closed {
		return engine.ErrSceneClosed
	}
	if !s.Valid() {
		return fmt.Errorf("stubengine: species %q not in library", s)
	}
	g.loaded[s] = true
	return nil
}

// BuildInstance allocates a plant with a few seedling primitives. Organ
// counts come from the scene's seeded source so identical seeds produce
// identical identity layouts.
func (g *growthSession) BuildInstance(s model.Species, pos model.Vec3, ageDays float64) (engine.PlantID, error) {
	if g.closed {
		return 0, engine.ErrSceneClosed
	}
	if !g.loaded[s] {
		return 0, fmt.Errorf("stubengine: species %q not loaded", s)
	}
	if ageDays < 0 {
		return 0, fmt.Errorf("stubengine: negative age %.2f", ageDays)
	}

	sc := g.scene
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return 0, engine.ErrSceneClosed
	}

	sc.nextPlant++
	p := &plant{
		species:      string(s),
		ageDays:      ageDays,
		organsPerDay: 2 + sc.rng.Intn(3),
	}
	seedling := 2 + sc.rng.Intn(3)
	for i := 0; i < seedling; i++ {
		p.prims = append(p.prims, sc.allocPrimLocked())
	}
	sc.plants[sc.nextPlant] = p
	return sc.nextPlant, nil
}

func (g *growthSession) EnableCollision(cfg model.CollisionConfig, ground []engine.PrimitiveID) error {
	if g.closed {
		return engine.ErrSceneClosed
	}
	if cfg.Enabled && cfg.SampleCount <= 0 {
		return fmt.Errorf("stubengine: collision sample count %d", cfg.SampleCount)
	}
	sc := g.scene
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	for _, id := range ground {
		if _, ok := sc.prims[id]; !ok {
			return fmt.Errorf("stubengine: ground obstacle %d unknown", id)
		}
	}
	return nil
}

// Advance ages every plant and allocates the organ primitives the plant
// would have grown. No geometry is produced.
func (g *growthSession) Advance(ctx context.Context, days float64) error {
	if g.closed {
		return engine.ErrSceneClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("stubengine: negative growth time %.2f", days)
	}

	sc := g.scene
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return engine.ErrSceneClosed
	}
	for _, p := range sc.plants {
		grown := int(days * float64(p.organsPerDay))
		for i := 0; i < grown; i++ {
			p.prims = append(p.prims, sc.allocPrimLocked())
		}
		p.ageDays += days
	}
	return nil
}

func (g *growthSession) PlantPrimitives(id engine.PlantID) ([]engine.PrimitiveID, error) {
	if g.closed {
		return nil, engine.ErrSceneClosed
	}
	sc := g.scene
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	p, ok := sc.plants[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", engine.ErrUnknownPlant, id)
	}
	out := make([]engine.PrimitiveID, len(p.prims))
	copy(out, p.prims)
	return out, nil
}

func (g *growthSession) Close() error {
	g.closed = true
	return nil
}
