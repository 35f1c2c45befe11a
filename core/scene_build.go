package core

import (
	"context"
	"fmt"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/model"
)

// buildScene realizes the scene: soil, planting layout, plant instances,
// collision-constrained growth. On return st carries the ground primitives,
// the species map, and the per-instance primitive sets captured after
// growth.
func (p *Pipeline) buildScene(ctx context.Context, scene engine.Scene, st *RunState, log logging.Logger) error {
	lcfg := p.cfg.Layout
	soilW := lcfg.PlotWidth + 2*st.Margin
	soilL := lcfg.PlotLength + 2*st.Margin
	center := model.Vec3{X: soilW / 2, Y: soilL / 2}

	// The obstacle patch is the ground surface growth collides against; the
	// textured overlay (or tile fallback) is what cameras see.
	patch, err := scene.AddPatch(center, soilW, soilL, p.cfg.Soil.Color)
	if err != nil {
		return fmt.Errorf("soil patch: %w", err)
	}
	st.Ground = append(st.Ground, patch)

	if path, ok := p.assets(p.cfg.Soil.Texture); ok {
		prims, err := scene.AddTexturedGround(model.Vec3{}, soilW, soilL, path, p.cfg.Soil.TextureRepeat)
		if err != nil {
			return fmt.Errorf("textured soil: %w", err)
		}
		st.Ground = append(st.Ground, prims...)
	} else {
		log.Warn(ctx, "soil texture not found, falling back to flat tile",
			logging.String("texture", p.cfg.Soil.Texture))
		prims, err := scene.AddTile(center, soilW, soilL, p.cfg.Soil.Subdivisions, p.cfg.Soil.Color)
		if err != nil {
			return fmt.Errorf("soil tile: %w", err)
		}
		st.Ground = append(st.Ground, prims...)
	}

	layout, err := GenerateLayout(lcfg)
	if err != nil {
		return err
	}
	st.Layout = layout
	st.Species = make(map[engine.PlantID]model.Species, len(layout))
	st.InstancePrims = make(map[engine.PlantID][]engine.PrimitiveID, len(layout))
	if len(layout) == 0 {
		log.Warn(ctx, "layout came up empty, nothing to grow")
		return nil
	}

	growth, err := scene.Growth()
	if err != nil {
		return fmt.Errorf("growth session: %w", err)
	}
	defer func() {
		if cerr := growth.Close(); cerr != nil {
			log.Warn(ctx, "growth session close failed", logging.Err(cerr))
		}
	}()

	// Build species by species so each model is loaded exactly once and all
	// instances of one crop come up as a contiguous identity block.
	counts := layout.CountBySpecies()
	for _, sp := range model.KnownSpecies() {
		if counts[sp] == 0 {
			continue
		}
		if err := growth.LoadSpecies(sp); err != nil {
			return fmt.Errorf("loading %s model: %w", sp, err)
		}
		for _, pl := range layout {
			if pl.Species != sp {
				continue
			}
			pos := model.Vec3{X: pl.Pos.X + st.Margin, Y: pl.Pos.Y + st.Margin, Z: pl.Pos.Z}
			id, err := growth.BuildInstance(sp, pos, p.cfg.Growth.InitialAgeDays)
			if err != nil {
				return fmt.Errorf("building %s instance: %w", sp, err)
			}
			st.Species[id] = sp
		}
		log.Info(ctx, "instances built",
			logging.String("species", string(sp)),
			logging.Int("count", counts[sp]),
			logging.Float64("age_days", p.cfg.Growth.InitialAgeDays),
		)
	}

	if p.cfg.Growth.Collision.Enabled {
		if err := growth.EnableCollision(p.cfg.Growth.Collision, st.Ground[:1]); err != nil {
			return fmt.Errorf("collision setup: %w", err)
		}
	}

	if days := p.cfg.Growth.GrowthDays(); days > 0 {
		log.Info(ctx, "advancing growth",
			logging.Float64("days", days),
			logging.Int("plants", len(st.Species)),
		)
		if err := growth.Advance(ctx, days); err != nil {
			return fmt.Errorf("growth advance: %w", err)
		}
	}

	// Capture instance identity sets now; they are gone once the session
	// closes.
	for id := range st.Species {
		prims, err := growth.PlantPrimitives(id)
		if err != nil {
			return fmt.Errorf("instance %d primitives: %w", id, err)
		}
		st.InstancePrims[id] = prims
	}
	return nil
}
