package core

import (
	"context"
	"fmt"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/model"
)

const gridSubdivisions = 10

// viewScene opens the interactive viewer on the finished scene and blocks
// until the window closes or the run context is cancelled.
func (p *Pipeline) viewScene(ctx context.Context, scene engine.Scene, st *RunState, log logging.Logger) error {
	vcfg := p.cfg.Viewer
	vis, err := scene.Viewer(engine.ViewerOptions{
		WidthPx:   vcfg.WidthPx,
		HeightPx:  vcfg.HeightPx,
		AASamples: vcfg.AASamples,
	})
	if err != nil {
		return fmt.Errorf("viewer session: %w", err)
	}
	defer func() {
		if cerr := vis.Close(); cerr != nil {
			log.Warn(ctx, "viewer close failed", logging.Err(cerr))
		}
	}()

	if err := vis.BuildGeometry(); err != nil {
		return fmt.Errorf("loading geometry: %w", err)
	}
	log.Info(ctx, "viewer geometry loaded", logging.Int("primitives", scene.PrimitiveCount()))

	if err := p.setViewerBackground(ctx, vis, log); err != nil {
		return err
	}

	sunDir := model.Vec3{Z: 1}
	if st.Solar != nil {
		sunDir = st.Solar.Direction
	}
	if err := vis.SetLight(sunDir, vcfg.LightIntensity); err != nil {
		return fmt.Errorf("lighting: %w", err)
	}
	if err := vis.SetLightingModel(vcfg.LightingModel); err != nil {
		return fmt.Errorf("lighting model %s: %w", vcfg.LightingModel, err)
	}

	soilW := p.cfg.Layout.PlotWidth + 2*st.Margin
	soilL := p.cfg.Layout.PlotLength + 2*st.Margin
	if vcfg.ShowGrid {
		center := model.Vec3{X: soilW / 2, Y: soilL / 2}
		if err := vis.AddGridWireframe(center, soilW, soilL, gridSubdivisions); err != nil {
			return fmt.Errorf("grid: %w", err)
		}
	}

	pos, lookAt := ObliquePose(p.cfg.Layout.PlotWidth, p.cfg.Layout.PlotLength, st.Margin)
	if err := vis.SetCamera(pos, lookAt); err != nil {
		return fmt.Errorf("camera: %w", err)
	}

	log.Info(ctx, "interactive view open, close the window to continue")
	return vis.Show(ctx)
}

// setViewerBackground applies the sky dome texture when requested and
// available, otherwise the flat background color.
func (p *Pipeline) setViewerBackground(ctx context.Context, vis engine.ViewerSession, log logging.Logger) error {
	vcfg := p.cfg.Viewer
	if vcfg.UseSkyDome {
		if path, ok := p.assets(vcfg.SkyTexture); ok {
			log.Debug(ctx, "using sky dome texture", logging.String("texture", vcfg.SkyTexture))
			if err := vis.SetBackgroundSky(path); err != nil {
				return fmt.Errorf("sky texture: %w", err)
			}
			return nil
		}
		log.Warn(ctx, "sky texture not found, using plain background",
			logging.String("texture", vcfg.SkyTexture))
	}
	if err := vis.SetBackgroundColor(vcfg.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	return nil
}
