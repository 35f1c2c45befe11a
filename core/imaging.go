package core

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/model"
)

// imageScene renders the nadir view: band registration, sun source from the
// solar record, per-band flux and ray budgets, optical coefficients, camera,
// then one combined simulation call for all bands. Images only reach disk
// when the run saves.
func (p *Pipeline) imageScene(ctx context.Context, scene engine.Scene, st *RunState, log logging.Logger) error {
	if st.Solar == nil {
		return fmt.Errorf("no solar record")
	}
	icfg := p.cfg.Imaging
	bands := icfg.Bands()
	names := bands.Names()

	rad, err := scene.Radiation()
	if err != nil {
		return fmt.Errorf("radiation session: %w", err)
	}
	defer func() {
		if cerr := rad.Close(); cerr != nil {
			log.Warn(ctx, "radiation session close failed", logging.Err(cerr))
		}
	}()

	for _, b := range bands {
		if err := rad.AddBand(b); err != nil {
			return fmt.Errorf("band %s: %w", b.Name, err)
		}
	}

	src, err := rad.AddSunSphereSource(st.Solar.ZenithDeg(), st.Solar.AzimuthDeg, icfg.SunSphereRadius)
	if err != nil {
		return fmt.Errorf("sun source: %w", err)
	}
	for _, name := range names {
		if err := rad.SetSourceFlux(src, name, icfg.SourceFlux[name]); err != nil {
			return fmt.Errorf("source flux %s: %w", name, err)
		}
		if err := rad.SetDiffuseFlux(name, icfg.DiffuseFlux[name]); err != nil {
			return fmt.Errorf("diffuse flux %s: %w", name, err)
		}
		if err := rad.SetRayCounts(name, icfg.DirectRays, icfg.DiffuseRays); err != nil {
			return fmt.Errorf("ray counts %s: %w", name, err)
		}
		// Scattering is what makes the reflectivity and transmissivity data
		// matter; emission stays off, this is reflected light only.
		if err := rad.SetScatteringDepth(name, icfg.ScatteringDepth); err != nil {
			return fmt.Errorf("scattering %s: %w", name, err)
		}
		if err := rad.SetEmission(name, false); err != nil {
			return fmt.Errorf("emission %s: %w", name, err)
		}
	}

	if err := AssignOptics(scene, p.cfg.Optics, bands, st.Ground); err != nil {
		return fmt.Errorf("assigning optics: %w", err)
	}

	soilW := p.cfg.Layout.PlotWidth + 2*st.Margin
	soilL := p.cfg.Layout.PlotLength + 2*st.Margin
	pos, lookAt := NadirPose(soilW, soilL, icfg.FOVDeg, DefaultNadirMargin)
	props := model.CameraProperties{
		WidthPx:        icfg.WidthPx,
		HeightPx:       icfg.HeightPx,
		FOVDeg:         icfg.FOVDeg,
		FocalPlaneDist: pos.Z,
		LensDiameter:   0, // pinhole, everything in focus
	}
	if err := rad.AddCamera(engine.CameraPlacement{
		Label:     icfg.CameraLabel,
		Bands:     names,
		Position:  pos,
		LookAt:    lookAt,
		Props:     props,
		AASamples: icfg.AASamples,
	}); err != nil {
		return fmt.Errorf("camera %s: %w", icfg.CameraLabel, err)
	}
	log.Info(ctx, "nadir camera placed",
		logging.Float64("height_m", pos.Z),
		logging.Float64("sun_zenith_deg", st.Solar.ZenithDeg()),
		logging.Float64("sun_azimuth_deg", st.Solar.AzimuthDeg),
	)

	if err := rad.UpdateGeometry(ctx); err != nil {
		return fmt.Errorf("geometry update: %w", err)
	}
	if err := rad.Run(ctx, names); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	if !p.cfg.Export.Save {
		log.Warn(ctx, "save disabled, rendered images stay in memory",
			logging.String("camera", icfg.CameraLabel))
		return nil
	}

	runDir, err := p.ensureOutputDir(st)
	if err != nil {
		return fmt.Errorf("allocating run dir: %w", err)
	}
	imgDir, err := EnsureImagesDir(runDir)
	if err != nil {
		return err
	}

	primary, err := rad.WriteImage(icfg.CameraLabel, icfg.ImageBase(), imgDir, names)
	if err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	st.Images = append(st.Images, filepath.Join(ImagesDirName, primary))
	written := 1

	if norm, nerr := rad.WriteNormalizedImage(icfg.CameraLabel, "rgb_normalized", imgDir, names); nerr != nil {
		log.Warn(ctx, "normalized image failed", logging.Err(nerr))
	} else {
		st.Images = append(st.Images, filepath.Join(ImagesDirName, norm))
		written++
	}
	p.metrics.AddImagesWritten(written)

	if icfg.Segmentation {
		segPath := filepath.Join(imgDir, SegmentationName)
		if serr := rad.WriteSegmentation(icfg.CameraLabel, icfg.SegmentationField, icfg.ObjectClassID, segPath, primary); serr != nil {
			log.Warn(ctx, "segmentation export failed", logging.Err(serr))
		} else {
			st.Images = append(st.Images, filepath.Join(ImagesDirName, SegmentationName))
		}
	}
	return nil
}
