// Package core implements the intercrop scene-generation pipeline: planting
// layout, engine-driven plant growth under collision constraints, semantic
// labeling, solar ephemeris, multi-band imaging, geometry export, and the
// interactive viewer. The orchestrator owns all run state and drives the
// stages strictly in sequence; engine work happens behind the interfaces in
// package engine.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/internal/observability"
	"github.com/agrisight/intercrop-scenegen/model"
	"github.com/agrisight/intercrop-scenegen/solar"
)

const tracerName = "github.com/agrisight/intercrop-scenegen/core"

// ErrRunAborted wraps the failure that ended a run before its remaining
// stages could execute: a failed capability probe, a fatal stage failure, or
// cancellation.
var ErrRunAborted = errors.New("core: run aborted")

// Pipeline executes scene-generation runs against one engine runtime. A
// pipeline is cheap to construct and single-use state lives in RunState, so
// one pipeline can serve several sequential runs.
type Pipeline struct {
	cfg      RunConfig
	rt       engine.Runtime
	assets   AssetResolver
	log      logging.Logger
	metrics  *observability.PipelineCollector
	critical Criticality
}

// NewPipeline validates the configuration and binds the pipeline to a
// runtime. A nil metrics collector disables metrics, a nil resolver resolves
// nothing.
func NewPipeline(cfg RunConfig, rt engine.Runtime, assets AssetResolver, log logging.Logger, metrics *observability.PipelineCollector) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("run config: %w", err)
	}
	if rt == nil {
		return nil, fmt.Errorf("nil engine runtime")
	}
	if assets == nil {
		assets = NoAssets()
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Pipeline{
		cfg:      cfg,
		rt:       rt,
		assets:   assets,
		log:      log,
		metrics:  metrics,
		critical: StageCriticality(cfg),
	}, nil
}

// requiredCaps is the capability set probed at INIT: growth, viewer, and
// solar are the fixed baseline every run needs available, radiation joins
// when imaging is requested.
func (p *Pipeline) requiredCaps() []engine.Capability {
	caps := []engine.Capability{engine.CapGrowth, engine.CapViewer, engine.CapSolar}
	if p.cfg.Imaging.Enabled {
		caps = append(caps, engine.CapRadiation)
	}
	return caps
}

func (p *Pipeline) labelingRequested() bool {
	return p.cfg.Labeling || (p.cfg.Imaging.Enabled && p.cfg.Imaging.Segmentation)
}

// Run executes the pipeline once. The returned RunState is always valid and
// carries per-stage outcomes; the error is non-nil only when the run aborted
// (fatal stage or cancellation) rather than degrading to a partial result.
func (p *Pipeline) Run(ctx context.Context) (*RunState, error) {
	ctx, log := logging.WithRunLogger(ctx, p.log)
	st := &RunState{Margin: p.cfg.Soil.Margin}

	log.Info(ctx, "run starting",
		logging.String("runtime", p.rt.Name()),
		logging.Int("seed", int(p.cfg.Layout.Seed)),
		logging.Float64("plot_width_m", p.cfg.Layout.PlotWidth),
		logging.Float64("plot_length_m", p.cfg.Layout.PlotLength),
		logging.Any("imaging", p.cfg.Imaging.Enabled),
		logging.Any("save", p.cfg.Export.Save),
		logging.Any("interactive", p.cfg.Viewer.Interactive),
	)

	var scene engine.Scene
	err := p.runStage(ctx, st, StageInit, log, func(ctx context.Context, slog logging.Logger) error {
		if err := engine.Probe(p.rt, p.requiredCaps()...); err != nil {
			return err
		}
		s, err := p.rt.NewScene(engine.SceneConfig{Seed: p.cfg.Layout.Seed})
		if err != nil {
			return fmt.Errorf("opening scene: %w", err)
		}
		scene = s
		return nil
	})
	if err != nil {
		p.summary(ctx, log, st)
		return st, fmt.Errorf("%w: %w", ErrRunAborted, err)
	}
	defer func() {
		if cerr := scene.Close(); cerr != nil {
			log.Warn(ctx, "scene close failed", logging.Err(cerr))
		}
	}()

	err = p.runStage(ctx, st, StageScene, log, func(ctx context.Context, slog logging.Logger) error {
		return p.buildScene(ctx, scene, st, slog)
	})
	if err == nil {
		st.Primitives = scene.PrimitiveCount()
		counts := make(map[string]int, 2)
		for sp, n := range st.PlantCounts() {
			counts[string(sp)] = n
		}
		p.metrics.SetSceneCounts(counts, st.Primitives)
	}
	if aborted, aerr := p.checkAbort(ctx, st, StageScene, err, log); aborted {
		return st, aerr
	}

	if p.labelingRequested() {
		err = p.runStage(ctx, st, StageLabels, log, func(ctx context.Context, slog logging.Logger) error {
			n, lerr := AssignLabels(ctx, scene, LabelAssignment{
				DataKey:       p.cfg.Imaging.SegmentationField,
				Ground:        st.Ground,
				Species:       st.Species,
				InstancePrims: st.InstancePrims,
				Fallback:      model.SpeciesBean,
			}, slog)
			st.FallbackLabeled = n
			p.metrics.AddFallbackLabels(n)
			return lerr
		})
		if aborted, aerr := p.checkAbort(ctx, st, StageLabels, err, log); aborted {
			return st, aerr
		}
	} else {
		p.skipStage(st, StageLabels)
	}

	err = p.runStage(ctx, st, StageSolar, log, func(ctx context.Context, slog logging.Logger) error {
		rec, serr := solar.Compute(p.cfg.Solar.Moment, p.cfg.Solar.Site)
		if serr != nil {
			return serr
		}
		st.Solar = &rec
		slog.Info(ctx, "sun position computed",
			logging.Float64("elevation_deg", rec.ElevationDeg),
			logging.Float64("azimuth_deg", rec.AzimuthDeg),
			logging.Float64("flux_wm2", rec.FluxWm2),
		)
		return nil
	})
	if aborted, aerr := p.checkAbort(ctx, st, StageSolar, err, log); aborted {
		return st, aerr
	}

	if p.cfg.Imaging.Enabled {
		err = p.runStage(ctx, st, StageImage, log, func(ctx context.Context, slog logging.Logger) error {
			return p.imageScene(ctx, scene, st, slog)
		})
		if aborted, aerr := p.checkAbort(ctx, st, StageImage, err, log); aborted {
			return st, aerr
		}
	} else {
		p.skipStage(st, StageImage)
	}

	if p.cfg.Export.Save {
		err = p.runStage(ctx, st, StageExport, log, func(ctx context.Context, slog logging.Logger) error {
			return p.exportScene(ctx, scene, st, slog)
		})
		if aborted, aerr := p.checkAbort(ctx, st, StageExport, err, log); aborted {
			return st, aerr
		}
	} else {
		p.skipStage(st, StageExport)
	}

	if p.cfg.Viewer.Interactive {
		err = p.runStage(ctx, st, StageViewer, log, func(ctx context.Context, slog logging.Logger) error {
			return p.viewScene(ctx, scene, st, slog)
		})
		if aborted, aerr := p.checkAbort(ctx, st, StageViewer, err, log); aborted {
			return st, aerr
		}
	} else {
		p.skipStage(st, StageViewer)
	}

	p.finish(ctx, log, st)
	return st, nil
}

// checkAbort decides what a stage result means for the rest of the run:
// fatal stages and cancellation end it, anything else degrades to a partial
// run. On abort the summary is still produced.
func (p *Pipeline) checkAbort(ctx context.Context, st *RunState, stage Stage, err error, log logging.Logger) (bool, error) {
	if err != nil && p.critical[stage] {
		p.summary(ctx, log, st)
		return true, fmt.Errorf("%w: stage %s: %w", ErrRunAborted, stage, err)
	}
	if cerr := ctx.Err(); cerr != nil {
		for _, s := range Stages()[stageIndex(stage)+1:] {
			p.skipStage(st, s)
		}
		// Cancellation mid-run still leaves whatever was already written
		// documented.
		p.writeManifestIfSaving(ctx, log, st)
		p.summary(ctx, log, st)
		return true, fmt.Errorf("%w: %w", ErrRunAborted, cerr)
	}
	return false, nil
}

func stageIndex(s Stage) int {
	for i, stage := range Stages() {
		if stage == s {
			return i
		}
	}
	return 0
}

// finish is the DONE step: manifest when saving, then the summary.
func (p *Pipeline) finish(ctx context.Context, log logging.Logger, st *RunState) {
	p.writeManifestIfSaving(ctx, log, st)
	p.summary(ctx, log, st)
}

func (p *Pipeline) writeManifestIfSaving(ctx context.Context, log logging.Logger, st *RunState) {
	if !p.cfg.Export.Save || !p.cfg.Export.Manifest || st.OutputDir == "" {
		return
	}
	if err := WriteManifest(st.OutputDir, p.cfg, st); err != nil {
		log.Warn(ctx, "manifest write failed", logging.Err(err))
	}
}

func (p *Pipeline) summary(ctx context.Context, log logging.Logger, st *RunState) {
	var b strings.Builder
	failed := 0
	for i, o := range st.Outcomes {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%s", o.Stage, o.Status)
		if o.Status == StageFailed {
			failed++
		}
	}
	fields := []logging.Field{
		logging.String("stages", b.String()),
		logging.Int("failed", failed),
	}
	if st.OutputDir != "" {
		fields = append(fields, logging.String("output_dir", st.OutputDir))
	}
	log.Info(ctx, "run finished", fields...)
}

// runStage wraps one stage uniformly: stage-scoped logger, span, duration
// metric, outcome recording.
func (p *Pipeline) runStage(ctx context.Context, st *RunState, stage Stage, log logging.Logger, fn func(context.Context, logging.Logger) error) error {
	slog := logging.WithStage(log, string(stage))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "pipeline/"+string(stage))
	defer span.End()

	start := time.Now()
	slog.Debug(ctx, "stage starting")
	err := fn(ctx, slog)
	d := time.Since(start)

	status := StageOK
	if err != nil {
		status = StageFailed
		span.RecordError(err)
		slog.Error(ctx, "stage failed", logging.Err(err), logging.Duration("duration", d))
	} else {
		slog.Info(ctx, "stage complete", logging.Duration("duration", d))
	}
	st.Outcomes = append(st.Outcomes, StageOutcome{Stage: stage, Status: status, Err: err, Duration: d})
	p.metrics.ObserveStage(string(stage), string(status), d)
	return err
}

func (p *Pipeline) skipStage(st *RunState, stage Stage) {
	st.Outcomes = append(st.Outcomes, StageOutcome{Stage: stage, Status: StageSkipped})
	p.metrics.ObserveStage(string(stage), string(StageSkipped), 0)
}

// ensureOutputDir allocates the numbered run directory on first use.
func (p *Pipeline) ensureOutputDir(st *RunState) (string, error) {
	if !p.cfg.Export.Save {
		return "", nil
	}
	if st.OutputDir != "" {
		return st.OutputDir, nil
	}
	dir, err := AllocateRunDir(p.cfg.Export.OutputDir)
	if err != nil {
		return "", err
	}
	st.OutputDir = dir
	return dir, nil
}
