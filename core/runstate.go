package core

import (
	"time"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
)

// Stage identifies one step of the pipeline state machine. The values show
// up in logs, metrics labels, and the run manifest.
type Stage string

const (
	StageInit   Stage = "init"
	StageScene  Stage = "scene_build"
	StageLabels Stage = "labels"
	StageSolar  Stage = "solar"
	StageImage  Stage = "imaging"
	StageExport Stage = "export"
	StageViewer Stage = "viewer"
)

// Stages lists every stage in execution order.
func Stages() []Stage {
	return []Stage{StageInit, StageScene, StageLabels, StageSolar, StageImage, StageExport, StageViewer}
}

// StageStatus is the terminal status of one stage execution.
type StageStatus string

const (
	StageOK      StageStatus = "ok"
	StageSkipped StageStatus = "skipped"
	StageFailed  StageStatus = "failed"
)

// StageOutcome records how one stage ended.
type StageOutcome struct {
	Stage    Stage
	Status   StageStatus
	Err      error
	Duration time.Duration
}

// RunState is the pipeline's working state: explicit, owned by the
// orchestrator, handed to each stage and collected back. Nothing about a run
// hides inside the engine.
type RunState struct {
	// Margin is the soil border around the plot; plot-local positions are
	// shifted by it when instances are placed.
	Margin float64

	// Ground holds every soil primitive, the collision obstacle patch
	// first.
	Ground []engine.PrimitiveID

	Layout  model.Layout
	Species map[engine.PlantID]model.Species

	// InstancePrims maps each plant instance to the primitives it owned
	// after growth finished. Captured before the growth session closes;
	// this is what makes per-instance labeling possible.
	InstancePrims map[engine.PlantID][]engine.PrimitiveID

	// FallbackLabeled counts primitives the label pass could not attribute
	// to ground or any instance.
	FallbackLabeled int

	// Primitives is the scene primitive count once the build stage is done.
	Primitives int

	Solar *model.SolarRecord

	// OutputDir is the allocated numbered run directory, empty when the run
	// does not save.
	OutputDir string
	// Images lists image files written, relative to OutputDir.
	Images []string

	Outcomes []StageOutcome
}

// PlantCounts returns instances per species.
func (st *RunState) PlantCounts() map[model.Species]int {
	counts := make(map[model.Species]int)
	for _, sp := range st.Species {
		counts[sp]++
	}
	return counts
}

// Outcome returns the recorded outcome for a stage, if it ran.
func (st *RunState) Outcome(s Stage) (StageOutcome, bool) {
	for _, o := range st.Outcomes {
		if o.Stage == s {
			return o, true
		}
	}
	return StageOutcome{}, false
}

// Failed reports whether any recorded stage failed.
func (st *RunState) Failed() bool {
	for _, o := range st.Outcomes {
		if o.Status == StageFailed {
			return true
		}
	}
	return false
}

// Criticality says which stages abort the run when they fail. It is computed
// once from the configuration before the run starts; the orchestrator
// consults the table, never the error value.
type Criticality map[Stage]bool

// StageCriticality derives the table: the capability probe is always fatal,
// and the solar stage becomes fatal when a later stage cannot do without the
// sun (imaging, interactive viewing). Everything else degrades to a partial
// run.
func StageCriticality(cfg RunConfig) Criticality {
	return Criticality{
		StageInit:  true,
		StageSolar: cfg.Imaging.Enabled || cfg.Viewer.Interactive,
	}
}
