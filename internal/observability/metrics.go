package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector bundles Prometheus metrics for scene-generation runs:
// per-stage timing and outcomes plus gauges describing the scene the run
// produced. All recording methods are nil-safe so callers need no metrics
// plumbing in tests.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	StageDurations *prometheus.HistogramVec
	StageOutcomes  *prometheus.CounterVec

	ScenePlants     *prometheus.GaugeVec
	ScenePrimitives prometheus.Gauge
	ImagesWritten   prometheus.Counter
	FallbackLabels  prometheus.Counter
}

// NewPipelineCollector registers pipeline metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_stage_duration_seconds",
		Help:    "Wall-clock duration of each pipeline stage.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 1800},
	}, []string{"stage"})
	durations, err := registerHistogramVec(reg, durations, "pipeline_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_stage_outcomes_total",
		Help: "Stage completions, labeled by stage and status (ok, skipped, failed).",
	}, []string{"stage", "status"})
	outcomes, err = registerCounterVec(reg, outcomes, "pipeline_stage_outcomes_total")
	if err != nil {
		return nil, err
	}

	plants := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scene_plants",
		Help: "Plant instances in the generated scene, by species.",
	}, []string{"species"})
	plants, err = registerGaugeVec(reg, plants, "scene_plants")
	if err != nil {
		return nil, err
	}

	primitives, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scene_primitives",
		Help: "Geometric primitives in the generated scene.",
	}), "scene_primitives")
	if err != nil {
		return nil, err
	}

	images, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_images_written_total",
		Help: "Image files written across runs.",
	}), "pipeline_images_written_total")
	if err != nil {
		return nil, err
	}

	fallback, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_fallback_labels_total",
		Help: "Primitives labeled with the fallback species because no instance claimed them.",
	}), "pipeline_fallback_labels_total")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:        gatherer,
		StageDurations:  durations,
		StageOutcomes:   outcomes,
		ScenePlants:     plants,
		ScenePrimitives: primitives,
		ImagesWritten:   images,
		FallbackLabels:  fallback,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *PipelineCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveStage records one stage execution.
func (c *PipelineCollector) ObserveStage(stage, status string, d time.Duration) {
	if c == nil {
		return
	}
	if c.StageDurations != nil {
		c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
	}
	if c.StageOutcomes != nil {
		c.StageOutcomes.WithLabelValues(stage, status).Inc()
	}
}

// SetSceneCounts updates the scene gauges after the build stage.
func (c *PipelineCollector) SetSceneCounts(plantsBySpecies map[string]int, primitives int) {
	if c == nil {
		return
	}
	if c.ScenePlants != nil {
		for species, n := range plantsBySpecies {
			c.ScenePlants.WithLabelValues(species).Set(float64(n))
		}
	}
	if c.ScenePrimitives != nil {
		c.ScenePrimitives.Set(float64(primitives))
	}
}

// AddImagesWritten counts persisted image files.
func (c *PipelineCollector) AddImagesWritten(n int) {
	if c == nil || c.ImagesWritten == nil || n <= 0 {
		return
	}
	c.ImagesWritten.Add(float64(n))
}

// AddFallbackLabels counts primitives the label pass could not attribute.
func (c *PipelineCollector) AddFallbackLabels(n int) {
	if c == nil || c.FallbackLabels == nil || n <= 0 {
		return
	}
	c.FallbackLabels.Add(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
