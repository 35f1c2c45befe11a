package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/agrisight/intercrop-scenegen/core"
	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/engine/stubengine"
	"github.com/agrisight/intercrop-scenegen/internal/logging"
	"github.com/agrisight/intercrop-scenegen/internal/observability"
	"github.com/agrisight/intercrop-scenegen/scenetime"
)

// Config is everything main needs for one generation run.
type Config struct {
	Run core.RunConfig

	Engine       string
	ScenarioPath string
	OpticsPath   string
	AssetsDir    string
	MetricsAddr  string
	LogLevel     string
	LogFormat    string
}

func main() {
	cfg, err := buildConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "run failed", logging.Err(err))
		stop()
		os.Exit(1)
	}
}

// buildConfig parses flags into a run configuration. A scenario file, when
// given, is loaded first; flags set explicitly on the command line override
// it. Errors are reported on stderr before returning.
func buildConfig(args []string, stderr io.Writer) (Config, error) {
	def := core.DefaultRunConfig()

	fs := flag.NewFlagSet("scenegen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		scenarioPath = fs.String("scenario", "", "path to a scenario JSON file; explicit flags override it")
		opticsPath   = fs.String("optics", "", "path to an optical-properties JSON overlay")
		assetsDir    = fs.String("assets", "", "directory holding texture assets (soil, sky dome)")
		engineName   = fs.String("engine", stubengine.Name, "scene engine runtime")
		metricsAddr  = fs.String("metrics-addr", "", "HTTP address for Prometheus /metrics, empty disables")
		logLevel     = fs.String("log-level", "", "log level (debug, info, warn, error); defaults to LOG_LEVEL")
		logFormat    = fs.String("log-format", "", "log format (json or text); defaults to LOG_FORMAT")

		plotWidth      = fs.Float64("plot-width", def.Layout.PlotWidth, "plot width in metres")
		plotLength     = fs.Float64("plot-length", def.Layout.PlotLength, "plot length in metres")
		rows           = fs.Int("n-rows", def.Layout.Rows, "number of sowing rows")
		rowSpacing     = fs.Float64("row-spacing", def.Layout.RowSpacing, "row spacing in metres")
		beanDensity    = fs.Float64("bean-density", def.Layout.BeanDensity, "bean sowing density, seeds per square metre")
		wheatDensity   = fs.Float64("wheat-density", def.Layout.WheatDensity, "wheat sowing density, seeds per square metre")
		beanEmergence  = fs.Float64("bean-emergence", def.Layout.BeanEmergence, "fraction of sown beans that emerge")
		wheatEmergence = fs.Float64("wheat-emergence", def.Layout.WheatEmergence, "fraction of sown wheat that emerges")
		seed           = fs.Int64("seed", def.Layout.Seed, "layout and scene random seed")

		growthDays = fs.Float64("growth-days", def.Growth.TargetAgeDays, "target plant age in days")
		beanAge    = fs.Float64("bean-age", def.Growth.BeanAgeDays, "bean target age in days, 0 uses -growth-days")
		wheatAge   = fs.Float64("wheat-age", def.Growth.WheatAgeDays, "wheat target age in days, 0 uses -growth-days")

		viewAngle = fs.Float64("view-angle", def.Growth.Collision.ViewHalfAngleDeg, "collision cone half-angle in degrees")
		lookahead = fs.Float64("lookahead", def.Growth.Collision.LookAheadM, "collision look-ahead distance in metres")
		samples   = fs.Int("samples", def.Growth.Collision.SampleCount, "collision ray samples per cone")
		inertia   = fs.Float64("inertia", def.Growth.Collision.Inertia, "collision steering inertia in [0, 1]")

		camera       = fs.Bool("camera", def.Imaging.Enabled, "render a nadir image of the finished scene")
		cameraType   = fs.String("camera-type", def.Imaging.CameraType, "camera type: rgb or multispectral")
		cameraWidth  = fs.Int("camera-width", def.Imaging.WidthPx, "rendered image width in pixels")
		cameraHeight = fs.Int("camera-height", def.Imaging.HeightPx, "rendered image height in pixels")
		segmentation = fs.Bool("segmentation", def.Imaging.Segmentation, "write a segmentation mask (with -camera)")

		date      = fs.String("date", "", "scene date, YYYY-MM-DD")
		clock     = fs.String("time", "", "scene local time, HH:MM")
		utcOffset = fs.Int("utc-offset", def.Solar.Moment.UTCOffsetHours, "local clock offset from UTC in hours")
		latitude  = fs.Float64("latitude", def.Solar.Site.LatDeg, "site latitude in degrees north")
		longitude = fs.Float64("longitude", def.Solar.Site.LonDeg, "site longitude in degrees east")

		width            = fs.Int("width", def.Viewer.WidthPx, "viewer window width in pixels")
		height           = fs.Int("height", def.Viewer.HeightPx, "viewer window height in pixels")
		aaSamples        = fs.Int("aa-samples", def.Viewer.AASamples, "viewer antialiasing samples")
		soilSubdivisions = fs.Int("soil-subdivisions", def.Soil.Subdivisions, "soil tile subdivisions for the untextured fallback")
		useSkyDome       = fs.Bool("use-sky-dome", def.Viewer.UseSkyDome, "texture the viewer background with a sky dome")
		skyTexture       = fs.String("sky-texture", def.Viewer.SkyTexture, "sky dome texture asset name")
		lightIntensity   = fs.Float64("light-intensity", def.Viewer.LightIntensity, "viewer sun light intensity")
		showGrid         = fs.Bool("show-grid", def.Viewer.ShowGrid, "overlay a wireframe grid on the soil")

		save          = fs.Bool("save", def.Export.Save, "save meshes, images, and the scene manifest")
		outputDir     = fs.String("output-dir", def.Export.OutputDir, "base directory for saved runs")
		noInteractive = fs.Bool("no-interactive", false, "skip the interactive viewer")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	fail := func(err error) (Config, error) {
		fmt.Fprintln(stderr, "scenegen:", err)
		return Config{}, err
	}

	cfg := Config{
		Run:          def,
		Engine:       *engineName,
		ScenarioPath: *scenarioPath,
		OpticsPath:   *opticsPath,
		AssetsDir:    *assetsDir,
		MetricsAddr:  *metricsAddr,
		LogLevel:     *logLevel,
		LogFormat:    *logFormat,
	}

	if *scenarioPath != "" {
		f, err := os.Open(*scenarioPath)
		if err != nil {
			return fail(fmt.Errorf("open scenario: %w", err))
		}
		run, err := core.LoadScenario(f)
		f.Close()
		if err != nil {
			return fail(fmt.Errorf("load scenario %s: %w", *scenarioPath, err))
		}
		cfg.Run = run
	} else {
		// The tool is interactive unless told otherwise; a scenario file
		// decides for itself.
		cfg.Run.Viewer.Interactive = true
	}

	var dateSet, clockSet, offsetSet bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "plot-width":
			cfg.Run.Layout.PlotWidth = *plotWidth
		case "plot-length":
			cfg.Run.Layout.PlotLength = *plotLength
		case "n-rows":
			cfg.Run.Layout.Rows = *rows
		case "row-spacing":
			cfg.Run.Layout.RowSpacing = *rowSpacing
		case "bean-density":
			cfg.Run.Layout.BeanDensity = *beanDensity
		case "wheat-density":
			cfg.Run.Layout.WheatDensity = *wheatDensity
		case "bean-emergence":
			cfg.Run.Layout.BeanEmergence = *beanEmergence
		case "wheat-emergence":
			cfg.Run.Layout.WheatEmergence = *wheatEmergence
		case "seed":
			cfg.Run.Layout.Seed = *seed
		case "growth-days":
			cfg.Run.Growth.TargetAgeDays = *growthDays
		case "bean-age":
			cfg.Run.Growth.BeanAgeDays = *beanAge
		case "wheat-age":
			cfg.Run.Growth.WheatAgeDays = *wheatAge
		case "view-angle":
			cfg.Run.Growth.Collision.ViewHalfAngleDeg = *viewAngle
		case "lookahead":
			cfg.Run.Growth.Collision.LookAheadM = *lookahead
		case "samples":
			cfg.Run.Growth.Collision.SampleCount = *samples
		case "inertia":
			cfg.Run.Growth.Collision.Inertia = *inertia
		case "camera":
			cfg.Run.Imaging.Enabled = *camera
		case "camera-type":
			cfg.Run.Imaging.CameraType = *cameraType
		case "camera-width":
			cfg.Run.Imaging.WidthPx = *cameraWidth
		case "camera-height":
			cfg.Run.Imaging.HeightPx = *cameraHeight
		case "segmentation":
			cfg.Run.Imaging.Segmentation = *segmentation
		case "date":
			dateSet = true
		case "time":
			clockSet = true
		case "utc-offset":
			offsetSet = true
		case "latitude":
			cfg.Run.Solar.Site.LatDeg = *latitude
		case "longitude":
			cfg.Run.Solar.Site.LonDeg = *longitude
		case "width":
			cfg.Run.Viewer.WidthPx = *width
		case "height":
			cfg.Run.Viewer.HeightPx = *height
		case "aa-samples":
			cfg.Run.Viewer.AASamples = *aaSamples
		case "soil-subdivisions":
			cfg.Run.Soil.Subdivisions = *soilSubdivisions
		case "use-sky-dome":
			cfg.Run.Viewer.UseSkyDome = *useSkyDome
		case "sky-texture":
			cfg.Run.Viewer.SkyTexture = *skyTexture
		case "light-intensity":
			cfg.Run.Viewer.LightIntensity = *lightIntensity
		case "show-grid":
			cfg.Run.Viewer.ShowGrid = *showGrid
		case "save":
			cfg.Run.Export.Save = *save
		case "output-dir":
			cfg.Run.Export.OutputDir = *outputDir
		case "no-interactive":
			cfg.Run.Viewer.Interactive = !*noInteractive
		}
	})

	if dateSet || clockSet || offsetSet {
		base := cfg.Run.Solar.Moment.Local()
		dateStr, clockStr := base.Format("2006-01-02"), base.Format("15:04")
		offset := cfg.Run.Solar.Moment.UTCOffsetHours
		if dateSet {
			dateStr = *date
		}
		if clockSet {
			clockStr = *clock
		}
		if offsetSet {
			offset = *utcOffset
		}
		moment, err := scenetime.New(dateStr, clockStr, offset)
		if err != nil {
			return fail(fmt.Errorf("scene moment: %w", err))
		}
		cfg.Run.Solar.Moment = moment
	}

	if *opticsPath != "" {
		f, err := os.Open(*opticsPath)
		if err != nil {
			return fail(fmt.Errorf("open optics: %w", err))
		}
		table, err := core.LoadOpticsTable(f)
		f.Close()
		if err != nil {
			return fail(fmt.Errorf("load optics %s: %w", *opticsPath, err))
		}
		cfg.Run.Optics = table
	}

	if err := cfg.Run.Validate(); err != nil {
		return fail(err)
	}
	return cfg, nil
}

func newLogger(cfg Config) logging.Logger {
	if cfg.LogLevel == "" && cfg.LogFormat == "" {
		return logging.NewFromEnv()
	}
	return logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

// run stages one pipeline run against the selected engine. It returns nil
// when the run completed, degraded stages included; the pipeline logs those
// itself.
func run(ctx context.Context, cfg Config, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Warn(ctx, "tracing init failed", logging.Err(err))
	} else {
		defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
	}

	collector, err := observability.NewPipelineCollector(nil)
	if err != nil {
		return fmt.Errorf("metrics collector: %w", err)
	}

	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)
	if metricsSrv != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	rt, err := engine.Open(cfg.Engine)
	if err != nil {
		return fmt.Errorf("open engine %q: %w", cfg.Engine, err)
	}
	defer rt.Close()

	var assets core.AssetResolver
	if cfg.AssetsDir != "" {
		assets = core.DirResolver(cfg.AssetsDir)
	}

	p, err := core.NewPipeline(cfg.Run, rt, assets, log, collector)
	if err != nil {
		return err
	}

	log.Info(ctx, "starting scene generation",
		logging.String("engine", rt.Name()),
		logging.Any("seed", cfg.Run.Layout.Seed),
	)
	_, err = p.Run(ctx)
	return err
}

func serveMetrics(addr string, collector *observability.PipelineCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
