package core

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
	"github.com/agrisight/intercrop-scenegen/scenetime"
	"github.com/agrisight/intercrop-scenegen/solar"
)

// Scenario files hold one run's configuration as JSON. Loading starts from
// DefaultRunConfig, so a file only needs the keys it changes; unknown keys
// are ignored so files stay loadable as the format grows.

// internal JSON shapes, unexported so the format can evolve freely.
type scenarioJSON struct {
	Layout   layoutJSON  `json:"layout"`
	Soil     soilJSON    `json:"soil"`
	Growth   growthJSON  `json:"growth"`
	Solar    solarJSON   `json:"solar"`
	Imaging  imagingJSON `json:"imaging"`
	Export   exportJSON  `json:"export"`
	Viewer   viewerJSON  `json:"viewer"`
	Labeling bool        `json:"labeling"`
}

type layoutJSON struct {
	PlotWidth      float64 `json:"plot_width"`
	PlotLength     float64 `json:"plot_length"`
	Rows           int     `json:"rows"`
	RowSpacing     float64 `json:"row_spacing"`
	BeanDensity    float64 `json:"bean_density"`
	WheatDensity   float64 `json:"wheat_density"`
	BeanEmergence  float64 `json:"bean_emergence"`
	WheatEmergence float64 `json:"wheat_emergence"`
	Seed           int64   `json:"seed"`
}

type soilJSON struct {
	Margin        float64    `json:"margin"`
	Texture       string     `json:"texture"`
	TextureRepeat float64    `json:"texture_repeat"`
	Subdivisions  int        `json:"subdivisions"`
	Color         [3]float64 `json:"color"`
}

type growthJSON struct {
	InitialAgeDays float64       `json:"initial_age_days"`
	TargetAgeDays  float64       `json:"target_age_days"`
	BeanAgeDays    float64       `json:"bean_age_days"`
	WheatAgeDays   float64       `json:"wheat_age_days"`
	Collision      collisionJSON `json:"collision"`
}

type collisionJSON struct {
	Enabled          bool       `json:"enabled"`
	ViewHalfAngleDeg float64    `json:"view_half_angle_deg"`
	LookAheadM       float64    `json:"lookahead_m"`
	SampleCount      int        `json:"samples"`
	Inertia          float64    `json:"inertia"`
	GroundClearanceM float64    `json:"ground_clearance_m"`
	PruneAtObstacle  bool       `json:"prune_at_obstacle"`
	FruitAdjustment  bool       `json:"fruit_adjustment"`
	Organs           organsJSON `json:"organs"`
}

type organsJSON struct {
	Internodes bool `json:"internodes"`
	Leaves     bool `json:"leaves"`
	Petioles   bool `json:"petioles"`
	Flowers    bool `json:"flowers"`
	Fruit      bool `json:"fruit"`
}

type solarJSON struct {
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	UTCOffsetHours int     `json:"utc_offset"`
	LatDeg         float64 `json:"latitude"`
	LonDeg         float64 `json:"longitude"`
}

type imagingJSON struct {
	Enabled           bool               `json:"enabled"`
	CameraType        string             `json:"camera_type"`
	WidthPx           int                `json:"width_px"`
	HeightPx          int                `json:"height_px"`
	FOVDeg            float64            `json:"fov_deg"`
	AASamples         int                `json:"aa_samples"`
	DirectRays        int                `json:"direct_rays"`
	DiffuseRays       int                `json:"diffuse_rays"`
	ScatteringDepth   int                `json:"scattering_depth"`
	SunSphereRadius   float64            `json:"sun_sphere_radius"`
	SourceFlux        map[string]float64 `json:"source_flux"`
	DiffuseFlux       map[string]float64 `json:"diffuse_flux"`
	Segmentation      bool               `json:"segmentation"`
	SegmentationField string             `json:"segmentation_field"`
	ObjectClassID     int                `json:"object_class_id"`
	CameraLabel       string             `json:"camera_label"`
}

type exportJSON struct {
	Save      bool   `json:"save"`
	OutputDir string `json:"output_dir"`
	PLY       bool   `json:"ply"`
	OBJ       bool   `json:"obj"`
	Manifest  bool   `json:"manifest"`
}

type viewerJSON struct {
	Interactive    bool       `json:"interactive"`
	WidthPx        int        `json:"width_px"`
	HeightPx       int        `json:"height_px"`
	AASamples      int        `json:"aa_samples"`
	LightIntensity float64    `json:"light_intensity"`
	LightingModel  string     `json:"lighting_model"`
	UseSkyDome     bool       `json:"use_sky_dome"`
	SkyTexture     string     `json:"sky_texture"`
	Background     [3]float64 `json:"background"`
	ShowGrid       bool       `json:"show_grid"`
}

// LoadScenario reads a scenario file from r and returns the validated run
// configuration it describes. Absent keys keep their defaults; the flux
// tables merge band by band.
func LoadScenario(r io.Reader) (RunConfig, error) {
	doc := scenarioFromConfig(DefaultRunConfig())
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return RunConfig{}, fmt.Errorf("scenario: decode failed: %w", err)
	}
	cfg, err := doc.toConfig()
	if err != nil {
		return RunConfig{}, fmt.Errorf("scenario: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return RunConfig{}, fmt.Errorf("scenario: %w", err)
	}
	return cfg, nil
}

// scenarioFromConfig seeds the decode target so keys a file leaves out keep
// the configuration's values.
func scenarioFromConfig(cfg RunConfig) scenarioJSON {
	local := cfg.Solar.Moment.Local()
	return scenarioJSON{
		Layout: layoutJSON{
			PlotWidth:      cfg.Layout.PlotWidth,
			PlotLength:     cfg.Layout.PlotLength,
			Rows:           cfg.Layout.Rows,
			RowSpacing:     cfg.Layout.RowSpacing,
			BeanDensity:    cfg.Layout.BeanDensity,
			WheatDensity:   cfg.Layout.WheatDensity,
			BeanEmergence:  cfg.Layout.BeanEmergence,
			WheatEmergence: cfg.Layout.WheatEmergence,
			Seed:           cfg.Layout.Seed,
		},
		Soil: soilJSON{
			Margin:        cfg.Soil.Margin,
			Texture:       cfg.Soil.Texture,
			TextureRepeat: cfg.Soil.TextureRepeat,
			Subdivisions:  cfg.Soil.Subdivisions,
			Color:         [3]float64{cfg.Soil.Color.R, cfg.Soil.Color.G, cfg.Soil.Color.B},
		},
		Growth: growthJSON{
			InitialAgeDays: cfg.Growth.InitialAgeDays,
			TargetAgeDays:  cfg.Growth.TargetAgeDays,
			BeanAgeDays:    cfg.Growth.BeanAgeDays,
			WheatAgeDays:   cfg.Growth.WheatAgeDays,
			Collision: collisionJSON{
				Enabled:          cfg.Growth.Collision.Enabled,
				ViewHalfAngleDeg: cfg.Growth.Collision.ViewHalfAngleDeg,
				LookAheadM:       cfg.Growth.Collision.LookAheadM,
				SampleCount:      cfg.Growth.Collision.SampleCount,
				Inertia:          cfg.Growth.Collision.Inertia,
				GroundClearanceM: cfg.Growth.Collision.GroundClearanceM,
				PruneAtObstacle:  cfg.Growth.Collision.PruneAtObstacle,
				FruitAdjustment:  cfg.Growth.Collision.FruitAdjustment,
				Organs: organsJSON{
					Internodes: cfg.Growth.Collision.Organs.Internodes,
					Leaves:     cfg.Growth.Collision.Organs.Leaves,
					Petioles:   cfg.Growth.Collision.Organs.Petioles,
					Flowers:    cfg.Growth.Collision.Organs.Flowers,
					Fruit:      cfg.Growth.Collision.Organs.Fruit,
				},
			},
		},
		Solar: solarJSON{
			Date:           local.Format("2006-01-02"),
			Time:           local.Format("15:04"),
			UTCOffsetHours: cfg.Solar.Moment.UTCOffsetHours,
			LatDeg:         cfg.Solar.Site.LatDeg,
			LonDeg:         cfg.Solar.Site.LonDeg,
		},
		Imaging: imagingJSON{
			Enabled:           cfg.Imaging.Enabled,
			CameraType:        cfg.Imaging.CameraType,
			WidthPx:           cfg.Imaging.WidthPx,
			HeightPx:          cfg.Imaging.HeightPx,
			FOVDeg:            cfg.Imaging.FOVDeg,
			AASamples:         cfg.Imaging.AASamples,
			DirectRays:        cfg.Imaging.DirectRays,
			DiffuseRays:       cfg.Imaging.DiffuseRays,
			ScatteringDepth:   cfg.Imaging.ScatteringDepth,
			SunSphereRadius:   cfg.Imaging.SunSphereRadius,
			SourceFlux:        cfg.Imaging.SourceFlux,
			DiffuseFlux:       cfg.Imaging.DiffuseFlux,
			Segmentation:      cfg.Imaging.Segmentation,
			SegmentationField: cfg.Imaging.SegmentationField,
			ObjectClassID:     cfg.Imaging.ObjectClassID,
			CameraLabel:       cfg.Imaging.CameraLabel,
		},
		Export: exportJSON{
			Save:      cfg.Export.Save,
			OutputDir: cfg.Export.OutputDir,
			PLY:       cfg.Export.PLY,
			OBJ:       cfg.Export.OBJ,
			Manifest:  cfg.Export.Manifest,
		},
		Viewer: viewerJSON{
			Interactive:    cfg.Viewer.Interactive,
			WidthPx:        cfg.Viewer.WidthPx,
			HeightPx:       cfg.Viewer.HeightPx,
			AASamples:      cfg.Viewer.AASamples,
			LightIntensity: cfg.Viewer.LightIntensity,
			LightingModel:  string(cfg.Viewer.LightingModel),
			UseSkyDome:     cfg.Viewer.UseSkyDome,
			SkyTexture:     cfg.Viewer.SkyTexture,
			Background:     [3]float64{cfg.Viewer.Background.R, cfg.Viewer.Background.G, cfg.Viewer.Background.B},
			ShowGrid:       cfg.Viewer.ShowGrid,
		},
		Labeling: cfg.Labeling,
	}
}

func (s scenarioJSON) toConfig() (RunConfig, error) {
	moment, err := scenetime.New(s.Solar.Date, s.Solar.Time, s.Solar.UTCOffsetHours)
	if err != nil {
		return RunConfig{}, err
	}
	return RunConfig{
		Layout: LayoutConfig{
			PlotWidth:      s.Layout.PlotWidth,
			PlotLength:     s.Layout.PlotLength,
			Rows:           s.Layout.Rows,
			RowSpacing:     s.Layout.RowSpacing,
			BeanDensity:    s.Layout.BeanDensity,
			WheatDensity:   s.Layout.WheatDensity,
			BeanEmergence:  s.Layout.BeanEmergence,
			WheatEmergence: s.Layout.WheatEmergence,
			Seed:           s.Layout.Seed,
		},
		Soil: SoilConfig{
			Margin:        s.Soil.Margin,
			Texture:       s.Soil.Texture,
			TextureRepeat: s.Soil.TextureRepeat,
			Subdivisions:  s.Soil.Subdivisions,
			Color:         model.RGB{R: s.Soil.Color[0], G: s.Soil.Color[1], B: s.Soil.Color[2]},
		},
		Growth: GrowthConfig{
			InitialAgeDays: s.Growth.InitialAgeDays,
			TargetAgeDays:  s.Growth.TargetAgeDays,
			BeanAgeDays:    s.Growth.BeanAgeDays,
			WheatAgeDays:   s.Growth.WheatAgeDays,
			Collision: model.CollisionConfig{
				Enabled:          s.Growth.Collision.Enabled,
				ViewHalfAngleDeg: s.Growth.Collision.ViewHalfAngleDeg,
				LookAheadM:       s.Growth.Collision.LookAheadM,
				SampleCount:      s.Growth.Collision.SampleCount,
				Inertia:          s.Growth.Collision.Inertia,
				GroundClearanceM: s.Growth.Collision.GroundClearanceM,
				PruneAtObstacle:  s.Growth.Collision.PruneAtObstacle,
				FruitAdjustment:  s.Growth.Collision.FruitAdjustment,
				Organs: model.OrganSelection{
					Internodes: s.Growth.Collision.Organs.Internodes,
					Leaves:     s.Growth.Collision.Organs.Leaves,
					Petioles:   s.Growth.Collision.Organs.Petioles,
					Flowers:    s.Growth.Collision.Organs.Flowers,
					Fruit:      s.Growth.Collision.Organs.Fruit,
				},
			},
		},
		Solar: SolarConfig{
			Moment: moment,
			Site:   solar.Site{LatDeg: s.Solar.LatDeg, LonDeg: s.Solar.LonDeg},
		},
		Imaging: ImagingConfig{
			Enabled:           s.Imaging.Enabled,
			CameraType:        s.Imaging.CameraType,
			WidthPx:           s.Imaging.WidthPx,
			HeightPx:          s.Imaging.HeightPx,
			FOVDeg:            s.Imaging.FOVDeg,
			AASamples:         s.Imaging.AASamples,
			DirectRays:        s.Imaging.DirectRays,
			DiffuseRays:       s.Imaging.DiffuseRays,
			ScatteringDepth:   s.Imaging.ScatteringDepth,
			SunSphereRadius:   s.Imaging.SunSphereRadius,
			SourceFlux:        s.Imaging.SourceFlux,
			DiffuseFlux:       s.Imaging.DiffuseFlux,
			Segmentation:      s.Imaging.Segmentation,
			SegmentationField: s.Imaging.SegmentationField,
			ObjectClassID:     s.Imaging.ObjectClassID,
			CameraLabel:       s.Imaging.CameraLabel,
		},
		Export: ExportConfig{
			Save:      s.Export.Save,
			OutputDir: s.Export.OutputDir,
			PLY:       s.Export.PLY,
			OBJ:       s.Export.OBJ,
			Manifest:  s.Export.Manifest,
		},
		Viewer: ViewerConfig{
			Interactive:    s.Viewer.Interactive,
			WidthPx:        s.Viewer.WidthPx,
			HeightPx:       s.Viewer.HeightPx,
			AASamples:      s.Viewer.AASamples,
			LightIntensity: s.Viewer.LightIntensity,
			LightingModel:  engine.LightingModel(s.Viewer.LightingModel),
			UseSkyDome:     s.Viewer.UseSkyDome,
			SkyTexture:     s.Viewer.SkyTexture,
			Background:     model.RGB{R: s.Viewer.Background[0], G: s.Viewer.Background[1], B: s.Viewer.Background[2]},
			ShowGrid:       s.Viewer.ShowGrid,
		},
		Labeling: s.Labeling,
		Optics:   DefaultOpticsTable(),
	}, nil
}
