package core

import (
	"fmt"

	"github.com/agrisight/intercrop-scenegen/engine"
	"github.com/agrisight/intercrop-scenegen/model"
	"github.com/agrisight/intercrop-scenegen/scenetime"
	"github.com/agrisight/intercrop-scenegen/solar"
)

// Camera types selectable for imaging.
const (
	CameraTypeRGB           = "rgb"
	CameraTypeMultispectral = "multispectral"
)

// LayoutConfig drives the position generator.
type LayoutConfig struct {
	PlotWidth  float64 // metres
	PlotLength float64 // metres
	Rows       int
	RowSpacing float64 // metres

	BeanDensity  float64 // seeds per square metre
	WheatDensity float64
	// Emergence rates in (0, 1]: the fraction of sown seeds that come up.
	BeanEmergence  float64
	WheatEmergence float64

	// Seed drives the layout draw and is reused as the engine scene seed,
	// so one number reproduces the whole scene.
	Seed int64
}

// Validate checks the generator's preconditions. The clamp interval
// [0.05, dim-0.05] must be non-empty, hence the 0.1 m floor on dimensions.
func (c LayoutConfig) Validate() error {
	if c.PlotWidth <= 0.1 || c.PlotLength <= 0.1 {
		return fmt.Errorf("plot %.3fx%.3f m too small, need > 0.1 m per side", c.PlotWidth, c.PlotLength)
	}
	if c.Rows < 1 {
		return fmt.Errorf("row count %d, need at least 1", c.Rows)
	}
	if c.RowSpacing <= 0 {
		return fmt.Errorf("row spacing %.3f, need > 0", c.RowSpacing)
	}
	if c.BeanDensity < 0 || c.WheatDensity < 0 {
		return fmt.Errorf("negative sowing density (bean %.1f, wheat %.1f)", c.BeanDensity, c.WheatDensity)
	}
	if c.BeanEmergence <= 0 || c.BeanEmergence > 1 {
		return fmt.Errorf("bean emergence %.3f outside (0, 1]", c.BeanEmergence)
	}
	if c.WheatEmergence <= 0 || c.WheatEmergence > 1 {
		return fmt.Errorf("wheat emergence %.3f outside (0, 1]", c.WheatEmergence)
	}
	return nil
}

// SoilConfig shapes the ground the plot sits on.
type SoilConfig struct {
	// Margin is extra soil around the plot on every side, metres.
	Margin        float64
	Texture       string // built-in texture name, resolved via the asset resolver
	TextureRepeat float64
	Subdivisions  int // tile subdivisions for the untextured fallback
	Color         model.RGB
}

func (c SoilConfig) Validate() error {
	if c.Margin < 0 {
		return fmt.Errorf("soil margin %.3f, need >= 0", c.Margin)
	}
	if c.Subdivisions < 1 {
		return fmt.Errorf("soil subdivisions %d, need >= 1", c.Subdivisions)
	}
	if c.TextureRepeat <= 0 {
		return fmt.Errorf("texture repeat %.2f, need > 0", c.TextureRepeat)
	}
	return nil
}

// GrowthConfig drives plant building and growth.
type GrowthConfig struct {
	// InitialAgeDays is the age plants are built at, before collision-aware
	// growth runs.
	InitialAgeDays float64
	// TargetAgeDays is the age plants are grown to.
	TargetAgeDays float64
	// Per-species target overrides; 0 means use TargetAgeDays. Growth
	// advances once, by the largest growth interval.
	BeanAgeDays  float64
	WheatAgeDays float64

	Collision model.CollisionConfig
}

// AgeFor returns the effective target age for a species.
func (c GrowthConfig) AgeFor(s model.Species) float64 {
	switch s {
	case model.SpeciesBean:
		if c.BeanAgeDays > 0 {
			return c.BeanAgeDays
		}
	case model.SpeciesWheat:
		if c.WheatAgeDays > 0 {
			return c.WheatAgeDays
		}
	}
	return c.TargetAgeDays
}

// GrowthDays returns the single advance interval: the largest per-species
// growth time past the initial age, floored at zero.
func (c GrowthConfig) GrowthDays() float64 {
	days := 0.0
	for _, s := range model.KnownSpecies() {
		if d := c.AgeFor(s) - c.InitialAgeDays; d > days {
			days = d
		}
	}
	return days
}

func (c GrowthConfig) Validate() error {
	if c.InitialAgeDays < 0 {
		return fmt.Errorf("initial age %.1f, need >= 0", c.InitialAgeDays)
	}
	if c.TargetAgeDays < 0 || c.BeanAgeDays < 0 || c.WheatAgeDays < 0 {
		return fmt.Errorf("negative target age")
	}
	col := c.Collision
	if !col.Enabled {
		return nil
	}
	if col.ViewHalfAngleDeg <= 0 || col.ViewHalfAngleDeg > 90 {
		return fmt.Errorf("collision view half-angle %.1f outside (0, 90]", col.ViewHalfAngleDeg)
	}
	if col.LookAheadM <= 0 {
		return fmt.Errorf("collision look-ahead %.3f, need > 0", col.LookAheadM)
	}
	if col.SampleCount < 1 {
		return fmt.Errorf("collision sample count %d, need >= 1", col.SampleCount)
	}
	if col.Inertia < 0 || col.Inertia > 1 {
		return fmt.Errorf("collision inertia %.2f outside [0, 1]", col.Inertia)
	}
	if col.GroundClearanceM < 0 {
		return fmt.Errorf("ground clearance %.3f, need >= 0", col.GroundClearanceM)
	}
	return nil
}

// SolarConfig places the scene in time and on the globe.
type SolarConfig struct {
	Moment scenetime.Moment
	Site   solar.Site
}

func (c SolarConfig) Validate() error {
	if c.Moment.IsZero() {
		return fmt.Errorf("scene moment not set")
	}
	if c.Site.LatDeg < -90 || c.Site.LatDeg > 90 {
		return fmt.Errorf("latitude %.4f outside [-90, 90]", c.Site.LatDeg)
	}
	if c.Site.LonDeg < -180 || c.Site.LonDeg > 180 {
		return fmt.Errorf("longitude %.4f outside [-180, 180]", c.Site.LonDeg)
	}
	return nil
}

// ImagingConfig drives the radiation render.
type ImagingConfig struct {
	Enabled    bool
	CameraType string // rgb or multispectral

	WidthPx   int
	HeightPx  int
	FOVDeg    float64
	AASamples int

	DirectRays      int
	DiffuseRays     int
	ScatteringDepth int
	SunSphereRadius float64

	// Per-band source and diffuse-sky flux in W/m². Keys must cover the
	// band set exactly; a band registered without flux renders black and a
	// flux without a band is a configuration mistake either way.
	SourceFlux  map[string]float64
	DiffuseFlux map[string]float64

	Segmentation      bool
	SegmentationField string
	ObjectClassID     int

	CameraLabel string
}

// Bands returns the band set the camera type implies.
func (c ImagingConfig) Bands() model.BandSet {
	if c.CameraType == CameraTypeMultispectral {
		return model.MultispectralBands()
	}
	return model.RGBBands()
}

// ImageBase returns the base file name for the rendered image.
func (c ImagingConfig) ImageBase() string {
	if c.CameraType == CameraTypeMultispectral {
		return "multispectral"
	}
	return "rgb"
}

func (c ImagingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.CameraType != CameraTypeRGB && c.CameraType != CameraTypeMultispectral {
		return fmt.Errorf("camera type %q, need %s or %s", c.CameraType, CameraTypeRGB, CameraTypeMultispectral)
	}
	if c.WidthPx < 1 || c.HeightPx < 1 {
		return fmt.Errorf("camera resolution %dx%d", c.WidthPx, c.HeightPx)
	}
	if c.FOVDeg <= 0 || c.FOVDeg >= 180 {
		return fmt.Errorf("camera FOV %.1f outside (0, 180)", c.FOVDeg)
	}
	if c.AASamples < 1 {
		return fmt.Errorf("antialiasing samples %d, need >= 1", c.AASamples)
	}
	if c.DirectRays < 1 || c.DiffuseRays < 1 {
		return fmt.Errorf("ray counts %d/%d, need >= 1", c.DirectRays, c.DiffuseRays)
	}
	if c.ScatteringDepth < 0 {
		return fmt.Errorf("scattering depth %d, need >= 0", c.ScatteringDepth)
	}
	if c.SunSphereRadius <= 0 {
		return fmt.Errorf("sun sphere radius %.2f, need > 0", c.SunSphereRadius)
	}
	if c.CameraLabel == "" {
		return fmt.Errorf("camera label empty")
	}
	if c.Segmentation && c.SegmentationField == "" {
		return fmt.Errorf("segmentation field empty")
	}
	for _, band := range c.Bands().Names() {
		if _, ok := c.SourceFlux[band]; !ok {
			return fmt.Errorf("no source flux for band %s", band)
		}
		if _, ok := c.DiffuseFlux[band]; !ok {
			return fmt.Errorf("no diffuse flux for band %s", band)
		}
	}
	return nil
}

// ExportConfig controls on-disk artifacts.
type ExportConfig struct {
	Save      bool
	OutputDir string
	PLY       bool
	OBJ       bool
	Manifest  bool
}

func (c ExportConfig) Validate() error {
	if c.Save && c.OutputDir == "" {
		return fmt.Errorf("save requested with empty output dir")
	}
	return nil
}

// ViewerConfig drives the interactive 3-D view.
type ViewerConfig struct {
	Interactive bool

	WidthPx   int
	HeightPx  int
	AASamples int

	LightIntensity float64
	LightingModel  engine.LightingModel

	UseSkyDome bool
	SkyTexture string
	Background model.RGB

	ShowGrid bool
}

func (c ViewerConfig) Validate() error {
	if !c.Interactive {
		return nil
	}
	if c.WidthPx < 1 || c.HeightPx < 1 {
		return fmt.Errorf("viewer resolution %dx%d", c.WidthPx, c.HeightPx)
	}
	if c.AASamples < 1 {
		return fmt.Errorf("viewer antialiasing samples %d, need >= 1", c.AASamples)
	}
	if c.LightIntensity < 0 {
		return fmt.Errorf("light intensity %.2f, need >= 0", c.LightIntensity)
	}
	switch c.LightingModel {
	case engine.LightingNone, engine.LightingPhong, engine.LightingPhongShadowed:
	default:
		return fmt.Errorf("lighting model %q unknown", c.LightingModel)
	}
	if c.UseSkyDome && c.SkyTexture == "" {
		return fmt.Errorf("sky dome requested with empty texture name")
	}
	return nil
}

// RunConfig is everything one pipeline run needs.
type RunConfig struct {
	Layout  LayoutConfig
	Soil    SoilConfig
	Growth  GrowthConfig
	Solar   SolarConfig
	Imaging ImagingConfig
	Export  ExportConfig
	Viewer  ViewerConfig

	// Labeling forces the label pass even when segmentation imagery is not
	// requested, so exported geometry still carries species labels.
	Labeling bool

	Optics OpticsTable
}

// Validate fans out to every stage config.
func (c RunConfig) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"layout", c.Layout.Validate()},
		{"soil", c.Soil.Validate()},
		{"growth", c.Growth.Validate()},
		{"solar", c.Solar.Validate()},
		{"imaging", c.Imaging.Validate()},
		{"export", c.Export.Validate()},
		{"viewer", c.Viewer.Validate()},
	}
	for _, chk := range checks {
		if chk.err != nil {
			return fmt.Errorf("%s config: %w", chk.name, chk.err)
		}
	}
	if c.Imaging.Enabled {
		if err := c.Optics.Covers(c.Imaging.Bands()); err != nil {
			return fmt.Errorf("optics table: %w", err)
		}
	}
	return nil
}

// DefaultRunConfig returns the reference configuration: a 1x1 m plot, four
// rows of beans at field density, June midday sun over the Rhineland trial
// site, imaging and viewing off.
func DefaultRunConfig() RunConfig {
	moment, err := scenetime.New("2022-06-14", "12:00", 2)
	if err != nil {
		panic("default moment: " + err.Error())
	}
	return RunConfig{
		Layout: LayoutConfig{
			PlotWidth:      1.0,
			PlotLength:     1.0,
			Rows:           4,
			RowSpacing:     0.21,
			BeanDensity:    36,
			WheatDensity:   0,
			BeanEmergence:  0.875,
			WheatEmergence: 0.80,
			Seed:           42,
		},
		Soil: SoilConfig{
			Margin:        0.3,
			Texture:       "dirt.jpg",
			TextureRepeat: 2,
			Subdivisions:  30,
			Color:         model.RGB{R: 0.35, G: 0.25, B: 0.18},
		},
		Growth: GrowthConfig{
			InitialAgeDays: 5,
			TargetAgeDays:  40,
			Collision:      model.DefaultCollision(),
		},
		Solar: SolarConfig{
			Moment: moment,
			Site:   solar.Site{LatDeg: 50.865, LonDeg: 7.134},
		},
		Imaging: ImagingConfig{
			Enabled:           false,
			CameraType:        CameraTypeRGB,
			WidthPx:           1024,
			HeightPx:          1024,
			FOVDeg:            60,
			AASamples:         100,
			DirectRays:        2000,
			DiffuseRays:       5000,
			ScatteringDepth:   4,
			SunSphereRadius:   0.5,
			SourceFlux:        DefaultSourceFlux(),
			DiffuseFlux:       DefaultDiffuseFlux(),
			Segmentation:      false,
			SegmentationField: "plant_part",
			ObjectClassID:     1,
			CameraLabel:       "nadir_camera",
		},
		Export: ExportConfig{
			Save:      false,
			OutputDir: "output",
			PLY:       true,
			OBJ:       true,
			Manifest:  true,
		},
		Viewer: ViewerConfig{
			Interactive:    false,
			WidthPx:        1920,
			HeightPx:       1080,
			AASamples:      8,
			LightIntensity: 1.5,
			LightingModel:  engine.LightingPhongShadowed,
			SkyTexture:     "SkyDome_clouds.jpg",
			Background:     model.RGB{R: 0.5, G: 0.7, B: 1.0},
		},
		Optics: DefaultOpticsTable(),
	}
}

// DefaultSourceFlux returns the per-band sun flux tuned for balanced color
// rendering.
func DefaultSourceFlux() map[string]float64 {
	return map[string]float64{
		model.BandRed:   900,
		model.BandGreen: 900,
		model.BandBlue:  800,
		model.BandNIR:   1000,
	}
}

// DefaultDiffuseFlux returns the per-band diffuse skylight flux.
func DefaultDiffuseFlux() map[string]float64 {
	return map[string]float64{
		model.BandRed:   180,
		model.BandGreen: 180,
		model.BandBlue:  160,
		model.BandNIR:   200,
	}
}
