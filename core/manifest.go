package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agrisight/intercrop-scenegen/model"
)

// WriteManifest writes the human-readable run manifest into dir. The
// manifest documents what the scene contains and how it was staged, so a
// run directory stays interpretable long after the logs are gone.
func WriteManifest(dir string, cfg RunConfig, st *RunState) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Scene Export - %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	counts := st.PlantCounts()
	area := cfg.Layout.PlotWidth * cfg.Layout.PlotLength

	b.WriteString("## Scene Contents\n\n")
	fmt.Fprintf(&b, "- **Plot Size**: %.2fm × %.2fm (%.2f m²)\n",
		cfg.Layout.PlotWidth, cfg.Layout.PlotLength, area)
	fmt.Fprintf(&b, "- **Bean Plants**: %d plants (%.1f/m²)\n",
		counts[model.SpeciesBean], float64(counts[model.SpeciesBean])/area)
	fmt.Fprintf(&b, "- **Wheat Plants**: %d plants (%.1f/m²)\n",
		counts[model.SpeciesWheat], float64(counts[model.SpeciesWheat])/area)
	fmt.Fprintf(&b, "- **Total Primitives**: %d\n", st.Primitives)
	fmt.Fprintf(&b, "- **Plant Age**: %.0f days (bean), %.0f days (wheat)\n\n",
		cfg.Growth.AgeFor(model.SpeciesBean), cfg.Growth.AgeFor(model.SpeciesWheat))

	b.WriteString("## Plot Configuration\n\n")
	fmt.Fprintf(&b, "- **Rows**: %d\n", cfg.Layout.Rows)
	fmt.Fprintf(&b, "- **Row Spacing**: %.2fm\n", cfg.Layout.RowSpacing)
	fmt.Fprintf(&b, "- **Bean Sowing Density**: %.1f seeds/m²\n", cfg.Layout.BeanDensity)
	fmt.Fprintf(&b, "- **Wheat Sowing Density**: %.1f seeds/m²\n", cfg.Layout.WheatDensity)
	fmt.Fprintf(&b, "- **Bean Emergence Rate**: %.1f%%\n", cfg.Layout.BeanEmergence*100)
	fmt.Fprintf(&b, "- **Wheat Emergence Rate**: %.1f%%\n", cfg.Layout.WheatEmergence*100)
	fmt.Fprintf(&b, "- **Random Seed**: %d\n\n", cfg.Layout.Seed)

	writeCollisionSection(&b, cfg.Growth.Collision)
	writeEnvironmentSection(&b, cfg, st)
	if cfg.Imaging.Enabled {
		writeImagingSection(&b, cfg.Imaging, st)
	}
	writeFilesSection(&b, cfg, st)
	writeStagesSection(&b, st)

	b.WriteString("## Usage\n\n")
	b.WriteString("### Import to Blender:\n")
	b.WriteString("```\n")
	b.WriteString("File → Import → Stanford (.ply) or Wavefront (.obj)\n")
	b.WriteString("OBJ import preserves material groups for easy selection\n")
	b.WriteString("```\n")

	return os.WriteFile(filepath.Join(dir, ManifestName), []byte(b.String()), 0o644)
}

func writeCollisionSection(b *strings.Builder, c model.CollisionConfig) {
	b.WriteString("## Collision Avoidance\n\n")
	if !c.Enabled {
		b.WriteString("- **Mode**: Disabled\n\n")
		return
	}
	b.WriteString("- **Mode**: Soft collision + ground obstacle pruning\n")
	fmt.Fprintf(b, "- **View Half-Angle**: %.0f°\n", c.ViewHalfAngleDeg)
	fmt.Fprintf(b, "- **Look-Ahead Distance**: %.2fm\n", c.LookAheadM)
	fmt.Fprintf(b, "- **Ray Samples**: %d\n", c.SampleCount)
	fmt.Fprintf(b, "- **Inertia Weight**: %.2f\n", c.Inertia)
	fmt.Fprintf(b, "- **Ground Clearance**: %.2fm\n", c.GroundClearanceM)
	fmt.Fprintf(b, "- **Collision Organs**: %s\n\n", organsLabel(c.Organs))
}

func organsLabel(o model.OrganSelection) string {
	var parts []string
	add := func(on bool, name string) {
		if on {
			parts = append(parts, name)
		}
	}
	add(o.Internodes, "Internodes")
	add(o.Leaves, "Leaves")
	add(o.Petioles, "Petioles")
	add(o.Flowers, "Flowers")
	add(o.Fruit, "Fruit")
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, " + ")
}

func writeEnvironmentSection(b *strings.Builder, cfg RunConfig, st *RunState) {
	b.WriteString("## Environmental Settings\n\n")
	fmt.Fprintf(b, "- **Date/Time**: %s\n", cfg.Solar.Moment)
	fmt.Fprintf(b, "- **Location**: %.4f°N, %.4f°E\n", cfg.Solar.Site.LatDeg, cfg.Solar.Site.LonDeg)
	if st.Solar == nil {
		b.WriteString("- **Sun State**: not computed\n\n")
		return
	}
	fmt.Fprintf(b, "- **Sun Elevation**: %.1f°\n", st.Solar.ElevationDeg)
	fmt.Fprintf(b, "- **Sun Azimuth**: %.1f°\n", st.Solar.AzimuthDeg)
	fmt.Fprintf(b, "- **Solar Flux**: %.0f W/m²\n\n", st.Solar.FluxWm2)
}

func writeImagingSection(b *strings.Builder, icfg ImagingConfig, st *RunState) {
	b.WriteString("## Imaging\n\n")
	fmt.Fprintf(b, "- **Camera**: %s (%s)\n", icfg.CameraLabel, icfg.CameraType)
	fmt.Fprintf(b, "- **Resolution**: %d × %d px\n", icfg.WidthPx, icfg.HeightPx)
	fmt.Fprintf(b, "- **Field of View**: %.1f°\n", icfg.FOVDeg)
	fmt.Fprintf(b, "- **Bands**: %s\n", strings.Join(icfg.Bands().Names(), ", "))
	if icfg.Segmentation {
		fmt.Fprintf(b, "- **Segmentation**: on, field %q, class %d\n",
			icfg.SegmentationField, icfg.ObjectClassID)
	}
	if st.FallbackLabeled > 0 {
		fmt.Fprintf(b, "- **Fallback-Labeled Primitives**: %d\n", st.FallbackLabeled)
	}
	b.WriteString("\n")
}

func writeFilesSection(b *strings.Builder, cfg RunConfig, st *RunState) {
	b.WriteString("## Files\n\n")
	if cfg.Export.PLY {
		fmt.Fprintf(b, "- `%s` - 3D geometry (Blender/MeshLab compatible)\n", PLYName)
	}
	if cfg.Export.OBJ {
		fmt.Fprintf(b, "- `%s` - Wavefront OBJ with material groups\n", OBJName)
	}
	fmt.Fprintf(b, "- `%s` - This metadata file\n", ManifestName)
	for _, img := range st.Images {
		fmt.Fprintf(b, "- `%s`\n", img)
	}
	b.WriteString("\n")
}

func writeStagesSection(b *strings.Builder, st *RunState) {
	if len(st.Outcomes) == 0 {
		return
	}
	b.WriteString("## Pipeline Stages\n\n")
	for _, o := range st.Outcomes {
		switch o.Status {
		case StageSkipped:
			fmt.Fprintf(b, "- %s: %s\n", o.Stage, o.Status)
		case StageFailed:
			fmt.Fprintf(b, "- %s: %s (%v)\n", o.Stage, o.Status, o.Err)
		default:
			fmt.Fprintf(b, "- %s: %s in %s\n", o.Stage, o.Status, o.Duration.Round(time.Millisecond))
		}
	}
	b.WriteString("\n")
}
