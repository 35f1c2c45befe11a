package model

import "github.com/agrisight/intercrop-scenegen/scenetime"

// SolarRecord captures the sun state computed for a scene moment. It feeds
// the radiation source, the viewer lighting, and the run manifest.
type SolarRecord struct {
	// ElevationDeg is the sun's angle above the horizon; negative at night.
	ElevationDeg float64
	// AzimuthDeg is measured clockwise from north.
	AzimuthDeg float64
	// Direction is the unit vector toward the sun in scene coordinates.
	Direction Vec3
	// FluxWm2 is the clear-sky direct normal irradiance; 0 when the sun is
	// at or below the horizon.
	FluxWm2 float64

	Moment scenetime.Moment
}

// ZenithDeg is the angle from straight up, the form radiation sources take.
func (r SolarRecord) ZenithDeg() float64 {
	return 90 - r.ElevationDeg
}
