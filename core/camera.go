package core

import (
	"math"

	"github.com/agrisight/intercrop-scenegen/model"
)

// DefaultNadirMargin is the safety factor applied to the nadir camera height
// so the footprint diagonal sits comfortably inside the field of view.
const DefaultNadirMargin = 1.1

// Oblique viewer pose multipliers, relative to the larger plot dimension.
const (
	obliqueDistanceFactor = 1.2
	obliqueHeightFactor   = 1.0
	obliqueLookAtZ        = 0.4
)

// NadirHeight returns the camera height that captures the full width×length
// footprint in an overhead view: the footprint diagonal must fit the field
// of view, scaled by the margin factor.
//
//	height = marginFactor × (diagonal/2) / tan(fov/2)
func NadirHeight(width, length, fovDeg, marginFactor float64) float64 {
	diagonal := math.Hypot(width, length)
	halfFOV := fovDeg * math.Pi / 360
	return marginFactor * (diagonal / 2) / math.Tan(halfFOV)
}

// NadirPose returns the overhead camera position and look-at point for the
// given footprint. The footprint must already include any soil margin; the
// camera hangs over its center and looks straight down.
func NadirPose(width, length, fovDeg, marginFactor float64) (pos, lookAt model.Vec3) {
	h := NadirHeight(width, length, fovDeg, marginFactor)
	cx, cy := width/2, length/2
	return model.Vec3{X: cx, Y: cy, Z: h}, model.Vec3{X: cx, Y: cy, Z: 0}
}

// ObliquePose returns an angled viewer pose: offset diagonally from the soil
// center by the larger plot dimension, looking back at the center slightly
// above the ground. The offset scales with the plot alone so the viewing
// angle stays put when the soil margin changes.
func ObliquePose(plotWidth, plotLength, soilMargin float64) (pos, lookAt model.Vec3) {
	soilW := plotWidth + 2*soilMargin
	soilL := plotLength + 2*soilMargin
	maxDim := math.Max(plotWidth, plotLength)

	lookAt = model.Vec3{X: soilW / 2, Y: soilL / 2, Z: obliqueLookAtZ}
	pos = model.Vec3{
		X: lookAt.X + maxDim*obliqueDistanceFactor,
		Y: lookAt.Y + maxDim*obliqueDistanceFactor,
		Z: maxDim * obliqueHeightFactor,
	}
	return pos, lookAt
}
