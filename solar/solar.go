// Package solar computes the sun's apparent position and clear-sky direct
// flux for a scene moment at a geodetic site. The position comes from the
// low-precision solar series reduced against the same Julian-date and
// sidereal-time machinery the orbital tooling uses, which keeps the angles
// consistent with everything else derived from satellite.JDay.
package solar

import (
	"errors"
	"fmt"
	"math"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/agrisight/intercrop-scenegen/model"
	"github.com/agrisight/intercrop-scenegen/scenetime"
)

var (
	ErrNoMoment = errors.New("solar: scene moment not set")
	ErrBadSite  = errors.New("solar: site out of range")
)

// Atmosphere assumed by the clear-sky flux model. Scenes are staged at one
// mid-latitude moment; a configurable atmosphere is not worth its surface.
const (
	pressurePa    = 101325.0
	temperatureK  = 293.15
	relHumidity   = 0.6
	turbidity     = 0.05
	solarConstWm2 = 1361.0

	kmPerAU = 1.495978707e8
)

// Site is a geodetic observer location.
type Site struct {
	LatDeg float64
	LonDeg float64
}

// Compute returns the sun state for the given moment at the site. It is a
// pure function of its arguments.
func Compute(m scenetime.Moment, site Site) (model.SolarRecord, error) {
	if m.IsZero() {
		return model.SolarRecord{}, ErrNoMoment
	}
	if site.LatDeg < -90 || site.LatDeg > 90 {
		return model.SolarRecord{}, fmt.Errorf("%w: latitude %.4f", ErrBadSite, site.LatDeg)
	}
	if site.LonDeg < -180 || site.LonDeg > 180 {
		return model.SolarRecord{}, fmt.Errorf("%w: longitude %.4f", ErrBadSite, site.LonDeg)
	}

	t := m.UTC()
	jd := satellite.JDay(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	obs := satellite.LatLong{
		Latitude:  site.LatDeg * satellite.DEG2RAD,
		Longitude: site.LonDeg * satellite.DEG2RAD,
	}
	look := satellite.ECIToLookAngles(sunPositionECI(jd), obs, 0, jd)

	elevDeg := look.El * satellite.RAD2DEG
	azDeg := math.Mod(look.Az*satellite.RAD2DEG+360, 360)

	return model.SolarRecord{
		ElevationDeg: elevDeg,
		AzimuthDeg:   azDeg,
		Direction:    directionFromAngles(elevDeg, azDeg),
		FluxWm2:      clearSkyFlux(elevDeg),
		Moment:       m,
	}, nil
}

// sunPositionECI returns the geocentric sun position of date in km, from the
// low-precision series in the Astronomical Almanac (accurate to ~0.01 deg,
// well under a pixel at the scene's image scale).
func sunPositionECI(jd float64) satellite.Vector3 {
	n := jd - 2451545.0

	meanLonDeg := math.Mod(280.460+0.9856474*n, 360)
	g := (357.528 + 0.9856003*n) * satellite.DEG2RAD
	eclLon := (meanLonDeg + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)) * satellite.DEG2RAD
	obliquity := (23.439 - 0.0000004*n) * satellite.DEG2RAD
	distKm := (1.00014 - 0.01671*math.Cos(g) - 0.00014*math.Cos(2*g)) * kmPerAU

	return satellite.Vector3{
		X: distKm * math.Cos(eclLon),
		Y: distKm * math.Cos(obliquity) * math.Sin(eclLon),
		Z: distKm * math.Sin(obliquity) * math.Sin(eclLon),
	}
}

// directionFromAngles converts elevation/azimuth to a unit vector toward the
// sun in scene coordinates (+x east, +y north, +z up). Azimuth is clockwise
// from north.
func directionFromAngles(elevDeg, azDeg float64) model.Vec3 {
	el := elevDeg * satellite.DEG2RAD
	az := azDeg * satellite.DEG2RAD
	return model.Vec3{
		X: math.Cos(el) * math.Sin(az),
		Y: math.Cos(el) * math.Cos(az),
		Z: math.Sin(el),
	}
}

// clearSkyFlux returns broadband direct-normal irradiance from a
// Kasten-Young air-mass attenuation with the assumed atmosphere: pressure
// scaling, Meinel-form extinction, a water-vapour damping for the assumed
// humidity, and a Beer-Lambert aerosol term for the assumed turbidity.
func clearSkyFlux(elevDeg float64) float64 {
	if elevDeg <= 0 {
		return 0
	}
	zenith := 90 - elevDeg

	airMass := 1 / (math.Cos(zenith*satellite.DEG2RAD) + 0.50572*math.Pow(96.07995-zenith, -1.6364))
	airMass *= pressurePa / 101325.0

	atten := math.Pow(0.7, math.Pow(airMass, 0.678))
	atten *= 1 - 0.077*relHumidity
	atten *= math.Exp(-turbidity * airMass)

	return solarConstWm2 * atten
}
