// Package solar computes sun geometry and clear-sky irradiance for a site.
//
// Angles are in degrees throughout. Azimuths run clockwise from north:
// 0=N, 90=E, 180=S, 270=W.
package solar

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/meeus/v3/sidereal"
	meeussolar "github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

const (
	// SolarConstant is the mean extraterrestrial irradiance at 1 AU, W/m²
	SolarConstant = 1366.1

	// Below this true elevation the refraction correction is not applied
	refractionLimit = -0.8333

	j2000 = 2451545.0
)

// Location is an observer on the Earth's surface
type Location struct {
	Latitude  float64
	Longitude float64 // east positive
	Altitude  float64 // meters above sea level
}

// Position is the sun's place in the observer's sky
type Position struct {
	Azimuth        float64
	Zenith         float64
	ApparentZenith float64
}

// Elevation returns the refracted elevation above the horizon
func (p Position) Elevation() float64 {
	return 90 - p.ApparentZenith
}

// SunPosition returns the sun position at instant t seen from loc.
// The apparent zenith includes atmospheric refraction.
func SunPosition(t time.Time, loc Location) Position {
	// UT is used for JDE as well. ΔT is about a minute, far below the
	// sampling resolution of any irradiance series.
	jd := julian.TimeToJD(t.UTC())

	α, δ := meeussolar.ApparentEquatorial(jd)
	st := sidereal.Apparent(jd)

	// meeus measures longitude positive westward and azimuth from south
	A, h := coord.EqToHz(α, δ, unit.AngleFromDeg(loc.Latitude), unit.AngleFromDeg(-loc.Longitude), st)

	elevation := h.Deg()
	apparent := elevation
	if elevation >= refractionLimit {
		apparent += refraction.Saemundsson(h).Deg()
	}

	return Position{
		Azimuth:        normalizeDegrees(A.Deg() + 180),
		Zenith:         90 - elevation,
		ApparentZenith: 90 - apparent,
	}
}

// EarthSunDistance returns the Sun-Earth distance in AU at instant t
func EarthSunDistance(t time.Time) float64 {
	T := (julian.TimeToJD(t.UTC()) - j2000) / 36525
	return meeussolar.Radius(T)
}

// ExtraterrestrialIrradiance returns the normal irradiance at the top of
// the atmosphere at instant t, W/m²
func ExtraterrestrialIrradiance(t time.Time) float64 {
	r := EarthSunDistance(t)
	return SolarConstant / (r * r)
}

// AOIProjection returns the cosine of the angle between the sun vector and
// the normal of a surface with the given tilt and azimuth, limited to [-1, 1].
func AOIProjection(tilt, azimuth float64, pos Position) float64 {
	tiltRad := degToRad(tilt)
	zenRad := degToRad(pos.ApparentZenith)
	projection := math.Cos(tiltRad)*math.Cos(zenRad) +
		math.Sin(tiltRad)*math.Sin(zenRad)*math.Cos(degToRad(pos.Azimuth-azimuth))
	return math.Max(-1, math.Min(1, projection))
}

// AngleOfIncidence returns the angle between the sun vector and the surface
// normal, clamped to at most 90 degrees. Beyond 90 the sun is behind the
// surface and contributes no direct irradiance.
func AngleOfIncidence(tilt, azimuth float64, pos Position) float64 {
	aoi := radToDeg(math.Acos(AOIProjection(tilt, azimuth, pos)))
	if aoi > 90 {
		return 90
	}
	return aoi
}

// RelativeAirMass returns the Kasten-Young (1989) relative optical air mass
// for an apparent zenith angle. It is NaN when the sun is below the horizon.
func RelativeAirMass(apparentZenith float64) float64 {
	if apparentZenith > 90 || math.IsNaN(apparentZenith) {
		return math.NaN()
	}
	return 1.0 / (math.Cos(degToRad(apparentZenith)) + 0.50572*math.Pow(6.07995+(90-apparentZenith), -1.6364))
}

// PressureFromAltitude returns the standard atmospheric pressure in Pa at
// the given altitude in meters
func PressureFromAltitude(altitude float64) float64 {
	return 100 * math.Pow((44331.514-altitude)/11880.516, 1/0.1902632)
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}

func radToDeg(rad float64) float64 {
	return rad * (180.0 / math.Pi)
}

// normalizeDegrees wraps an angle into [0, 360)
func normalizeDegrees(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	return angle
}
