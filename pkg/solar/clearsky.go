package solar

import (
	"math"
	"time"
)

// Irradiance holds the three horizontal irradiance components, W/m²
type Irradiance struct {
	DNI float64
	DHI float64
	GHI float64
}

// ClearSkyIneichen returns the Ineichen-Perez clear-sky irradiance at
// instant t for loc, with the given Linke turbidity. All components are
// zero while the sun is below the horizon.
func ClearSkyIneichen(t time.Time, loc Location, linkeTurbidity float64) Irradiance {
	pos := SunPosition(t, loc)
	if pos.ApparentZenith >= 90 {
		return Irradiance{}
	}

	amRelative := RelativeAirMass(pos.ApparentZenith)
	amAbsolute := amRelative * PressureFromAltitude(loc.Altitude) / 101325

	return ineichen(pos.ApparentZenith, amAbsolute, linkeTurbidity, loc.Altitude, ExtraterrestrialIrradiance(t))
}

func ineichen(apparentZenith, amAbsolute, tl, altitude, dniExtra float64) Irradiance {
	cosZenith := math.Max(math.Cos(degToRad(apparentZenith)), 0)
	if cosZenith == 0 || math.IsNaN(amAbsolute) {
		return Irradiance{}
	}

	fh1 := math.Exp(-altitude / 8000)
	fh2 := math.Exp(-altitude / 1250)
	cg1 := 5.09e-05*altitude + 0.868
	cg2 := 3.92e-05*altitude + 0.0387

	ghi := math.Exp(-cg2 * amAbsolute * (fh1 + fh2*(tl-1)))
	ghi = cg1 * dniExtra * cosZenith * math.Max(ghi, 0)

	b := 0.664 + 0.163/fh1
	bnci := dniExtra * math.Max(b*math.Exp(-0.09*amAbsolute*(tl-1)), 0)

	bnci2 := (1 - (0.1-0.2*math.Exp(-tl))/(0.1+0.882/fh1)) / cosZenith
	bnci2 = ghi * math.Min(math.Max(bnci2, 0), 1e20)

	dni := math.Min(bnci, bnci2)
	return Irradiance{
		DNI: dni,
		DHI: ghi - dni*cosZenith,
		GHI: ghi,
	}
}
