package pvmodel

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
	"gonum.org/v1/gonum/floats"
)

// Martin & Ruiz (2001) angular loss constants
const (
	reflectionC1 = 4.0 / (3.0 * math.Pi)
	reflectionC2 = -0.074

	// Below this tilt in radians the ground term uses its series expansion,
	// (t - sin t)/(1 - cos t) ≈ t/3, as the closed form loses all precision
	smallTilt = 1e-4
)

// BeamReflectance returns the fraction of direct irradiance reflected away
// at angle of incidence aoi. It is 0 at normal incidence and 1 at 90°.
func BeamReflectance(aoi, ar float64) float64 {
	floor := math.Exp(-1 / ar)
	return (math.Exp(-math.Cos(degToRad(aoi))/ar) - floor) / (1 - floor)
}

// SkyDiffuseReflectance returns the fraction of sky diffuse irradiance
// reflected away from a panel at the given tilt
func SkyDiffuseReflectance(tilt, ar float64) float64 {
	t := degToRad(tilt)
	part := math.Sin(t) + (math.Pi-t-math.Sin(t))/(1+math.Cos(t))
	return diffuseReflectance(part, ar)
}

// GroundReflectance returns the fraction of ground-reflected irradiance
// reflected away from a panel at the given tilt. A flat panel sees no
// ground, and the value is its limit of 1 there.
func GroundReflectance(tilt, ar float64) float64 {
	t := degToRad(tilt)
	var part float64
	if t < smallTilt {
		part = math.Sin(t) + t/3
	} else {
		part = math.Sin(t) + (t-math.Sin(t))/(1-math.Cos(t))
	}
	return diffuseReflectance(part, ar)
}

func diffuseReflectance(part, ar float64) float64 {
	return math.Exp(-(reflectionC1*part + reflectionC2*part*part) / ar)
}

// absorbed is the share of a component that enters the panel. The
// magnitude is taken rather than clamping the coefficient.
func absorbed(coef float64) float64 {
	return math.Abs(1 - coef)
}

// ReflectionLoss adds dni_rc, dhi_rc, ghi_rc and their sum poa_ref_cor.
// It needs aoi and the plane-of-array components.
func (p *Pipeline) ReflectionLoss(t types.Table) types.Table {
	const stage = "reflection"
	for _, c := range []types.Column{
		{Name: types.ColAOI, Values: t.AOI},
		{Name: types.ColDNIPOA, Values: t.DNIPOA},
		{Name: types.ColDHIPOA, Values: t.DHIPOA},
		{Name: types.ColGHIPOA, Values: t.GHIPOA},
	} {
		if c.Values == nil {
			p.missing(stage, c.Name)
			return t
		}
	}

	ar := p.inst.ReflectanceConstant
	n := t.Len()

	dniRC := make([]float64, n)
	for i := range dniRC {
		dniRC[i] = absorbed(BeamReflectance(t.AOI[i], ar)) * t.DNIPOA[i]
	}

	dhiRC := make([]float64, n)
	floats.ScaleTo(dhiRC, absorbed(SkyDiffuseReflectance(p.inst.Tilt, ar)), t.DHIPOA)

	ghiRC := make([]float64, n)
	floats.ScaleTo(ghiRC, absorbed(GroundReflectance(p.inst.Tilt, ar)), t.GHIPOA)

	poaRefCor := make([]float64, n)
	floats.AddTo(poaRefCor, dniRC, dhiRC)
	floats.Add(poaRefCor, ghiRC)

	t.DNIRC = dniRC
	t.DHIRC = dhiRC
	t.GHIRC = ghiRC
	t.POARefCor = poaRefCor
	return t
}
