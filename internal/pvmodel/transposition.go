package pvmodel

import (
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/chrissnell/pvforecast/pkg/solar"
	"gonum.org/v1/gonum/floats"
)

// DiffuseModel projects diffuse horizontal irradiance onto the panel plane
type DiffuseModel interface {
	Name() string
	SkyDiffuse(inst types.Installation, ts time.Time, dni, dhi float64, pos solar.Position) float64
}

// NewDiffuseModel returns the model registered under name
func NewDiffuseModel(name string) (DiffuseModel, error) {
	switch name {
	case config.DiffuseModelPerez:
		return Perez{}, nil
	case config.DiffuseModelIsotropic:
		return Isotropic{}, nil
	}
	return nil, fmt.Errorf("unknown diffuse model %q", name)
}

// Isotropic treats the sky dome as uniformly bright
type Isotropic struct{}

func (Isotropic) Name() string { return config.DiffuseModelIsotropic }

func (Isotropic) SkyDiffuse(inst types.Installation, _ time.Time, _, dhi float64, _ solar.Position) float64 {
	return dhi * (1 + math.Cos(degToRad(inst.Tilt))) / 2
}

// Perez is the Perez et al. (1990) anisotropic sky model with the
// allsitescomposite1990 coefficient set. It separates circumsolar and
// horizon brightening from the isotropic background.
type Perez struct{}

const perezKappa = 1.041

var (
	perezBins = [8]float64{0, 1.065, 1.23, 1.5, 1.95, 2.8, 4.5, 6.2}

	perezF1 = [8][3]float64{
		{-0.008, 0.588, -0.062},
		{0.130, 0.683, -0.151},
		{0.330, 0.487, -0.221},
		{0.568, 0.187, -0.295},
		{0.873, -0.392, -0.362},
		{1.132, -1.237, -0.412},
		{1.060, -1.600, -0.359},
		{0.678, -0.327, -0.250},
	}

	perezF2 = [8][3]float64{
		{-0.060, 0.072, -0.022},
		{-0.019, 0.066, -0.029},
		{0.055, -0.064, -0.026},
		{0.109, -0.152, -0.014},
		{0.226, -0.462, 0.001},
		{0.288, -0.823, 0.056},
		{0.264, -1.127, 0.131},
		{0.156, -1.377, 0.251},
	}
)

func (Perez) Name() string { return config.DiffuseModelPerez }

// SkyDiffuse returns the Perez sky diffuse irradiance rounded to 0.01 W/m².
// It is exactly 0 when dhi is 0 or the sun is below the horizon.
func (Perez) SkyDiffuse(inst types.Installation, ts time.Time, dni, dhi float64, pos solar.Position) float64 {
	if dhi == 0 {
		return 0
	}
	airmass := solar.RelativeAirMass(pos.ApparentZenith)
	if math.IsNaN(airmass) {
		return 0
	}

	z := degToRad(pos.ApparentZenith)
	kz3 := perezKappa * z * z * z

	delta := dhi * airmass / solar.ExtraterrestrialIrradiance(ts)
	eps := ((dhi+dni)/dhi + kz3) / (1 + kz3)

	bin := 0
	for bin < len(perezBins)-1 && eps >= perezBins[bin+1] {
		bin++
	}

	f1 := math.Max(perezF1[bin][0]+perezF1[bin][1]*delta+perezF1[bin][2]*z, 0)
	f2 := perezF2[bin][0] + perezF2[bin][1]*delta + perezF2[bin][2]*z

	a := math.Max(solar.AOIProjection(inst.Tilt, inst.Azimuth, pos), 0)
	b := math.Max(math.Cos(z), math.Cos(degToRad(85)))

	tiltRad := degToRad(inst.Tilt)
	term1 := 0.5 * (1 - f1) * (1 + math.Cos(tiltRad))
	term2 := f1 * a / b
	term3 := f2 * math.Sin(tiltRad)

	sky := math.Max(dhi*(term1+term2+term3), 0)
	return math.Round(sky*100) / 100
}

// groundViewFactor is the fraction of the ground visible to the panel
func groundViewFactor(tilt float64) float64 {
	return (1 - math.Cos(degToRad(tilt))) / 2
}

func beamPOA(dni, aoi float64) float64 {
	return math.Abs(dni * math.Cos(degToRad(aoi)))
}

// Transpose adds dni_poa, dhi_poa, ghi_poa and poa. It needs the columns
// written by SolarAngles.
func (p *Pipeline) Transpose(t types.Table) types.Table {
	const stage = "transposition"
	switch {
	case t.AOI == nil:
		p.missing(stage, types.ColAOI)
		return t
	case t.SolarZenith == nil:
		p.missing(stage, types.ColSolarZenith)
		return t
	case t.SolarAzimuth == nil:
		p.missing(stage, types.ColSolarAzimuth)
		return t
	}

	n := t.Len()
	dniPOA := make([]float64, n)
	dhiPOA := make([]float64, n)
	for i := range t.Time {
		dniPOA[i] = beamPOA(t.DNI[i], t.AOI[i])
		pos := solar.Position{Azimuth: t.SolarAzimuth[i], ApparentZenith: t.SolarZenith[i]}
		dhiPOA[i] = p.diffuse.SkyDiffuse(p.inst, t.Time[i], t.DNI[i], t.DHI[i], pos)
	}

	// ghi * (albedo * view factor)
	ghiPOA := make([]float64, n)
	vf := groundViewFactor(p.inst.Tilt)
	if t.Albedo != nil {
		floats.ScaleTo(ghiPOA, vf, t.Albedo)
		for i, a := range t.Albedo {
			if math.IsNaN(a) {
				ghiPOA[i] = p.inst.Albedo * vf
			}
		}
		floats.Mul(ghiPOA, t.GHI)
	} else {
		floats.ScaleTo(ghiPOA, p.inst.Albedo*vf, t.GHI)
	}

	poa := make([]float64, n)
	floats.AddTo(poa, dniPOA, dhiPOA)
	floats.Add(poa, ghiPOA)

	t.DNIPOA = dniPOA
	t.DHIPOA = dhiPOA
	t.GHIPOA = ghiPOA
	t.POA = poa
	return t
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
