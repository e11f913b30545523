package pvmodel

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
)

// Huld (2010) crystalline silicon coefficients
const (
	huldK1 = -0.017162
	huldK2 = -0.040289
	huldK3 = -0.004681
	huldK4 = 0.000148
	huldK5 = 0.000169
	huldK6 = 0.000005

	// Below this absorbed irradiance, W/m², output is 0
	minAbsorbed = 0.1
	// The fitted efficiency turns negative at very low irradiance
	minEfficiency = 0.5
)

// HuldEfficiency returns the relative efficiency at absorbed irradiance
// W/m² and module temperature °C, floored at 0.5
func HuldEfficiency(absorbedW, moduleTemp float64) float64 {
	lnG := math.Log(absorbedW / 1000)
	tdiff := moduleTemp - 25

	eff := 1 + huldK1*lnG + huldK2*lnG*lnG +
		tdiff*(huldK3+huldK4*lnG+huldK5*lnG*lnG) +
		huldK6*tdiff*tdiff
	return math.Max(eff, minEfficiency)
}

// HuldOutput returns the output in watts for a system of ratedPowerW.
// It is exactly 0 below 0.1 W/m² absorbed and when the model is undefined.
func HuldOutput(absorbedW, moduleTemp, ratedPowerW float64) float64 {
	if absorbedW < minAbsorbed {
		return 0
	}
	out := ratedPowerW * (absorbedW / 1000) * HuldEfficiency(absorbedW, moduleTemp)
	if math.IsNaN(out) {
		return 0
	}
	return out
}

// Output adds output. It needs poa_ref_cor and module_temp.
func (p *Pipeline) Output(t types.Table) types.Table {
	const stage = "output"
	if t.POARefCor == nil {
		p.missing(stage, types.ColPOARefCor)
		return t
	}
	if t.ModuleTemp == nil {
		p.missing(stage, types.ColModuleTemp)
		return t
	}

	out := make([]float64, t.Len())
	for i := range out {
		out[i] = HuldOutput(t.POARefCor[i], t.ModuleTemp[i], p.inst.RatedPower)
	}

	t.Output = out
	return t
}
