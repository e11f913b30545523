package pvmodel

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
)

// King (2004) open-rack glass/cell/polymer constants
const (
	kingA = -3.47
	kingB = -0.0594

	// Height in meters the wind coefficients refer to
	kingReferenceHeight = 10.0
	windProfileExponent = 0.1429
)

// AdjustedWind scales a wind reading to the module's mounting height
func AdjustedWind(wind, elevation float64) float64 {
	return wind * math.Pow(elevation/kingReferenceHeight, windProfileExponent)
}

// ModuleTemp returns the King (2004) module temperature in °C for absorbed
// irradiance in W/m², wind in m/s at elevation meters and air temperature
// in °C. An undefined result falls back to the air temperature.
func ModuleTemp(absorbedW, wind, elevation, airTemp float64) float64 {
	temp := absorbedW*math.Exp(kingA+kingB*AdjustedWind(wind, elevation)) + airTemp
	if math.IsNaN(temp) {
		return airTemp
	}
	return temp
}

// FillWeather adds constant wind and air_temp columns holding the
// installation fallbacks when the table has none. Existing columns are
// left as they are.
func (p *Pipeline) FillWeather(t types.Table) types.Table {
	n := t.Len()
	if t.Wind == nil {
		t.Wind = constant(n, p.inst.Wind)
		p.logger.Debugf("no wind column, using %.1f m/s", p.inst.Wind)
	}
	if t.AirTemp == nil {
		t.AirTemp = constant(n, p.inst.AirTemp)
		p.logger.Debugf("no air temperature column, using %.1f °C", p.inst.AirTemp)
	}
	return t
}

// ModuleTemperature adds module_temp. It needs air_temp, wind and
// poa_ref_cor.
func (p *Pipeline) ModuleTemperature(t types.Table) types.Table {
	const stage = "module temperature"
	for _, c := range []types.Column{
		{Name: types.ColAirTemp, Values: t.AirTemp},
		{Name: types.ColWind, Values: t.Wind},
		{Name: types.ColPOARefCor, Values: t.POARefCor},
	} {
		if c.Values == nil {
			p.missing(stage, c.Name)
			return t
		}
	}

	temp := make([]float64, t.Len())
	for i := range temp {
		temp[i] = ModuleTemp(t.POARefCor[i], t.Wind[i], p.inst.ModuleElevation, t.AirTemp[i])
	}

	t.ModuleTemp = temp
	return t
}

func constant(n int, v float64) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = v
	}
	return col
}
