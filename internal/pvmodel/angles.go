package pvmodel

import (
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

// SolarAngles adds solar_zenith (apparent), solar_azimuth and aoi
func (p *Pipeline) SolarAngles(t types.Table) types.Table {
	n := t.Len()
	zenith := make([]float64, n)
	azimuth := make([]float64, n)
	aoi := make([]float64, n)

	loc := p.location()
	for i, ts := range t.Time {
		pos := solar.SunPosition(ts, loc)
		zenith[i] = pos.ApparentZenith
		azimuth[i] = pos.Azimuth
		aoi[i] = solar.AngleOfIncidence(p.inst.Tilt, p.inst.Azimuth, pos)
	}

	t.SolarZenith = zenith
	t.SolarAzimuth = azimuth
	t.AOI = aoi
	return t
}
