package pvmodel

import (
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

// Weather says which weather columns the batch a record came from carries.
type Weather struct {
	Wind    bool
	AirTemp bool
}

// WeatherOf reports the weather columns present in t.
func WeatherOf(t types.Table) Weather {
	return Weather{Wind: t.Wind != nil, AirTemp: t.AirTemp != nil}
}

// ProcessRecord runs every stage on a single record with the same
// arithmetic and fallback rules as Run. Wind and air temperature take the
// installation fallback only when the batch lacks that column; undefined
// cells of a present column stay undefined. A single record has no batch
// to average over, so an invalid albedo takes the configured value.
func (p *Pipeline) ProcessRecord(r types.Record, present Weather) types.Record {
	pos := solar.SunPosition(r.Time, p.location())
	r.SolarZenith = pos.ApparentZenith
	r.SolarAzimuth = pos.Azimuth
	r.AOI = solar.AngleOfIncidence(p.inst.Tilt, p.inst.Azimuth, pos)

	albedo := p.inst.Albedo
	if validAlbedo(r.Albedo) {
		albedo = r.Albedo
	}

	pos = solar.Position{Azimuth: r.SolarAzimuth, ApparentZenith: r.SolarZenith}
	r.DNIPOA = beamPOA(r.DNI, r.AOI)
	r.DHIPOA = p.diffuse.SkyDiffuse(p.inst, r.Time, r.DNI, r.DHI, pos)
	r.GHIPOA = r.GHI * (albedo * groundViewFactor(p.inst.Tilt))
	r.POA = r.DNIPOA + r.DHIPOA + r.GHIPOA

	ar := p.inst.ReflectanceConstant
	r.DNIRC = absorbed(BeamReflectance(r.AOI, ar)) * r.DNIPOA
	r.DHIRC = absorbed(SkyDiffuseReflectance(p.inst.Tilt, ar)) * r.DHIPOA
	r.GHIRC = absorbed(GroundReflectance(p.inst.Tilt, ar)) * r.GHIPOA
	r.POARefCor = r.DNIRC + r.DHIRC + r.GHIRC

	if !present.Wind {
		r.Wind = p.inst.Wind
	}
	if !present.AirTemp {
		r.AirTemp = p.inst.AirTemp
	}
	r.ModuleTemp = ModuleTemp(r.POARefCor, r.Wind, p.inst.ModuleElevation, r.AirTemp)
	r.Output = HuldOutput(r.POARefCor, r.ModuleTemp, p.inst.RatedPower)

	return r
}
