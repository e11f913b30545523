package restserver

import (
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/responseformat"
)

func (h *Handlers) transformRecords(t types.Table) []EstimateRecord {
	records := make([]EstimateRecord, 0, t.Len())
	for _, r := range t.Records() {
		records = append(records, transformRecord(r))
	}
	return records
}

func transformRecord(r types.Record) EstimateRecord {
	return EstimateRecord{
		Timestamp:    r.Time.UnixMilli(),
		Time:         r.Time,
		DNI:          responseformat.Float(r.DNI),
		DHI:          responseformat.Float(r.DHI),
		GHI:          responseformat.Float(r.GHI),
		Albedo:       responseformat.Float(r.Albedo),
		AirTemp:      responseformat.Float(r.AirTemp),
		Wind:         responseformat.Float(r.Wind),
		CloudCover:   responseformat.Float(r.CloudCover),
		SolarZenith:  responseformat.Float(r.SolarZenith),
		SolarAzimuth: responseformat.Float(r.SolarAzimuth),
		AOI:          responseformat.Float(r.AOI),
		DNIPOA:       responseformat.Float(r.DNIPOA),
		DHIPOA:       responseformat.Float(r.DHIPOA),
		GHIPOA:       responseformat.Float(r.GHIPOA),
		POA:          responseformat.Float(r.POA),
		DNIRC:        responseformat.Float(r.DNIRC),
		DHIRC:        responseformat.Float(r.DHIRC),
		GHIRC:        responseformat.Float(r.GHIRC),
		POARefCor:    responseformat.Float(r.POARefCor),
		ModuleTemp:   responseformat.Float(r.ModuleTemp),
		Output:       responseformat.Float(r.Output),
	}
}

func transformInstallation(inst types.Installation) InstallationResponse {
	tz := "UTC"
	if inst.Location != nil {
		tz = inst.Location.String()
	}
	return InstallationResponse{
		Name:              inst.Name,
		Latitude:          inst.Latitude,
		Longitude:         inst.Longitude,
		Altitude:          inst.Altitude,
		Timezone:          tz,
		Tilt:              inst.Tilt,
		Azimuth:           inst.Azimuth,
		RatedPowerKW:      inst.RatedPower / 1000,
		DiffuseModel:      inst.DiffuseModel,
		ResolutionMinutes: int(inst.Resolution / time.Minute),
	}
}
