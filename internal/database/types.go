package database

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
)

// EstimatesFromBatch converts a finished batch into rows, one per record
func EstimatesFromBatch(b types.Batch) []Estimate {
	rows := make([]Estimate, 0, b.Table.Len())
	for _, r := range b.Table.Records() {
		rows = append(rows, Estimate{
			Time:         r.Time,
			Installation: b.Installation,
			RunID:        b.RunID,
			CreatedAt:    b.CreatedAt,
			DNI:          nullable(r.DNI),
			DHI:          nullable(r.DHI),
			GHI:          nullable(r.GHI),
			Albedo:       nullable(r.Albedo),
			AirTemp:      nullable(r.AirTemp),
			Wind:         nullable(r.Wind),
			CloudCover:   nullable(r.CloudCover),
			SolarZenith:  nullable(r.SolarZenith),
			SolarAzimuth: nullable(r.SolarAzimuth),
			AOI:          nullable(r.AOI),
			DNIPOA:       nullable(r.DNIPOA),
			DHIPOA:       nullable(r.DHIPOA),
			GHIPOA:       nullable(r.GHIPOA),
			POA:          nullable(r.POA),
			DNIRC:        nullable(r.DNIRC),
			DHIRC:        nullable(r.DHIRC),
			GHIRC:        nullable(r.GHIRC),
			POARefCor:    nullable(r.POARefCor),
			ModuleTemp:   nullable(r.ModuleTemp),
			Output:       nullable(r.Output),
		})
	}
	return rows
}

// Record converts a stored row back into a record
func (e Estimate) Record() types.Record {
	return types.Record{
		Time:         e.Time,
		DNI:          value(e.DNI),
		DHI:          value(e.DHI),
		GHI:          value(e.GHI),
		Albedo:       value(e.Albedo),
		AirTemp:      value(e.AirTemp),
		Wind:         value(e.Wind),
		CloudCover:   value(e.CloudCover),
		SolarZenith:  value(e.SolarZenith),
		SolarAzimuth: value(e.SolarAzimuth),
		AOI:          value(e.AOI),
		DNIPOA:       value(e.DNIPOA),
		DHIPOA:       value(e.DHIPOA),
		GHIPOA:       value(e.GHIPOA),
		POA:          value(e.POA),
		DNIRC:        value(e.DNIRC),
		DHIRC:        value(e.DHIRC),
		GHIRC:        value(e.GHIRC),
		POARefCor:    value(e.POARefCor),
		ModuleTemp:   value(e.ModuleTemp),
		Output:       value(e.Output),
	}
}

// TableFromEstimates rebuilds a table from rows ordered by time
func TableFromEstimates(rows []Estimate) types.Table {
	records := make([]types.Record, len(rows))
	for i, e := range rows {
		records[i] = e.Record()
	}
	return types.TableFromRecords(records)
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
