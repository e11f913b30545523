// Package types holds the data shared between the estimation pipeline and
// its collaborators: the record table, the installation value and batches.
package types

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingColumn is returned when a mandatory raw column is absent
	ErrMissingColumn = errors.New("missing mandatory column")
	// ErrLengthMismatch is returned when a column's length differs from the time column
	ErrLengthMismatch = errors.New("column length mismatch")
	// ErrUnordered is returned when timestamps are not strictly increasing
	ErrUnordered = errors.New("timestamps not in increasing order")
)

// Column names as used in CSV headers, storage and the REST API
const (
	ColTime         = "time"
	ColDNI          = "dni"
	ColDHI          = "dhi"
	ColGHI          = "ghi"
	ColAlbedo       = "albedo"
	ColAirTemp      = "air_temp"
	ColWind         = "wind"
	ColCloudCover   = "cloud_cover"
	ColSolarZenith  = "solar_zenith"
	ColSolarAzimuth = "solar_azimuth"
	ColAOI          = "aoi"
	ColDNIPOA       = "dni_poa"
	ColDHIPOA       = "dhi_poa"
	ColGHIPOA       = "ghi_poa"
	ColPOA          = "poa"
	ColDNIRC        = "dni_rc"
	ColDHIRC        = "dhi_rc"
	ColGHIRC        = "ghi_rc"
	ColPOARefCor    = "poa_ref_cor"
	ColModuleTemp   = "module_temp"
	ColOutput       = "output"
)

// Table is a column-oriented batch of records ordered by time.
//
// A nil column is absent. An individual undefined value is NaN. Pipeline
// stages never write into an existing slice; they assign new ones, so a
// Table copied by value shares its input columns safely.
type Table struct {
	Time []time.Time

	// Raw irradiance, W/m²
	DNI []float64
	DHI []float64
	GHI []float64

	// Optional weather
	Albedo     []float64
	AirTemp    []float64
	Wind       []float64
	CloudCover []float64

	// Solar geometry, degrees
	SolarZenith  []float64
	SolarAzimuth []float64
	AOI          []float64

	// Plane-of-array irradiance, W/m²
	DNIPOA []float64
	DHIPOA []float64
	GHIPOA []float64
	POA    []float64

	// Reflection-corrected irradiance, W/m²
	DNIRC     []float64
	DHIRC     []float64
	GHIRC     []float64
	POARefCor []float64

	ModuleTemp []float64
	Output     []float64
}

// Column is a named float column
type Column struct {
	Name   string
	Values []float64
}

// Len returns the number of records
func (t Table) Len() int {
	return len(t.Time)
}

// Columns returns every present float column in pipeline order
func (t Table) Columns() []Column {
	all := []Column{
		{ColDNI, t.DNI},
		{ColDHI, t.DHI},
		{ColGHI, t.GHI},
		{ColAlbedo, t.Albedo},
		{ColAirTemp, t.AirTemp},
		{ColWind, t.Wind},
		{ColCloudCover, t.CloudCover},
		{ColSolarZenith, t.SolarZenith},
		{ColSolarAzimuth, t.SolarAzimuth},
		{ColAOI, t.AOI},
		{ColDNIPOA, t.DNIPOA},
		{ColDHIPOA, t.DHIPOA},
		{ColGHIPOA, t.GHIPOA},
		{ColPOA, t.POA},
		{ColDNIRC, t.DNIRC},
		{ColDHIRC, t.DHIRC},
		{ColGHIRC, t.GHIRC},
		{ColPOARefCor, t.POARefCor},
		{ColModuleTemp, t.ModuleTemp},
		{ColOutput, t.Output},
	}

	present := all[:0]
	for _, c := range all {
		if c.Values != nil {
			present = append(present, c)
		}
	}
	return present
}

func (t *Table) ref(name string) *[]float64 {
	switch name {
	case ColDNI:
		return &t.DNI
	case ColDHI:
		return &t.DHI
	case ColGHI:
		return &t.GHI
	case ColAlbedo:
		return &t.Albedo
	case ColAirTemp:
		return &t.AirTemp
	case ColWind:
		return &t.Wind
	case ColCloudCover:
		return &t.CloudCover
	case ColSolarZenith:
		return &t.SolarZenith
	case ColSolarAzimuth:
		return &t.SolarAzimuth
	case ColAOI:
		return &t.AOI
	case ColDNIPOA:
		return &t.DNIPOA
	case ColDHIPOA:
		return &t.DHIPOA
	case ColGHIPOA:
		return &t.GHIPOA
	case ColPOA:
		return &t.POA
	case ColDNIRC:
		return &t.DNIRC
	case ColDHIRC:
		return &t.DHIRC
	case ColGHIRC:
		return &t.GHIRC
	case ColPOARefCor:
		return &t.POARefCor
	case ColModuleTemp:
		return &t.ModuleTemp
	case ColOutput:
		return &t.Output
	}
	return nil
}

// Column returns the named float column, or nil if it is absent or unknown
func (t Table) Column(name string) []float64 {
	if p := t.ref(name); p != nil {
		return *p
	}
	return nil
}

// WithColumn returns a copy of t with the named column replaced. Unknown
// names leave the table unchanged.
func (t Table) WithColumn(name string, values []float64) Table {
	if p := t.ref(name); p != nil {
		*p = values
	}
	return t
}

// Validate checks the input schema: the raw irradiance columns must be
// present, every present column must match the time column's length and
// timestamps must be strictly increasing.
func (t Table) Validate() error {
	if t.Time == nil {
		return fmt.Errorf("%w: %s", ErrMissingColumn, ColTime)
	}
	for _, c := range []Column{{ColDNI, t.DNI}, {ColDHI, t.DHI}, {ColGHI, t.GHI}} {
		if c.Values == nil {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c.Name)
		}
	}

	n := t.Len()
	for _, c := range t.Columns() {
		if len(c.Values) != n {
			return fmt.Errorf("%w: %s has %d values, time has %d", ErrLengthMismatch, c.Name, len(c.Values), n)
		}
	}

	for i := 1; i < n; i++ {
		if !t.Time[i].After(t.Time[i-1]) {
			return fmt.Errorf("%w: record %d at %s", ErrUnordered, i, t.Time[i].Format(time.RFC3339))
		}
	}
	return nil
}

// Record is the row view of a Table. Absent or undefined values are NaN.
type Record struct {
	Time time.Time

	DNI        float64
	DHI        float64
	GHI        float64
	Albedo     float64
	AirTemp    float64
	Wind       float64
	CloudCover float64

	SolarZenith  float64
	SolarAzimuth float64
	AOI          float64

	DNIPOA float64
	DHIPOA float64
	GHIPOA float64
	POA    float64

	DNIRC     float64
	DHIRC     float64
	GHIRC     float64
	POARefCor float64

	ModuleTemp float64
	Output     float64
}

// NewRecord returns a record at ts carrying only the raw irradiance. Every
// other field is NaN.
func NewRecord(ts time.Time, dni, dhi, ghi float64) Record {
	nan := math.NaN()
	return Record{
		Time: ts, DNI: dni, DHI: dhi, GHI: ghi,
		Albedo: nan, AirTemp: nan, Wind: nan, CloudCover: nan,
		SolarZenith: nan, SolarAzimuth: nan, AOI: nan,
		DNIPOA: nan, DHIPOA: nan, GHIPOA: nan, POA: nan,
		DNIRC: nan, DHIRC: nan, GHIRC: nan, POARefCor: nan,
		ModuleTemp: nan, Output: nan,
	}
}

func at(col []float64, i int) float64 {
	if col == nil {
		return math.NaN()
	}
	return col[i]
}

// Record returns row i
func (t Table) Record(i int) Record {
	return Record{
		Time:         t.Time[i],
		DNI:          at(t.DNI, i),
		DHI:          at(t.DHI, i),
		GHI:          at(t.GHI, i),
		Albedo:       at(t.Albedo, i),
		AirTemp:      at(t.AirTemp, i),
		Wind:         at(t.Wind, i),
		CloudCover:   at(t.CloudCover, i),
		SolarZenith:  at(t.SolarZenith, i),
		SolarAzimuth: at(t.SolarAzimuth, i),
		AOI:          at(t.AOI, i),
		DNIPOA:       at(t.DNIPOA, i),
		DHIPOA:       at(t.DHIPOA, i),
		GHIPOA:       at(t.GHIPOA, i),
		POA:          at(t.POA, i),
		DNIRC:        at(t.DNIRC, i),
		DHIRC:        at(t.DHIRC, i),
		GHIRC:        at(t.GHIRC, i),
		POARefCor:    at(t.POARefCor, i),
		ModuleTemp:   at(t.ModuleTemp, i),
		Output:       at(t.Output, i),
	}
}

// Records returns every row of t
func (t Table) Records() []Record {
	records := make([]Record, t.Len())
	for i := range records {
		records[i] = t.Record(i)
	}
	return records
}

// TableFromRecords builds a Table from rows. The raw irradiance columns are
// always present; any other column is present when at least one record
// holds a defined value for it.
func TableFromRecords(records []Record) Table {
	n := len(records)
	t := Table{
		Time: make([]time.Time, n),
		DNI:  make([]float64, n),
		DHI:  make([]float64, n),
		GHI:  make([]float64, n),
	}

	optional := func(get func(r Record) float64) []float64 {
		col := make([]float64, n)
		defined := false
		for i, r := range records {
			col[i] = get(r)
			if !math.IsNaN(col[i]) {
				defined = true
			}
		}
		if !defined {
			return nil
		}
		return col
	}

	for i, r := range records {
		t.Time[i] = r.Time
		t.DNI[i] = r.DNI
		t.DHI[i] = r.DHI
		t.GHI[i] = r.GHI
	}

	t.Albedo = optional(func(r Record) float64 { return r.Albedo })
	t.AirTemp = optional(func(r Record) float64 { return r.AirTemp })
	t.Wind = optional(func(r Record) float64 { return r.Wind })
	t.CloudCover = optional(func(r Record) float64 { return r.CloudCover })
	t.SolarZenith = optional(func(r Record) float64 { return r.SolarZenith })
	t.SolarAzimuth = optional(func(r Record) float64 { return r.SolarAzimuth })
	t.AOI = optional(func(r Record) float64 { return r.AOI })
	t.DNIPOA = optional(func(r Record) float64 { return r.DNIPOA })
	t.DHIPOA = optional(func(r Record) float64 { return r.DHIPOA })
	t.GHIPOA = optional(func(r Record) float64 { return r.GHIPOA })
	t.POA = optional(func(r Record) float64 { return r.POA })
	t.DNIRC = optional(func(r Record) float64 { return r.DNIRC })
	t.DHIRC = optional(func(r Record) float64 { return r.DHIRC })
	t.GHIRC = optional(func(r Record) float64 { return r.GHIRC })
	t.POARefCor = optional(func(r Record) float64 { return r.POARefCor })
	t.ModuleTemp = optional(func(r Record) float64 { return r.ModuleTemp })
	t.Output = optional(func(r Record) float64 { return r.Output })

	return t
}

// Batch is one finished estimation run for an installation
type Batch struct {
	RunID        uuid.UUID
	Installation string
	CreatedAt    time.Time
	Table        Table
}

// NewBatch tags table with a fresh run ID
func NewBatch(installation string, table Table) Batch {
	return Batch{
		RunID:        uuid.New(),
		Installation: installation,
		CreatedAt:    time.Now().UTC(),
		Table:        table,
	}
}
