package database

import (
	"time"

	"github.com/google/uuid"
)

// Estimate is one estimated record as stored in TimescaleDB. Undefined
// values are stored as NULL.
type Estimate struct {
	Time         time.Time `gorm:"column:time;not null"`
	Installation string    `gorm:"column:installation;not null"`
	RunID        uuid.UUID `gorm:"column:run_id;type:uuid;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`

	DNI        *float64 `gorm:"column:dni"`
	DHI        *float64 `gorm:"column:dhi"`
	GHI        *float64 `gorm:"column:ghi"`
	Albedo     *float64 `gorm:"column:albedo"`
	AirTemp    *float64 `gorm:"column:air_temp"`
	Wind       *float64 `gorm:"column:wind"`
	CloudCover *float64 `gorm:"column:cloud_cover"`

	SolarZenith  *float64 `gorm:"column:solar_zenith"`
	SolarAzimuth *float64 `gorm:"column:solar_azimuth"`
	AOI          *float64 `gorm:"column:aoi"`

	DNIPOA *float64 `gorm:"column:dni_poa"`
	DHIPOA *float64 `gorm:"column:dhi_poa"`
	GHIPOA *float64 `gorm:"column:ghi_poa"`
	POA    *float64 `gorm:"column:poa"`

	DNIRC     *float64 `gorm:"column:dni_rc"`
	DHIRC     *float64 `gorm:"column:dhi_rc"`
	GHIRC     *float64 `gorm:"column:ghi_rc"`
	POARefCor *float64 `gorm:"column:poa_ref_cor"`

	ModuleTemp *float64 `gorm:"column:module_temp"`
	Output     *float64 `gorm:"column:output"`
}

// TableName implements the Tabler interface for the Estimate struct
func (Estimate) TableName() string {
	return "pv_estimates"
}

// OutputBucket is the aggregated output of one time bucket
type OutputBucket struct {
	Bucket    time.Time `gorm:"column:bucket" json:"bucket" msgpack:"bucket"`
	AvgOutput float64   `gorm:"column:avg_output" json:"avg_output_w" msgpack:"avg_output_w"`
	MaxOutput float64   `gorm:"column:max_output" json:"max_output_w" msgpack:"max_output_w"`
	AvgPOA    float64   `gorm:"column:avg_poa" json:"avg_poa" msgpack:"avg_poa"`
	Samples   int       `gorm:"column:samples" json:"samples" msgpack:"samples"`
}
