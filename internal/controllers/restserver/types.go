package restserver

import (
	"time"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/pvmodel"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/pkg/responseformat"
)

// InstallationResponse describes a configured installation
type InstallationResponse struct {
	Name              string  `json:"name"`
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	Altitude          float64 `json:"altitude"`
	Timezone          string  `json:"timezone"`
	Tilt              float64 `json:"tilt"`
	Azimuth           float64 `json:"azimuth"`
	RatedPowerKW      float64 `json:"rated_power_kw"`
	DiffuseModel      string  `json:"diffuse_model"`
	ResolutionMinutes int     `json:"resolution_minutes"`
}

// EstimateRecord is one estimated record for JSON output. Undefined values
// are null.
type EstimateRecord struct {
	Timestamp int64     `json:"ts"`
	Time      time.Time `json:"time"`

	DNI        responseformat.Float `json:"dni"`
	DHI        responseformat.Float `json:"dhi"`
	GHI        responseformat.Float `json:"ghi"`
	Albedo     responseformat.Float `json:"albedo"`
	AirTemp    responseformat.Float `json:"air_temp"`
	Wind       responseformat.Float `json:"wind"`
	CloudCover responseformat.Float `json:"cloud_cover"`

	SolarZenith  responseformat.Float `json:"solar_zenith"`
	SolarAzimuth responseformat.Float `json:"solar_azimuth"`
	AOI          responseformat.Float `json:"aoi"`

	DNIPOA responseformat.Float `json:"dni_poa"`
	DHIPOA responseformat.Float `json:"dhi_poa"`
	GHIPOA responseformat.Float `json:"ghi_poa"`
	POA    responseformat.Float `json:"poa"`

	DNIRC     responseformat.Float `json:"dni_rc"`
	DHIRC     responseformat.Float `json:"dhi_rc"`
	GHIRC     responseformat.Float `json:"ghi_rc"`
	POARefCor responseformat.Float `json:"poa_ref_cor"`

	ModuleTemp responseformat.Float `json:"module_temp"`
	Output     responseformat.Float `json:"output"`
}

// EstimateResponse is a run of estimates for one installation
type EstimateResponse struct {
	Installation string                 `json:"installation"`
	RunID        string                 `json:"run_id,omitempty"`
	CreatedAt    *time.Time             `json:"created_at,omitempty"`
	Records      []EstimateRecord       `json:"records"`
	Days         []pvmodel.DailySummary `json:"days"`
}

// DailyResponse is the per-day energy of an installation
type DailyResponse struct {
	Installation string                 `json:"installation"`
	RunID        string                 `json:"run_id,omitempty"`
	Days         []pvmodel.DailySummary `json:"days"`
}

// StoredResponse holds estimates read back from TimescaleDB
type StoredResponse struct {
	Installation string                  `json:"installation"`
	Records      []EstimateRecord        `json:"records,omitempty"`
	Buckets      []database.OutputBucket `json:"buckets,omitempty"`
}

// HealthResponse reports the service and storage backend state
type HealthResponse struct {
	Status        string                        `json:"status"`
	Version       string                        `json:"version"`
	Installations int                           `json:"installations"`
	Storage       map[string]storage.HealthData `json:"storage"`
}
