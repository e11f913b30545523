package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetInstallations() ([]InstallationData, error)
	GetStorageConfig() (*StorageData, error)
	GetControllers() ([]ControllerData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Installations []InstallationData `json:"installations"`
	Storage       StorageData        `json:"storage,omitempty"`
	Controllers   []ControllerData   `json:"controllers,omitempty"`
}

// InstallationData describes one PV installation. Values are resolved:
// defaults have already been applied by the provider that loaded them.
type InstallationData struct {
	Name      string  `json:"name"`
	Enabled   bool    `json:"enabled"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	// Site altitude above sea level in meters, used by the clear-sky model
	Altitude float64 `json:"altitude"`
	Timezone string  `json:"timezone"`

	// Panel tilt from horizontal and azimuth (0=N, 90=E, clockwise), degrees
	Tilt    float64 `json:"tilt"`
	Azimuth float64 `json:"azimuth"`

	// Rated power at standard test conditions, kW
	RatedPower float64 `json:"rated_power"`

	Albedo          float64 `json:"albedo"`
	ModuleElevation float64 `json:"module_elevation"`
	WindSpeed       float64 `json:"wind_speed"`
	AirTemp         float64 `json:"air_temp"`

	// Minutes between samples
	DataResolution int `json:"data_resolution"`

	DiffuseModel        string  `json:"diffuse_model"`
	ReflectanceConstant float64 `json:"reflectance_constant"`
	LinkeTurbidity      float64 `json:"linke_turbidity"`

	Source          SourceData `json:"source"`
	ForecastDays    int        `json:"forecast_days"`
	RefreshInterval string     `json:"refresh_interval"`
}

// SourceData selects where irradiance for an installation comes from
type SourceData struct {
	Type string `json:"type"`
	File string `json:"file,omitempty"`
	// Shift applied to every timestamp read from File, e.g. -30 to move
	// hourly meteorological stamps to interval centers
	ShiftMinutes int `json:"shift_minutes,omitempty"`
	// Optional CSV with wind and air temperature merged onto the batch
	WeatherFile string `json:"weather_file,omitempty"`
}

// StorageData holds the configuration for various storage backends
type StorageData struct {
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string"`
}

// ControllerData holds the configuration for various controller backends
type ControllerData struct {
	Type       string          `json:"type,omitempty"`
	RESTServer *RESTServerData `json:"rest,omitempty"`
}

type RESTServerData struct {
	Cert       string `json:"cert,omitempty"`
	Key        string `json:"key,omitempty"`
	Port       int    `json:"port,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
}

// FindInstallation returns the named installation from c
func (c *ConfigData) FindInstallation(name string) (InstallationData, bool) {
	for _, inst := range c.Installations {
		if inst.Name == name {
			return inst, true
		}
	}
	return InstallationData{}, false
}
