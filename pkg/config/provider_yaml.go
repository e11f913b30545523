package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	y.config = config
	return config, nil
}

func parseYAML(b []byte) (*ConfigData, error) {
	var yamlConfig struct {
		Installations []InstallationYAML `yaml:"installations"`
		Storage       StorageYAML        `yaml:"storage,omitempty"`
		Controllers   []ControllerYAML   `yaml:"controllers,omitempty"`
	}

	if err := yaml.Unmarshal(b, &yamlConfig); err != nil {
		return nil, err
	}

	config := &ConfigData{
		Installations: make([]InstallationData, len(yamlConfig.Installations)),
		Controllers:   make([]ControllerData, len(yamlConfig.Controllers)),
	}

	for i, inst := range yamlConfig.Installations {
		config.Installations[i] = inst.toData()
	}

	if yamlConfig.Storage.TimescaleDB != nil {
		config.Storage.TimescaleDB = &TimescaleDBData{
			ConnectionString: yamlConfig.Storage.TimescaleDB.ConnectionString,
		}
	}

	for i, controller := range yamlConfig.Controllers {
		config.Controllers[i] = ControllerData{
			Type: controller.Type,
		}
		if controller.RESTServer != nil {
			config.Controllers[i].RESTServer = &RESTServerData{
				Cert:       controller.RESTServer.Cert,
				Key:        controller.RESTServer.Key,
				Port:       controller.RESTServer.Port,
				ListenAddr: controller.RESTServer.ListenAddr,
			}
		}
	}

	return config, nil
}

// GetInstallations returns installation configurations
func (y *YAMLProvider) GetInstallations() ([]InstallationData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Installations, nil
}

// GetStorageConfig returns storage configuration
func (y *YAMLProvider) GetStorageConfig() (*StorageData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return &y.config.Storage, nil
}

// GetControllers returns controller configurations
func (y *YAMLProvider) GetControllers() ([]ControllerData, error) {
	if y.config == nil {
		_, err := y.LoadConfig()
		if err != nil {
			return nil, err
		}
	}
	return y.config.Controllers, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// InstallationYAML uses pointers for every value that has a default so an
// omitted key can be told apart from an explicit zero.
type InstallationYAML struct {
	Name                string     `yaml:"name"`
	Enabled             *bool      `yaml:"enabled,omitempty"`
	Latitude            float64    `yaml:"latitude"`
	Longitude           float64    `yaml:"longitude"`
	Altitude            float64    `yaml:"altitude,omitempty"`
	Timezone            string     `yaml:"timezone,omitempty"`
	Tilt                float64    `yaml:"tilt"`
	Azimuth             float64    `yaml:"azimuth"`
	RatedPower          float64    `yaml:"rated-power"`
	Albedo              *float64   `yaml:"albedo,omitempty"`
	ModuleElevation     *float64   `yaml:"module-elevation,omitempty"`
	WindSpeed           *float64   `yaml:"wind-speed,omitempty"`
	AirTemp             *float64   `yaml:"air-temp,omitempty"`
	DataResolution      int        `yaml:"data-resolution,omitempty"`
	DiffuseModel        string     `yaml:"diffuse-model,omitempty"`
	ReflectanceConstant *float64   `yaml:"reflectance-constant,omitempty"`
	LinkeTurbidity      *float64   `yaml:"linke-turbidity,omitempty"`
	Source              SourceYAML `yaml:"source,omitempty"`
	ForecastDays        int        `yaml:"forecast-days,omitempty"`
	RefreshInterval     string     `yaml:"refresh-interval,omitempty"`
}

type SourceYAML struct {
	Type         string `yaml:"type,omitempty"`
	File         string `yaml:"file,omitempty"`
	ShiftMinutes int    `yaml:"shift-minutes,omitempty"`
	WeatherFile  string `yaml:"weather-file,omitempty"`
}

type StorageYAML struct {
	TimescaleDB *TimescaleDBYAML `yaml:"timescaledb,omitempty"`
}

type TimescaleDBYAML struct {
	ConnectionString string `yaml:"connection-string"`
}

type ControllerYAML struct {
	Type       string          `yaml:"type,omitempty"`
	RESTServer *RESTServerYAML `yaml:"rest,omitempty"`
}

type RESTServerYAML struct {
	Cert       string `yaml:"cert,omitempty"`
	Key        string `yaml:"key,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	ListenAddr string `yaml:"listen-addr,omitempty"`
}

func (iy InstallationYAML) toData() InstallationData {
	d := DefaultInstallation()
	d.Name = iy.Name
	d.Latitude = iy.Latitude
	d.Longitude = iy.Longitude
	d.Altitude = iy.Altitude
	d.Tilt = iy.Tilt
	d.Azimuth = iy.Azimuth
	d.RatedPower = iy.RatedPower

	if iy.Enabled != nil {
		d.Enabled = *iy.Enabled
	}
	if iy.Timezone != "" {
		d.Timezone = iy.Timezone
	}
	if iy.Albedo != nil {
		d.Albedo = *iy.Albedo
	}
	if iy.ModuleElevation != nil {
		d.ModuleElevation = *iy.ModuleElevation
	}
	if iy.WindSpeed != nil {
		d.WindSpeed = *iy.WindSpeed
	}
	if iy.AirTemp != nil {
		d.AirTemp = *iy.AirTemp
	}
	if iy.DataResolution != 0 {
		d.DataResolution = iy.DataResolution
	}
	if iy.DiffuseModel != "" {
		d.DiffuseModel = iy.DiffuseModel
	}
	if iy.ReflectanceConstant != nil {
		d.ReflectanceConstant = *iy.ReflectanceConstant
	}
	if iy.LinkeTurbidity != nil {
		d.LinkeTurbidity = *iy.LinkeTurbidity
	}
	if iy.Source.Type != "" {
		d.Source.Type = iy.Source.Type
	}
	d.Source.File = iy.Source.File
	d.Source.ShiftMinutes = iy.Source.ShiftMinutes
	d.Source.WeatherFile = iy.Source.WeatherFile
	if iy.ForecastDays != 0 {
		d.ForecastDays = iy.ForecastDays
	}
	if iy.RefreshInterval != "" {
		d.RefreshInterval = iy.RefreshInterval
	}
	return d
}
