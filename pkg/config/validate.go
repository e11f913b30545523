package config

import (
	"fmt"
	"math"
	"time"
)

const (
	DiffuseModelPerez     = "perez"
	DiffuseModelIsotropic = "isotropic"

	SourceClearSky = "clearsky"
	SourceCSV      = "csv"
)

// DefaultInstallation returns an InstallationData holding every default.
// Providers start from it and overwrite the values present in their source.
func DefaultInstallation() InstallationData {
	return InstallationData{
		Enabled:             true,
		Timezone:            "UTC",
		Albedo:              0.25,
		ModuleElevation:     10,
		WindSpeed:           2,
		AirTemp:             20,
		DataResolution:      60,
		DiffuseModel:        DiffuseModelPerez,
		ReflectanceConstant: 0.159,
		LinkeTurbidity:      3.0,
		Source:              SourceData{Type: SourceClearSky},
		ForecastDays:        3,
		RefreshInterval:     "1h",
	}
}

// Validate checks every field of an installation for a usable value
func (d *InstallationData) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("installation name is required")
	}
	// NaN passes every range check below
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"latitude", d.Latitude},
		{"longitude", d.Longitude},
		{"altitude", d.Altitude},
		{"tilt", d.Tilt},
		{"azimuth", d.Azimuth},
		{"rated power", d.RatedPower},
		{"albedo", d.Albedo},
		{"module elevation", d.ModuleElevation},
		{"wind speed", d.WindSpeed},
		{"air temperature", d.AirTemp},
		{"reflectance constant", d.ReflectanceConstant},
		{"linke turbidity", d.LinkeTurbidity},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return fmt.Errorf("installation [%s]: %s must be a finite number", d.Name, f.name)
		}
	}
	if d.Latitude < -90 || d.Latitude > 90 {
		return fmt.Errorf("installation [%s]: latitude %v outside [-90, 90]", d.Name, d.Latitude)
	}
	if d.Longitude < -180 || d.Longitude > 180 {
		return fmt.Errorf("installation [%s]: longitude %v outside [-180, 180]", d.Name, d.Longitude)
	}
	if d.Tilt < 0 || d.Tilt > 90 {
		return fmt.Errorf("installation [%s]: tilt %v outside [0, 90]", d.Name, d.Tilt)
	}
	if d.Azimuth < 0 || d.Azimuth >= 360 {
		return fmt.Errorf("installation [%s]: azimuth %v outside [0, 360)", d.Name, d.Azimuth)
	}
	if d.RatedPower <= 0 {
		return fmt.Errorf("installation [%s]: rated power must be positive", d.Name)
	}
	if d.Albedo < 0 || d.Albedo > 1 {
		return fmt.Errorf("installation [%s]: albedo %v outside [0, 1]", d.Name, d.Albedo)
	}
	if d.ModuleElevation < 0 {
		return fmt.Errorf("installation [%s]: module elevation cannot be negative", d.Name)
	}
	if d.WindSpeed < 0 {
		return fmt.Errorf("installation [%s]: wind speed cannot be negative", d.Name)
	}
	if d.DataResolution <= 0 || (60%d.DataResolution != 0 && d.DataResolution%60 != 0) {
		return fmt.Errorf("installation [%s]: data resolution %d must divide 60 or be a multiple of 60", d.Name, d.DataResolution)
	}
	switch d.DiffuseModel {
	case DiffuseModelPerez, DiffuseModelIsotropic:
	default:
		return fmt.Errorf("installation [%s]: unknown diffuse model %q", d.Name, d.DiffuseModel)
	}
	if d.ReflectanceConstant <= 0 {
		return fmt.Errorf("installation [%s]: reflectance constant must be positive", d.Name)
	}
	if d.LinkeTurbidity <= 0 {
		return fmt.Errorf("installation [%s]: linke turbidity must be positive", d.Name)
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("installation [%s]: invalid timezone %q: %w", d.Name, d.Timezone, err)
	}
	switch d.Source.Type {
	case SourceClearSky:
	case SourceCSV:
		if d.Source.File == "" {
			return fmt.Errorf("installation [%s]: csv source requires a file", d.Name)
		}
	default:
		return fmt.Errorf("installation [%s]: unknown source type %q", d.Name, d.Source.Type)
	}
	if d.ForecastDays < 1 {
		return fmt.Errorf("installation [%s]: forecast days must be at least 1", d.Name)
	}
	interval, err := time.ParseDuration(d.RefreshInterval)
	if err != nil {
		return fmt.Errorf("installation [%s]: invalid refresh interval: %w", d.Name, err)
	}
	if interval <= 0 {
		return fmt.Errorf("installation [%s]: refresh interval must be positive", d.Name)
	}
	return nil
}

// Validate checks the complete configuration
func (c *ConfigData) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Installations {
		inst := &c.Installations[i]
		if err := inst.Validate(); err != nil {
			return err
		}
		if seen[inst.Name] {
			return fmt.Errorf("duplicate installation name [%s]", inst.Name)
		}
		seen[inst.Name] = true
	}

	for _, ctrl := range c.Controllers {
		switch ctrl.Type {
		case "rest":
			if ctrl.RESTServer == nil {
				return fmt.Errorf("rest controller is missing its rest: section")
			}
		default:
			return fmt.Errorf("unknown controller type %q", ctrl.Type)
		}
	}
	return nil
}
