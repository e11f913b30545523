package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
installations:
  - name: helsinki-roof
    latitude: 60.2044
    longitude: 24.9625
    timezone: Europe/Helsinki
    tilt: 15
    azimuth: 135
    rated-power: 21
    albedo: 0.151
    module-elevation: 8
    wind-speed: 0
    source:
      type: csv
      file: /var/lib/pvforecast/fmi.csv
      shift-minutes: -30
  - name: shed
    latitude: 61.5
    longitude: 23.8
    tilt: 30
    azimuth: 180
    rated-power: 4.5
    diffuse-model: isotropic
storage:
  timescaledb:
    connection-string: postgres://pv:pv@localhost/pv
controllers:
  - type: rest
    rest:
      port: 8080
      listen-addr: 127.0.0.1
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestYAMLProviderLoadConfig(t *testing.T) {
	provider := NewYAMLProvider(writeYAML(t, sampleYAML))
	defer provider.Close()

	cfg, err := provider.LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Installations, 2)

	roof := cfg.Installations[0]
	assert.Equal(t, "helsinki-roof", roof.Name)
	assert.True(t, roof.Enabled)
	assert.Equal(t, 0.151, roof.Albedo)
	assert.Equal(t, 8.0, roof.ModuleElevation)
	// an explicit zero must survive defaulting
	assert.Equal(t, 0.0, roof.WindSpeed)
	assert.Equal(t, 20.0, roof.AirTemp)
	assert.Equal(t, SourceCSV, roof.Source.Type)
	assert.Equal(t, -30, roof.Source.ShiftMinutes)

	shed, ok := cfg.FindInstallation("shed")
	require.True(t, ok)
	assert.Equal(t, DiffuseModelIsotropic, shed.DiffuseModel)
	assert.Equal(t, "UTC", shed.Timezone)
	assert.Equal(t, 0.25, shed.Albedo)
	assert.Equal(t, 2.0, shed.WindSpeed)
	assert.Equal(t, 60, shed.DataResolution)
	assert.Equal(t, 0.159, shed.ReflectanceConstant)
	assert.Equal(t, SourceClearSky, shed.Source.Type)
	assert.Equal(t, 3, shed.ForecastDays)

	require.NotNil(t, cfg.Storage.TimescaleDB)
	assert.Equal(t, "postgres://pv:pv@localhost/pv", cfg.Storage.TimescaleDB.ConnectionString)

	controllers, err := provider.GetControllers()
	require.NoError(t, err)
	require.Len(t, controllers, 1)
	assert.Equal(t, 8080, controllers[0].RESTServer.Port)
	assert.True(t, provider.IsReadOnly())
}

func TestYAMLProviderRejectsInvalidConfig(t *testing.T) {
	provider := NewYAMLProvider(writeYAML(t, `
installations:
  - name: a
    latitude: 95
    longitude: 10
    tilt: 10
    azimuth: 180
    rated-power: 1
`))
	_, err := provider.LoadConfig()
	assert.ErrorContains(t, err, "latitude")

	provider = NewYAMLProvider(writeYAML(t, `
installations:
  - name: a
    latitude: 60
    longitude: 10
    tilt: .nan
    azimuth: 180
    rated-power: 1
`))
	_, err = provider.LoadConfig()
	assert.ErrorContains(t, err, "tilt must be a finite number")
}

func TestInstallationValidate(t *testing.T) {
	valid := func() InstallationData {
		d := DefaultInstallation()
		d.Name = "test"
		d.Latitude = 60.2
		d.Longitude = 24.9
		d.Tilt = 15
		d.Azimuth = 135
		d.RatedPower = 21
		return d
	}

	tests := []struct {
		name    string
		modify  func(d *InstallationData)
		wantErr string
	}{
		{name: "defaults are valid", modify: func(d *InstallationData) {}},
		{name: "missing name", modify: func(d *InstallationData) { d.Name = "" }, wantErr: "name"},
		{name: "longitude out of range", modify: func(d *InstallationData) { d.Longitude = 181 }, wantErr: "longitude"},
		{name: "tilt above vertical", modify: func(d *InstallationData) { d.Tilt = 91 }, wantErr: "tilt"},
		{name: "azimuth wraps", modify: func(d *InstallationData) { d.Azimuth = 360 }, wantErr: "azimuth"},
		{name: "zero rated power", modify: func(d *InstallationData) { d.RatedPower = 0 }, wantErr: "rated power"},
		{name: "albedo above one", modify: func(d *InstallationData) { d.Albedo = 1.2 }, wantErr: "albedo"},
		{name: "resolution 15 divides an hour", modify: func(d *InstallationData) { d.DataResolution = 15 }},
		{name: "resolution 120 is whole hours", modify: func(d *InstallationData) { d.DataResolution = 120 }},
		{name: "resolution 7", modify: func(d *InstallationData) { d.DataResolution = 7 }, wantErr: "data resolution"},
		{name: "unknown diffuse model", modify: func(d *InstallationData) { d.DiffuseModel = "hay-davies" }, wantErr: "diffuse model"},
		{name: "zero reflectance constant", modify: func(d *InstallationData) { d.ReflectanceConstant = 0 }, wantErr: "reflectance"},
		{name: "bad timezone", modify: func(d *InstallationData) { d.Timezone = "Mars/Olympus" }, wantErr: "timezone"},
		{name: "csv without file", modify: func(d *InstallationData) { d.Source.Type = SourceCSV }, wantErr: "file"},
		{name: "unknown source", modify: func(d *InstallationData) { d.Source.Type = "fmi" }, wantErr: "source"},
		{name: "bad refresh interval", modify: func(d *InstallationData) { d.RefreshInterval = "soon" }, wantErr: "refresh"},
		{name: "nan latitude", modify: func(d *InstallationData) { d.Latitude = math.NaN() }, wantErr: "latitude must be a finite number"},
		{name: "nan tilt", modify: func(d *InstallationData) { d.Tilt = math.NaN() }, wantErr: "tilt must be a finite number"},
		{name: "nan albedo", modify: func(d *InstallationData) { d.Albedo = math.NaN() }, wantErr: "albedo must be a finite number"},
		{name: "nan wind speed", modify: func(d *InstallationData) { d.WindSpeed = math.NaN() }, wantErr: "wind speed must be a finite number"},
		{name: "nan air temperature", modify: func(d *InstallationData) { d.AirTemp = math.NaN() }, wantErr: "air temperature must be a finite number"},
		{name: "nan altitude", modify: func(d *InstallationData) { d.Altitude = math.NaN() }, wantErr: "altitude must be a finite number"},
		{name: "infinite rated power", modify: func(d *InstallationData) { d.RatedPower = math.Inf(1) }, wantErr: "rated power must be a finite number"},
		{name: "nan linke turbidity", modify: func(d *InstallationData) { d.LinkeTurbidity = math.NaN() }, wantErr: "linke turbidity must be a finite number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.modify(&d)
			err := d.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfigValidateDuplicateNames(t *testing.T) {
	d := DefaultInstallation()
	d.Name = "dup"
	d.RatedPower = 1
	cfg := ConfigData{Installations: []InstallationData{d, d}}
	assert.ErrorContains(t, cfg.Validate(), "duplicate")
}

func TestSQLiteProviderRoundTrip(t *testing.T) {
	yamlCfg, err := NewYAMLProvider(writeYAML(t, sampleYAML)).LoadConfig()
	require.NoError(t, err)

	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	defer provider.Close()

	require.NoError(t, provider.SaveConfig(yamlCfg))
	// saving twice replaces rather than duplicates
	require.NoError(t, provider.SaveConfig(yamlCfg))

	cfg, err := provider.LoadConfig()
	require.NoError(t, err)

	// rows come back ordered by name, which matches the YAML order here
	assert.Equal(t, yamlCfg.Installations, cfg.Installations)
	assert.Equal(t, yamlCfg.Storage, cfg.Storage)
	assert.Equal(t, yamlCfg.Controllers, cfg.Controllers)
	assert.False(t, provider.IsReadOnly())
}

func TestSQLiteProviderInstallationCRUD(t *testing.T) {
	provider, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "config.db"))
	require.NoError(t, err)
	defer provider.Close()

	inst := DefaultInstallation()
	inst.Name = "garage"
	inst.Latitude = 52.1
	inst.Longitude = 21.0
	inst.Tilt = 35
	inst.Azimuth = 180
	inst.RatedPower = 6.5

	require.NoError(t, provider.AddInstallation(&inst))
	assert.ErrorContains(t, provider.AddInstallation(&inst), "already exists")

	got, err := provider.GetInstallation("garage")
	require.NoError(t, err)
	assert.Equal(t, inst, *got)

	require.NoError(t, provider.DeleteInstallation("garage"))
	_, err = provider.GetInstallation("garage")
	assert.ErrorContains(t, err, "not found")
	assert.ErrorContains(t, provider.DeleteInstallation("garage"), "not found")
}

func TestSQLiteProviderReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.db")

	first, err := NewSQLiteProvider(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteProvider(path)
	require.NoError(t, err)
	defer second.Close()

	installations, err := second.GetInstallations()
	require.NoError(t, err)
	assert.Empty(t, installations)
}
