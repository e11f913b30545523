package types

import (
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/pkg/config"
)

// Installation is the read-only geometry and fallback set for one PV
// installation. It is built once per run and passed by value, so concurrent
// runs never share mutable state.
type Installation struct {
	Name string

	Latitude  float64
	Longitude float64
	Altitude  float64
	Location  *time.Location

	Tilt    float64
	Azimuth float64

	// Watts at standard test conditions
	RatedPower float64

	// Fallbacks used when the batch does not carry these columns
	Albedo  float64
	Wind    float64
	AirTemp float64

	ModuleElevation     float64
	Resolution          time.Duration
	ReflectanceConstant float64
	LinkeTurbidity      float64
	DiffuseModel        string
}

// NewInstallation validates d and converts it into an Installation
func NewInstallation(d config.InstallationData) (Installation, error) {
	if err := d.Validate(); err != nil {
		return Installation{}, err
	}

	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return Installation{}, fmt.Errorf("installation [%s]: %w", d.Name, err)
	}

	return Installation{
		Name:                d.Name,
		Latitude:            d.Latitude,
		Longitude:           d.Longitude,
		Altitude:            d.Altitude,
		Location:            loc,
		Tilt:                d.Tilt,
		Azimuth:             d.Azimuth,
		RatedPower:          d.RatedPower * 1000,
		Albedo:              d.Albedo,
		Wind:                d.WindSpeed,
		AirTemp:             d.AirTemp,
		ModuleElevation:     d.ModuleElevation,
		Resolution:          time.Duration(d.DataResolution) * time.Minute,
		ReflectanceConstant: d.ReflectanceConstant,
		LinkeTurbidity:      d.LinkeTurbidity,
		DiffuseModel:        d.DiffuseModel,
	}, nil
}
