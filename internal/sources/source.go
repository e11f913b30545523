// Package sources produces raw irradiance tables for the estimation
// pipeline.
package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
)

// Source is an interface that provides irradiance batches for an installation
type Source interface {
	// Fetch returns records from the local midnight of start's day
	// through days whole days
	Fetch(ctx context.Context, start time.Time, days int) (types.Table, error)
	Name() string
}

// New creates the source configured for an installation
func New(d config.InstallationData, inst types.Installation) (Source, error) {
	var src Source
	switch d.Source.Type {
	case config.SourceClearSky:
		src = NewClearSky(inst)
	case config.SourceCSV:
		src = NewCSVFile(d.Source.File, inst.Location, d.Source.ShiftMinutes)
	default:
		return nil, fmt.Errorf("installation [%s]: unknown source type %q", d.Name, d.Source.Type)
	}

	if d.Source.WeatherFile != "" {
		weather := NewCSVFile(d.Source.WeatherFile, inst.Location, d.Source.ShiftMinutes)
		weather.Required = []string{types.ColTime}
		src = &WithWeather{Source: src, Weather: weather}
	}

	return src, nil
}

// window returns the half-open interval [from, to) covering days local
// days starting with start's day
func window(start time.Time, days int, tz *time.Location) (time.Time, time.Time) {
	if tz == nil {
		tz = time.UTC
	}
	local := start.In(tz)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
	return from, from.AddDate(0, 0, days)
}
