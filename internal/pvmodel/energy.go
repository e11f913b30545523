package pvmodel

import (
	"math"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
	"gonum.org/v1/gonum/floats"
)

// DailySummary is the estimated production for one local calendar day
type DailySummary struct {
	Date          time.Time `json:"date" msgpack:"date"`
	EnergyKWh     float64   `json:"energy_kwh" msgpack:"energy_kwh"`
	PeakOutputW   float64   `json:"peak_output_w" msgpack:"peak_output_w"`
	PeakTime      time.Time `json:"peak_time" msgpack:"peak_time"`
	Samples       int       `json:"samples" msgpack:"samples"`
	DaylightHours float64   `json:"daylight_hours" msgpack:"daylight_hours"`
}

// DailyEnergy groups the output column by calendar day in the
// installation's time zone. Each sample stands for one resolution interval,
// so a day's energy is the sum of its outputs times the interval length.
// A table without output yields no days.
func DailyEnergy(t types.Table, inst types.Installation) []DailySummary {
	if t.Output == nil || t.Len() == 0 {
		return nil
	}

	tz := inst.Location
	if tz == nil {
		tz = time.UTC
	}
	hours := inst.Resolution.Hours()
	loc := solar.Location{Latitude: inst.Latitude, Longitude: inst.Longitude, Altitude: inst.Altitude}

	var days []DailySummary
	start := 0
	for i := 1; i <= t.Len(); i++ {
		if i < t.Len() && sameDay(t.Time[i].In(tz), t.Time[start].In(tz)) {
			continue
		}

		out := t.Output[start:i]
		peak := floats.MaxIdx(out)
		local := t.Time[start].In(tz)
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)

		days = append(days, DailySummary{
			Date:          date,
			EnergyKWh:     math.Round(floats.Sum(out)*hours) / 1000,
			PeakOutputW:   out[peak],
			PeakTime:      t.Time[start+peak].In(tz),
			Samples:       len(out),
			DaylightHours: solar.DaylightOn(date, loc).Hours(),
		})
		start = i
	}

	return days
}

func sameDay(a, b time.Time) bool {
	ya, ma, da := a.Date()
	yb, mb, db := b.Date()
	return ya == yb && ma == mb && da == db
}
