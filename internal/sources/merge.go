package sources

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"gonum.org/v1/gonum/interp"
)

// Columns MergeWeather carries over from a donor table
var weatherColumns = []string{types.ColWind, types.ColAirTemp}

// MergeWeather returns target with wind and air_temp taken from donor. Donor
// values are interpolated linearly in time onto target's timestamps; before
// the first and after the last defined donor value the edge value is held.
// Columns target already has, and columns with no defined donor value, are
// left alone.
func MergeWeather(target, donor types.Table) types.Table {
	for _, col := range weatherColumns {
		if target.Column(col) != nil {
			continue
		}
		values := donor.Column(col)
		if values == nil {
			continue
		}

		xs, ys := definedPoints(donor.Time, values)
		if len(xs) == 0 {
			continue
		}

		merged := make([]float64, target.Len())
		if len(xs) == 1 {
			for i := range merged {
				merged[i] = ys[0]
			}
		} else {
			var pl interp.PiecewiseLinear
			if err := pl.Fit(xs, ys); err != nil {
				continue
			}
			for i, ts := range target.Time {
				merged[i] = pl.Predict(seconds(ts))
			}
		}

		target = target.WithColumn(col, merged)
	}
	return target
}

// definedPoints returns the (time, value) pairs with a defined value and a
// timestamp later than the previous kept one
func definedPoints(times []time.Time, values []float64) ([]float64, []float64) {
	xs := make([]float64, 0, len(values))
	ys := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		x := seconds(times[i])
		if len(xs) > 0 && x <= xs[len(xs)-1] {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, v)
	}
	return xs, ys
}

func seconds(ts time.Time) float64 {
	return float64(ts.Unix())
}

// WithWeather wraps an irradiance source and merges wind and air
// temperature from a second one
type WithWeather struct {
	Source
	Weather Source
}

func (w *WithWeather) Name() string {
	return w.Source.Name() + "+" + w.Weather.Name()
}

// Fetch reads both sources over the same days and merges them
func (w *WithWeather) Fetch(ctx context.Context, start time.Time, days int) (types.Table, error) {
	t, err := w.Source.Fetch(ctx, start, days)
	if err != nil {
		return types.Table{}, err
	}

	weather, err := w.Weather.Fetch(ctx, start, days)
	if err != nil {
		return types.Table{}, fmt.Errorf("weather source %s: %w", w.Weather.Name(), err)
	}

	return MergeWeather(t, weather), nil
}
