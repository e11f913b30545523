package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
)

// ClearSky generates cloud-free irradiance with the Ineichen-Perez model.
// Its estimates are an upper bound for what the installation can produce.
type ClearSky struct {
	inst types.Installation
}

func NewClearSky(inst types.Installation) *ClearSky {
	return &ClearSky{inst: inst}
}

func (c *ClearSky) Name() string {
	return "clearsky"
}

// Fetch returns one record per resolution interval, timestamps in the
// installation's time zone
func (c *ClearSky) Fetch(ctx context.Context, start time.Time, days int) (types.Table, error) {
	if days < 1 {
		return types.Table{}, fmt.Errorf("clear-sky source needs at least one day, got %d", days)
	}
	if c.inst.Resolution <= 0 {
		return types.Table{}, fmt.Errorf("installation [%s] has no data resolution", c.inst.Name)
	}

	from, to := window(start, days, c.inst.Location)
	loc := solar.Location{Latitude: c.inst.Latitude, Longitude: c.inst.Longitude, Altitude: c.inst.Altitude}

	n := int(to.Sub(from) / c.inst.Resolution)
	t := types.Table{
		Time: make([]time.Time, 0, n),
		DNI:  make([]float64, 0, n),
		DHI:  make([]float64, 0, n),
		GHI:  make([]float64, 0, n),
	}

	for ts := from; ts.Before(to); ts = ts.Add(c.inst.Resolution) {
		if len(t.Time)%1440 == 0 {
			if err := ctx.Err(); err != nil {
				return types.Table{}, err
			}
		}
		irr := solar.ClearSkyIneichen(ts, loc, c.inst.LinkeTurbidity)
		t.Time = append(t.Time, ts)
		t.DNI = append(t.DNI, irr.DNI)
		t.DHI = append(t.DHI, irr.DHI)
		t.GHI = append(t.GHI, irr.GHI)
	}

	return t, nil
}
