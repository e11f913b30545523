package pvmodel

import (
	"math"

	"github.com/chrissnell/pvforecast/internal/types"
	"gonum.org/v1/gonum/stat"
)

// NormalizeAlbedo replaces albedo values outside [0, 1], and undefined
// ones, with the mean of the valid values in the batch. When no value is
// valid the configured albedo is used instead. Tables without an albedo
// column pass through.
func (p *Pipeline) NormalizeAlbedo(t types.Table) types.Table {
	if t.Albedo == nil {
		return t
	}

	valid := make([]float64, 0, len(t.Albedo))
	for _, a := range t.Albedo {
		if validAlbedo(a) {
			valid = append(valid, a)
		}
	}

	if len(valid) == len(t.Albedo) {
		return t
	}

	fill := p.inst.Albedo
	if len(valid) > 0 {
		fill = stat.Mean(valid, nil)
	}

	albedo := make([]float64, len(t.Albedo))
	for i, a := range t.Albedo {
		if validAlbedo(a) {
			albedo[i] = a
		} else {
			albedo[i] = fill
		}
	}

	p.logger.Infow("replaced invalid albedo values",
		"replaced", len(t.Albedo)-len(valid), "fill", fill)

	t.Albedo = albedo
	return t
}

func validAlbedo(a float64) bool {
	return !math.IsNaN(a) && a >= 0 && a <= 1
}
