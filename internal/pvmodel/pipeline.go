// Package pvmodel estimates PV output from irradiance and weather.
//
// The estimation is a fixed chain of stages over a types.Table: solar
// geometry, plane-of-array transposition, reflection loss, module
// temperature and output power. Each stage reads columns written by the
// ones before it and assigns new columns; no record depends on another
// record's derived values. A stage whose inputs are missing logs a warning
// and returns its input unchanged.
package pvmodel

import (
	"context"
	"fmt"

	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/solar"
	"go.uber.org/zap"
)

// Pipeline runs every stage for one installation. A Pipeline holds no
// mutable state and may be shared between goroutines.
type Pipeline struct {
	inst    types.Installation
	diffuse DiffuseModel
	logger  *zap.SugaredLogger
}

// NewPipeline creates a pipeline for inst. A nil logger selects the
// package-level logger.
func NewPipeline(inst types.Installation, logger *zap.SugaredLogger) (*Pipeline, error) {
	diffuse, err := NewDiffuseModel(inst.DiffuseModel)
	if err != nil {
		return nil, fmt.Errorf("installation [%s]: %w", inst.Name, err)
	}
	if inst.ReflectanceConstant <= 0 {
		return nil, fmt.Errorf("installation [%s]: reflectance constant must be positive", inst.Name)
	}
	if logger == nil {
		logger = log.GetSugaredLogger()
	}

	return &Pipeline{
		inst:    inst,
		diffuse: diffuse,
		logger:  logger.With("installation", inst.Name),
	}, nil
}

// Installation returns the installation the pipeline was built for
func (p *Pipeline) Installation() types.Installation {
	return p.inst
}

func (p *Pipeline) location() solar.Location {
	return solar.Location{
		Latitude:  p.inst.Latitude,
		Longitude: p.inst.Longitude,
		Altitude:  p.inst.Altitude,
	}
}

// Run validates t and applies every stage in order. The returned table
// carries all derived columns; t itself is not modified. The only errors
// are a malformed input table and cancellation of ctx, which is checked
// between stages.
func (p *Pipeline) Run(ctx context.Context, t types.Table) (types.Table, error) {
	if err := t.Validate(); err != nil {
		return types.Table{}, fmt.Errorf("invalid input table: %w", err)
	}

	stages := []struct {
		name string
		fn   func(types.Table) types.Table
	}{
		{"albedo", p.NormalizeAlbedo},
		{"solar angles", p.SolarAngles},
		{"transposition", p.Transpose},
		{"reflection", p.ReflectionLoss},
		{"weather fallback", p.FillWeather},
		{"module temperature", p.ModuleTemperature},
		{"output", p.Output},
	}

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return types.Table{}, fmt.Errorf("pipeline cancelled before %s stage: %w", stage.name, err)
		}
		t = stage.fn(t)
	}

	p.logger.Debugf("estimated %d records", t.Len())
	return t, nil
}

func (p *Pipeline) missing(stage string, column string) {
	p.logger.Warnw("required column missing, stage skipped", "stage", stage, "column", column)
}
