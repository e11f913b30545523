package managers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrissnell/pvforecast/internal/interfaces"
	"github.com/chrissnell/pvforecast/internal/pvmodel"
	"github.com/chrissnell/pvforecast/internal/sources"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// forecaster holds everything one installation needs to run
type forecaster struct {
	inst     types.Installation
	pipeline *pvmodel.Pipeline
	source   sources.Source
	days     int
	interval time.Duration
}

// ForecastManager runs the estimation pipeline for every enabled
// installation on its refresh interval and hands finished batches to the
// storage distributor
type ForecastManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	distributor chan<- types.Batch
	logger      *zap.SugaredLogger

	forecasters map[string]*forecaster
	names       []string

	mu     sync.RWMutex
	latest map[string]interfaces.Forecast
}

// NewForecastManager creates a ForecastManager object, populated with all enabled installations.
// A nil distributor discards finished batches.
func NewForecastManager(ctx context.Context, wg *sync.WaitGroup, cfg *config.ConfigData, distributor chan<- types.Batch, logger *zap.SugaredLogger) (*ForecastManager, error) {
	fm := &ForecastManager{
		ctx:         ctx,
		wg:          wg,
		distributor: distributor,
		logger:      logger,
		forecasters: make(map[string]*forecaster),
		latest:      make(map[string]interfaces.Forecast),
	}

	for _, d := range cfg.Installations {
		if !d.Enabled {
			logger.Infof("Skipping disabled installation [%s]", d.Name)
			continue
		}
		f, err := newForecaster(d, logger)
		if err != nil {
			return nil, fmt.Errorf("error creating forecaster [%s]: %w", d.Name, err)
		}
		fm.forecasters[d.Name] = f
		fm.names = append(fm.names, d.Name)
	}
	sort.Strings(fm.names)

	return fm, nil
}

func newForecaster(d config.InstallationData, logger *zap.SugaredLogger) (*forecaster, error) {
	inst, err := types.NewInstallation(d)
	if err != nil {
		return nil, err
	}
	pipeline, err := pvmodel.NewPipeline(inst, logger)
	if err != nil {
		return nil, err
	}
	src, err := sources.New(d, inst)
	if err != nil {
		return nil, err
	}
	interval, err := time.ParseDuration(d.RefreshInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh interval: %w", err)
	}

	return &forecaster{
		inst:     inst,
		pipeline: pipeline,
		source:   src,
		days:     d.ForecastDays,
		interval: interval,
	}, nil
}

// StartForecasts starts one refresh loop per installation
func (fm *ForecastManager) StartForecasts() {
	fm.logger.Infof("Starting forecast manager with %d installations", len(fm.names))
	for _, name := range fm.names {
		fm.wg.Add(1)
		go fm.refreshLoop(name, fm.forecasters[name])
	}
}

func (fm *ForecastManager) refreshLoop(name string, f *forecaster) {
	defer fm.wg.Done()

	run := func() {
		if _, err := fm.RunOnce(fm.ctx, name); err != nil && fm.ctx.Err() == nil {
			fm.logger.Errorf("forecast for installation [%s] failed: %v", name, err)
		}
	}

	run()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			run()
		case <-fm.ctx.Done():
			fm.logger.Infof("stopping forecasts for installation [%s]", name)
			return
		}
	}
}

// RunOnce produces a forecast for the configured number of days starting
// today, records it as the latest one and hands it to the distributor
func (fm *ForecastManager) RunOnce(ctx context.Context, name string) (types.Batch, error) {
	f, ok := fm.forecasters[name]
	if !ok {
		return types.Batch{}, fmt.Errorf("%w: %s", interfaces.ErrUnknownInstallation, name)
	}

	table, err := fm.estimate(ctx, f, time.Now(), f.days)
	if err != nil {
		return types.Batch{}, err
	}

	batch := types.NewBatch(name, table)
	fm.mu.Lock()
	fm.latest[name] = interfaces.Forecast{Batch: batch, Days: pvmodel.DailyEnergy(table, f.inst)}
	fm.mu.Unlock()

	fm.logger.Infof("forecast run %s for installation [%s]: %d records", batch.RunID, name, table.Len())

	if fm.distributor != nil {
		select {
		case fm.distributor <- batch:
		case <-ctx.Done():
			return batch, ctx.Err()
		}
	}
	return batch, nil
}

// Estimate runs the pipeline on demand without recording or storing the result
func (fm *ForecastManager) Estimate(ctx context.Context, name string, start time.Time, days int) (types.Table, error) {
	f, ok := fm.forecasters[name]
	if !ok {
		return types.Table{}, fmt.Errorf("%w: %s", interfaces.ErrUnknownInstallation, name)
	}
	return fm.estimate(ctx, f, start, days)
}

func (fm *ForecastManager) estimate(ctx context.Context, f *forecaster, start time.Time, days int) (types.Table, error) {
	raw, err := f.source.Fetch(ctx, start, days)
	if err != nil {
		return types.Table{}, fmt.Errorf("fetching irradiance from %s: %w", f.source.Name(), err)
	}
	return f.pipeline.Run(ctx, raw)
}

// Latest returns the most recent scheduled forecast for an installation
func (fm *ForecastManager) Latest(name string) (interfaces.Forecast, bool) {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	f, ok := fm.latest[name]
	return f, ok
}

// Installation returns the named enabled installation
func (fm *ForecastManager) Installation(name string) (types.Installation, bool) {
	f, ok := fm.forecasters[name]
	if !ok {
		return types.Installation{}, false
	}
	return f.inst, true
}

// Installations returns every enabled installation ordered by name
func (fm *ForecastManager) Installations() []types.Installation {
	out := make([]types.Installation, 0, len(fm.names))
	for _, name := range fm.names {
		out = append(out, fm.forecasters[name].inst)
	}
	return out
}
