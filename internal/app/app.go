package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/managers"
	"github.com/chrissnell/pvforecast/internal/sources"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

// App represents the main application
type App struct {
	configProvider config.ConfigProvider
	logger         *zap.SugaredLogger
}

// New creates a new application instance
func New(configProvider config.ConfigProvider, logger *zap.SugaredLogger) *App {
	return &App{
		configProvider: configProvider,
		logger:         logger,
	}
}

func (a *App) loadConfig() (*config.ConfigData, error) {
	cfg, err := a.configProvider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Run starts the application and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	// Initialize the storage manager
	storageManager, err := managers.NewStorageManager(ctx, &wg, &cfg.Storage, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}

	// Initialize the forecast manager
	fm, err := managers.NewForecastManager(ctx, &wg, cfg, storageManager.BatchDistributor, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}

	// Initialize the controller manager
	cm, err := managers.NewControllerManager(ctx, &wg, cfg.Controllers, fm, storageManager, a.logger)
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}
	err = cm.StartControllers()
	if err != nil {
		cancel()
		wg.Wait()
		return err
	}

	fm.StartForecasts()

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}

// RunOnce estimates the named installation, or every enabled one when name
// is empty, writes the results as CSV to out and exits. With several
// installations every row starts with an installation column. Batches
// still go to the configured storage backends.
func (a *App) RunOnce(ctx context.Context, name string, out io.Writer) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	storageManager, err := managers.NewStorageManager(ctx, &wg, &cfg.Storage, a.logger)
	if err != nil {
		return err
	}

	// Batches are handed to engines directly so every one is written
	// before we return
	fm, err := managers.NewForecastManager(ctx, &wg, cfg, nil, a.logger)
	if err != nil {
		return err
	}

	names := []string{name}
	if name == "" {
		names = names[:0]
		for _, inst := range fm.Installations() {
			names = append(names, inst.Name)
		}
	}

	batches := make([]types.Batch, 0, len(names))
	for _, n := range names {
		batch, err := fm.RunOnce(ctx, n)
		if err != nil {
			return err
		}
		if err := storageManager.Store(ctx, batch); err != nil {
			return err
		}
		batches = append(batches, batch)

		if latest, ok := fm.Latest(n); ok {
			for _, d := range latest.Days {
				a.logger.Infof("[%s] %s: %.2f kWh, peak %.0f W at %s",
					n, d.Date.Format("2006-01-02"), d.EnergyKWh, d.PeakOutputW, d.PeakTime.Format("15:04"))
			}
		}
	}

	if len(batches) == 1 {
		err = sources.WriteCSV(out, batches[0].Table)
	} else {
		err = sources.WriteCSVBatches(out, batches)
	}
	if err != nil {
		return fmt.Errorf("writing estimates: %w", err)
	}
	return nil
}
