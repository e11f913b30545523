package managers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/storage/timescaledb"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"go.uber.org/zap"
)

const healthCheckInterval = time.Minute

// StorageManager holds our active storage backends
type StorageManager struct {
	Engines          []StorageEngine
	BatchDistributor chan types.Batch
	Health           *storage.HealthManager

	reader *database.Client
	logger *zap.SugaredLogger
	mu     sync.RWMutex
}

// StorageEngine holds a backend storage engine's interface as well as
// a channel for passing batches to the engine
type StorageEngine struct {
	Name   string
	Engine storage.StorageEngineInterface
	C      chan<- types.Batch
}

// NewStorageManager creates a StorageManager object, populated with all configured StorageEngines
func NewStorageManager(ctx context.Context, wg *sync.WaitGroup, c *config.StorageData, logger *zap.SugaredLogger) (*StorageManager, error) {
	s := &StorageManager{
		// Initialize our channel for passing batches to the distributor
		BatchDistributor: make(chan types.Batch, 20),
		Health:           storage.NewHealthManager(),
		logger:           logger,
	}

	// Start our batch distributor to distribute finished batches to storage
	// backends
	wg.Add(1)
	go s.startBatchDistributor(ctx, wg)

	if c != nil && c.TimescaleDB != nil && c.TimescaleDB.ConnectionString != "" {
		ts, err := timescaledb.New(ctx, c.TimescaleDB)
		if err != nil {
			return s, fmt.Errorf("could not add TimescaleDB storage backend: %w", err)
		}
		s.AddEngine(ctx, wg, "timescaledb", ts)
		storage.StartHealthMonitor(ctx, s.Health, "timescaledb", ts, healthCheckInterval)

		s.reader = database.NewClientFromDB(ts.TimescaleDBConn)
	}

	return s, nil
}

// AddEngine starts engine and adds it to the fan-out
func (s *StorageManager) AddEngine(ctx context.Context, wg *sync.WaitGroup, name string, engine storage.StorageEngineInterface) {
	se := StorageEngine{
		Name:   name,
		Engine: engine,
		C:      engine.StartStorageEngine(ctx, wg),
	}

	s.mu.Lock()
	s.Engines = append(s.Engines, se)
	s.mu.Unlock()
	s.logger.Infof("storage engine [%s] added", name)
}

// Reader returns the client for querying stored estimates, or nil when no
// database backend is configured
func (s *StorageManager) Reader() *database.Client {
	return s.reader
}

// Store writes b to every engine before returning. Engines without a
// synchronous write path get the batch through their channel.
func (s *StorageManager) Store(ctx context.Context, b types.Batch) error {
	s.mu.RLock()
	engines := s.Engines
	s.mu.RUnlock()

	for _, e := range engines {
		if storer, ok := e.Engine.(storage.BatchStorer); ok {
			if err := storer.StoreBatch(ctx, b); err != nil {
				return fmt.Errorf("storage engine [%s]: %w", e.Name, err)
			}
			continue
		}
		select {
		case e.C <- b:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// startBatchDistributor receives batches from the forecast manager and fans them out to the various
// storage backends
func (s *StorageManager) startBatchDistributor(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case b := <-s.BatchDistributor:
			s.mu.RLock()
			engines := s.Engines
			s.mu.RUnlock()

			if len(engines) == 0 {
				s.logger.Debugf("no storage engines configured, run %s for [%s] not stored", b.RunID, b.Installation)
				continue
			}
			for _, e := range engines {
				select {
				case e.C <- b:
				case <-ctx.Done():
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
