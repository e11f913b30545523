package timescaledb

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/pvforecast/internal/constants"
	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"gorm.io/gorm"
)

// Rows per INSERT statement
const insertBatchSize = 500

// Storage holds the configuration for a TimescaleDB storage backend
type Storage struct {
	TimescaleDBConn *gorm.DB
}

// StartStorageEngine creates a goroutine loop to receive batches and send
// them off to TimescaleDB
func (t *Storage) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Batch {
	log.Info("starting TimescaleDB storage engine...")
	batchChan := make(chan types.Batch, 10)
	wg.Add(1)
	go storage.ProcessBatches(ctx, wg, batchChan, t.StoreBatch, "TimescaleDB")
	return batchChan
}

// StoreBatch writes every record of a batch in one transaction
func (t *Storage) StoreBatch(ctx context.Context, b types.Batch) error {
	rows := database.EstimatesFromBatch(b)
	if len(rows) == 0 {
		return nil
	}

	err := t.TimescaleDBConn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(rows, insertBatchSize).Error
	})
	if err != nil {
		return fmt.Errorf("could not store run %s for %s: %w", b.RunID, b.Installation, err)
	}

	log.Infof("stored %d estimates for installation [%s], run %s", len(rows), b.Installation, b.RunID)
	return nil
}

// CheckHealth pings the database and runs a trivial query
func (t *Storage) CheckHealth(ctx context.Context) *storage.HealthData {
	if t.TimescaleDBConn == nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "No database connection", fmt.Errorf("TimescaleDB connection is nil"))
	}

	sqlDB, err := t.TimescaleDBConn.DB()
	if err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "Failed to get underlying database connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "Database ping failed", err)
	}

	var result int
	if err := t.TimescaleDBConn.WithContext(ctx).Raw("SELECT 1").Scan(&result).Error; err != nil {
		return storage.CreateHealthData(storage.StatusUnhealthy, "Database query test failed", err)
	}

	return storage.CreateHealthData(storage.StatusHealthy, "TimescaleDB operational - ping: OK, query test: OK", nil)
}

// New sets up a new TimescaleDB storage backend
func New(ctx context.Context, c *config.TimescaleDBData) (*Storage, error) {
	if c == nil || c.ConnectionString == "" {
		return nil, fmt.Errorf("TimescaleDB connection string is empty")
	}

	conn, err := database.CreateConnection(c.ConnectionString)
	if err != nil {
		return nil, err
	}
	t := &Storage{TimescaleDBConn: conn}

	if err := t.setup(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Storage) setup(ctx context.Context) error {
	steps := []struct {
		desc string
		sql  string
	}{
		{"TimescaleDB extension", createExtensionSQL},
		{"estimates table", createTableSQL},
		{"hypertable", createHypertableSQL},
		{"run index", createRunIndexSQL},
		{"created_at index", createCreatedIndexSQL},
		{"retention policy", fmt.Sprintf(addRetentionPolicySQL, constants.RetentionDays)},
	}

	for _, step := range steps {
		log.Infof("creating %s...", step.desc)
		if err := t.TimescaleDBConn.WithContext(ctx).Exec(step.sql).Error; err != nil {
			log.Warnf("warning: could not create %s", step.desc)
			return fmt.Errorf("creating %s: %w", step.desc, err)
		}
	}
	return nil
}
