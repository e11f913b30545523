package storage

import (
	"context"
	"sync"
	"time"

	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/types"
)

// StartHealthMonitor starts a generic health monitoring goroutine for any storage backend
func StartHealthMonitor(ctx context.Context, hm *HealthManager, storageType string, checker HealthChecker, interval time.Duration) {
	go func() {
		updateHealth := func() {
			health := checker.CheckHealth(ctx)
			hm.UpdateHealth(storageType, health)
			log.Debugf("Updated %s health status: %s", storageType, health.Status)
		}

		updateHealth()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				updateHealth()
			case <-ctx.Done():
				log.Infof("stopping %s health monitor", storageType)
				return
			}
		}
	}()
}

// ProcessBatches provides a standard pattern for processing batches from a
// channel. The caller adds to wg before starting it.
func ProcessBatches(ctx context.Context, wg *sync.WaitGroup, batchChan <-chan types.Batch, processor func(context.Context, types.Batch) error, name string) {
	defer wg.Done()

	for {
		select {
		case b := <-batchChan:
			if err := processor(ctx, b); err != nil {
				log.Errorf("%s batch processor error: %v", name, err)
			}
		case <-ctx.Done():
			log.Infof("cancellation request received. Cancelling %s batch processor", name)
			return
		}
	}
}

// CreateHealthData creates a basic health data structure
func CreateHealthData(status, message string, err error) *HealthData {
	health := &HealthData{
		LastCheck: time.Now(),
		Status:    status,
		Message:   message,
	}

	if err != nil {
		health.Error = err.Error()
	}

	return health
}
