// Package storage defines interfaces and implementations for estimate storage backends.
package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/pvforecast/internal/types"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.Batch
}

// HealthChecker defines the interface for storage backends to implement health checks
type HealthChecker interface {
	CheckHealth(ctx context.Context) *HealthData
}

// BatchStorer is implemented by backends that can write a batch synchronously
type BatchStorer interface {
	StoreBatch(ctx context.Context, b types.Batch) error
}
