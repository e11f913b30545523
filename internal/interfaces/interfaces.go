// Package interfaces defines common interface types used across the application.
package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/pvmodel"
	"github.com/chrissnell/pvforecast/internal/types"
)

// ErrUnknownInstallation is returned for names that are not configured or disabled
var ErrUnknownInstallation = errors.New("unknown installation")

// Forecast is the latest finished run for an installation
type Forecast struct {
	Batch types.Batch
	Days  []pvmodel.DailySummary
}

// ForecastProvider runs and serves estimates for the configured installations
type ForecastProvider interface {
	Installations() []types.Installation
	Installation(name string) (types.Installation, bool)
	Estimate(ctx context.Context, name string, start time.Time, days int) (types.Table, error)
	Latest(name string) (Forecast, bool)
}

// StoredEstimates reads estimates back from a storage backend
type StoredEstimates interface {
	GetEstimates(ctx context.Context, installation string, from, to time.Time) ([]database.Estimate, error)
	GetOutputBuckets(ctx context.Context, installation string, bucket time.Duration, since time.Time) ([]database.OutputBucket, error)
}
