package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/pvforecast/internal/log"
	"go.uber.org/zap"
)

// ErrNoEstimates is returned when an installation has nothing stored
var ErrNoEstimates = errors.New("no stored estimates")

// Client reads stored estimates from TimescaleDB
type Client struct {
	DB *gorm.DB
}

// NewClientFromDB wraps a connection opened elsewhere, normally the one
// held by the TimescaleDB storage engine.
func NewClientFromDB(db *gorm.DB) *Client {
	return &Client{DB: db}
}

// LatestRun returns the ID of the most recent run stored for installation
func (c *Client) LatestRun(ctx context.Context, installation string) (string, error) {
	var runIDs []string
	err := c.DB.WithContext(ctx).Model(&Estimate{}).
		Where("installation = ?", installation).
		Order("created_at DESC").
		Limit(1).
		Pluck("run_id", &runIDs).Error
	if err != nil {
		return "", fmt.Errorf("error querying latest run for %s: %w", installation, err)
	}
	if len(runIDs) == 0 {
		return "", fmt.Errorf("installation %s: %w", installation, ErrNoEstimates)
	}
	return runIDs[0], nil
}

// GetEstimates returns the records of the latest run for installation with
// from <= time < to, ordered by time
func (c *Client) GetEstimates(ctx context.Context, installation string, from, to time.Time) ([]Estimate, error) {
	runID, err := c.LatestRun(ctx, installation)
	if err != nil {
		return nil, err
	}

	var rows []Estimate
	err = c.DB.WithContext(ctx).
		Where("installation = ? AND run_id = ? AND time >= ? AND time < ?", installation, runID, from, to).
		Order("time").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for estimates: %w", err)
	}
	return rows, nil
}

// GetOutputBuckets aggregates the latest run's output into buckets of the
// given width starting at since
func (c *Client) GetOutputBuckets(ctx context.Context, installation string, bucket time.Duration, since time.Time) ([]OutputBucket, error) {
	runID, err := c.LatestRun(ctx, installation)
	if err != nil {
		return nil, err
	}

	var buckets []OutputBucket
	err = c.DB.WithContext(ctx).Raw(outputBucketsSQL,
		fmt.Sprintf("%d seconds", int64(bucket.Seconds())), installation, runID, since).
		Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("error querying database for output buckets: %w", err)
	}
	return buckets, nil
}

const outputBucketsSQL = `
SELECT time_bucket(CAST(? AS interval), time) AS bucket,
       avg(output) AS avg_output,
       max(output) AS max_output,
       avg(poa) AS avg_poa,
       count(*) AS samples
FROM pv_estimates
WHERE installation = ? AND run_id = ? AND time >= ?
GROUP BY bucket
ORDER BY bucket`

// CreateConnection is a helper function to create a database connection with standard GORM configuration
func CreateConnection(connectionString string) (*gorm.DB, error) {
	// Create a logger for gorm
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warn("warning: unable to create a TimescaleDB connection:", err)
		return nil, err
	}

	return db, nil
}
