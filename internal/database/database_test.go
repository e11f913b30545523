package database

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestEstimatesFromBatch(t *testing.T) {
	start := time.Date(2024, time.June, 21, 10, 0, 0, 0, time.UTC)
	table := types.Table{
		Time:   []time.Time{start, start.Add(time.Hour)},
		DNI:    []float64{700, 650},
		DHI:    []float64{100, math.NaN()},
		GHI:    []float64{600, 580},
		Output: []float64{12000, 0},
	}
	batch := types.NewBatch("roof", table)

	rows := EstimatesFromBatch(batch)
	require.Len(t, rows, 2)

	assert.Equal(t, "roof", rows[0].Installation)
	assert.Equal(t, batch.RunID, rows[1].RunID)
	assert.Equal(t, batch.CreatedAt, rows[1].CreatedAt)
	require.NotNil(t, rows[0].Output)
	assert.Equal(t, 12000.0, *rows[0].Output)
	assert.Nil(t, rows[1].DHI, "undefined values stored as NULL")
	assert.Nil(t, rows[0].Wind, "absent columns stored as NULL")

	back := TableFromEstimates(rows)
	assert.Equal(t, table.Time, back.Time)
	assert.Equal(t, table.DNI, back.DNI)
	assert.True(t, math.IsNaN(back.DHI[1]))
	assert.Equal(t, table.Output, back.Output)
	assert.Nil(t, back.Wind)
}

func TestEstimateTableName(t *testing.T) {
	assert.Equal(t, "pv_estimates", Estimate{}.TableName())
}

// dryRunDB builds statements without a server; every query returns no rows
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open("host=localhost user=pv dbname=pv sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db
}

func TestClientFromDB(t *testing.T) {
	db := dryRunDB(t)
	c := NewClientFromDB(db)
	require.Same(t, db, c.DB)

	ctx := context.Background()
	since := time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		call func() error
	}{
		{name: "latest run", call: func() error {
			_, err := c.LatestRun(ctx, "roof")
			return err
		}},
		{name: "estimates", call: func() error {
			_, err := c.GetEstimates(ctx, "roof", since, since.Add(24*time.Hour))
			return err
		}},
		{name: "output buckets", call: func() error {
			_, err := c.GetOutputBuckets(ctx, "roof", time.Hour, since)
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoEstimates))
			assert.Contains(t, err.Error(), "roof")
		})
	}
}
