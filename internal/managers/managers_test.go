package managers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/interfaces"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *config.ConfigData {
	roof := config.DefaultInstallation()
	roof.Name = "roof"
	roof.Latitude = 60.2044
	roof.Longitude = 24.9625
	roof.Tilt = 15
	roof.Azimuth = 135
	roof.RatedPower = 21
	roof.ForecastDays = 1

	barn := roof
	barn.Name = "barn"
	barn.Tilt = 30
	barn.Azimuth = 180

	shed := roof
	shed.Name = "shed"
	shed.Enabled = false

	return &config.ConfigData{Installations: []config.InstallationData{roof, shed, barn}}
}

func TestForecastManagerInstallations(t *testing.T) {
	var wg sync.WaitGroup
	fm, err := NewForecastManager(context.Background(), &wg, testConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	insts := fm.Installations()
	require.Len(t, insts, 2)
	assert.Equal(t, "barn", insts[0].Name)
	assert.Equal(t, "roof", insts[1].Name)

	_, ok := fm.Installation("shed")
	assert.False(t, ok, "disabled installations are skipped")

	inst, ok := fm.Installation("roof")
	require.True(t, ok)
	assert.Equal(t, 21000.0, inst.RatedPower)
}

func TestForecastManagerRejectsBadInstallation(t *testing.T) {
	cfg := testConfig()
	cfg.Installations[0].Tilt = 120

	var wg sync.WaitGroup
	_, err := NewForecastManager(context.Background(), &wg, cfg, nil, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestForecastManagerRunOnce(t *testing.T) {
	ctx := context.Background()
	var wg sync.WaitGroup
	batches := make(chan types.Batch, 1)

	fm, err := NewForecastManager(ctx, &wg, testConfig(), batches, zap.NewNop().Sugar())
	require.NoError(t, err)

	_, ok := fm.Latest("roof")
	assert.False(t, ok)

	batch, err := fm.RunOnce(ctx, "roof")
	require.NoError(t, err)
	assert.Equal(t, "roof", batch.Installation)
	assert.Equal(t, 24, batch.Table.Len())
	require.NotNil(t, batch.Table.Output)

	sent := <-batches
	assert.Equal(t, batch.RunID, sent.RunID)

	latest, ok := fm.Latest("roof")
	require.True(t, ok)
	assert.Equal(t, batch.RunID, latest.Batch.RunID)
	require.Len(t, latest.Days, 1)
	assert.Greater(t, latest.Days[0].EnergyKWh, 0.0)

	_, err = fm.RunOnce(ctx, "shed")
	assert.True(t, errors.Is(err, interfaces.ErrUnknownInstallation))
}

func TestForecastManagerEstimate(t *testing.T) {
	var wg sync.WaitGroup
	fm, err := NewForecastManager(context.Background(), &wg, testConfig(), nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	table, err := fm.Estimate(context.Background(), "barn", time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC), 2)
	require.NoError(t, err)
	assert.Equal(t, 48, table.Len())
	assert.NotNil(t, table.ModuleTemp)

	_, ok := fm.Latest("barn")
	assert.False(t, ok, "on-demand estimates are not recorded")

	_, err = fm.Estimate(context.Background(), "nowhere", time.Now(), 1)
	assert.True(t, errors.Is(err, interfaces.ErrUnknownInstallation))
}

func TestForecastManagerRefreshLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	batches := make(chan types.Batch, 4)

	fm, err := NewForecastManager(ctx, &wg, testConfig(), batches, zap.NewNop().Sugar())
	require.NoError(t, err)
	fm.StartForecasts()

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case b := <-batches:
			seen[b.Installation] = true
		case <-time.After(10 * time.Second):
			t.Fatal("no forecast produced")
		}
	}

	cancel()
	wg.Wait()
	assert.True(t, seen["roof"])
	assert.True(t, seen["barn"])
}

type recordingEngine struct {
	mu      sync.Mutex
	batches []types.Batch
}

func (r *recordingEngine) StartStorageEngine(ctx context.Context, wg *sync.WaitGroup) chan<- types.Batch {
	c := make(chan types.Batch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case b := <-c:
				r.mu.Lock()
				r.batches = append(r.batches, b)
				r.mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()
	return c
}

func (r *recordingEngine) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func TestStorageManagerFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sm, err := NewStorageManager(ctx, &wg, &config.StorageData{}, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Nil(t, sm.Reader())

	a, b := &recordingEngine{}, &recordingEngine{}
	sm.AddEngine(ctx, &wg, "a", a)
	sm.AddEngine(ctx, &wg, "b", b)

	sm.BatchDistributor <- types.NewBatch("roof", types.Table{})
	assert.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
}

type syncEngine struct {
	recordingEngine
	stored []types.Batch
	err    error
}

func (s *syncEngine) StoreBatch(_ context.Context, b types.Batch) error {
	if s.err != nil {
		return s.err
	}
	s.stored = append(s.stored, b)
	return nil
}

func TestStorageManagerStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	sm, err := NewStorageManager(ctx, &wg, nil, zap.NewNop().Sugar())
	require.NoError(t, err)

	direct, queued := &syncEngine{}, &recordingEngine{}
	sm.AddEngine(ctx, &wg, "direct", direct)
	sm.AddEngine(ctx, &wg, "queued", queued)

	batch := types.NewBatch("roof", types.Table{})
	require.NoError(t, sm.Store(ctx, batch))
	require.Len(t, direct.stored, 1)
	assert.Equal(t, batch.RunID, direct.stored[0].RunID)
	assert.Eventually(t, func() bool { return queued.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, direct.count(), "synchronous engines skip the channel")

	direct.err = errors.New("disk full")
	assert.ErrorContains(t, sm.Store(ctx, batch), "direct")

	cancel()
	wg.Wait()
}
