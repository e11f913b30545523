package restserver

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/interfaces"
	"github.com/chrissnell/pvforecast/internal/pvmodel"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

type stubForecasts struct {
	inst   types.Installation
	latest *interfaces.Forecast

	gotStart time.Time
	gotDays  int
}

func (s *stubForecasts) Installations() []types.Installation {
	return []types.Installation{s.inst}
}

func (s *stubForecasts) Installation(name string) (types.Installation, bool) {
	return s.inst, name == s.inst.Name
}

func (s *stubForecasts) Estimate(_ context.Context, name string, start time.Time, days int) (types.Table, error) {
	if name != s.inst.Name {
		return types.Table{}, interfaces.ErrUnknownInstallation
	}
	s.gotStart, s.gotDays = start, days
	return hourlyOutput(start, days), nil
}

func (s *stubForecasts) Latest(name string) (interfaces.Forecast, bool) {
	if s.latest == nil || name != s.inst.Name {
		return interfaces.Forecast{}, false
	}
	return *s.latest, true
}

// hourlyOutput produces 1 kW from 10:00 to 14:00 each day
func hourlyOutput(start time.Time, days int) types.Table {
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	records := make([]types.Record, 0, days*24)
	for i := 0; i < days*24; i++ {
		r := types.NewRecord(midnight.Add(time.Duration(i)*time.Hour), 0, 0, 0)
		r.Output = 0
		if h := i % 24; h >= 10 && h < 15 {
			r.Output = 1000
		}
		records = append(records, r)
	}
	return types.TableFromRecords(records)
}

type stubStored struct {
	rows    []database.Estimate
	buckets []database.OutputBucket
	err     error

	gotFrom, gotTo time.Time
	gotBucket      time.Duration
}

func (s *stubStored) GetEstimates(_ context.Context, _ string, from, to time.Time) ([]database.Estimate, error) {
	s.gotFrom, s.gotTo = from, to
	return s.rows, s.err
}

func (s *stubStored) GetOutputBuckets(_ context.Context, _ string, bucket time.Duration, since time.Time) ([]database.OutputBucket, error) {
	s.gotBucket, s.gotFrom = bucket, since
	return s.buckets, s.err
}

func testInstallation() types.Installation {
	return types.Installation{
		Name:         "roof",
		Latitude:     60.2044,
		Longitude:    24.9625,
		Location:     time.UTC,
		Tilt:         15,
		Azimuth:      135,
		RatedPower:   21000,
		Resolution:   time.Hour,
		DiffuseModel: "perez",
	}
}

func newTestController(t *testing.T, deps Dependencies) *Controller {
	t.Helper()
	var wg sync.WaitGroup
	ctrl, err := NewController(context.Background(), &wg, nil, deps, zap.NewNop().Sugar())
	require.NoError(t, err)
	return ctrl
}

func serve(ctrl *Controller, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ctrl.Server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestNewController(t *testing.T) {
	var wg sync.WaitGroup
	logger := zap.NewNop().Sugar()
	deps := Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}}

	ctrl, err := NewController(context.Background(), &wg, nil, deps, logger)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:8080", ctrl.Server.Addr)

	ctrl, err = NewController(context.Background(), &wg, &config.RESTServerData{ListenAddr: "127.0.0.1", Port: 9000}, deps, logger)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", ctrl.Server.Addr)

	_, err = NewController(context.Background(), &wg, &config.RESTServerData{Cert: "cert.pem"}, deps, logger)
	assert.Error(t, err, "cert without key")

	_, err = NewController(context.Background(), &wg, nil, Dependencies{}, logger)
	assert.Error(t, err, "no forecast provider")
}

func TestGetInstallations(t *testing.T) {
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}})

	rec := serve(ctrl, "/installations")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var got []InstallationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "roof", got[0].Name)
	assert.Equal(t, 21.0, got[0].RatedPowerKW)
	assert.Equal(t, 60, got[0].ResolutionMinutes)
	assert.Equal(t, "UTC", got[0].Timezone)

	rec = serve(ctrl, "/installations/roof")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = serve(ctrl, "/installations/garage")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInstallationsMsgpack(t *testing.T) {
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}})

	rec := serve(ctrl, "/installations?format=msgpack")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var got []InstallationResponse
	dec := msgpack.NewDecoder(rec.Body)
	dec.SetCustomStructTag("json")
	require.NoError(t, dec.Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "perez", got[0].DiffuseModel)
}

func TestGetEstimateOnDemand(t *testing.T) {
	fc := &stubForecasts{inst: testInstallation()}
	ctrl := newTestController(t, Dependencies{Forecasts: fc})

	rec := serve(ctrl, "/estimate/roof?start=2024-06-21&days=2")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, fc.gotDays)
	assert.Equal(t, time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC), fc.gotStart)

	var got EstimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "roof", got.Installation)
	assert.Empty(t, got.RunID)
	require.Len(t, got.Records, 48)
	require.Len(t, got.Days, 2)
	assert.InDelta(t, 5.0, got.Days[0].EnergyKWh, 1e-9)

	assert.Equal(t, 1000.0, got.Records[12].Output.Float64())
	assert.False(t, got.Records[12].ModuleTemp.Valid(), "undefined values are null")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	first := raw["records"].([]any)[0].(map[string]any)
	v, present := first["module_temp"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestGetEstimateLatest(t *testing.T) {
	inst := testInstallation()
	batch := types.NewBatch("roof", hourlyOutput(time.Now(), 1))
	fc := &stubForecasts{
		inst:   inst,
		latest: &interfaces.Forecast{Batch: batch, Days: pvmodel.DailyEnergy(batch.Table, inst)},
	}
	ctrl := newTestController(t, Dependencies{Forecasts: fc})

	rec := serve(ctrl, "/estimate/roof")
	require.Equal(t, http.StatusOK, rec.Code)

	var got EstimateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, batch.RunID.String(), got.RunID)
	require.NotNil(t, got.CreatedAt)
	assert.Len(t, got.Records, 24)
	assert.Zero(t, fc.gotDays, "latest run served without recomputing")

	rec = serve(ctrl, "/daily/roof")
	require.Equal(t, http.StatusOK, rec.Code)
	var daily DailyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &daily))
	assert.Equal(t, batch.RunID.String(), daily.RunID)
	require.Len(t, daily.Days, 1)
	assert.InDelta(t, 5.0, daily.Days[0].EnergyKWh, 1e-9)
}

func TestGetEstimateBadRequests(t *testing.T) {
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"unknown installation", "/estimate/garage", http.StatusNotFound},
		{"zero days", "/estimate/roof?days=0", http.StatusBadRequest},
		{"too many days", "/estimate/roof?days=17", http.StatusBadRequest},
		{"non-numeric days", "/estimate/roof?days=two", http.StatusBadRequest},
		{"bad start", "/estimate/roof?start=21.06.2024", http.StatusBadRequest},
		{"daily bad days", "/daily/roof?days=-1", http.StatusBadRequest},
		{"no latest run computes today", "/daily/roof", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, serve(ctrl, tt.target).Code)
		})
	}
}

func TestGetStored(t *testing.T) {
	out := 1200.0
	ts := time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC)
	stored := &stubStored{
		rows: []database.Estimate{{Time: ts, Installation: "roof", DNI: new(float64), DHI: new(float64), GHI: new(float64), Output: &out}},
	}
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}, Stored: stored})

	rec := serve(ctrl, "/stored/roof/2d")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 96*time.Hour, stored.gotTo.Sub(stored.gotFrom))

	var got StoredResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Records, 1)
	assert.Equal(t, ts.UnixMilli(), got.Records[0].Timestamp)
	assert.Equal(t, 1200.0, got.Records[0].Output.Float64())
	assert.False(t, got.Records[0].POA.Valid())

	stored.buckets = []database.OutputBucket{{Bucket: ts, AvgOutput: 800, MaxOutput: 1200, Samples: 4}}
	rec = serve(ctrl, "/stored/roof/12h?bucket=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Hour, stored.gotBucket)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Buckets, 1)
	assert.Equal(t, 1200.0, got.Buckets[0].MaxOutput)

	assert.Equal(t, http.StatusBadRequest, serve(ctrl, "/stored/roof/forever").Code)
	assert.Equal(t, http.StatusBadRequest, serve(ctrl, "/stored/roof/1h?bucket=0s").Code)
	assert.Equal(t, http.StatusNotFound, serve(ctrl, "/stored/garage/1h").Code)

	stored.err = database.ErrNoEstimates
	assert.Equal(t, http.StatusNotFound, serve(ctrl, "/stored/roof/1h").Code)
}

func TestGetStoredWithoutDatabase(t *testing.T) {
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}})
	assert.Equal(t, http.StatusServiceUnavailable, serve(ctrl, "/stored/roof/1h").Code)
}

func TestGetHealth(t *testing.T) {
	hm := storage.NewHealthManager()
	ctrl := newTestController(t, Dependencies{Forecasts: &stubForecasts{inst: testInstallation()}, Health: hm})

	var got HealthResponse
	rec := serve(ctrl, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, storage.StatusHealthy, got.Status)
	assert.Equal(t, 1, got.Installations)
	assert.Empty(t, got.Storage)

	hm.UpdateHealth("timescaledb", storage.CreateHealthData(storage.StatusUnhealthy, "Database ping failed", assert.AnError))
	rec = serve(ctrl, "/health")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "degraded", got.Status)
	assert.Equal(t, storage.StatusUnhealthy, got.Storage["timescaledb"].Status)
}

func TestParseSpan(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1h", time.Hour, false},
		{"90m", 90 * time.Minute, false},
		{"3d", 72 * time.Hour, false},
		{"0d", 0, true},
		{"-1h", 0, true},
		{"xd", 0, true},
		{"soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSpan(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransformRecordNulls(t *testing.T) {
	r := types.NewRecord(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC), 500, math.Inf(1), 0)
	got := transformRecord(r)

	assert.Equal(t, 500.0, got.DNI.Float64())
	assert.False(t, got.DHI.Valid())
	assert.True(t, got.GHI.Valid())
	assert.False(t, got.Output.Valid())

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"dhi":null`)
	assert.Contains(t, string(body), `"ghi":0`)
	assert.Contains(t, string(body), `"albedo":null`)
}
