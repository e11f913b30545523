package restserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/pvforecast/internal/constants"
	"github.com/chrissnell/pvforecast/internal/database"
	"github.com/chrissnell/pvforecast/internal/interfaces"
	"github.com/chrissnell/pvforecast/internal/log"
	"github.com/chrissnell/pvforecast/internal/pvmodel"
	"github.com/chrissnell/pvforecast/internal/storage"
	"github.com/chrissnell/pvforecast/internal/types"
	"github.com/chrissnell/pvforecast/pkg/responseformat"
	"github.com/gorilla/mux"
)

// Longest on-demand estimate the API will compute
const maxEstimateDays = 16

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

func (h *Handlers) write(w http.ResponseWriter, req *http.Request, data any) {
	if err := h.formatter.WriteResponse(w, req, data, nil); err != nil {
		log.Errorf("error encoding response for %s: %v", req.URL.Path, err)
	}
}

// GetInstallations lists every enabled installation
func (h *Handlers) GetInstallations(w http.ResponseWriter, req *http.Request) {
	installations := h.controller.deps.Forecasts.Installations()
	resp := make([]InstallationResponse, 0, len(installations))
	for _, inst := range installations {
		resp = append(resp, transformInstallation(inst))
	}
	h.write(w, req, resp)
}

// GetInstallation describes one installation
func (h *Handlers) GetInstallation(w http.ResponseWriter, req *http.Request) {
	inst, ok := h.installation(w, req)
	if !ok {
		return
	}
	h.write(w, req, transformInstallation(inst))
}

// GetEstimate returns the latest scheduled forecast, or computes one when
// start or days are given
func (h *Handlers) GetEstimate(w http.ResponseWriter, req *http.Request) {
	inst, ok := h.installation(w, req)
	if !ok {
		return
	}

	q := req.URL.Query()
	if q.Get("start") == "" && q.Get("days") == "" {
		if latest, ok := h.controller.deps.Forecasts.Latest(inst.Name); ok {
			created := latest.Batch.CreatedAt
			h.write(w, req, EstimateResponse{
				Installation: inst.Name,
				RunID:        latest.Batch.RunID.String(),
				CreatedAt:    &created,
				Records:      h.transformRecords(latest.Batch.Table),
				Days:         latest.Days,
			})
			return
		}
	}

	table, ok := h.compute(w, req, inst)
	if !ok {
		return
	}
	h.write(w, req, EstimateResponse{
		Installation: inst.Name,
		Records:      h.transformRecords(table),
		Days:         pvmodel.DailyEnergy(table, inst),
	})
}

// GetDaily returns per-day energy totals
func (h *Handlers) GetDaily(w http.ResponseWriter, req *http.Request) {
	inst, ok := h.installation(w, req)
	if !ok {
		return
	}

	q := req.URL.Query()
	if q.Get("start") == "" && q.Get("days") == "" {
		if latest, ok := h.controller.deps.Forecasts.Latest(inst.Name); ok {
			h.write(w, req, DailyResponse{
				Installation: inst.Name,
				RunID:        latest.Batch.RunID.String(),
				Days:         latest.Days,
			})
			return
		}
	}

	table, ok := h.compute(w, req, inst)
	if !ok {
		return
	}
	h.write(w, req, DailyResponse{
		Installation: inst.Name,
		Days:         pvmodel.DailyEnergy(table, inst),
	})
}

// GetStored returns estimates from the latest stored run within span of now.
// With ?bucket=<duration> the output is aggregated instead.
func (h *Handlers) GetStored(w http.ResponseWriter, req *http.Request) {
	if h.controller.deps.Stored == nil {
		http.Error(w, "database not enabled", http.StatusServiceUnavailable)
		return
	}

	inst, ok := h.installation(w, req)
	if !ok {
		return
	}

	span, err := parseSpan(mux.Vars(req)["span"])
	if err != nil {
		http.Error(w, "error: invalid span duration", http.StatusBadRequest)
		return
	}

	now := time.Now()
	resp := StoredResponse{Installation: inst.Name}

	if b := req.URL.Query().Get("bucket"); b != "" {
		bucket, err := time.ParseDuration(b)
		if err != nil || bucket <= 0 {
			http.Error(w, "error: invalid bucket duration", http.StatusBadRequest)
			return
		}
		resp.Buckets, err = h.controller.deps.Stored.GetOutputBuckets(req.Context(), inst.Name, bucket, now.Add(-span))
		if err != nil {
			h.storedError(w, inst.Name, err)
			return
		}
		h.write(w, req, resp)
		return
	}

	rows, err := h.controller.deps.Stored.GetEstimates(req.Context(), inst.Name, now.Add(-span), now.Add(span))
	if err != nil {
		h.storedError(w, inst.Name, err)
		return
	}
	resp.Records = h.transformRecords(database.TableFromEstimates(rows))
	h.write(w, req, resp)
}

func (h *Handlers) storedError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, database.ErrNoEstimates) {
		http.Error(w, "no stored estimates for this installation", http.StatusNotFound)
		return
	}
	log.Errorf("error reading stored estimates for %s: %v", name, err)
	http.Error(w, "error fetching stored estimates", http.StatusInternalServerError)
}

// GetHealth reports the version and storage backend status
func (h *Handlers) GetHealth(w http.ResponseWriter, req *http.Request) {
	resp := HealthResponse{
		Version:       constants.Version,
		Installations: len(h.controller.deps.Forecasts.Installations()),
		Storage:       map[string]storage.HealthData{},
	}
	if h.controller.deps.Health != nil {
		resp.Storage = h.controller.deps.Health.GetAllHealth()
	}

	resp.Status = storage.StatusHealthy
	for _, hd := range resp.Storage {
		if hd.Status != storage.StatusHealthy {
			resp.Status = "degraded"
			break
		}
	}
	h.write(w, req, resp)
}

// installation resolves the {name} route variable, writing a 404 when it is unknown
func (h *Handlers) installation(w http.ResponseWriter, req *http.Request) (types.Installation, bool) {
	name := mux.Vars(req)["name"]
	inst, ok := h.controller.deps.Forecasts.Installation(name)
	if !ok {
		http.Error(w, "installation not found", http.StatusNotFound)
		return types.Installation{}, false
	}
	return inst, true
}

// compute runs the pipeline for ?start=YYYY-MM-DD (default today) and
// ?days=N (default 1)
func (h *Handlers) compute(w http.ResponseWriter, req *http.Request, inst types.Installation) (types.Table, bool) {
	q := req.URL.Query()

	days := 1
	if d := q.Get("days"); d != "" {
		var err error
		days, err = strconv.Atoi(d)
		if err != nil || days < 1 || days > maxEstimateDays {
			http.Error(w, fmt.Sprintf("days must be between 1 and %d", maxEstimateDays), http.StatusBadRequest)
			return types.Table{}, false
		}
	}

	start := time.Now()
	if s := q.Get("start"); s != "" {
		loc := inst.Location
		if loc == nil {
			loc = time.UTC
		}
		var err error
		start, err = time.ParseInLocation("2006-01-02", s, loc)
		if err != nil {
			http.Error(w, "start must be formatted as YYYY-MM-DD", http.StatusBadRequest)
			return types.Table{}, false
		}
	}

	table, err := h.controller.deps.Forecasts.Estimate(req.Context(), inst.Name, start, days)
	if err != nil {
		if errors.Is(err, interfaces.ErrUnknownInstallation) {
			http.Error(w, "installation not found", http.StatusNotFound)
			return types.Table{}, false
		}
		log.Errorf("error estimating %s: %v", inst.Name, err)
		http.Error(w, "error computing estimate", http.StatusInternalServerError)
		return types.Table{}, false
	}
	return table, true
}

// parseSpan accepts Go durations plus a whole-day suffix, e.g. "3d"
func parseSpan(s string) (time.Duration, error) {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(n)
		if err != nil || days <= 0 {
			return 0, fmt.Errorf("invalid span %q", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid span %q", s)
	}
	return d, nil
}
