package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
)

// ColInstallation names the installation a row belongs to in files
// holding several installations
const ColInstallation = "installation"

// Header aliases accepted by the CSV reader
var csvAliases = map[string]string{
	"t":           types.ColAirTemp,
	"temperature": types.ColAirTemp,
	"wind_speed":  types.ColWind,
	"timestamp":   types.ColTime,
}

// Timestamp layouts tried in order. Layouts without a zone are read in the
// source's time zone.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// CSVFile reads irradiance, and optionally weather, from a CSV file with a
// header row, e.g.
//
//	time,dni,dhi,ghi,albedo,T,wind,cloud_cover
//	2024-06-21T10:00:00Z,712.4,98.1,655.0,0.18,17.2,3.1,12
//
// Empty cells and "NaN" read as undefined values. Negative irradiance is
// clipped to 0.
type CSVFile struct {
	Path string
	// Zone for timestamps that carry none
	Location *time.Location
	// Added to every timestamp. Hourly meteorological values stamped at
	// the end of their interval read best with -30.
	Shift time.Duration
	// Columns the file must have. Defaults to time, dni, dhi and ghi.
	Required []string
	// When set, only rows whose installation column matches are read
	Installation string
}

func NewCSVFile(path string, tz *time.Location, shiftMinutes int) *CSVFile {
	if tz == nil {
		tz = time.UTC
	}
	return &CSVFile{
		Path:     path,
		Location: tz,
		Shift:    time.Duration(shiftMinutes) * time.Minute,
		Required: []string{types.ColTime, types.ColDNI, types.ColDHI, types.ColGHI},
	}
}

func (c *CSVFile) Name() string {
	return "csv:" + c.Path
}

// Fetch reads the file and keeps the records inside the requested days.
// A days value below 1 keeps every record.
func (c *CSVFile) Fetch(ctx context.Context, start time.Time, days int) (types.Table, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return types.Table{}, fmt.Errorf("could not open irradiance file: %w", err)
	}
	defer f.Close()

	t, err := c.Parse(f)
	if err != nil {
		return types.Table{}, fmt.Errorf("%s: %w", c.Path, err)
	}
	if err := ctx.Err(); err != nil {
		return types.Table{}, err
	}

	if days < 1 {
		return t, nil
	}
	from, to := window(start, days, c.Location)
	return slice(t, from, to, c.required()), nil
}

func (c *CSVFile) required() []string {
	if c.Required == nil {
		return []string{types.ColTime, types.ColDNI, types.ColDHI, types.ColGHI}
	}
	return c.Required
}

// Parse reads a CSV stream into a table
func (c *CSVFile) Parse(r io.Reader) (types.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return types.Table{}, fmt.Errorf("reading CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := csvAliases[name]; ok {
			name = alias
		}
		index[name] = i
	}

	required := c.required()
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return types.Table{}, fmt.Errorf("%w: %s", types.ErrMissingColumn, col)
		}
	}
	if _, ok := index[types.ColTime]; !ok {
		return types.Table{}, fmt.Errorf("%w: %s", types.ErrMissingColumn, types.ColTime)
	}

	var records []types.Record
	line := 1
	for {
		line++
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return types.Table{}, fmt.Errorf("reading CSV line %d: %w", line, err)
		}
		if !c.selected(row, index) {
			continue
		}

		rec, err := c.parseRow(row, index)
		if err != nil {
			return types.Table{}, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return keepColumns(types.TableFromRecords(records), required), nil
}

func (c *CSVFile) selected(row []string, index map[string]int) bool {
	if c.Installation == "" {
		return true
	}
	i, ok := index[ColInstallation]
	return ok && i < len(row) && strings.TrimSpace(row[i]) == c.Installation
}

func (c *CSVFile) parseRow(row []string, index map[string]int) (types.Record, error) {
	ts, err := c.parseTime(row[index[types.ColTime]])
	if err != nil {
		return types.Record{}, err
	}

	value := func(col string) (float64, error) {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return math.NaN(), nil
		}
		s := strings.TrimSpace(row[i])
		if s == "" || strings.EqualFold(s, "nan") {
			return math.NaN(), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing %s value %q: %w", col, s, err)
		}
		return v, nil
	}

	rec := types.NewRecord(ts, math.NaN(), math.NaN(), math.NaN())
	fields := []struct {
		col  string
		dst  *float64
		clip bool
	}{
		{types.ColDNI, &rec.DNI, true},
		{types.ColDHI, &rec.DHI, true},
		{types.ColGHI, &rec.GHI, true},
		{types.ColAlbedo, &rec.Albedo, false},
		{types.ColAirTemp, &rec.AirTemp, false},
		{types.ColWind, &rec.Wind, false},
		{types.ColCloudCover, &rec.CloudCover, false},
	}
	for _, f := range fields {
		v, err := value(f.col)
		if err != nil {
			return types.Record{}, err
		}
		if f.clip && v < 0 {
			v = 0
		}
		*f.dst = v
	}

	return rec, nil
}

func (c *CSVFile) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		ts, err := time.ParseInLocation(layout, s, c.Location)
		if err == nil {
			return ts.Add(c.Shift), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// slice returns the records of t with from <= time < to. Optional columns
// with no defined value inside the window are dropped so the pipeline
// treats them as absent.
func slice(t types.Table, from, to time.Time, required []string) types.Table {
	var keep []types.Record
	for i, ts := range t.Time {
		if !ts.Before(from) && ts.Before(to) {
			keep = append(keep, t.Record(i))
		}
	}
	return keepColumns(types.TableFromRecords(keep), required)
}

// keepColumns restores required columns that hold no defined value
func keepColumns(t types.Table, required []string) types.Table {
	for _, col := range required {
		if col != types.ColTime && t.Column(col) == nil {
			t = t.WithColumn(col, nanColumn(t.Len()))
		}
	}
	return t
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
