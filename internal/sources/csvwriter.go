package sources

import (
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/chrissnell/pvforecast/internal/types"
)

// WriteCSV writes every present column of t in the layout Parse reads.
// Undefined values are written as empty cells.
func WriteCSV(w io.Writer, t types.Table) error {
	cw := csv.NewWriter(w)
	columns := t.Columns()

	header := make([]string, 0, len(columns)+1)
	header = append(header, types.ColTime)
	for _, c := range columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, ts := range t.Time {
		row[0] = ts.Format(time.RFC3339)
		for j, c := range columns {
			row[j+1] = formatValue(c.Values[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVBatches writes several batches to one stream. Rows start with an
// installation column and the header carries every column present in any
// batch. CSVFile.Installation selects one installation when reading back.
func WriteCSVBatches(w io.Writer, batches []types.Batch) error {
	var union types.Table
	for _, b := range batches {
		for _, c := range b.Table.Columns() {
			union = union.WithColumn(c.Name, []float64{})
		}
	}
	columns := union.Columns()

	cw := csv.NewWriter(w)
	header := make([]string, 0, len(columns)+2)
	header = append(header, ColInstallation, types.ColTime)
	for _, c := range columns {
		header = append(header, c.Name)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, b := range batches {
		row[0] = b.Installation
		for i, ts := range b.Table.Time {
			row[1] = ts.Format(time.RFC3339)
			for j, c := range columns {
				row[j+2] = ""
				if values := b.Table.Column(c.Name); values != nil {
					row[j+2] = formatValue(values[i])
				}
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
