package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

type Config struct {
	Host         string
	Port         int
	Database     string
	User         string
	Password     string
	SSLMode      string
	Format       ExportFormat
	Output       string
	Installation string
	RunID        string
	AllRuns      bool
	From         string
	To           string
}

func main() {
	var cfg Config

	flag.StringVar(&cfg.Host, "host", "localhost", "Database host")
	flag.IntVar(&cfg.Port, "port", 5432, "Database port")
	flag.StringVar(&cfg.Database, "database", "pvforecast", "Database name")
	flag.StringVar(&cfg.User, "user", "postgres", "Database user")
	flag.StringVar(&cfg.Password, "password", "", "Database password")
	flag.StringVar(&cfg.SSLMode, "sslmode", "disable", "SSL mode (disable, require, etc)")
	formatStr := flag.String("format", "csv", "Export format: csv or json")
	flag.StringVar(&cfg.Output, "output", "pv_estimates", "Output file base name (extension added automatically), or - for stdout")
	flag.StringVar(&cfg.Installation, "installation", "", "Installation to export (default: all)")
	flag.StringVar(&cfg.RunID, "run", "", "Run ID to export (default: latest run of each installation)")
	flag.BoolVar(&cfg.AllRuns, "all-runs", false, "Export every stored run instead of the latest")
	flag.StringVar(&cfg.From, "from", "", "Only export estimates at or after this time (RFC3339 or YYYY-MM-DD)")
	flag.StringVar(&cfg.To, "to", "", "Only export estimates before this time (RFC3339 or YYYY-MM-DD)")
	flag.Parse()

	switch ExportFormat(*formatStr) {
	case FormatCSV, FormatJSON:
		cfg.Format = ExportFormat(*formatStr)
	default:
		log.Fatalf("Invalid format: %s. Must be csv or json", *formatStr)
	}

	query, args, err := buildQuery(cfg)
	if err != nil {
		log.Fatalf("Invalid filter: %v", err)
	}

	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password, cfg.SSLMode)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Printf("Connected to database %s@%s:%d", cfg.Database, cfg.Host, cfg.Port)

	out := os.Stdout
	filename := "stdout"
	if cfg.Output != "-" {
		filename = cfg.Output + "." + string(cfg.Format)
		f, err := os.Create(filename)
		if err != nil {
			log.Fatalf("Failed to create file: %v", err)
		}
		defer f.Close()
		out = f
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		log.Fatalf("Failed to execute query: %v", err)
	}
	defer rows.Close()

	var count int64
	switch cfg.Format {
	case FormatCSV:
		count, err = exportCSV(rows, out)
	case FormatJSON:
		count, err = exportJSON(rows, out)
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	log.Printf("Exported %d estimates to %s", count, filename)
}

// buildQuery turns the filters into a parameterized SELECT
func buildQuery(cfg Config) (string, []any, error) {
	var where []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, strings.ReplaceAll(clause, "?", "$"+strconv.Itoa(len(args))))
	}

	if cfg.Installation != "" {
		add("installation = ?", cfg.Installation)
	}

	switch {
	case cfg.RunID != "":
		add("run_id = ?", cfg.RunID)
	case !cfg.AllRuns:
		where = append(where, `run_id IN (
    SELECT DISTINCT ON (installation) run_id FROM pv_estimates
    ORDER BY installation, created_at DESC)`)
	}

	if cfg.From != "" {
		t, err := parseTime(cfg.From)
		if err != nil {
			return "", nil, fmt.Errorf("from: %w", err)
		}
		add("time >= ?", t)
	}
	if cfg.To != "" {
		t, err := parseTime(cfg.To)
		if err != nil {
			return "", nil, fmt.Errorf("to: %w", err)
		}
		add("time < ?", t)
	}

	query := "SELECT * FROM pv_estimates"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY installation, time"
	return query, args, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func columnNames(rows pgx.Rows) []string {
	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}
	return columns
}

func exportCSV(rows pgx.Rows, w io.Writer) (int64, error) {
	writer := csv.NewWriter(w)
	columns := columnNames(rows)
	if err := writer.Write(columns); err != nil {
		return 0, fmt.Errorf("failed to write headers: %w", err)
	}

	var count int64
	for rows.Next() {
		values, err := pgx.RowToMap(rows)
		if err != nil {
			return count, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatCell(values[col])
		}
		if err := writer.Write(record); err != nil {
			return count, fmt.Errorf("failed to write record: %w", err)
		}

		count++
		if count%10000 == 0 {
			log.Printf("Processed %d records...", count)
		}
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("row iteration error: %w", err)
	}

	writer.Flush()
	return count, writer.Error()
}

func exportJSON(rows pgx.Rows, w io.Writer) (int64, error) {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("  ", "  ")

	var count int64
	for rows.Next() {
		values, err := pgx.RowToMap(rows)
		if err != nil {
			return count, fmt.Errorf("failed to scan row: %w", err)
		}
		if count > 0 {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return count, err
			}
		}
		if _, err := io.WriteString(w, "  "); err != nil {
			return count, err
		}
		if err := encoder.Encode(jsonRecord(values)); err != nil {
			return count, fmt.Errorf("failed to encode record: %w", err)
		}

		count++
		if count%10000 == 0 {
			log.Printf("Processed %d records...", count)
		}
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("row iteration error: %w", err)
	}

	_, err := io.WriteString(w, "\n]\n")
	return count, err
}

// jsonRecord converts values JSON would encode badly: UUIDs come back from
// pgx as [16]byte, which would become an array of numbers.
func jsonRecord(values map[string]any) map[string]any {
	for k, v := range values {
		if id, ok := v.([16]byte); ok {
			values[k] = uuid.UUID(id).String()
		}
	}
	return values
}

// formatCell renders one value the way the CSV reader of pvforecast parses it
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	case [16]byte:
		return uuid.UUID(val).String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
