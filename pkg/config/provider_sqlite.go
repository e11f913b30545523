package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/chrissnell/pvforecast/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SQLiteProvider implements ConfigProvider for SQLite database configuration
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens the database at dbPath and brings its schema up
// to date
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, migrate.NewFSProvider(migrationFS, "migrations", "config_schema_migrations"))
	if err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite config schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the complete configuration from SQLite database
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	config := &ConfigData{}

	installations, err := s.GetInstallations()
	if err != nil {
		return nil, fmt.Errorf("failed to load installations: %w", err)
	}
	config.Installations = installations

	storage, err := s.GetStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}
	config.Storage = *storage

	controllers, err := s.GetControllers()
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}
	config.Controllers = controllers

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

const installationColumns = `
	i.name, i.enabled, i.latitude, i.longitude, i.altitude, i.timezone,
	i.tilt, i.azimuth, i.rated_power, i.albedo, i.module_elevation,
	i.wind_speed, i.air_temp, i.data_resolution, i.diffuse_model,
	i.reflectance_constant, i.linke_turbidity, i.source_type, i.source_file,
	i.source_shift_minutes, i.source_weather_file, i.forecast_days, i.refresh_interval`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanInstallation reads one installations row. NULL columns keep the value
// from DefaultInstallation.
func scanInstallation(row rowScanner) (InstallationData, error) {
	inst := DefaultInstallation()

	var altitude, albedo, moduleElevation, windSpeed, airTemp sql.NullFloat64
	var reflectanceConstant, linkeTurbidity sql.NullFloat64
	var timezone, diffuseModel, sourceType, sourceFile, sourceWeatherFile, refreshInterval sql.NullString
	var dataResolution, shiftMinutes, forecastDays sql.NullInt64

	err := row.Scan(
		&inst.Name, &inst.Enabled, &inst.Latitude, &inst.Longitude, &altitude, &timezone,
		&inst.Tilt, &inst.Azimuth, &inst.RatedPower, &albedo, &moduleElevation,
		&windSpeed, &airTemp, &dataResolution, &diffuseModel,
		&reflectanceConstant, &linkeTurbidity, &sourceType, &sourceFile,
		&shiftMinutes, &sourceWeatherFile, &forecastDays, &refreshInterval,
	)
	if err != nil {
		return InstallationData{}, err
	}

	if altitude.Valid {
		inst.Altitude = altitude.Float64
	}
	if timezone.Valid {
		inst.Timezone = timezone.String
	}
	if albedo.Valid {
		inst.Albedo = albedo.Float64
	}
	if moduleElevation.Valid {
		inst.ModuleElevation = moduleElevation.Float64
	}
	if windSpeed.Valid {
		inst.WindSpeed = windSpeed.Float64
	}
	if airTemp.Valid {
		inst.AirTemp = airTemp.Float64
	}
	if dataResolution.Valid {
		inst.DataResolution = int(dataResolution.Int64)
	}
	if diffuseModel.Valid {
		inst.DiffuseModel = diffuseModel.String
	}
	if reflectanceConstant.Valid {
		inst.ReflectanceConstant = reflectanceConstant.Float64
	}
	if linkeTurbidity.Valid {
		inst.LinkeTurbidity = linkeTurbidity.Float64
	}
	if sourceType.Valid {
		inst.Source.Type = sourceType.String
	}
	if sourceFile.Valid {
		inst.Source.File = sourceFile.String
	}
	if shiftMinutes.Valid {
		inst.Source.ShiftMinutes = int(shiftMinutes.Int64)
	}
	if sourceWeatherFile.Valid {
		inst.Source.WeatherFile = sourceWeatherFile.String
	}
	if forecastDays.Valid {
		inst.ForecastDays = int(forecastDays.Int64)
	}
	if refreshInterval.Valid {
		inst.RefreshInterval = refreshInterval.String
	}

	return inst, nil
}

// GetInstallations returns installation configurations from the database
func (s *SQLiteProvider) GetInstallations() ([]InstallationData, error) {
	query := `SELECT ` + installationColumns + `
		FROM installations i
		WHERE i.config_id = (SELECT id FROM configs WHERE name = 'default')
		ORDER BY i.name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query installations: %w", err)
	}
	defer rows.Close()

	var installations []InstallationData
	for rows.Next() {
		inst, err := scanInstallation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan installation row: %w", err)
		}
		installations = append(installations, inst)
	}

	return installations, rows.Err()
}

// GetInstallation returns a single installation by name
func (s *SQLiteProvider) GetInstallation(name string) (*InstallationData, error) {
	query := `SELECT ` + installationColumns + `
		FROM installations i
		JOIN configs c ON i.config_id = c.id
		WHERE c.name = 'default' AND i.name = ?`

	inst, err := scanInstallation(s.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("installation %s not found", name)
		}
		return nil, fmt.Errorf("failed to get installation %s: %w", name, err)
	}
	return &inst, nil
}

// GetStorageConfig returns storage configuration from the database
func (s *SQLiteProvider) GetStorageConfig() (*StorageData, error) {
	query := `
		SELECT backend_type, timescale_connection_string
		FROM storage_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default') AND enabled = 1
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query storage configs: %w", err)
	}
	defer rows.Close()

	storage := &StorageData{}

	for rows.Next() {
		var backendType string
		var timescaleConnectionString sql.NullString

		if err := rows.Scan(&backendType, &timescaleConnectionString); err != nil {
			return nil, fmt.Errorf("failed to scan storage config row: %w", err)
		}

		switch backendType {
		case "timescaledb":
			if timescaleConnectionString.Valid {
				storage.TimescaleDB = &TimescaleDBData{
					ConnectionString: timescaleConnectionString.String,
				}
			}
		}
	}

	return storage, rows.Err()
}

// GetControllers returns controller configurations from the database
func (s *SQLiteProvider) GetControllers() ([]ControllerData, error) {
	query := `
		SELECT controller_type, rest_cert, rest_key, rest_port, rest_listen_addr
		FROM controller_configs
		WHERE config_id = (SELECT id FROM configs WHERE name = 'default') AND enabled = 1
		ORDER BY controller_type
	`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query controller configs: %w", err)
	}
	defer rows.Close()

	var controllers []ControllerData

	for rows.Next() {
		var controllerType string
		var restCert, restKey, restListenAddr sql.NullString
		var restPort sql.NullInt64

		if err := rows.Scan(&controllerType, &restCert, &restKey, &restPort, &restListenAddr); err != nil {
			return nil, fmt.Errorf("failed to scan controller config row: %w", err)
		}

		controller := ControllerData{
			Type: controllerType,
		}

		switch controllerType {
		case "rest":
			controller.RESTServer = &RESTServerData{
				Cert:       restCert.String,
				Key:        restKey.String,
				Port:       int(restPort.Int64),
				ListenAddr: restListenAddr.String,
			}
		}

		controllers = append(controllers, controller)
	}

	return controllers, rows.Err()
}

// IsReadOnly returns false since SQLite configuration can be modified
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveConfig replaces the stored configuration with configData
func (s *SQLiteProvider) SaveConfig(configData *ConfigData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return fmt.Errorf("failed to insert config: %w", err)
	}

	if err := s.clearExistingConfig(tx, configID); err != nil {
		return fmt.Errorf("failed to clear existing config: %w", err)
	}

	for _, inst := range configData.Installations {
		if err := s.insertInstallation(tx, configID, &inst); err != nil {
			return fmt.Errorf("failed to insert installation %s: %w", inst.Name, err)
		}
	}

	if configData.Storage.TimescaleDB != nil {
		query := `INSERT INTO storage_configs (config_id, backend_type, enabled, timescale_connection_string) VALUES (?, 'timescaledb', 1, ?)`
		if _, err := tx.Exec(query, configID, configData.Storage.TimescaleDB.ConnectionString); err != nil {
			return fmt.Errorf("failed to insert storage configs: %w", err)
		}
	}

	for _, controller := range configData.Controllers {
		if err := s.insertController(tx, configID, &controller); err != nil {
			return fmt.Errorf("failed to insert controller %s: %w", controller.Type, err)
		}
	}

	return tx.Commit()
}

// AddInstallation adds a new installation to the stored configuration
func (s *SQLiteProvider) AddInstallation(inst *InstallationData) error {
	if err := inst.Validate(); err != nil {
		return err
	}
	if _, err := s.GetInstallation(inst.Name); err == nil {
		return fmt.Errorf("installation %s already exists", inst.Name)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	configID, err := s.getOrCreateConfigID(tx)
	if err != nil {
		return fmt.Errorf("failed to get config ID: %w", err)
	}

	if err := s.insertInstallation(tx, configID, inst); err != nil {
		return fmt.Errorf("failed to insert installation: %w", err)
	}

	return tx.Commit()
}

// DeleteInstallation removes an installation from the stored configuration
func (s *SQLiteProvider) DeleteInstallation(name string) error {
	result, err := s.db.Exec(`
		DELETE FROM installations
		WHERE name = ? AND config_id = (SELECT id FROM configs WHERE name = 'default')`, name)
	if err != nil {
		return fmt.Errorf("failed to delete installation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("installation %s not found", name)
	}
	return nil
}

func (s *SQLiteProvider) getOrCreateConfigID(tx *sql.Tx) (int64, error) {
	_, err := tx.Exec(`
		INSERT INTO configs (name) VALUES ('default')
		ON CONFLICT(name) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, err
	}

	var configID int64
	if err := tx.QueryRow("SELECT id FROM configs WHERE name = 'default'").Scan(&configID); err != nil {
		return 0, err
	}
	return configID, nil
}

func (s *SQLiteProvider) clearExistingConfig(tx *sql.Tx, configID int64) error {
	queries := []string{
		"DELETE FROM installations WHERE config_id = ?",
		"DELETE FROM storage_configs WHERE config_id = ?",
		"DELETE FROM controller_configs WHERE config_id = ?",
	}

	for _, query := range queries {
		if _, err := tx.Exec(query, configID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteProvider) insertInstallation(tx *sql.Tx, configID int64, inst *InstallationData) error {
	query := `
		INSERT INTO installations (
			config_id, name, enabled, latitude, longitude, altitude, timezone,
			tilt, azimuth, rated_power, albedo, module_elevation,
			wind_speed, air_temp, data_resolution, diffuse_model,
			reflectance_constant, linke_turbidity, source_type, source_file,
			source_shift_minutes, source_weather_file, forecast_days, refresh_interval
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.Exec(query,
		configID, inst.Name, inst.Enabled, inst.Latitude, inst.Longitude, inst.Altitude, nullString(inst.Timezone),
		inst.Tilt, inst.Azimuth, inst.RatedPower, inst.Albedo, inst.ModuleElevation,
		inst.WindSpeed, inst.AirTemp, inst.DataResolution, nullString(inst.DiffuseModel),
		inst.ReflectanceConstant, inst.LinkeTurbidity, nullString(inst.Source.Type), nullString(inst.Source.File),
		inst.Source.ShiftMinutes, nullString(inst.Source.WeatherFile), inst.ForecastDays, nullString(inst.RefreshInterval),
	)
	return err
}

func (s *SQLiteProvider) insertController(tx *sql.Tx, configID int64, controller *ControllerData) error {
	query := `
		INSERT INTO controller_configs (
			config_id, controller_type, enabled, rest_cert, rest_key, rest_port, rest_listen_addr
		) VALUES (?, ?, 1, ?, ?, ?, ?)
	`

	var cert, key, listenAddr sql.NullString
	var port sql.NullInt64
	if controller.RESTServer != nil {
		cert = nullString(controller.RESTServer.Cert)
		key = nullString(controller.RESTServer.Key)
		listenAddr = nullString(controller.RESTServer.ListenAddr)
		port = sql.NullInt64{Int64: int64(controller.RESTServer.Port), Valid: controller.RESTServer.Port != 0}
	}

	_, err := tx.Exec(query, configID, controller.Type, cert, key, port, listenAddr)
	return err
}

// Helper functions for handling nullable fields
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
