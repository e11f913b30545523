package timescaledb

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb CASCADE;`

const createTableSQL = `
CREATE TABLE IF NOT EXISTS pv_estimates (
    time timestamp WITH TIME ZONE NOT NULL,
    installation text NOT NULL,
    run_id uuid NOT NULL,
    created_at timestamp WITH TIME ZONE NOT NULL,
    dni float8 NULL,
    dhi float8 NULL,
    ghi float8 NULL,
    albedo float8 NULL,
    air_temp float8 NULL,
    wind float8 NULL,
    cloud_cover float8 NULL,
    solar_zenith float8 NULL,
    solar_azimuth float8 NULL,
    aoi float8 NULL,
    dni_poa float8 NULL,
    dhi_poa float8 NULL,
    ghi_poa float8 NULL,
    poa float8 NULL,
    dni_rc float8 NULL,
    dhi_rc float8 NULL,
    ghi_rc float8 NULL,
    poa_ref_cor float8 NULL,
    module_temp float8 NULL,
    output float8 NULL
);`

const createHypertableSQL = `SELECT create_hypertable('pv_estimates', 'time', if_not_exists => TRUE, migrate_data => TRUE);`

const createRunIndexSQL = `CREATE INDEX IF NOT EXISTS pv_estimates_installation_run_idx ON pv_estimates (installation, run_id, time);`

const createCreatedIndexSQL = `CREATE INDEX IF NOT EXISTS pv_estimates_installation_created_idx ON pv_estimates (installation, created_at DESC);`

// addRetentionPolicySQL takes the retention in days
const addRetentionPolicySQL = `SELECT add_retention_policy('pv_estimates', INTERVAL '%d days', if_not_exists => TRUE);`
