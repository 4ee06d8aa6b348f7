package storage

import (
	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      modem_type,
                      modem_id,
                      config)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    modem_type,
    modem_id,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    modem_type,
    modem_id,
    config
FROM sessions`

	insertMeasurementSQL = `
INSERT INTO measurements (session_id,
                          timestamp,
                          asu,
                          ber,
                          timing_advance,
                          dbm,
                          level)
VALUES (?, ?, ?, ?, ?, ?, ?)`

	// Range and ordering clauses are appended by Measurements.
	selectMeasurementsSQL = `
SELECT
    id,
    session_id,
    timestamp,
    asu,
    ber,
    timing_advance,
    dbm,
    level
FROM measurements
WHERE session_id = ?`
)
