// Package storage persists survey sessions and GSM signal measurements
// in a SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cellwatch/cell-surveillance/internal/cell"
	"github.com/cellwatch/cell-surveillance/internal/gsm"
	"github.com/cellwatch/cell-surveillance/internal/modem"
)

// Store handles database operations. Writes and reads use separate
// lazily-opened connections so a long render never blocks ingestion.
type Store struct {
	dbPath string

	writeDB     *sql.DB
	writeDBOnce sync.Once
	writeDBErr  error

	readDB     *sql.DB
	readDBOnce sync.Once
	readDBErr  error

	closeOnce sync.Once
	closeErr  error
}

// New creates a store backed by the SQLite database at dbPath. The
// schema is initialized on first write.
func New(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

func (s *Store) getWriteDB() (*sql.DB, error) {
	s.writeDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "_journal_mode=WAL&_synchronous=NORMAL"))
		if err != nil {
			s.writeDBErr = fmt.Errorf("opening write connection: %w", err)
			return
		}

		if err = initSchema(db); err != nil {
			_ = db.Close()
			s.writeDBErr = fmt.Errorf("initializing schema: %w", err)
			return
		}

		s.writeDB = db
	})

	return s.writeDB, s.writeDBErr
}

func (s *Store) getReadDB() (*sql.DB, error) {
	s.readDBOnce.Do(func() {
		db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", s.dbPath, "mode=ro"))
		if err != nil {
			s.readDBErr = fmt.Errorf("opening read connection: %w", err)
			return
		}
		s.readDB = db
	})

	return s.readDB, s.readDBErr
}

// CreateSession creates a new survey session and returns its ID.
// Config can be a string, []byte, or any JSON-serializable value.
func (s *Store) CreateSession(ctx context.Context, modemType, modemID string, config any) (sessionID int64, err error) {
	var configData sql.NullString

	switch v := config.(type) {
	case nil:
	case string:
		configData.Valid = true
		configData.String = v

	case []byte:
		configData.Valid = true
		configData.String = string(v)

	default:
		var p []byte
		if p, err = json.Marshal(config); err != nil {
			err = fmt.Errorf("marshaling config: %w", err)
			return
		}

		configData.Valid = true
		configData.String = string(p)
	}

	db, err := s.getWriteDB()
	if err != nil {
		err = fmt.Errorf("getting write connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, modemType, modemID, configData)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

// Session returns a session by its ID.
func (s *Store) Session(ctx context.Context, id int64) (session *SessionData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	stmt, err := db.PrepareContext(ctx, selectSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	var sess SessionData
	var config sql.NullString
	if err = stmt.QueryRowContext(ctx, id).Scan(&sess.ID, &sess.StartTime, &sess.ModemType, &sess.ModemID, &config); err != nil {
		err = fmt.Errorf("scanning session: %w", err)
		return
	}
	if config.Valid {
		sess.Config = &config.String
	}

	return &sess, nil
}

// Sessions returns all survey sessions stored in the database.
func (s *Store) Sessions(ctx context.Context) (sessions []*SessionData, err error) {
	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, selectSessionsSQL)
	if err != nil {
		err = fmt.Errorf("querying sessions: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var sess SessionData
		var config sql.NullString
		if err = rows.Scan(&sess.ID, &sess.StartTime, &sess.ModemType, &sess.ModemID, &config); err != nil {
			err = fmt.Errorf("scanning session: %w", err)
			return
		}
		if config.Valid {
			sess.Config = &config.String
		}
		sessions = append(sessions, &sess)
	}
	err = rows.Err()
	return
}

// BatchInsertMeasurements inserts readings in a single transaction.
// Unknown fields are stored as NULL; the derived dBm and level are
// stored alongside the raw values for SQL-side analysis.
func (s *Store) BatchInsertMeasurements(ctx context.Context, sessionID int64, readings []modem.Reading) (err error) {
	if len(readings) == 0 {
		return
	}

	db, err := s.getWriteDB()
	if err != nil {
		return fmt.Errorf("getting write connection: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollbackWithError(tx, &err)

	stmt, err := tx.PrepareContext(ctx, insertMeasurementSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	for _, r := range readings {
		m := r.Measurement
		_, err = stmt.ExecContext(ctx,
			sessionID,
			r.Timestamp.UTC(),
			toNullInt(m.SignalStrength()),
			toNullInt(m.BitErrorRate()),
			toNullInt(m.TimingAdvance()),
			toNullInt(m.Dbm()),
			int64(m.Level()),
		)
		if err != nil {
			return fmt.Errorf("inserting measurement: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return
}

// WithStartTime limits Measurements to readings at or after t.
func WithStartTime(t time.Time) func(*measurementQuery) {
	return func(q *measurementQuery) {
		q.start = &t
	}
}

// WithEndTime limits Measurements to readings at or before t.
func WithEndTime(t time.Time) func(*measurementQuery) {
	return func(q *measurementQuery) {
		q.end = &t
	}
}

type measurementQuery struct {
	start *time.Time
	end   *time.Time
}

// Measurements returns the stored measurements of a session ordered by
// timestamp, optionally restricted to a time range.
func (s *Store) Measurements(ctx context.Context, sessionID int64, options ...func(*measurementQuery)) (records []MeasurementRecord, err error) {
	var q measurementQuery
	for _, option := range options {
		option(&q)
	}

	query := selectMeasurementsSQL
	args := []any{sessionID}
	if q.start != nil {
		query += " AND timestamp >= ?"
		args = append(args, q.start.UTC())
	}
	if q.end != nil {
		query += " AND timestamp <= ?"
		args = append(args, q.end.UTC())
	}
	query += " ORDER BY timestamp"

	db, err := s.getReadDB()
	if err != nil {
		err = fmt.Errorf("getting read connection: %w", err)
		return
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		err = fmt.Errorf("querying measurements: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var rec MeasurementRecord
		var asu, ber, ta, dbm sql.NullInt64
		var level int64
		if err = rows.Scan(&rec.ID, &rec.SessionID, &rec.Timestamp, &asu, &ber, &ta, &dbm, &level); err != nil {
			err = fmt.Errorf("scanning measurement: %w", err)
			return
		}

		rec.Measurement = gsm.NewFromRaw(fromNullInt(asu), fromNullInt(ber), fromNullInt(ta))
		rec.Dbm = fromNullInt(dbm)
		rec.Level = cell.Level(level)
		records = append(records, rec)
	}
	err = rows.Err()
	return
}

// Close closes the database connections. It is safe to call Close
// multiple times.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		var writeErr, readErr error

		if s.writeDB != nil {
			writeErr = s.writeDB.Close()
			s.writeDB = nil
		}

		if s.readDB != nil {
			readErr = s.readDB.Close()
			s.readDB = nil
		}

		switch {
		case writeErr != nil && readErr != nil:
			s.closeErr = errors.Join(writeErr, readErr)
		case writeErr != nil:
			s.closeErr = writeErr
		case readErr != nil:
			s.closeErr = readErr
		}
	})

	return s.closeErr
}
