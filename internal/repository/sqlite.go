package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skywatchlabs/go-squawk-alert/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS alerted_aircraft (
			hex TEXT PRIMARY KEY,
			callsign TEXT,
			registration TEXT,
			aircraft_type TEXT,
			squawk TEXT,
			latitude REAL,
			longitude REAL,
			alerted_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_alerted_aircraft_alerted_at ON alerted_aircraft(alerted_at);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Contains(ctx context.Context, hex string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM alerted_aircraft WHERE hex = ?`, hex).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking alerted set: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteDB) Add(ctx context.Context, rec *models.AlertRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerted_aircraft (hex, callsign, registration, aircraft_type, squawk, latitude, longitude, alerted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Hex, rec.Callsign, rec.Registration, rec.AircraftType, rec.Squawk,
		nullFloat(rec.Latitude), nullFloat(rec.Longitude), rec.AlertedAt,
	)
	if err != nil {
		return fmt.Errorf("error adding alert record: %w", err)
	}
	return nil
}

func (s *SQLiteDB) List(ctx context.Context) ([]models.AlertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hex, callsign, registration, aircraft_type, squawk, latitude, longitude, alerted_at
		FROM alerted_aircraft ORDER BY alerted_at`)
	if err != nil {
		return nil, fmt.Errorf("error listing alert records: %w", err)
	}
	defer rows.Close()

	var records []models.AlertRecord
	for rows.Next() {
		var (
			rec       models.AlertRecord
			lat, lon  sql.NullFloat64
			alertedAt time.Time
		)
		if err := rows.Scan(&rec.Hex, &rec.Callsign, &rec.Registration, &rec.AircraftType,
			&rec.Squawk, &lat, &lon, &alertedAt); err != nil {
			return nil, fmt.Errorf("error scanning alert record: %w", err)
		}
		if lat.Valid {
			rec.Latitude = &lat.Float64
		}
		if lon.Valid {
			rec.Longitude = &lon.Float64
		}
		rec.AlertedAt = alertedAt
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (s *SQLiteDB) Clear(ctx context.Context, hex string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerted_aircraft WHERE hex = ?`, hex)
	if err != nil {
		return false, fmt.Errorf("error clearing alert record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteDB) ClearAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM alerted_aircraft`)
	if err != nil {
		return 0, fmt.Errorf("error clearing alerted set: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
