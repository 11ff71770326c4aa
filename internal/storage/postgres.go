package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"prd_gateway/internal/adsb"
)

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DefaultPostgresConfig returns local development settings.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		Database: "adsb_registry",
		User:     "adsb",
		Password: "adsb",
	}
}

// PostgresDB wraps a PostgreSQL connection pool holding the aircraft
// registry: one mutable row per callsign with first/last-seen bookkeeping.
type PostgresDB struct {
	pool *pgxpool.Pool
}

// OpenPostgres opens a connection pool to PostgreSQL and verifies it.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresDB, error) {
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresDB{pool: pool}, nil
}

// Close closes the connection pool.
func (d *PostgresDB) Close() {
	d.pool.Close()
}

// CreateSchema creates the registry tables.
func (d *PostgresDB) CreateSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS aircraft (
		callsign        TEXT PRIMARY KEY,
		type_code       TEXT,
		tail_number     TEXT,
		icon            TEXT,
		last_latitude   DOUBLE PRECISION,
		last_longitude  DOUBLE PRECISION,
		last_altitude   DOUBLE PRECISION,
		first_seen      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		msg_count       INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_aircraft_tail ON aircraft(tail_number);
	CREATE INDEX IF NOT EXISTS idx_aircraft_last_seen ON aircraft(last_seen);
	`
	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Aircraft is one registry row.
type Aircraft struct {
	Callsign      string
	TypeCode      string
	TailNumber    string
	Icon          string
	LastLatitude  float64
	LastLongitude float64
	LastAltitude  float64
	FirstSeen     time.Time
	LastSeen      time.Time
	MsgCount      int
}

// Name implements forward.Sink.
func (d *PostgresDB) Name() string { return "postgres" }

// Deliver implements forward.Sink: each normalized state upserts its
// aircraft's registry row.
func (d *PostgresDB) Deliver(ctx context.Context, st adsb.AircraftState) error {
	return d.UpsertAircraft(ctx, st)
}

// UpsertAircraft inserts or refreshes the registry row for st's callsign.
func (d *PostgresDB) UpsertAircraft(ctx context.Context, st adsb.AircraftState) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO aircraft (callsign, type_code, tail_number, icon, last_latitude, last_longitude, last_altitude, first_seen, last_seen, msg_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW(), 1)
		ON CONFLICT (callsign) DO UPDATE SET
			type_code      = EXCLUDED.type_code,
			tail_number    = EXCLUDED.tail_number,
			icon           = EXCLUDED.icon,
			last_latitude  = EXCLUDED.last_latitude,
			last_longitude = EXCLUDED.last_longitude,
			last_altitude  = EXCLUDED.last_altitude,
			last_seen      = NOW(),
			msg_count      = aircraft.msg_count + 1
	`, st.Callsign, st.Type, st.TailNumber, st.Icon, st.Latitude, st.Longitude, st.Altitude)
	if err != nil {
		return fmt.Errorf("upsert aircraft %s: %w", st.Callsign, err)
	}
	return nil
}

// GetAircraft retrieves a registry row by callsign, or nil if unknown.
func (d *PostgresDB) GetAircraft(ctx context.Context, callsign string) (*Aircraft, error) {
	var a Aircraft
	err := d.pool.QueryRow(ctx, `
		SELECT callsign, COALESCE(type_code, ''), COALESCE(tail_number, ''), COALESCE(icon, ''),
		       COALESCE(last_latitude, 0), COALESCE(last_longitude, 0), COALESCE(last_altitude, 0),
		       first_seen, last_seen, msg_count
		FROM aircraft WHERE callsign = $1
	`, callsign).Scan(&a.Callsign, &a.TypeCode, &a.TailNumber, &a.Icon,
		&a.LastLatitude, &a.LastLongitude, &a.LastAltitude,
		&a.FirstSeen, &a.LastSeen, &a.MsgCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get aircraft %s: %w", callsign, err)
	}
	return &a, nil
}

// ListAircraft returns registry rows seen within the given window, most
// recent first.
func (d *PostgresDB) ListAircraft(ctx context.Context, since time.Duration, limit int) ([]Aircraft, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.pool.Query(ctx, `
		SELECT callsign, COALESCE(type_code, ''), COALESCE(tail_number, ''), COALESCE(icon, ''),
		       COALESCE(last_latitude, 0), COALESCE(last_longitude, 0), COALESCE(last_altitude, 0),
		       first_seen, last_seen, msg_count
		FROM aircraft
		WHERE last_seen > NOW() - make_interval(secs => $1)
		ORDER BY last_seen DESC
		LIMIT $2
	`, since.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("list aircraft: %w", err)
	}
	defer rows.Close()

	var out []Aircraft
	for rows.Next() {
		var a Aircraft
		if err := rows.Scan(&a.Callsign, &a.TypeCode, &a.TailNumber, &a.Icon,
			&a.LastLatitude, &a.LastLongitude, &a.LastAltitude,
			&a.FirstSeen, &a.LastSeen, &a.MsgCount); err != nil {
			return nil, fmt.Errorf("scan aircraft: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
