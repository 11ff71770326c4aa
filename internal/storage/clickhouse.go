// Package storage provides the optional persistent sinks: a ClickHouse
// analytics table of every normalized position and a PostgreSQL registry of
// aircraft seen by the gateway.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"prd_gateway/internal/adsb"
)

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// DefaultClickHouseConfig returns local development settings.
func DefaultClickHouseConfig() ClickHouseConfig {
	return ClickHouseConfig{
		Host:     "localhost",
		Port:     9000,
		Database: "adsb",
		User:     "default",
		Password: "",
	}
}

// ClickHouseDB wraps a ClickHouse connection for position-report analytics.
type ClickHouseDB struct {
	conn driver.Conn
}

// OpenClickHouse opens a connection to ClickHouse and verifies it.
func OpenClickHouse(ctx context.Context, cfg ClickHouseConfig) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &ClickHouseDB{conn: conn}, nil
}

// Close closes the ClickHouse connection.
func (d *ClickHouseDB) Close() error {
	return d.conn.Close()
}

// CreateSchema creates the position_reports table.
func (d *ClickHouseDB) CreateSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS position_reports (
		timestamp    DateTime64(3),
		callsign     LowCardinality(String),
		type         LowCardinality(String),
		tail_number  LowCardinality(String),
		latitude     Float64,
		longitude    Float64,
		altitude     Float64,
		speed        Float64,
		heading      Float64,
		icon         LowCardinality(String),
		ext_json     String,
		created_at   DateTime64(3) DEFAULT now64(3)
	)
	ENGINE = MergeTree()
	PARTITION BY toYYYYMM(timestamp)
	ORDER BY (callsign, timestamp)
	SETTINGS index_granularity = 8192`

	if err := d.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Name implements forward.Sink.
func (d *ClickHouseDB) Name() string { return "clickhouse" }

// Deliver implements forward.Sink: every normalized state becomes one
// append-only analytics row.
func (d *ClickHouseDB) Deliver(ctx context.Context, st adsb.AircraftState) error {
	return d.InsertPosition(ctx, time.Now().UTC(), st)
}

// InsertPosition stores one position row.
func (d *ClickHouseDB) InsertPosition(ctx context.Context, ts time.Time, st adsb.AircraftState) error {
	extJSON := "{}"
	if len(st.Ext) > 0 {
		b, err := json.Marshal(st.Ext)
		if err != nil {
			return fmt.Errorf("marshal ext: %w", err)
		}
		extJSON = string(b)
	}

	err := d.conn.Exec(ctx, `
		INSERT INTO position_reports (timestamp, callsign, type, tail_number, latitude, longitude, altitude, speed, heading, icon, ext_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ts, st.Callsign, st.Type, st.TailNumber, st.Latitude, st.Longitude, st.Altitude, st.Speed, st.Heading, st.Icon, extJSON)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// InsertPositionBatch stores multiple positions in one round trip.
func (d *ClickHouseDB) InsertPositionBatch(ctx context.Context, ts time.Time, states []adsb.AircraftState) error {
	if len(states) == 0 {
		return nil
	}

	batch, err := d.conn.PrepareBatch(ctx, `
		INSERT INTO position_reports (timestamp, callsign, type, tail_number, latitude, longitude, altitude, speed, heading, icon, ext_json)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, st := range states {
		extJSON := "{}"
		if len(st.Ext) > 0 {
			b, err := json.Marshal(st.Ext)
			if err != nil {
				return fmt.Errorf("marshal ext: %w", err)
			}
			extJSON = string(b)
		}
		if err := batch.Append(ts, st.Callsign, st.Type, st.TailNumber, st.Latitude, st.Longitude, st.Altitude, st.Speed, st.Heading, st.Icon, extJSON); err != nil {
			return fmt.Errorf("append batch row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
