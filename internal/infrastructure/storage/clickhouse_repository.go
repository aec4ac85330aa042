package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
	"github.com/Miquel-TA/cat-feeder/internal/domain/repository"
)

// ClickHouseRepository implements the DonationPersistence interface using
// ClickHouse as the backend database. It provides a durable, append-only
// history of completed donations for auditing and dashboard queries.
type ClickHouseRepository struct {
	conn driver.Conn
}

type ClickHouseConfig struct {
	Addr     string
	Username string
	Password string
	Timeout  int // seconds
}

func NewClickHouseRepository(cfg ClickHouseConfig) (*ClickHouseRepository, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: "default",
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: time.Duration(cfg.Timeout) * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := createTablesIfNotExist(conn); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &ClickHouseRepository{conn: conn}, nil
}

var _ repository.DonationPersistence = (*ClickHouseRepository)(nil)

func createTablesIfNotExist(conn driver.Conn) error {
	return conn.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS donation_events (
			id String,
			seq UInt64,
			platform String,
			username String,
			coins Int64,
			message String,
			tier_name String,
			motor_index UInt8,
			outcome String,
			attempts UInt8,
			created_at DateTime,
			completed_at DateTime
		) ENGINE = MergeTree()
		ORDER BY (completed_at, seq)
	`)
}

// SaveDonation persists a completed donation with its terminal outcome.
func (r *ClickHouseRepository) SaveDonation(ctx context.Context, record *model.DonationRecord) error {
	query := `
		INSERT INTO donation_events (
			id, seq, platform, username, coins, message,
			tier_name, motor_index, outcome, attempts, created_at, completed_at
		) VALUES (
			?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		)
	`
	event := record.Event
	return r.conn.AsyncInsert(ctx, query, false,
		event.ID,
		record.Seq,
		event.Platform,
		event.Username,
		int64(event.Coins),
		event.Message,
		event.Tier.Name,
		uint8(event.Tier.MotorIndex),
		string(record.Outcome),
		uint8(record.Attempts),
		event.CreatedAt,
		record.CompletedAt,
	)
}

// GetDonationsSince retrieves donations completed at or after the given unix
// timestamp, oldest first.
func (r *ClickHouseRepository) GetDonationsSince(ctx context.Context, since int64) ([]*model.DonationRecord, error) {
	query := `
		SELECT id, seq, platform, username, coins, message,
			tier_name, motor_index, outcome, attempts, created_at, completed_at
		FROM donation_events
		WHERE completed_at >= fromUnixTimestamp(?)
		ORDER BY completed_at, seq
	`
	rows, err := r.conn.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*model.DonationRecord
	for rows.Next() {
		var (
			event      model.DonationEvent
			record     model.DonationRecord
			coins      int64
			motorIndex uint8
			outcome    string
			attempts   uint8
		)
		if err := rows.Scan(
			&event.ID,
			&record.Seq,
			&event.Platform,
			&event.Username,
			&coins,
			&event.Message,
			&event.Tier.Name,
			&motorIndex,
			&outcome,
			&attempts,
			&event.CreatedAt,
			&record.CompletedAt,
		); err != nil {
			return nil, err
		}
		event.Coins = int(coins)
		event.Tier.MotorIndex = int(motorIndex)
		record.Event = &event
		record.Outcome = model.Outcome(outcome)
		record.Attempts = int(attempts)
		results = append(results, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
