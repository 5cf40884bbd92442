package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FraudGuard/internal/domain/models"
	"FraudGuard/internal/domain/repository"
	pkgkafka "FraudGuard/pkg/kafka"
)

const txColumns = "id, user_id, amount, currency, merchant, category, country, latitude, longitude, device_id, ts, ip_address, user_agent"

// ClickHouseStore persists transactions and serves the history queries that
// back the history store's loader.
type ClickHouseStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseStore creates ClickHouse-backed transaction storage.
func NewClickHouseStore(db *sql.DB, table string) repository.TransactionStore {
	return &ClickHouseStore{db: db, table: table}
}

func (s *ClickHouseStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseStore) Store(ctx context.Context, t *models.Transaction) error {
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table, txColumns)
	_, err := s.db.ExecContext(ctx, q, txArgs(t)...)
	return err
}

func (s *ClickHouseStore) StoreBatch(ctx context.Context, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	// Multi-row VALUES to cut round-trips; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(txs); start += chunkSize {
		end := start + chunkSize
		if end > len(txs) {
			end = len(txs)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*13)
		for _, t := range txs[start:end] {
			if t == nil || t.ID == "" || t.UserID == "" {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args, txArgs(t)...)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, txColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Load returns a user's most recent transactions, newest first. This is the
// HistoryLoader behind the history store.
func (s *ClickHouseStore) Load(ctx context.Context, userID string, limit int) ([]models.Transaction, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = ? ORDER BY ts DESC LIMIT ?", txColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTxs(rows)
}

// LoadRange returns transactions across all users in [from, to], oldest
// data capped at limit rows. Used by the model trainer.
func (s *ClickHouseStore) LoadRange(ctx context.Context, from, to time.Time, limit int) ([]models.Transaction, error) {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE ts >= ? AND ts <= ? ORDER BY ts ASC LIMIT ?", txColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTxs(rows)
}

func (s *ClickHouseStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStore) Close() error {
	return nil // Managed by pkg
}

func txArgs(t *models.Transaction) []interface{} {
	return []interface{}{
		t.ID, t.UserID, t.Amount, t.Currency, t.Merchant, t.Category,
		t.Country, t.Latitude, t.Longitude, t.DeviceID, t.Timestamp.UTC(),
		t.IPAddress, t.UserAgent,
	}
}

func scanTxs(rows *sql.Rows) ([]models.Transaction, error) {
	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var ts time.Time
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Currency, &t.Merchant, &t.Category,
			&t.Country, &t.Latitude, &t.Longitude, &t.DeviceID, &ts, &t.IPAddress, &t.UserAgent); err != nil {
			return nil, err
		}
		t.Timestamp = ts.UTC()
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// KafkaPublisher emits assessments to the risk events topic, keyed by user
// so per-user ordering survives partitioning.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates the Kafka assessment publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.AssessmentPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, a *models.RiskAssessment) error {
	return p.producer.Publish(ctx, p.topic, []byte(a.UserID), a)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
