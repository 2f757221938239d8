package attestation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/paw-chain/oracle-feeder/pkg/types"
)

const attestationSchema = `
CREATE TABLE IF NOT EXISTS attestations (
    id BIGSERIAL PRIMARY KEY,
    batch_id TEXT NOT NULL,
    attestation_type TEXT NOT NULL,
    transaction_hash TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    price_count INTEGER NOT NULL,
    record JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attestations_batch_id ON attestations (batch_id);
CREATE INDEX IF NOT EXISTS idx_attestations_created_at ON attestations (created_at);
`

// PostgresStore persists records in Postgres.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig holds the database connection settings.
type PostgresConfig struct {
	URL            string
	MaxConnections int
	MaxIdle        int
	ConnMaxLife    time.Duration
}

// NewPostgresStore opens the database, verifies the connection and ensures
// the schema exists.
func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(attestationSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Msg("Attestation store connected")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Write(ctx context.Context, record types.AttestationRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attestations (batch_id, attestation_type, transaction_hash, created_at, price_count, record)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.BatchID, string(record.AttestationType), record.TransactionHash,
		record.CreatedAt, record.PriceCount, payload)
	if err != nil {
		return fmt.Errorf("insert attestation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, batchID string) ([]types.AttestationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM attestations WHERE batch_id = $1 ORDER BY created_at DESC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query attestations: %w", err)
	}
	defer rows.Close()

	var out []types.AttestationRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan attestation: %w", err)
		}
		var record types.AttestationRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, fmt.Errorf("decode attestation: %w", err)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CleanupOldAttestations(ctx context.Context, days int) (int, error) {
	if days <= 0 {
		days = DefaultRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM attestations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune attestations: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Int("days", days).Msg("Pruned old attestations")
	}
	return int(removed), nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
