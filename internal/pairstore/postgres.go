package pairstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists turns in an append-only table.
//
// Schema:
//
//	CREATE TABLE pair_turns (
//	  id BIGSERIAL PRIMARY KEY,
//	  pair_id VARCHAR(255) NOT NULL,
//	  sample_id VARCHAR(255) NOT NULL,
//	  question TEXT NOT NULL,
//	  answer TEXT NOT NULL,
//	  recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	CREATE INDEX idx_pair_turns_pair ON pair_turns(pair_id, id DESC);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pgx pool and verifies the connection.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Append(ctx context.Context, turn Turn) error {
	if turn.PairID == "" {
		return fmt.Errorf("pairstore: empty pair id")
	}
	if turn.RecordedAt.IsZero() {
		turn.RecordedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pair_turns (pair_id, sample_id, question, answer, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := p.pool.Exec(ctx, query,
		turn.PairID, turn.SampleID, turn.Question, turn.Answer, turn.RecordedAt); err != nil {
		return fmt.Errorf("postgres insert failed: %w", err)
	}
	return nil
}

func (p *PostgresStore) Latest(ctx context.Context, pairID string) (*Turn, error) {
	query := `
		SELECT pair_id, sample_id, question, answer, recorded_at
		FROM pair_turns
		WHERE pair_id = $1
		ORDER BY id DESC
		LIMIT 1
	`

	var turn Turn
	err := p.pool.QueryRow(ctx, query, pairID).Scan(
		&turn.PairID, &turn.SampleID, &turn.Question, &turn.Answer, &turn.RecordedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	return &turn, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
