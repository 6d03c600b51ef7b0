package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createTurnsTable = `
CREATE TABLE IF NOT EXISTS diagnosis_turns (
	id             BIGSERIAL PRIMARY KEY,
	recorded_at    TIMESTAMPTZ NOT NULL,
	session_id     TEXT NOT NULL DEFAULT '',
	patient        TEXT NOT NULL,
	symptoms       TEXT[] NOT NULL DEFAULT '{}',
	diagnosis      TEXT,
	diagnosis_time TEXT,
	user_input     TEXT NOT NULL,
	response       TEXT NOT NULL,
	conditions     TEXT[] NOT NULL DEFAULT '{}',
	severity       TEXT NOT NULL DEFAULT '',
	concluded      BOOLEAN NOT NULL DEFAULT FALSE
)`

const (
	insertTurn = `
INSERT INTO diagnosis_turns
	(recorded_at, session_id, patient, symptoms, diagnosis, diagnosis_time, user_input, response, conditions, severity, concluded)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	selectTurns = `
SELECT recorded_at, session_id, patient, symptoms, diagnosis, diagnosis_time, user_input, response, conditions, severity, concluded
FROM diagnosis_turns
ORDER BY recorded_at, id`
)

const queryTimeout = 5 * time.Second

// PostgresRecorder stores turns in the diagnosis_turns table.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and checks it answers within five seconds.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// NewPostgresRecorder creates the table if needed.
func NewPostgresRecorder(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecorder, error) {
	if _, err := pool.Exec(ctx, createTurnsTable); err != nil {
		return nil, fmt.Errorf("create diagnosis_turns: %w", err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

func (r *PostgresRecorder) AppendTurn(rec TurnRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := r.pool.Exec(ctx, insertTurn,
		rec.Timestamp.UTC(), rec.SessionID, rec.Patient, nonNil(rec.Symptoms),
		rec.Diagnosis, rec.DiagnosisTime, rec.Conversation[0], rec.Conversation[1],
		nonNil(rec.Conditions), rec.Severity, rec.Concluded)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

func (r *PostgresRecorder) LoadTurns() (Turns, error) {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	rows, err := r.pool.Query(ctx, selectTurns)
	if err != nil {
		return nil, fmt.Errorf("select turns: %w", err)
	}
	defer rows.Close()
	turns := Turns{}
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.Timestamp, &rec.SessionID, &rec.Patient, &rec.Symptoms,
			&rec.Diagnosis, &rec.DiagnosisTime, &rec.Conversation[0], &rec.Conversation[1],
			&rec.Conditions, &rec.Severity, &rec.Concluded); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns.add(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

func (r *PostgresRecorder) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRecorder) Close() {
	r.pool.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
