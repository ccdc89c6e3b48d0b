// Package postgres provides a PostgreSQL implementation of
// session.HistoryStore. It uses pgx/v5 for connection pooling and keeps one
// row per request id in the generations table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/rinnsal/pkg/api"
	"github.com/rhuss/rinnsal/pkg/session"
	"github.com/rhuss/rinnsal/pkg/storage"
)

// Store is a PostgreSQL-backed HistoryStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements session.HistoryStore at compile time.
var _ session.HistoryStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const recordColumns = `request_id, connection_id, transport, prompt, state, chunks, started_at, finished_at`

// SaveRecord upserts rec. A later save for the same request id replaces
// the row and moves it to the top of the list order.
func (s *Store) SaveRecord(ctx context.Context, rec *api.GenerationRecord) error {
	if err := storage.CheckRecord(rec); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO generations (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (request_id) DO UPDATE SET
			connection_id = EXCLUDED.connection_id,
			transport     = EXCLUDED.transport,
			prompt        = EXCLUDED.prompt,
			state         = EXCLUDED.state,
			chunks        = EXCLUDED.chunks,
			started_at    = EXCLUDED.started_at,
			finished_at   = EXCLUDED.finished_at,
			saved_seq     = nextval(pg_get_serial_sequence('generations', 'saved_seq'))
	`,
		rec.RequestID, rec.ConnectionID, rec.Transport, rec.Prompt,
		string(rec.State), rec.Chunks, rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("saving generation record: %w", err)
	}
	return nil
}

// GetRecord retrieves the record for requestID.
func (s *Store) GetRecord(ctx context.Context, requestID string) (*api.GenerationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM generations WHERE request_id = $1`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying generation record: %w", err)
	}

	rec, err := pgx.CollectOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning generation record: %w", err)
	}
	return rec, nil
}

// ListRecords returns up to limit records, most recently finished first.
func (s *Store) ListRecords(ctx context.Context, limit int) ([]*api.GenerationRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM generations
		 ORDER BY finished_at DESC, saved_seq DESC
		 LIMIT $1`,
		storage.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("listing generation records: %w", err)
	}

	recs, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("scanning generation records: %w", err)
	}
	if recs == nil {
		recs = []*api.GenerationRecord{}
	}
	return recs, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRecord(row pgx.CollectableRow) (*api.GenerationRecord, error) {
	var rec api.GenerationRecord
	var state string
	err := row.Scan(
		&rec.RequestID, &rec.ConnectionID, &rec.Transport, &rec.Prompt,
		&state, &rec.Chunks, &rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.State = api.SessionState(state)
	return &rec, nil
}
