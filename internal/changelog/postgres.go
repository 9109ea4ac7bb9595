package changelog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS glossary_changelog (
    id          BIGSERIAL PRIMARY KEY,
    generation  BIGINT NOT NULL,
    terms       INTEGER NOT NULL,
    diff        JSONB NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps entries in the glossary_changelog table.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "changelog-store"),
	}
}

// EnsureSchema creates the changelog table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating changelog table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e.Diff)
	if err != nil {
		return fmt.Errorf("marshaling diff: %w", err)
	}
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO glossary_changelog (generation, terms, diff, recorded_at) VALUES ($1, $2, $3, $4)`,
			e.Generation, e.Terms, data, e.At.UTC(),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("saving changelog entry: %w", err)
	}
	s.logger.Debug("changelog entry saved", "generation", e.Generation)
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 1
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT generation, terms, diff, recorded_at FROM glossary_changelog ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing changelog: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e    Entry
			data []byte
		)
		if err := rows.Scan(&e.Generation, &e.Terms, &data, &e.At); err != nil {
			return nil, fmt.Errorf("scanning changelog row: %w", err)
		}
		if err := json.Unmarshal(data, &e.Diff); err != nil {
			s.logger.Warn("skipping corrupt changelog row", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close is a no-op; the connection pool is owned by the caller.
func (s *PostgresStore) Close() error {
	return nil
}
