package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// historyKey is the single key the serialized session collection lives under.
const historyKey = "ai_sous_chef_history"

// Persistence is the single-key storage backend for the serialized session
// collection. Load returns nil data when nothing has been stored yet.
type Persistence interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// PostgresStore persists the session history as one JSONB row in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and ensures the backing table
// exists.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value JSONB
	);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create app_state table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Load retrieves the serialized session collection.
func (s *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM app_state WHERE key = $1", historyKey).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Nothing stored yet
		}
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}
	return data, nil
}

// Save writes the serialized session collection, replacing any previous value.
func (s *PostgresStore) Save(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO app_state (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = $2",
		historyKey,
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to save session history: %w", err)
	}
	return nil
}
