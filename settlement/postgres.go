package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/clawstack/clawpay/types"
)

const splitSchema = `
CREATE TABLE IF NOT EXISTS split_contracts (
    id                 UUID PRIMARY KEY,
    author_id          TEXT NOT NULL UNIQUE,
    split_address      TEXT NOT NULL,
    author_address     TEXT NOT NULL,
    platform_address   TEXT NOT NULL,
    author_share_bps   INTEGER NOT NULL,
    platform_share_bps INTEGER NOT NULL,
    chain_id           BIGINT NOT NULL,
    created_at         TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists split contracts in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("settlement: connect postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing connection pool owned by the
// caller.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the split_contracts table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, splitSchema)
	return err
}

func (s *PostgresStore) GetByAuthor(ctx context.Context, authorID string) (*types.SplitContract, error) {
	var record types.SplitContract
	err := s.db.GetContext(ctx, &record,
		`SELECT id, author_id, split_address, author_address, platform_address,
		        author_share_bps, platform_share_bps, chain_id, created_at
		   FROM split_contracts WHERE author_id = $1`, authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settlement: load split for author %s: %w", authorID, err)
	}
	return &record, nil
}

func (s *PostgresStore) Create(ctx context.Context, record *types.SplitContract) error {
	// ON CONFLICT DO NOTHING keeps concurrent deployments of the same
	// author's split idempotent: the first persisted record wins.
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO split_contracts
		    (id, author_id, split_address, author_address, platform_address,
		     author_share_bps, platform_share_bps, chain_id, created_at)
		 VALUES
		    (:id, :author_id, :split_address, :author_address, :platform_address,
		     :author_share_bps, :platform_share_bps, :chain_id, :created_at)
		 ON CONFLICT (author_id) DO NOTHING`, record)
	if err != nil {
		return fmt.Errorf("settlement: persist split for author %s: %w", record.AuthorID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }
