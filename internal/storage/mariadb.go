package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// MariaDBStore keeps documents in the court_documents table created by
// db/migrations.
type MariaDBStore struct {
	db *sql.DB
}

// NewMariaDBStore wraps an open connection pool.
func NewMariaDBStore(db *sql.DB) *MariaDBStore {
	return &MariaDBStore{db: db}
}

// Get reads the document stored under key.
func (s *MariaDBStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_value FROM court_documents WHERE doc_key = ?`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the document stored under key.
func (s *MariaDBStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertDocument, key, value); err != nil {
		return fmt.Errorf("upserting document %s: %w", key, err)
	}
	return nil
}

const upsertDocument = `INSERT INTO court_documents (doc_key, doc_value) VALUES (?, ?)
	ON DUPLICATE KEY UPDATE doc_value = VALUES(doc_value)`

// Update locks the row with SELECT ... FOR UPDATE inside a transaction.
// A missing row is created empty first so concurrent first writers also
// serialize on the row lock.
func (s *MariaDBStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT IGNORE INTO court_documents (doc_key, doc_value) VALUES (?, '')`, key,
	); err != nil {
		return fmt.Errorf("seeding document %s: %w", key, err)
	}

	var current []byte
	if err := tx.QueryRowContext(ctx,
		`SELECT doc_value FROM court_documents WHERE doc_key = ? FOR UPDATE`, key,
	).Scan(&current); err != nil {
		return fmt.Errorf("locking document %s: %w", key, err)
	}
	if len(current) == 0 {
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE court_documents SET doc_value = ? WHERE doc_key = ?`, next, key,
	); err != nil {
		return fmt.Errorf("updating document %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing document %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *MariaDBStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
