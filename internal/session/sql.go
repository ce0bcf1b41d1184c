package session

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// SQLStore keeps session keys in the client_sessions table (see
// database.EnsureSchema).
type SQLStore struct {
	DB        *sql.DB
	Namespace string
}

// NewSQLStore returns a store on db for namespace.
func NewSQLStore(db *sql.DB, namespace string) *SQLStore {
	return &SQLStore{DB: db, Namespace: namespace}
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.DB.QueryRowContext(ctx,
		"SELECT value FROM client_sessions WHERE namespace=? AND skey=? LIMIT 1",
		s.Namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.ExecContext(ctx,
		"INSERT INTO client_sessions (namespace, skey, value, updated_at) VALUES (?,?,?,?) "+
			"ON DUPLICATE KEY UPDATE value=VALUES(value), updated_at=VALUES(updated_at)",
		s.Namespace, key, value, time.Now().UTC())
	return err
}

func (s *SQLStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, s.Namespace)
	for _, k := range keys {
		args = append(args, k)
	}
	q := "DELETE FROM client_sessions WHERE namespace=? AND skey IN (?" + strings.Repeat(",?", len(keys)-1) + ")"
	_, err := s.DB.ExecContext(ctx, q, args...)
	return err
}

// Close closes the underlying pool.
func (s *SQLStore) Close() error { return s.DB.Close() }
