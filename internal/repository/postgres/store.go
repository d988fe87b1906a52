package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store — пул соединений к PostgreSQL для реестра типов, истории версий
// и выборок консоли. Аудит пишется отдельным репозиторием через database/sql.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Ping проверяет доступность базы при старте
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
