// Package repository содержит реализации хранилища контрольной точки прогона.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/orderload-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository хранит контрольную точку в PostgreSQL одной строкой.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию с фибоначчи-паузами при временных ошибках БД.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Load возвращает сохранённую контрольную точку. Если записи ещё нет,
// возвращается нулевое состояние.
func (r *PostgresRepository) Load(ctx context.Context) (model.RunState, error) {
	var state model.RunState

	err := r.withRetry(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx,
			`SELECT last_processed_index FROM run_state WHERE id = 1`,
		).Scan(&state.LastProcessedIndex)
		if errors.Is(err, pgx.ErrNoRows) {
			state.LastProcessedIndex = 0
			return nil
		}
		return err
	})
	if err != nil {
		return model.RunState{}, fmt.Errorf("load run state: %w", err)
	}

	return state, nil
}

// Save перезаписывает контрольную точку указанным номером записи.
func (r *PostgresRepository) Save(ctx context.Context, index int) error {
	err := r.withRetry(ctx, func(ctx context.Context) error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO run_state (id, last_processed_index, updated_at)
			 VALUES (1, $1, now())
			 ON CONFLICT (id) DO UPDATE
			 SET last_processed_index = EXCLUDED.last_processed_index,
			     updated_at = EXCLUDED.updated_at`,
			index,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("save run state: %w", err)
	}

	return nil
}
