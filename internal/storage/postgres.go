package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/udisondev/arenarelay/internal/storage/migrations"
)

// transientRetries — сколько раз повторяем сорвавшийся запрос,
// прежде чем отдать ошибку наверх как internal.
const transientRetries = 3

const retryDelay = 50 * time.Millisecond

// errDecode помечает ошибки декодирования значения, чтобы withRetry их не повторял.
var errDecode = errors.New("decoding stored value")

// Postgres хранит все ресурсы в одной таблице relay_resources
// (name, key, value jsonb); одиночные ресурсы живут под пустым ключом.
type Postgres struct {
	dsn  string
	pool *pgxpool.Pool
}

// NewPostgres creates a provider for the given DSN. Open connects and migrates.
func NewPostgres(dsn string) *Postgres {
	return &Postgres{dsn: dsn}
}

var gooseOnce sync.Once

func runMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	var dialectErr error
	gooseOnce.Do(func() {
		goose.SetBaseFS(migrations.FS)
		dialectErr = goose.SetDialect("postgres")
	})
	if dialectErr != nil {
		return fmt.Errorf("setting goose dialect: %w", dialectErr)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (p *Postgres) Open(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("pinging database: %w", err)
	}
	if err := runMigrations(ctx, p.dsn); err != nil {
		pool.Close()
		return err
	}
	p.pool = pool
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// withRetry повторяет transient-ошибки ограниченное число раз.
// ErrNotFound и ошибки декодирования не повторяются.
func withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= transientRetries; attempt++ {
		err = op()
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, errDecode) || ctx.Err() != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return err
}

func (p *Postgres) Get(ctx context.Context, resource string, out any) error {
	return p.GetKeyed(ctx, resource, "", out)
}

func (p *Postgres) Set(ctx context.Context, resource string, v any) error {
	return p.SetKeyed(ctx, resource, "", v)
}

func (p *Postgres) GetKeyed(ctx context.Context, collection, key string, out any) error {
	return withRetry(ctx, func() error {
		var value []byte
		err := p.pool.QueryRow(ctx,
			`SELECT value FROM relay_resources WHERE name = $1 AND key = $2`,
			collection, key,
		).Scan(&value)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("querying %s/%s: %w", collection, key, err)
		}
		if err := json.Unmarshal(value, out); err != nil {
			return fmt.Errorf("%w %s/%s: %w", errDecode, collection, key, err)
		}
		return nil
	})
}

func (p *Postgres) SetKeyed(ctx context.Context, collection, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, key, err)
	}
	return withRetry(ctx, func() error {
		_, err := p.pool.Exec(ctx,
			`INSERT INTO relay_resources (name, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (name, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			collection, key, data,
		)
		if err != nil {
			return fmt.Errorf("storing %s/%s: %w", collection, key, err)
		}
		return nil
	})
}

func (p *Postgres) DeleteKeyed(ctx context.Context, collection, key string) (bool, error) {
	var deleted bool
	err := withRetry(ctx, func() error {
		tag, err := p.pool.Exec(ctx,
			`DELETE FROM relay_resources WHERE name = $1 AND key = $2`,
			collection, key,
		)
		if err != nil {
			return fmt.Errorf("deleting %s/%s: %w", collection, key, err)
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

func (p *Postgres) Exists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := withRetry(ctx, func() error {
		return p.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM relay_resources WHERE name = $1)`,
			collection,
		).Scan(&exists)
	})
	return exists, err
}

func (p *Postgres) ExistsKeyed(ctx context.Context, collection, key string) (bool, error) {
	var exists bool
	err := withRetry(ctx, func() error {
		return p.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM relay_resources WHERE name = $1 AND key = $2)`,
			collection, key,
		).Scan(&exists)
	})
	return exists, err
}
