package cache

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/vidresolve/vidresolve/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

// Durable is the sqlite tier of the result cache.
type Durable struct {
	db  *sql.DB
	now func() time.Time
}

// OpenDurable opens the sqlite database at dsn and applies pending migrations.
func OpenDurable(ctx context.Context, dsn string, now func() time.Time) (*Durable, error) {
	if now == nil {
		now = time.Now
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	// one writer keeps sqlite free of SQLITE_BUSY and makes ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Durable{db: db, now: now}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(log.Logger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate resolver cache: %w", err)
	}
	return nil
}

// Get loads the entry stored under key unless it has expired.
func (d *Durable) Get(ctx context.Context, key string) (Entry, bool, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT urls, results, created_at, expire_at, meta FROM resolver_cache WHERE request_key = ? AND expire_at > ?`,
		key, d.now().UnixMilli(),
	)

	var (
		urls, results, meta string
		createdAt, expireAt int64
	)
	if err := row.Scan(&urls, &results, &createdAt, &expireAt, &meta); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("read cache row: %w", err)
	}

	entry := Entry{
		Key:       key,
		CreatedAt: time.UnixMilli(createdAt),
		ExpireAt:  time.UnixMilli(expireAt),
	}
	if err := json.Unmarshal([]byte(urls), &entry.URLs); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached urls: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &entry.Results); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached results: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &entry.Meta); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached meta: %w", err)
	}

	return entry, true, nil
}

// Put upserts entry.
func (d *Durable) Put(ctx context.Context, entry Entry) error {
	urls, err := json.Marshal(entry.URLs)
	if err != nil {
		return err
	}
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}

	_, err = d.db.ExecContext(ctx, `
INSERT INTO resolver_cache (request_key, urls, results, created_at, expire_at, meta)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(request_key) DO UPDATE SET
    urls = excluded.urls,
    results = excluded.results,
    created_at = excluded.created_at,
    expire_at = excluded.expire_at,
    meta = excluded.meta`,
		entry.Key, string(urls), string(results),
		entry.CreatedAt.UnixMilli(), entry.ExpireAt.UnixMilli(), string(meta),
	)
	if err != nil {
		return fmt.Errorf("upsert cache row: %w", err)
	}
	return nil
}

// Sweep deletes expired rows and returns how many were removed.
func (d *Durable) Sweep(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, `DELETE FROM resolver_cache WHERE expire_at <= ?`, d.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("sweep cache rows: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored rows.
func (d *Durable) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolver_cache`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Clear deletes every row.
func (d *Durable) Clear(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM resolver_cache`)
	return err
}

// Close releases the database handle.
func (d *Durable) Close() error {
	return d.db.Close()
}
