package db

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Connect opens a pool whose connections map NUMERIC to decimal.Decimal.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

func MustConnect(ctx context.Context, dsn string) *pgxpool.Pool {
	pool, err := Connect(ctx, dsn)
	if err != nil {
		panic(err)
	}
	return pool
}

// Migration is one embedded schema change, named by its file.
type Migration struct {
	Name string
	SQL  string
}

// MigrationFiles lists the migrations/*.sql files of fsys in apply order.
func MigrationFiles(fsys fs.FS) ([]string, error) {
	files, err := fs.Glob(fsys, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool { return path.Base(files[i]) < path.Base(files[j]) })
	return files, nil
}

// LoadMigrations reads every migration up front so a broken file stops the
// run before anything is applied.
func LoadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := MigrationFiles(fsys)
	if err != nil {
		return nil, err
	}
	res := make([]Migration, 0, len(files))
	for _, f := range files {
		b, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		m := Migration{Name: path.Base(f), SQL: strings.TrimSpace(string(b))}
		if m.SQL == "" {
			return nil, fmt.Errorf("migration %s is empty", m.Name)
		}
		res = append(res, m)
	}
	return res, nil
}

// ApplyMigrations runs every embedded migration not yet recorded in
// schema_migrations, each in its own transaction.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	ms, err := LoadMigrations(migrations)
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	done, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}
	for _, m := range Pending(ms, done) {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations(filename) VALUES($1)`, m.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// Pending keeps the migrations whose names are not in done, in order.
func Pending(ms []Migration, done map[string]bool) []Migration {
	var res []Migration
	for _, m := range ms {
		if !done[m.Name] {
			res = append(res, m)
		}
	}
	return res
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	done := make(map[string]bool, len(names))
	for _, n := range names {
		done[n] = true
	}
	return done, nil
}
