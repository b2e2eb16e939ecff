package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/database"
	"jobmatch/internal/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// Pool adapts a pgx pool to database.DB. SQLDB exposes the same pool through
// database/sql for the migration runner.
type Pool struct {
	pool  *pgxpool.Pool
	sqlDB *sql.DB
}

// DSN renders the keyword/value connection string for cfg.
func DSN(cfg config.DatabaseConfig) string {
	sslMode := strings.TrimSpace(cfg.SSLMode)
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		strings.TrimSpace(cfg.Host),
		strings.TrimSpace(cfg.Port),
		strings.TrimSpace(cfg.User),
		quoteValue(cfg.Password),
		strings.TrimSpace(cfg.Name),
		sslMode,
	)
}

// quoteValue escapes a libpq keyword value; empty values and values with spaces are quoted.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " '\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// Connect opens a pgx pool, pings it and exposes it through database.DB.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (database.DB, error) {
	log = logger.OrNop(log)

	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pcfg.ConnConfig.Tracer = newQueryTracer(log.Named("postgres"), cfg.SlowQueryThreshold)

	p, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	pingCtx, cancel := withDefaultTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.Ping(pingCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	log.Info("database connected",
		zap.String("host", cfg.Host),
		zap.String("name", cfg.Name),
		zap.Int32("max_conns", pcfg.MaxConns),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThreshold),
	)
	return &Pool{pool: p, sqlDB: stdlib.OpenDBFromPool(p)}, nil
}

func poolConfig(cfg config.DatabaseConfig) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.ConnectTimeout > 0 {
		pcfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.PoolMaxConns > 0 {
		pcfg.MaxConns = cfg.PoolMaxConns
	}
	if cfg.PoolMinConns > 0 {
		pcfg.MinConns = cfg.PoolMinConns
	}
	if cfg.PoolMaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.PoolMaxConnLifetime
	}
	if cfg.PoolMaxConnIdleTime > 0 {
		pcfg.MaxConnIdleTime = cfg.PoolMaxConnIdleTime
	}
	return pcfg, nil
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

var errNilDB = errors.New("database: nil pool")

func (p *Pool) ready() error {
	if p == nil || p.pool == nil {
		return errNilDB
	}
	return nil
}

func (p *Pool) Ping(ctx context.Context) error {
	if err := p.ready(); err != nil {
		return err
	}
	return p.pool.Ping(ctx)
}

func (p *Pool) Close() error {
	if p == nil {
		return nil
	}
	var err error
	if p.sqlDB != nil {
		err = p.sqlDB.Close()
	}
	if p.pool != nil {
		p.pool.Close()
	}
	return err
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	if err := p.ready(); err != nil {
		return 0, err
	}
	return execOn(ctx, p.pool, query, args)
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return queryOn(ctx, p.pool, query, args)
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	if err := p.ready(); err != nil {
		return errRow{err: err}
	}
	return row{p.pool.QueryRow(ctx, query, args...)}
}

func (p *Pool) Begin(ctx context.Context) (database.Tx, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	t, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx{t}, nil
}

func (p *Pool) SQLDB() *sql.DB {
	if p == nil {
		return nil
	}
	return p.sqlDB
}

// querier is the statement surface shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func execOn(ctx context.Context, q querier, query string, args []any) (int64, error) {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func queryOn(ctx context.Context, q querier, query string, args []any) (database.Rows, error) {
	r, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows{r}, nil
}

type tx struct{ pgx.Tx }

func (t tx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execOn(ctx, t.Tx, query, args)
}

func (t tx) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return queryOn(ctx, t.Tx, query, args)
}

func (t tx) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return row{t.Tx.QueryRow(ctx, query, args...)}
}

// Rollback after Commit is a no-op.
func (t tx) Rollback(ctx context.Context) error {
	if err := t.Tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

type rows struct{ pgx.Rows }

func (r rows) Scan(dest ...any) error { return translate(r.Rows.Scan(dest...)) }

type row struct{ pgx.Row }

func (r row) Scan(dest ...any) error { return translate(r.Row.Scan(dest...)) }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return database.ErrNoRows
	}
	return err
}
