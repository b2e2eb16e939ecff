package migration

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

//go:embed sql/*.sql
var embedded embed.FS

const lockKey = 746295114

var errNilDB = errors.New("migration: nil db")

// Runner applies versioned SQL files once each, in order. Files come from Dir when
// set, otherwise from the migrations compiled into the binary.
type Runner struct {
	Dir string
	Log *zap.Logger
}

func (r Runner) source() (fs.FS, error) {
	if strings.TrimSpace(r.Dir) != "" {
		return os.DirFS(r.Dir), nil
	}
	return fs.Sub(embedded, "sql")
}

// Run applies every pending migration under a Postgres advisory lock. It fails
// without applying anything when an applied file has been edited since.
func (r Runner) Run(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errNilDB
	}
	log := logger.OrNop(r.Log).Named("migration")

	migs, err := r.load()
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		log.Info("no migrations found")
		return nil
	}

	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return err
	}
	if err := advisoryLock(ctx, db, lockKey); err != nil {
		return err
	}
	defer func() {
		_ = advisoryUnlock(context.WithoutCancel(ctx), db, lockKey)
	}()

	applied, err := getApplied(ctx, db)
	if err != nil {
		return err
	}
	pending, err := plan(migs, applied)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		log.Debug("schema up to date", zap.Int("migrations", len(migs)))
		return nil
	}

	for _, m := range pending {
		start := time.Now()
		if err := applyOne(ctx, db, m); err != nil {
			return err
		}
		log.Info("migration applied",
			zap.Int64("version", m.Version),
			zap.String("file", m.Filename),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return nil
}

// Status describes one migration file and whether the database has applied it.
type Status struct {
	Migration
	Applied   bool
	AppliedAt time.Time
}

// Status lists every known migration in version order. It creates the
// bookkeeping table when missing but applies nothing.
func (r Runner) Status(ctx context.Context, db *sql.DB) ([]Status, error) {
	if db == nil {
		return nil, errNilDB
	}
	migs, err := r.load()
	if err != nil {
		return nil, err
	}
	if err := ensureSchemaMigrations(ctx, db); err != nil {
		return nil, err
	}
	applied, err := getApplied(ctx, db)
	if err != nil {
		return nil, err
	}
	if _, err := plan(migs, applied); err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(migs))
	for _, m := range migs {
		st := Status{Migration: m}
		if a, ok := applied[m.Version]; ok {
			st.Applied = true
			st.AppliedAt = a.AppliedAt
		}
		out = append(out, st)
	}
	return out, nil
}

func (r Runner) load() ([]Migration, error) {
	src, err := r.source()
	if err != nil {
		return nil, err
	}
	return loadMigrations(src)
}

// plan returns the migrations not yet applied, in order.
func plan(migs []Migration, applied map[int64]appliedMigration) ([]Migration, error) {
	var pending []Migration
	for _, m := range migs {
		a, ok := applied[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if a.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration checksum mismatch: version=%d name=%s", m.Version, m.Name)
		}
	}
	return pending, nil
}

type Migration struct {
	Version  int64
	Name     string
	Filename string
	SQL      string
	Checksum string
}

type appliedMigration struct {
	Version   int64
	Checksum  string
	AppliedAt time.Time
}

var fileRe = regexp.MustCompile(`^V(\d+)__([A-Za-z0-9_.-]+)\.sql$`)

func loadMigrations(src fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(src, ".")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	migs := make([]Migration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		m := fileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid migration version: %s", name)
		}

		b, err := fs.ReadFile(src, name)
		if err != nil {
			return nil, err
		}
		sqlText := strings.TrimSpace(string(b))
		if sqlText == "" {
			return nil, fmt.Errorf("empty migration file: %s", name)
		}

		h := sha256.Sum256([]byte(sqlText))
		migs = append(migs, Migration{
			Version:  v,
			Name:     m[2],
			Filename: name,
			SQL:      sqlText,
			Checksum: hex.EncodeToString(h[:]),
		})
	}

	sort.Slice(migs, func(i, j int) bool { return migs[i].Version < migs[j].Version })
	for i := 1; i < len(migs); i++ {
		if migs[i].Version == migs[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version: %d", migs[i].Version)
		}
	}

	return migs, nil
}

func ensureSchemaMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

func advisoryLock(ctx context.Context, db *sql.DB, key int64) error {
	_, err := db.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key)
	return err
}

func advisoryUnlock(ctx context.Context, db *sql.DB, key int64) error {
	_, err := db.ExecContext(ctx, `SELECT pg_advisory_unlock($1)`, key)
	return err
}

func getApplied(ctx context.Context, db *sql.DB) (map[int64]appliedMigration, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, checksum, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[int64]appliedMigration{}
	for rows.Next() {
		var a appliedMigration
		if err := rows.Scan(&a.Version, &a.Checksum, &a.AppliedAt); err != nil {
			return nil, err
		}
		out[a.Version] = a
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply migration failed: version=%d file=%s: %w", m.Version, m.Filename, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES ($1, $2, $3, $4)`,
		m.Version, m.Name, m.Checksum, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}
