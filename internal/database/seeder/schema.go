package seeder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jobmatch/internal/database"
)

var ErrSchemaMismatch = errors.New("schema mismatch")

// EnsureTableColumns fails with ErrSchemaMismatch when table lacks any of
// columns, naming every missing one.
func EnsureTableColumns(ctx context.Context, db database.DB, table string, columns ...string) error {
	if db == nil {
		return errNilDB
	}
	if table == "" || len(columns) == 0 {
		return errors.New("seeder: table and columns are required")
	}

	existing, err := tableColumns(ctx, db, table)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}

	var missing []string
	for _, col := range columns {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s missing %s", ErrSchemaMismatch, table, strings.Join(missing, ", "))
	}
	return nil
}

func tableColumns(ctx context.Context, db database.DB, table string) (map[string]struct{}, error) {
	rows, err := db.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = current_schema() AND table_name = $1`,
		table,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}
