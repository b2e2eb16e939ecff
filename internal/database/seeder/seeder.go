package seeder

import (
	"context"

	"jobmatch/internal/database"
)

// Seeder loads one set of fixture rows. Implementations must be safe to run
// repeatedly against the same database.
type Seeder interface {
	Name() string
	Run(ctx context.Context, db database.DB) error
}

// Defaults is the seed set used by the seed command.
func Defaults() []Seeder {
	return []Seeder{ResumesSeeder{}}
}
