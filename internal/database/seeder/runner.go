package seeder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobmatch/internal/database"
	"jobmatch/internal/logger"

	"go.uber.org/zap"
)

var errNilDB = errors.New("seeder: nil db")

// Runner runs seeders in order and stops at the first failure.
type Runner struct {
	Seeders []Seeder
	Log     *zap.Logger
}

func (r Runner) Run(ctx context.Context, db database.DB) error {
	if db == nil {
		return errNilDB
	}
	log := logger.OrNop(r.Log).Named("seeder")
	for _, s := range r.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		if err := s.Run(ctx, db); err != nil {
			return fmt.Errorf("seed %s: %w", s.Name(), err)
		}
		log.Info("seeded", zap.String("seeder", s.Name()), zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}
