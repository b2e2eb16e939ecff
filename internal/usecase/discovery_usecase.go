package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jobmatch/internal/discovery"
	"jobmatch/internal/infrastructure/cache"
	"jobmatch/internal/logger"
	"jobmatch/internal/repository"

	"go.uber.org/zap"
)

const (
	discoveryResultPrefix = "discovery:result:"
	// DiscoveryResultPattern matches every cached discovery batch.
	DiscoveryResultPattern = discoveryResultPrefix + "*"
)

// ResultCache is the slice of the Redis cache discovery needs.
type ResultCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	SetIfNotExists(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

type DiscoveryUsecase interface {
	Discover(ctx context.Context, req discovery.Request) (DiscoveryResult, error)
	Persist(ctx context.Context, b discovery.Batch) error
}

type DiscoveryResult struct {
	Batch  discovery.Batch        `json:"batch"`
	Cached bool                   `json:"cached"`
	Stored repository.UpsertStats `json:"stored"`
}

type Discovery struct {
	discoverer discovery.Discoverer
	jobs       repository.JobRepository
	cache      ResultCache
	notifier   discovery.Notifier
	ttl        time.Duration
	lockTTL    time.Duration
	lockWait   time.Duration
	log        *zap.Logger
}

type DiscoveryOption func(*Discovery)

func WithResultCache(c ResultCache, ttl time.Duration) DiscoveryOption {
	return func(d *Discovery) {
		d.cache = c
		d.ttl = ttl
	}
}

func WithDiscoveryNotifier(n discovery.Notifier) DiscoveryOption {
	return func(d *Discovery) { d.notifier = n }
}

func NewDiscoveryUsecase(d discovery.Discoverer, jobs repository.JobRepository, log *zap.Logger, opts ...DiscoveryOption) *Discovery {
	u := &Discovery{
		discoverer: d,
		jobs:       jobs,
		lockTTL:    30 * time.Minute,
		lockWait:   500 * time.Millisecond,
		log:        logger.OrNop(log).Named("usecase.discovery"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Discover runs a discovery for req, or returns the cached batch of an equal request.
// A fresh batch is persisted and announced before it is cached.
func (u *Discovery) Discover(ctx context.Context, req discovery.Request) (DiscoveryResult, error) {
	if err := req.Validate(); err != nil {
		return DiscoveryResult{}, err
	}
	req = req.Normalize()
	key := discoveryResultPrefix + req.Key()

	if b, ok := u.cached(ctx, key); ok {
		return DiscoveryResult{Batch: b, Cached: true}, nil
	}

	release := u.lock(ctx, req, key)
	if release == nil {
		// Another run holds the lock; give it a moment to publish its result.
		if err := sleepCtx(ctx, u.lockWait); err != nil {
			return DiscoveryResult{}, err
		}
		if b, ok := u.cached(ctx, key); ok {
			return DiscoveryResult{Batch: b, Cached: true}, nil
		}
		u.log.Info("discovery lock wait fallback", zap.String("key", key))
	} else {
		defer release()
	}

	b, err := u.discoverer.Discover(ctx, req)
	if err != nil {
		return DiscoveryResult{}, err
	}

	stats, err := u.persist(ctx, b)
	if err != nil {
		return DiscoveryResult{}, err
	}
	if u.notifier != nil {
		u.notifier.DiscoveryCompleted(ctx, b)
	}
	if u.cache != nil {
		if err := u.cache.SetJSON(ctx, key, b, u.ttl); err != nil {
			u.log.Warn("discovery cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return DiscoveryResult{Batch: b, Stored: stats}, nil
}

// Persist stores the candidates of a batch. It is the loop's sink.
func (u *Discovery) Persist(ctx context.Context, b discovery.Batch) error {
	_, err := u.persist(ctx, b)
	return err
}

func (u *Discovery) persist(ctx context.Context, b discovery.Batch) (repository.UpsertStats, error) {
	if u.jobs == nil || len(b.Candidates) == 0 {
		return repository.UpsertStats{}, nil
	}
	rows := make([]repository.DiscoveredJob, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		rows = append(rows, repository.DiscoveredJob{Job: c.Posting.ToJob(), QualityScore: c.QualityScore})
	}
	stats, err := u.jobs.UpsertDiscovered(ctx, rows)
	if err != nil {
		return stats, fmt.Errorf("persist discovered jobs: %w", err)
	}
	u.log.Info("discovered jobs stored",
		zap.String("search_term", b.Request.SearchTerm),
		zap.Int("inserted", stats.Inserted),
		zap.Int("updated", stats.Updated),
	)
	return stats, nil
}

func (u *Discovery) cached(ctx context.Context, key string) (discovery.Batch, bool) {
	if u.cache == nil {
		return discovery.Batch{}, false
	}
	var b discovery.Batch
	hit, err := u.cache.GetJSON(ctx, key, &b)
	if err != nil {
		u.log.Warn("discovery cache get failed", zap.String("key", key), zap.Error(err))
		return discovery.Batch{}, false
	}
	if hit {
		u.log.Debug("discovery cache hit", zap.String("key", key))
	}
	return b, hit
}

// lock returns nil when someone else holds the request lock. Without a usable
// store the request runs unlocked.
func (u *Discovery) lock(ctx context.Context, req discovery.Request, key string) func() {
	noop := func() {}
	if u.cache == nil {
		return noop
	}
	lockKey := discovery.LockKey(req)
	ok, err := u.cache.SetIfNotExists(ctx, lockKey, key, u.lockTTL)
	if err != nil {
		if !errors.Is(err, cache.ErrUnavailable) {
			u.log.Warn("discovery lock failed, running unlocked", zap.String("key", lockKey), zap.Error(err))
		}
		return noop
	}
	if !ok {
		return nil
	}
	return func() {
		if err := u.cache.Delete(context.WithoutCancel(ctx), lockKey); err != nil {
			u.log.Warn("discovery lock release failed", zap.String("key", lockKey), zap.Error(err))
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
