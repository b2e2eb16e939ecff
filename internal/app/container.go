package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"jobmatch/internal/config"
	"jobmatch/internal/database"
	"jobmatch/internal/database/migration"
	dbpostgres "jobmatch/internal/database/postgres"
	"jobmatch/internal/discovery"
	"jobmatch/internal/domain/matching"
	"jobmatch/internal/infrastructure/cache"
	"jobmatch/internal/infrastructure/embedding"
	"jobmatch/internal/infrastructure/vectorindex"
	"jobmatch/internal/logger"
	"jobmatch/internal/pkg/jwt"
	"jobmatch/internal/repository"
	"jobmatch/internal/scraper"
	"jobmatch/internal/similarity"
	"jobmatch/internal/usecase"
	"jobmatch/internal/ws"

	"go.uber.org/zap"
)

// Container holds every long-lived service. Build it once per process.
type Container struct {
	Config config.Config
	Log    *zap.Logger

	DB    database.DB
	Cache *cache.Redis
	Index *vectorindex.Qdrant

	Similarity   *similarity.Engine
	Matching     *usecase.Matching
	Orchestrator *discovery.Orchestrator
	Discovery    *usecase.Discovery
	Hub          *ws.Hub
	JWT          jwt.Service
}

func NewContainer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Container, error) {
	log = logger.OrNop(log)
	c := &Container{Config: cfg, Log: log}

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	db, err := dbpostgres.Connect(dbCtx, cfg.Database, log)
	if err != nil {
		return nil, err
	}
	c.DB = db

	c.Cache = cache.NewRedis(ctx, cfg.Redis, log)

	embedder, err := embedding.New(ctx, cfg.Embedding, log)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("embedding: %w", err)
	}
	cached := similarity.NewCachedEmbedder(embedder, c.Cache, cfg.Embedding.CacheTTL, log)

	index, err := vectorindex.NewQdrant(cfg.Qdrant.URL, cfg.Qdrant.Collection, embedder.Dimension(), cfg.Qdrant.Timeout, log,
		vectorindex.WithDistance(cfg.Qdrant.Distance),
	)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("qdrant: %w", err)
	}
	c.Index = index
	if err := index.EnsureCollection(ctx); err != nil {
		// Matching still works without the index; indexing and similar-job search report 503.
		log.Warn("qdrant collection bootstrap failed", zap.String("url", cfg.Qdrant.URL), zap.Error(err))
	}

	c.Similarity = similarity.NewEngine(cached, index, cfg.Similarity.Timeout, log)

	resumes := repository.NewPostgresResumeRepository(db)
	jobs := repository.NewPostgresJobRepository(db)
	matches := repository.NewPostgresMatchResultRepository(db)
	c.Matching = usecase.NewMatchingUsecase(resumes, jobs, matches, matching.NewEngine(c.Similarity), c.Similarity, log)

	adapters := scraper.FromConfig(cfg.Sources, log)
	if len(adapters) == 0 {
		log.Warn("no discovery sources configured")
	}
	c.Orchestrator = discovery.New(adapters, log,
		discovery.WithAdapterTimeout(cfg.Discovery.AdapterTimeout),
		discovery.WithMaxPerSource(cfg.Discovery.MaxPerSource),
		discovery.WithMaxConcurrentSources(cfg.Discovery.MaxConcurrentSources),
	)

	c.Hub = ws.NewHub(log)
	c.Discovery = usecase.NewDiscoveryUsecase(c.Orchestrator, jobs, log,
		usecase.WithResultCache(c.Cache, cfg.Discovery.CacheTTL),
		usecase.WithDiscoveryNotifier(c.Hub),
	)

	if secret := strings.TrimSpace(cfg.JWT.Secret); secret != "" {
		c.JWT = jwt.NewHMACService(secret)
	}
	return c, nil
}

// Migrate applies the schema migrations compiled into the binary, or those in
// database.migrations_dir when set.
func (c *Container) Migrate(ctx context.Context) error {
	r := migration.Runner{Dir: c.Config.Database.MigrationsDir, Log: c.Log}
	return r.Run(ctx, c.DB.SQLDB())
}

// Requests returns the configured loop queries, defaults applied.
func (c *Container) Requests() []discovery.Request {
	d := c.Config.Discovery
	return discovery.ParseRequests(d.Queries, d.DefaultLocation, d.MaxResults, d.MaxAgeDays)
}

// NewLoop builds the continuous discovery loop over the configured queries.
func (c *Container) NewLoop() (*discovery.Loop, error) {
	return discovery.NewLoop(c.Orchestrator, c.Requests(), c.Config.Discovery.Interval, c.Log,
		discovery.WithSink(c.Discovery),
		discovery.WithNotifier(c.Hub),
		discovery.WithLocker(c.Cache, c.Config.Discovery.LockTTL),
	)
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Cache != nil {
		if err := c.Cache.Close(); err != nil {
			c.Log.Warn("redis close failed", zap.Error(err))
		}
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
