package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Qdrant     QdrantConfig     `mapstructure:"qdrant"`
	Embedding  EmbeddingConfig  `mapstructure:"embedding"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Discovery  DiscoveryConfig  `mapstructure:"discovery"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	JWT        JWTConfig        `mapstructure:"jwt"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	HTTPPort string `mapstructure:"http_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host                string        `mapstructure:"host"`
	Port                string        `mapstructure:"port"`
	Name                string        `mapstructure:"name"`
	User                string        `mapstructure:"user"`
	Password            string        `mapstructure:"password"`
	SSLMode             string        `mapstructure:"ssl_mode"`
	ConnectTimeout      time.Duration `mapstructure:"connect_timeout"`
	PoolMaxConns        int32         `mapstructure:"pool_max_conns"`
	PoolMinConns        int32         `mapstructure:"pool_min_conns"`
	PoolMaxConnLifetime time.Duration `mapstructure:"pool_max_conn_lifetime"`
	PoolMaxConnIdleTime time.Duration `mapstructure:"pool_max_conn_idle_time"`
	SlowQueryThreshold  time.Duration `mapstructure:"slow_query_threshold"`
	MigrationsDir       string        `mapstructure:"migrations_dir"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type QdrantConfig struct {
	URL        string        `mapstructure:"url"`
	Collection string        `mapstructure:"collection"`
	Distance   string        `mapstructure:"distance"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type EmbeddingConfig struct {
	// Provider is one of hashing, openai, gemini.
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

type SimilarityConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type DiscoveryConfig struct {
	LoopEnabled          bool          `mapstructure:"loop_enabled"`
	Interval             time.Duration `mapstructure:"interval"`
	Queries              []string      `mapstructure:"queries"`
	DefaultLocation      string        `mapstructure:"default_location"`
	MaxResults           int           `mapstructure:"max_results"`
	MaxAgeDays           int           `mapstructure:"max_age_days"`
	MaxPerSource         int           `mapstructure:"max_per_source"`
	MaxConcurrentSources int           `mapstructure:"max_concurrent_sources"`
	AdapterTimeout       time.Duration `mapstructure:"adapter_timeout"`
	LockTTL              time.Duration `mapstructure:"lock_ttl"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"`
}

type SourcesConfig struct {
	Adzuna   AdzunaConfig   `mapstructure:"adzuna"`
	RemoteOK RemoteOKConfig `mapstructure:"remoteok"`
	HTML     HTMLConfig     `mapstructure:"html"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Service  ServiceConfig  `mapstructure:"service"`
}

type AdzunaConfig struct {
	AppID   string `mapstructure:"app_id"`
	AppKey  string `mapstructure:"app_key"`
	Country string `mapstructure:"country"`
	BaseURL string `mapstructure:"base_url"`
}

type RemoteOKConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	BaseURL string `mapstructure:"base_url"`
}

type HTMLConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Name             string `mapstructure:"name"`
	SearchURL        string `mapstructure:"search_url"`
	ItemSelector     string `mapstructure:"item_selector"`
	TitleSelector    string `mapstructure:"title_selector"`
	CompanySelector  string `mapstructure:"company_selector"`
	LocationSelector string `mapstructure:"location_selector"`
	SummarySelector  string `mapstructure:"summary_selector"`
	DateSelector     string `mapstructure:"date_selector"`
	LinkSelector     string `mapstructure:"link_selector"`
}

type HeadlessConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Name       string `mapstructure:"name"`
	SearchURL  string `mapstructure:"search_url"`
	LinkFilter string `mapstructure:"link_filter"`
}

// ServiceConfig points at an external scraper service speaking the JobSpy row format.
type ServiceConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Name    string        `mapstructure:"name"`
	BaseURL string        `mapstructure:"base_url"`
	Sites   []string      `mapstructure:"sites"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

var errInvalidConfig = errors.New("invalid configuration")

// Load reads .env (when present), an optional config.yaml and the environment.
// Environment keys are the upper-cased config paths with dots replaced by underscores,
// e.g. QDRANT_URL or DISCOVERY_INTERVAL.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		v.SetConfigFile(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Discovery.Queries = splitList(cfg.Discovery.Queries)
	cfg.Sources.Service.Sites = splitList(cfg.Sources.Service.Sites)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "jobmatch")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.http_port", "8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "jobmatch")
	v.SetDefault("database.user", "jobmatch")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.connect_timeout", 5*time.Second)
	v.SetDefault("database.pool_max_conns", 10)
	v.SetDefault("database.pool_min_conns", 0)
	v.SetDefault("database.pool_max_conn_lifetime", time.Hour)
	v.SetDefault("database.pool_max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.slow_query_threshold", 500*time.Millisecond)
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("qdrant.url", "http://localhost:6333")
	v.SetDefault("qdrant.collection", "job_embeddings")
	v.SetDefault("qdrant.distance", "Cosine")
	v.SetDefault("qdrant.timeout", 10*time.Second)

	v.SetDefault("embedding.provider", "hashing")
	v.SetDefault("embedding.model", "all-MiniLM-L6-v2")
	v.SetDefault("embedding.dimension", 384)
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.timeout", 15*time.Second)
	v.SetDefault("embedding.cache_ttl", 24*time.Hour)

	v.SetDefault("similarity.timeout", 20*time.Second)

	v.SetDefault("discovery.loop_enabled", false)
	v.SetDefault("discovery.interval", 6*time.Hour)
	v.SetDefault("discovery.queries", []string{})
	v.SetDefault("discovery.default_location", "Remote")
	v.SetDefault("discovery.max_results", 50)
	v.SetDefault("discovery.max_age_days", 14)
	v.SetDefault("discovery.max_per_source", 100)
	v.SetDefault("discovery.max_concurrent_sources", 0)
	v.SetDefault("discovery.adapter_timeout", 45*time.Second)
	v.SetDefault("discovery.lock_ttl", 30*time.Minute)
	v.SetDefault("discovery.cache_ttl", 15*time.Minute)

	v.SetDefault("sources.adzuna.app_id", "")
	v.SetDefault("sources.adzuna.app_key", "")
	v.SetDefault("sources.adzuna.country", "us")
	v.SetDefault("sources.adzuna.base_url", "https://api.adzuna.com/v1/api/jobs")
	v.SetDefault("sources.remoteok.enabled", false)
	v.SetDefault("sources.remoteok.base_url", "https://remoteok.com")
	v.SetDefault("sources.html.enabled", false)
	v.SetDefault("sources.html.name", "html-board")
	v.SetDefault("sources.html.search_url", "")
	v.SetDefault("sources.html.item_selector", ".job")
	v.SetDefault("sources.html.title_selector", ".title")
	v.SetDefault("sources.html.company_selector", ".company")
	v.SetDefault("sources.html.location_selector", ".location")
	v.SetDefault("sources.html.summary_selector", ".summary")
	v.SetDefault("sources.html.date_selector", "time")
	v.SetDefault("sources.html.link_selector", "a")
	v.SetDefault("sources.headless.enabled", false)
	v.SetDefault("sources.headless.name", "headless-board")
	v.SetDefault("sources.headless.search_url", "")
	v.SetDefault("sources.headless.link_filter", "/jobs/")
	v.SetDefault("sources.service.enabled", false)
	v.SetDefault("sources.service.name", "jobspy")
	v.SetDefault("sources.service.base_url", "")
	v.SetDefault("sources.service.sites", []string{"indeed", "linkedin"})
	v.SetDefault("sources.service.timeout", 90*time.Second)

	v.SetDefault("jwt.secret", "")
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.App.HTTPPort) == "" {
		problems = append(problems, "app.http_port is required")
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "hashing", "openai", "gemini":
	default:
		problems = append(problems, fmt.Sprintf("embedding.provider %q is not one of hashing, openai, gemini", c.Embedding.Provider))
	}
	if c.Embedding.Dimension <= 0 {
		problems = append(problems, "embedding.dimension must be positive")
	}
	if p := strings.ToLower(c.Embedding.Provider); (p == "openai" || p == "gemini") && strings.TrimSpace(c.Embedding.APIKey) == "" {
		problems = append(problems, "embedding.api_key is required for provider "+p)
	}
	if c.Discovery.Interval <= 0 {
		problems = append(problems, "discovery.interval must be positive")
	}
	if c.Discovery.MaxResults < 0 || c.Discovery.MaxAgeDays < 0 {
		problems = append(problems, "discovery.max_results and discovery.max_age_days must not be negative")
	}
	if c.Discovery.MaxConcurrentSources < 0 {
		problems = append(problems, "discovery.max_concurrent_sources must not be negative")
	}
	if c.Sources.HTML.Enabled && strings.TrimSpace(c.Sources.HTML.SearchURL) == "" {
		problems = append(problems, "sources.html.search_url is required when the html source is enabled")
	}
	if c.Sources.Headless.Enabled && strings.TrimSpace(c.Sources.Headless.SearchURL) == "" {
		problems = append(problems, "sources.headless.search_url is required when the headless source is enabled")
	}
	if c.Sources.Service.Enabled && strings.TrimSpace(c.Sources.Service.BaseURL) == "" {
		problems = append(problems, "sources.service.base_url is required when the scraper service is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", errInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// splitList accepts both real lists and a single comma separated value from the environment.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
