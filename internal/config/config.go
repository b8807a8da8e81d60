package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	YouTube   YouTubeConfig
	Quota     QuotaConfig
	Discovery DiscoveryConfig
	Trending  TrendingConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// YouTubeConfig seeds the key rotator on first boot. Keys stored through
// the keys API take precedence over this list.
type YouTubeConfig struct {
	APIKeys []string
}

type QuotaConfig struct {
	DailyLimit  int
	ResetPolicy string // "manual" or "rolling"
}

type DiscoveryConfig struct {
	VideoPages          int
	ChannelPages        int
	RelatedDepth        int
	CacheTTLHours       int
	FewResultsThreshold int
}

type TrendingConfig struct {
	MaxPages int
}

type RateLimitConfig struct {
	MaxRequests int
	WindowSec   int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		YouTube: YouTubeConfig{
			APIKeys: splitList(k.String("youtube.api.keys")),
		},
		Quota: QuotaConfig{
			DailyLimit:  k.Int("quota.daily.limit"),
			ResetPolicy: k.String("quota.reset.policy"),
		},
		Discovery: DiscoveryConfig{
			VideoPages:          k.Int("discovery.video.pages"),
			ChannelPages:        k.Int("discovery.channel.pages"),
			RelatedDepth:        k.Int("discovery.related.depth"),
			CacheTTLHours:       k.Int("discovery.cache.ttl.hours"),
			FewResultsThreshold: k.Int("discovery.few.results.threshold"),
		},
		Trending: TrendingConfig{
			MaxPages: k.Int("trending.max.pages"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
			WindowSec:   k.Int("ratelimit.window.sec"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Quota.DailyLimit == 0 {
		cfg.Quota.DailyLimit = 10000
	}
	if cfg.Quota.ResetPolicy == "" {
		cfg.Quota.ResetPolicy = "manual"
	}
	if cfg.Discovery.VideoPages == 0 {
		cfg.Discovery.VideoPages = 3
	}
	if cfg.Discovery.ChannelPages == 0 {
		cfg.Discovery.ChannelPages = 1
	}
	if cfg.Discovery.RelatedDepth == 0 {
		cfg.Discovery.RelatedDepth = 1
	}
	if cfg.Discovery.CacheTTLHours == 0 {
		cfg.Discovery.CacheTTLHours = 24
	}
	if cfg.Discovery.FewResultsThreshold == 0 {
		cfg.Discovery.FewResultsThreshold = 20
	}
	if cfg.Trending.MaxPages == 0 {
		cfg.Trending.MaxPages = 3
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 10
	}
	if cfg.RateLimit.WindowSec == 0 {
		cfg.RateLimit.WindowSec = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
