package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/tubescout-platform/tubescout/internal/api"
	"github.com/tubescout-platform/tubescout/internal/config"
	"github.com/tubescout-platform/tubescout/internal/discovery"
	"github.com/tubescout-platform/tubescout/internal/keys"
	"github.com/tubescout-platform/tubescout/internal/middleware"
	"github.com/tubescout-platform/tubescout/internal/quota"
	iredis "github.com/tubescout-platform/tubescout/internal/redis"
	"github.com/tubescout-platform/tubescout/internal/server"
	"github.com/tubescout-platform/tubescout/internal/store"
	"github.com/tubescout-platform/tubescout/internal/trending"
	"github.com/tubescout-platform/tubescout/internal/youtube"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	st := store.NewRedisStore(redisClient, "tubescout")

	// Quota ledger and key rotation
	ledger, err := quota.NewLedger(ctx, st, cfg.Quota.DailyLimit, quota.ResetPolicy(cfg.Quota.ResetPolicy))
	if err != nil {
		slog.Error("initializing quota ledger", "error", err)
		os.Exit(1)
	}
	rotator, err := keys.NewRotator(ctx, st, ledger, cfg.YouTube.APIKeys)
	if err != nil {
		slog.Error("initializing key rotator", "error", err)
		os.Exit(1)
	}

	// YouTube Data API
	client := youtube.NewDataAPIClient()
	keysHandler := keys.NewHandler(rotator, ledger, client)

	// Discovery
	cache := discovery.NewResultCache(st, time.Duration(cfg.Discovery.CacheTTLHours)*time.Hour)
	engine := discovery.NewEngine(client, rotator, ledger, cache, discovery.Options{
		VideoPages:          cfg.Discovery.VideoPages,
		ChannelPages:        cfg.Discovery.ChannelPages,
		RelatedDepth:        cfg.Discovery.RelatedDepth,
		FewResultsThreshold: cfg.Discovery.FewResultsThreshold,
	})
	discoveryHandler := discovery.NewHandler(engine)

	// Trending
	trendingSvc := trending.NewService(client, rotator, ledger, st, cfg.Trending.MaxPages)
	trendingHandler := trending.NewHandler(trendingSvc)

	// Router
	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)
	router := api.NewRouter(redisClient, api.RouterConfig{
		CORSAllowedOrigins:   cfg.CORS.AllowedOrigins,
		DiscoveryRateLimiter: rateLimiter.Middleware,
	}, api.HandlerSet{
		SetKeys:      keysHandler.Put,
		ListKeys:     keysHandler.List,
		ValidateKeys: keysHandler.Validate,
		GetQuota:     keysHandler.Quota,
		ResetQuota:   keysHandler.ResetQuota,

		Search:        discoveryHandler.Search,
		ListCountries: discoveryHandler.Countries,

		Trending: trendingHandler.Get,
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
