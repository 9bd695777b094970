// Package app turns a loaded configuration into a ready aggregator and its
// supporting clients. Both binaries start here.
package app

import (
	"context"
	"time"

	"github.com/ignite/offer-finder/internal/affbank"
	"github.com/ignite/offer-finder/internal/aggregator"
	"github.com/ignite/offer-finder/internal/config"
	"github.com/ignite/offer-finder/internal/currency"
	"github.com/ignite/offer-finder/internal/domain"
	"github.com/ignite/offer-finder/internal/export"
	"github.com/ignite/offer-finder/internal/impact"
	"github.com/ignite/offer-finder/internal/impactmarket"
	"github.com/ignite/offer-finder/internal/network"
	"github.com/ignite/offer-finder/internal/pkg/logger"
	"github.com/ignite/offer-finder/internal/pkg/ratelimit"
	"github.com/ignite/offer-finder/internal/scoring"
	"github.com/redis/go-redis/v9"
)

// Credential field names for the placeholder networks
const (
	FieldAPIKey      = "api_key"
	FieldPublisherID = "publisher_id"
)

// App holds the wired components
type App struct {
	Config     *config.Config
	Aggregator *aggregator.Aggregator
	Redis      *redis.Client      // nil when not configured or unreachable
	Uploader   *export.S3Uploader // nil when no export bucket is set
}

// Build wires the application from cfg.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))

	a := &App{Config: cfg}

	if cfg.Redis.Enabled() {
		a.Redis = connectRedis(ctx, cfg.Redis)
	}

	var limiter ratelimit.Limiter
	if a.Redis != nil && cfg.Networks.Impact.RateLimitPerMinute > 0 {
		limiter = ratelimit.NewRedisLimiter(a.Redis, cfg.Networks.Impact.RateLimitPerMinute, time.Minute)
	}

	registry := Registry(cfg, limiter, currency.NewConverter(cfg.Currency.Rates))
	adapters, unconfigured := registry.Build(Credentials(cfg))

	a.Aggregator = aggregator.New(adapters,
		aggregator.WithScorer(scoring.New(cfg.Scoring)),
		aggregator.WithRequestTimeout(cfg.Search.RequestTimeout()),
		aggregator.WithResultLimit(cfg.Search.ResultLimit),
		aggregator.WithUnconfigured(unconfigured),
	)

	if cfg.Export.S3Bucket != "" {
		uploader, err := export.NewS3Uploader(ctx, export.S3Config{
			Bucket:    cfg.Export.S3Bucket,
			Prefix:    cfg.Export.S3Prefix,
			Region:    cfg.Export.S3Region,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Uploader = uploader
	}

	logger.Info("application wired",
		"networks", len(adapters),
		"unconfigured", len(unconfigured),
		"rate_limited", limiter != nil,
		"s3_export", a.Uploader != nil)

	return a, nil
}

// Registry lists every supported network in search order. Adding a network
// means registering its factory here.
func Registry(cfg *config.Config, limiter ratelimit.Limiter, conv *currency.Converter) *network.Registry {
	maxRetries := cfg.Networks.Impact.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	r := network.NewRegistry()
	r.Register(impact.Factory(impact.Config{
		BaseURL:    cfg.Networks.Impact.BaseURL,
		PageSize:   cfg.Networks.Impact.PageSize,
		MaxPages:   cfg.Networks.Impact.MaxPages,
		MaxRetries: maxRetries,
		Timeout:    cfg.Networks.Impact.Timeout(),
	}, limiter, conv))
	r.Register(network.UnimplementedFactory(domain.NetworkCJ, FieldAPIKey))
	r.Register(network.UnimplementedFactory(domain.NetworkAwin, FieldAPIKey, FieldPublisherID))
	r.Register(network.UnimplementedFactory(domain.NetworkPartnerstack, FieldAPIKey))
	r.Register(affbank.Factory(affbank.Config{
		BaseURL:    cfg.Networks.Affbank.BaseURL,
		MaxRetries: cfg.Networks.Affbank.MaxRetries,
		Timeout:    cfg.Networks.Affbank.Timeout(),
	}, cfg.Networks.Affbank.Enabled))
	r.Register(impactmarket.Factory(impactmarket.Config{
		BaseURL:    cfg.Networks.Marketplace.BaseURL,
		MaxPages:   cfg.Networks.Marketplace.MaxPages,
		PageDelay:  cfg.Networks.Marketplace.PageDelay(),
		MaxRetries: cfg.Networks.Marketplace.MaxRetries,
		Timeout:    cfg.Networks.Marketplace.Timeout(),
	}, cfg.Networks.Marketplace.Enabled))
	return r
}

// Credentials collects the per-network credential sets from cfg.
func Credentials(cfg *config.Config) map[domain.Network]network.Credentials {
	n := cfg.Networks
	return map[domain.Network]network.Credentials{
		domain.NetworkImpact: {Network: domain.NetworkImpact, Fields: map[string]string{
			impact.FieldAccountSID: n.Impact.AccountSID,
			impact.FieldAuthToken:  n.Impact.AuthToken,
		}},
		domain.NetworkCJ: {Network: domain.NetworkCJ, Fields: map[string]string{
			FieldAPIKey: n.CJ.APIKey,
		}},
		domain.NetworkAwin: {Network: domain.NetworkAwin, Fields: map[string]string{
			FieldAPIKey:      n.Awin.APIKey,
			FieldPublisherID: n.Awin.PublisherID,
		}},
		domain.NetworkPartnerstack: {Network: domain.NetworkPartnerstack, Fields: map[string]string{
			FieldAPIKey: n.Partnerstack.APIKey,
		}},
	}
}

// connectRedis accepts either a redis:// URL or a host:port address. An
// unreachable server is logged and skipped; searches run without a budget.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limiting disabled", "addr", cfg.Addr, "error", err)
		client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", cfg.Addr)
	return client
}

// Close releases the Redis connection.
func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
