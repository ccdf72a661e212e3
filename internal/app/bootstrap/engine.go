package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking/internal/availability"
	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/calendar"
	appconfig "github.com/wolfman30/clinic-booking/internal/config"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/occupancy"
	"github.com/wolfman30/clinic-booking/internal/slots"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Engine is the wired availability and booking core shared by the HTTP
// server and the Lambda entrypoint.
type Engine struct {
	Location *time.Location
	Timezone string
	Catalog  *slots.Catalog
	Rules    *calendar.Rules

	Source   *occupancy.WebhookSource
	Cache    *occupancy.Cache
	Resolver *availability.Resolver
	Webhook  *booking.WebhookClient
	Booking  *booking.Service

	redis *redis.Client
}

// BuildEngine wires the engine from cfg. Metrics register on reg; a nil reg
// uses the default Prometheus registerer.
func BuildEngine(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	catalog, err := slots.NewCatalog(cfg.SlotCatalog)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: slot catalog: %w", err)
	}
	loc, zone := calendar.ResolveLocation(cfg.ClinicTimezone, cfg.ClinicTimezoneFallback)
	rules := calendar.NewRules(nil, cfg.BookingWindowDays)

	availabilityMetrics := metrics.NewAvailabilityMetrics(reg)
	bookingMetrics := metrics.NewBookingMetrics(reg)

	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	store := BuildOccupancyStore(redisClient, cfg)

	source := occupancy.NewWebhookSource(cfg.WebhookBaseURL, logger,
		occupancy.WithTimeout(cfg.WebhookTimeout),
		occupancy.WithOccupiedPath(cfg.WebhookOccupiedPath),
	)
	cache := occupancy.NewCache(source, store, logger, availabilityMetrics)
	resolver := availability.NewResolver(availability.Config{
		Rules:         rules,
		Catalog:       catalog,
		Location:      loc,
		MaxConcurrent: cfg.MaxConcurrentLookups,
	}, cache, logger, availabilityMetrics)

	webhook := booking.NewWebhookClient(cfg.WebhookBaseURL, logger,
		booking.WithTimeout(cfg.WebhookTimeout),
		booking.WithPaths(cfg.WebhookBookingPath, cfg.WebhookLookupPath),
	)
	service := booking.NewService(resolver, webhook, cache, logger, bookingMetrics)

	logger.Info("availability engine ready",
		"timezone", zone,
		"slots", catalog.Len(),
		"window_days", rules.WindowDays(),
		"occupied_endpoint", source.Endpoint(),
		"redis_cache", redisClient != nil,
	)

	return &Engine{
		Location: loc,
		Timezone: zone,
		Catalog:  catalog,
		Rules:    rules,
		Source:   source,
		Cache:    cache,
		Resolver: resolver,
		Webhook:  webhook,
		Booking:  service,
		redis:    redisClient,
	}, nil
}

// Close releases the Redis connection, if any.
func (e *Engine) Close() error {
	if e == nil || e.redis == nil {
		return nil
	}
	return e.redis.Close()
}
