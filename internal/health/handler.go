package health

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/livepoll-go/internal/reconcile"
)

// Checker defines the interface for checking a dependency's health.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts redis.Client to Checker.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// NoopChecker always reports healthy, for in-memory backends.
type NoopChecker struct{}

func (NoopChecker) Ping(_ context.Context) error {
	return nil
}

// StatsSource exposes reconciler counters to the health surface.
type StatsSource interface {
	Snapshot() reconcile.StatsSnapshot
}

// Handler handles health check operations.
type Handler struct {
	cache   Checker
	durable Checker
	stats   StatsSource
}

// NewHandler creates a new health handler.
func NewHandler(cache, durable Checker, stats StatsSource) *Handler {
	return &Handler{cache: cache, durable: durable, stats: stats}
}

// Response is the response for the health check endpoint.
type Response struct {
	Body struct {
		Status  string                  `json:"status"`
		Cache   string                  `json:"cache"`
		Durable string                  `json:"durable"`
		Sync    reconcile.StatsSnapshot `json:"sync"`
	}
}

// Check reports the health of the service and its dependencies, plus the
// reconciler's sync statistics.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	if err := h.cache.Ping(ctx); err != nil {
		resp.Body.Cache = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Cache = "healthy"
	}

	if err := h.durable.Ping(ctx); err != nil {
		resp.Body.Durable = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Durable = "healthy"
	}

	resp.Body.Sync = h.stats.Snapshot()

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
