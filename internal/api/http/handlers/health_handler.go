package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

const readyTimeout = 2 * time.Second

// dependency is one readiness probe. Optional dependencies report
// "degraded" instead of failing readiness.
type dependency struct {
	name     string
	enabled  bool
	optional bool
	ping     func(context.Context) error
}

// HealthHandler serves the probe and metrics endpoints.
type HealthHandler struct {
	serviceName string
	version     string
	deps        []dependency
	metrics     *observability.Metrics
}

// NewHealthHandler builds the handler. Missing backends are reported as
// disabled.
func NewHealthHandler(serviceName, version string, postgres *persistence.Postgres, redis *persistence.Redis, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		metrics:     metrics,
		deps: []dependency{
			{name: "postgres", enabled: postgres.Enabled(), ping: postgres.Ping},
			// login throttling fails open
			{name: "redis", enabled: redis != nil && redis.Client != nil, optional: true, ping: redis.Ping},
		},
	}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready pings every enabled dependency concurrently.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		status = fiber.Map{}
		ready  = true
	)
	for _, dep := range h.deps {
		if !dep.enabled {
			status[dep.name] = "disabled"
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, dep := range h.deps {
		if !dep.enabled {
			continue
		}
		dep := dep
		g.Go(func() error {
			err := dep.ping(gctx)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				status[dep.name] = "ok"
			case dep.optional:
				status[dep.name] = "degraded"
			default:
				status[dep.name] = "unavailable"
				ready = false
			}
			return nil
		})
	}
	_ = g.Wait()

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": status,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": status,
		},
	})
}

// Metrics exposes the in-process counters.
func (h *HealthHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
