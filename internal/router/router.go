package router // package router defines how HTTP routes are registered for the ops surface

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/seatwise/course-enrollment/internal/handler" // import the handlers that implement the ops endpoints
)

// RegisterRoutes registers the operational endpoints on the provided Echo
// instance.  The allocator is a library plus a background pipeline; HTTP
// exists for health checks, status dashboards, metrics scrapes and a
// manual promotion lever.
func RegisterRoutes(e *echo.Echo, status *handler.StatusHandler, promote *handler.PromoteHandler, registry *prometheus.Registry) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Dependency snapshot for humans and dashboards.
	e.GET("/v1/status", status.Status)
	// Queue a promotion sweep by hand.  Safe to hit repeatedly because
	// sweeps are idempotent.
	e.POST("/v1/sections/:id/promote", promote.Promote)
	// Prometheus scrape endpoint serving the allocator's registry.
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
}
