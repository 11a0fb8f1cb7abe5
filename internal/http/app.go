// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"leasing_crm_backend/internal/events"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router needs: HTTP
// settings plus the service-token auth parameters for the decision API.
type RouterConfig interface {
	config.HTTPConfig
	config.ServiceAuthConfig
}

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App holds the initialized dependencies the router assembles routes from.
// The composition root in cmd/api populates it.
type App struct {
	Config RouterConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health backs the readiness endpoint, normally a DB ping.
	Health HealthChecker
	// EventBus carries task lifecycle events between modules.
	EventBus events.Bus
	// Modules are the HTTP-facing modules to mount under /api/v1.
	Modules []Module
}
