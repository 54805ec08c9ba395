// Package health exposes liveness, readiness and dependency health endpoints.
package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// ConsumerHealth reports whether the intake consumer is connected.
type ConsumerHealth interface {
	Health() bool
}

// Checker serves the health endpoints. Readiness is flipped on by main once
// startup completes and off again during shutdown so load balancers drain
// traffic before the listeners close.
type Checker struct {
	db        *sqlx.DB
	consumer  ConsumerHealth
	version   string
	startTime time.Time
	ready     atomic.Bool
}

// NewChecker creates a health checker. consumer may be nil when intake
// consumption is disabled.
func NewChecker(db *sqlx.DB, consumer ConsumerHealth, version string) *Checker {
	return &Checker{
		db:        db,
		consumer:  consumer,
		version:   version,
		startTime: time.Now(),
	}
}

func (c *Checker) SetReady(ready bool) {
	c.ready.Store(ready)
}

func (c *Checker) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/v1/health", c.Health)
	e.GET("/api/v1/health/live", c.Live)
	e.GET("/api/v1/health/ready", c.Ready)
}

type HealthStatus struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Checks     map[string]*CheckResult `json:"checks"`
	ReportedAt time.Time               `json:"reported_at"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

func (c *Checker) checkDatabase() *CheckResult {
	if c.db == nil {
		return &CheckResult{Status: statusUnhealthy, Message: "database not configured"}
	}

	start := time.Now()
	if err := c.db.Ping(); err != nil {
		return &CheckResult{Status: statusUnhealthy, Message: err.Error()}
	}
	return &CheckResult{Status: statusHealthy, Latency: time.Since(start).String()}
}

func (c *Checker) checkConsumer() *CheckResult {
	if !c.consumer.Health() {
		return &CheckResult{Status: statusUnhealthy, Message: "consumer not connected"}
	}
	return &CheckResult{Status: statusHealthy}
}

// Health reports the service and its dependencies. Returns 503 when any
// dependency check fails.
func (c *Checker) Health(ctx echo.Context) error {
	status := &HealthStatus{
		Status:     statusHealthy,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		Checks:     map[string]*CheckResult{"database": c.checkDatabase()},
		ReportedAt: time.Now(),
	}
	if c.consumer != nil {
		status.Checks["consumer"] = c.checkConsumer()
	}

	httpStatus := http.StatusOK
	for _, check := range status.Checks {
		if check.Status == statusUnhealthy {
			status.Status = statusUnhealthy
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	return ctx.JSON(httpStatus, status)
}

// Live reports that the process is running.
func (c *Checker) Live(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "alive"})
}

// Ready reports whether the service should receive traffic.
func (c *Checker) Ready(ctx echo.Context) error {
	if c.ready.Load() {
		return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
	}
	return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
}
