// Package handler serves liveness over HTTP and readiness over the standard gRPC
// health protocol.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"vibhanet-auth/backend/internal/logging"
)

// ServiceName is the gRPC health service name reported alongside the overall "" entry.
const ServiceName = "vibhanet.auth"

const pingTimeout = 2 * time.Second

// Pinger checks a dependency, e.g. *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Checker reports readiness from the database ping into a gRPC health server.
type Checker struct {
	pinger Pinger
	grpc   *health.Server
	log    logging.Logger
	now    func() time.Time
}

// NewChecker returns a Checker. pinger may be nil, in which case the service is always serving.
func NewChecker(pinger Pinger, hs *health.Server, log logging.Logger) *Checker {
	if log == nil {
		log = logging.Nop()
	}
	return &Checker{pinger: pinger, grpc: hs, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Check pings the dependency and publishes the resulting status.
func (c *Checker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if c.pinger != nil {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := c.pinger.PingContext(pingCtx)
		cancel()
		if err != nil {
			c.log.Warn(ctx, "health: database ping failed", "error", err)
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if c.grpc != nil {
		c.grpc.SetServingStatus("", st)
		c.grpc.SetServingStatus(ServiceName, st)
	}
	return st
}

// Run checks once immediately and then every interval until ctx is done.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	c.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Liveness handles GET /health.
func (c *Checker) Liveness(gc *gin.Context) {
	gc.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": c.now().Format(time.RFC3339Nano),
	})
}
