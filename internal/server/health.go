package server

import (
	"log/slog"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/docfields/internal/core/engine"
)

// EngineServicePrefix prefixes the per-backend health service names, e.g.
// "docfields.engine.tesseract".
const EngineServicePrefix = "docfields.engine."

// PublishStatus mirrors a backend status report onto the health server. The
// overall service ("") is SERVING while at least one backend is available.
func PublishStatus(hs *health.Server, rep engine.StatusReport, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, s := range rep.Backends {
		st := healthpb.HealthCheckResponse_NOT_SERVING
		if s.Available {
			st = healthpb.HealthCheckResponse_SERVING
		}
		hs.SetServingStatus(EngineServicePrefix+s.Engine, st)
	}
	overall := healthpb.HealthCheckResponse_NOT_SERVING
	if rep.Available > 0 {
		overall = healthpb.HealthCheckResponse_SERVING
	}
	hs.SetServingStatus("", overall)
	if rep.Degraded() {
		logger.Warn("extraction degraded", "available", rep.Available, "total", rep.Total)
	}
}
