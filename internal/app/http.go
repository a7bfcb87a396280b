package app

import (
	"github.com/yungbote/degreeplan-backend/internal/data/db"
	httpx "github.com/yungbote/degreeplan-backend/internal/http"
	httpH "github.com/yungbote/degreeplan-backend/internal/http/handlers"
	"github.com/yungbote/degreeplan-backend/internal/modules/planning"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Planning *httpH.PlanningHandler
}

func wireHandlers(log *logger.Logger, store *db.Service, uc planning.Usecases) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(store),
		Planning: httpH.NewPlanningHandler(log, uc),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers) *httpx.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return httpx.NewServer(httpx.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		ServiceName:     serviceName,
		CORSOrigins:     cfg.CORSOrigins,
		HealthHandler:   h.Health,
		PlanningHandler: h.Planning,
	})
}
