package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/degreeplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/degreeplan-backend/internal/http/middleware"
	"github.com/yungbote/degreeplan-backend/internal/observability"
	"github.com/yungbote/degreeplan-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	HealthHandler   *httpH.HealthHandler
	PlanningHandler *httpH.PlanningHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	if h := cfg.PlanningHandler; h != nil {
		course := api.Group("/courses/:course")

		// Tree
		course.GET("/roots", h.GetRoots)
		course.GET("/children", h.GetChildren)
		course.GET("/aggregate", h.GetAggregate)
		course.POST("/nodes", h.UpsertNodes)
		course.POST("/quota", h.SetQuota)

		// Entries
		course.GET("/entries", h.GetEntries)
		course.POST("/entries", h.UpsertEntries)
		course.PUT("/entries", h.UpdateEntry)
		course.GET("/move-targets", h.GetMoveTargets)
		course.GET("/semesters", h.GetSemesters)
		course.GET("/semesters/:year/:semester", h.GetSemester)
		course.GET("/unscheduled", h.GetUnscheduled)

		// Placement and imports
		course.POST("/placements", h.PlaceEntries)
		course.POST("/snapshots", h.ImportSnapshot)
		course.POST("/reconciliations", h.ReconcileResults)
	}

	return r
}
