package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterConfig struct {
	TriggerRate  rate.Limit
	TriggerBurst int
	CronSecret   string
}

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(h *Handler, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	engine := gin.New()

	// Recovery is outermost so it sees panics from every other middleware.
	engine.Use(Recovery(logger))
	engine.Use(RequestID())
	engine.Use(AccessLog(logger))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	limiter := rate.NewLimiter(cfg.TriggerRate, cfg.TriggerBurst)

	apiGroup := engine.Group("/api")
	addRoutes(apiGroup, []route{
		{
			Method:  http.MethodPost,
			Path:    "/process-email-jobs",
			Handler: h.Process,
			Mw:      []gin.HandlerFunc{RequireBearer(cfg.CronSecret), RateLimit(limiter)},
		},
		{Method: http.MethodPost, Path: "/email-jobs", Handler: h.Enqueue},
		{Method: http.MethodGet, Path: "/email-jobs/:id", Handler: h.Status},
	})

	return engine
}

func addRoutes(group *gin.RouterGroup, routes []route) {
	for _, r := range routes {
		handlers := append(append([]gin.HandlerFunc{}, r.Mw...), r.Handler)
		group.Handle(r.Method, r.Path, handlers...)
	}
}
