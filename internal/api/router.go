package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tobyn/brandlens/internal/api/handler"
	"github.com/tobyn/brandlens/internal/api/middleware"
	"github.com/tobyn/brandlens/internal/logger"
	"github.com/tobyn/brandlens/internal/service"
)

// RouterConfig bundles what the router needs beyond the services.
type RouterConfig struct {
	Mode           string
	AllowedOrigins []string
	Logger         *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	tracking *service.TrackingService,
	analytics *service.AnalyticsService,
	cfg *RouterConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(cfg.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.AllowedOrigins,
		AllowAllOrigins: len(cfg.AllowedOrigins) == 0,
	}))

	healthHandler := handler.NewHealthHandler()
	trackingHandler := handler.NewTrackingHandler(tracking)
	resultsHandler := handler.NewResultsHandler(tracking, analytics)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		t := v1.Group("/tracking")
		{
			t.POST("/start", trackingHandler.StartTracking)
			t.GET("/:id/status", trackingHandler.GetStatus)
			t.DELETE("/:id", trackingHandler.StopTracking)

			t.GET("/:id/results", resultsHandler.GetResults)
			t.GET("/:id/leaderboard", resultsHandler.GetLeaderboard)
			t.GET("/:id/matrix", resultsHandler.GetMatrix)
		}
	}

	return r
}
