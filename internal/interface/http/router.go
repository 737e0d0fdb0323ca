package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ai-travel-planner/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(handler.logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(handler.logger),
	)

	router.GET("/healthz", handler.Health)

	// Reads and generation draw from separate buckets so a client polling the
	// report cannot lock itself out of plan generation.
	reads := readLimit(cfg.HTTP.RateLimit, handler.logger)
	generate := generationLimit(cfg.HTTP.RateLimit, handler.logger)

	api := router.Group("/api/v1")
	{
		public := api.Group("", reads)
		public.POST("/sessions", handler.CreateSession)
		public.POST("/trips/parse", handler.ParseTrip)
		public.GET("/policy", handler.Policy)
		public.GET("/healthz", handler.Health)

		session := api.Group("/session", sessionMiddleware(handler.tokens))
		session.POST("/trips", generate, handler.PlanTrip)
		session.POST("/explorer", generate, handler.ExploreCity)
		session.POST("/updates", generate, handler.UpdatePlan)

		polled := session.Group("", reads)
		polled.GET("", handler.GetSession)
		polled.PUT("/client", handler.SetClientName)
		polled.GET("/report", handler.Report)
		polled.GET("/document", handler.Document)
		polled.GET("/history", handler.History)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
