package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"account-lookup-api/internal/handlers"
	"account-lookup-api/internal/middleware"
)

type Router struct {
	engine         *gin.Engine
	lookupHandler  *handlers.LookupHandler
	oracleHandler  *handlers.OracleHandler
	healthHandler  *handlers.HealthHandler
	authMiddleware *middleware.AuthMiddleware
	logMiddleware  *middleware.LoggingMiddleware
}

type RouterConfig struct {
	Debug          bool
	CORSEnabled    bool
	AllowedOrigins []string
}

func NewRouter(
	lookupHandler *handlers.LookupHandler,
	oracleHandler *handlers.OracleHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
	logMiddleware *middleware.LoggingMiddleware,
	config *RouterConfig,
) *Router {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Router{
		engine:         gin.New(),
		lookupHandler:  lookupHandler,
		oracleHandler:  oracleHandler,
		healthHandler:  healthHandler,
		authMiddleware: authMiddleware,
		logMiddleware:  logMiddleware,
	}
}

func (r *Router) SetupRoutes(config *RouterConfig) {
	r.setupGlobalMiddleware(config)
	r.setupHealthRoutes()
	r.setupLookupRoutes()

	v1 := r.engine.Group("/api/v1")
	r.setupAdminRoutes(v1)
}

func (r *Router) setupGlobalMiddleware(config *RouterConfig) {
	r.engine.Use(r.logMiddleware.LogPanic())
	r.engine.Use(r.logMiddleware.LogRequests())
	r.engine.Use(middleware.Metrics())

	if config.CORSEnabled {
		corsConfig := cors.Config{
			AllowOrigins:     config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "HEAD", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}
		if len(corsConfig.AllowOrigins) == 0 {
			corsConfig.AllowAllOrigins = true
			corsConfig.AllowCredentials = false
		}
		r.engine.Use(cors.New(corsConfig))
	}
}

func (r *Router) setupHealthRoutes() {
	health := r.engine.Group("/health")
	{
		health.GET("", r.healthHandler.Health)
		health.GET("/live", r.healthHandler.Liveness)
		health.GET("/ready", r.healthHandler.Readiness)
	}

	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// setupLookupRoutes wires the peer-facing surface. Peers authenticate at the
// network layer, so these routes carry no token middleware.
func (r *Router) setupLookupRoutes() {
	lookup := r.engine.Group("/account-lookup")
	{
		lookup.GET("/:partyId/:partyType", r.lookupHandler.Lookup)
		lookup.GET("/:partyId/:partyType/:partySubId", r.lookupHandler.Lookup)
		lookup.POST("", r.lookupHandler.BulkLookup)
	}
}

func (r *Router) setupAdminRoutes(v1 *gin.RouterGroup) {
	oracles := v1.Group("/oracles")
	oracles.Use(r.authMiddleware.ValidateToken(), r.authMiddleware.RequireAdmin())
	{
		oracles.GET("", r.oracleHandler.ListOracles)
		oracles.GET("/health", r.oracleHandler.OracleHealth)
		oracles.GET("/:oracleId/associations", r.oracleHandler.OracleAssociations)
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
