package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"account-lookup-api/internal/services"
	"account-lookup-api/pkg/database"
)

// BusHealth is implemented by the AMQP publisher and consumer.
type BusHealth interface {
	IsHealthy() bool
}

type HealthHandler struct {
	db        *database.Database
	service   services.AccountLookupService
	publisher BusHealth
	consumer  BusHealth
}

type ServiceHealth struct {
	Status       string        `json:"status"`
	ResponseTime time.Duration `json:"response_time,omitempty"`
	Error        string        `json:"error,omitempty"`
	LastCheck    time.Time     `json:"last_check"`
	Details      interface{}   `json:"details,omitempty"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Uptime    time.Duration            `json:"uptime"`
	Services  map[string]ServiceHealth `json:"services"`
}

var startTime = time.Now()

func NewHealthHandler(db *database.Database, service services.AccountLookupService, publisher, consumer BusHealth) *HealthHandler {
	return &HealthHandler{
		db:        db,
		service:   service,
		publisher: publisher,
		consumer:  consumer,
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	checks := map[string]ServiceHealth{
		"mongodb":            h.checkMongoDB(ctx),
		"rabbitmq_publisher": h.checkBus(h.publisher),
		"rabbitmq_consumer":  h.checkBus(h.consumer),
		"oracles":            h.checkOracles(ctx),
	}

	status := "healthy"
	httpStatus := http.StatusOK
	for _, check := range checks {
		if check.Status != "healthy" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime),
		Services:  checks,
	})
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	mongo := h.checkMongoDB(ctx)
	ready := mongo.Status == "healthy" && h.publisher.IsHealthy() && h.consumer.IsHealthy()

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": ready})
}

func (h *HealthHandler) checkMongoDB(ctx context.Context) ServiceHealth {
	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		return ServiceHealth{
			Status:    "unhealthy",
			Error:     err.Error(),
			LastCheck: time.Now().UTC(),
		}
	}
	return ServiceHealth{
		Status:       "healthy",
		ResponseTime: time.Since(start),
		LastCheck:    time.Now().UTC(),
	}
}

func (h *HealthHandler) checkBus(bus BusHealth) ServiceHealth {
	if bus == nil || !bus.IsHealthy() {
		return ServiceHealth{
			Status:    "unhealthy",
			Error:     "connection closed",
			LastCheck: time.Now().UTC(),
		}
	}
	return ServiceHealth{Status: "healthy", LastCheck: time.Now().UTC()}
}

func (h *HealthHandler) checkOracles(ctx context.Context) ServiceHealth {
	start := time.Now()
	health := h.service.OracleHealth(ctx)

	for id, ok := range health {
		if !ok {
			return ServiceHealth{
				Status:       "unhealthy",
				Error:        "oracle " + id + " is unhealthy",
				ResponseTime: time.Since(start),
				LastCheck:    time.Now().UTC(),
				Details:      health,
			}
		}
	}
	return ServiceHealth{
		Status:       "healthy",
		ResponseTime: time.Since(start),
		LastCheck:    time.Now().UTC(),
		Details:      health,
	}
}
