package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"account-lookup-api/internal/models"
	"account-lookup-api/internal/services"
)

// OracleHandler exposes the admin surface over the registered oracles:
// listing, health fan-out, and association reconciliation.
type OracleHandler struct {
	service services.AccountLookupService
}

func NewOracleHandler(service services.AccountLookupService) *OracleHandler {
	return &OracleHandler{service: service}
}

// ListOracles handles GET /api/v1/oracles.
func (h *OracleHandler) ListOracles(c *gin.Context) {
	oracles, err := h.service.ListOracles(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"oracles": oracles})
}

// OracleHealth handles GET /api/v1/oracles/health. Providers that cannot be
// reached report false; the endpoint itself never fails.
func (h *OracleHandler) OracleHealth(c *gin.Context) {
	health := h.service.OracleHealth(c.Request.Context())

	allHealthy := true
	for _, ok := range health {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"healthy": allHealthy, "oracles": health})
}

// OracleAssociations handles GET /api/v1/oracles/:oracleId/associations with
// page/page_size windowing.
func (h *OracleHandler) OracleAssociations(c *gin.Context) {
	oracleID := c.Param("oracleId")

	pageIndex, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "100"))

	page, err := h.service.OracleAssociations(c.Request.Context(), oracleID, pageIndex, pageSize)
	if err != nil {
		if errors.Is(err, models.ErrNoProviderForOracle) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, page)
}
