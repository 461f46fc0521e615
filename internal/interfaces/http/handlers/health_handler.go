package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/gormdb"
	"github.com/montrose/hnwi-gateway/internal/infrastructure/persistence/redis"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	redis *redis.RedisConnection
	db    *gormdb.DBConnection
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(redisConn *redis.RedisConnection, db *gormdb.DBConnection) *HealthHandler {
	return &HealthHandler{redis: redisConn, db: db}
}

// Live reports that the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the gateway's own dependencies are reachable. The
// upstream backend is deliberately excluded: the gateway keeps serving
// cached and fallback payloads through backend outages.
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if err := h.redis.Client.Ping(c.Request.Context()).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	} else {
		checks["redis"] = "ok"
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": checks})
}
