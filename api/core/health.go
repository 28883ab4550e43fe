package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-gallery/cache"
	"github.com/anoixa/image-gallery/config"
	"github.com/anoixa/image-gallery/database"
	"github.com/anoixa/image-gallery/storage"
	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 3 * time.Second

// HealthHandler 健康检查
type HealthHandler struct {
	db      database.Provider
	cache   cache.Provider
	storage storage.Provider
}

// NewHealthHandler 任一依赖可为 nil，对应检查项报告 not initialized
func NewHealthHandler(db database.Provider, c cache.Provider, s storage.Provider) *HealthHandler {
	return &HealthHandler{db: db, cache: c, storage: s}
}

// Handle GET /health
// @Summary      Health check
// @Description  Reports database, cache and storage status
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}  "A dependency is unavailable"
// @Router       /health [get]
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := RunHealthChecks(ctx, h.db, h.cache, h.storage)

	httpStatus := http.StatusOK
	status := "ok"
	if !Healthy(checks) {
		httpStatus = http.StatusServiceUnavailable
		status = "degraded"
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}

// RunHealthChecks 依次检查数据库、缓存与存储，结果为 "ok" 或错误描述
func RunHealthChecks(ctx context.Context, db database.Provider, c cache.Provider, s storage.Provider) map[string]string {
	return map[string]string{
		"database": checkDatabaseHealth(db),
		"cache":    checkCacheHealth(ctx, c),
		"storage":  checkStorageHealth(ctx, s),
	}
}

// Healthy 所有检查项均为 ok
func Healthy(checks map[string]string) bool {
	for _, result := range checks {
		if result != "ok" {
			return false
		}
	}
	return true
}

func checkDatabaseHealth(provider database.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if _, err := provider.Exists(ctx, "health:ping"); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, provider storage.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
