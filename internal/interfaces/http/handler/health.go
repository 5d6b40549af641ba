package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/session"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	store   *session.Store
	checker repository.HealthChecker
	driver  string
	version string
}

// NewHealthHandler 创建健康检查处理器；checker 为 nil 时跳过存储检查
func NewHealthHandler(store *session.Store, checker repository.HealthChecker, driver, version string) *HealthHandler {
	return &HealthHandler{store: store, checker: checker, driver: driver, version: version}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查：会话已恢复且存储可用
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	checks := map[string]*readinessCheck{
		"sessions": {Status: "ok"},
	}

	if len(h.store.Snapshot().Sessions) == 0 {
		checks["sessions"] = &readinessCheck{Status: "not_loaded"}
		ready = false
	}

	storage := &readinessCheck{Status: "ok"}
	checks["storage:"+h.driver] = storage
	if h.checker != nil {
		start := time.Now()
		err := h.checker.Ping(ctx)
		storage.LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			storage.Status = "error"
			storage.Error = err.Error()
			ready = false
		}
	}

	resp := readinessResponse{Status: "ok", Checks: checks}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}
