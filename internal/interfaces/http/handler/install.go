package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/install"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
)

// InstallHandler 安装提示处理器
type InstallHandler struct {
	svc *install.Service
}

// NewInstallHandler 创建安装提示处理器
func NewInstallHandler(svc *install.Service) *InstallHandler {
	return &InstallHandler{svc: svc}
}

// Status 返回安装状态
// @Summary 安装状态
// @Tags Install
// @Produce json
// @Success 200 {object} dto.Response[install.Status]
// @Router /v1/install [get]
func (h *InstallHandler) Status(c *gin.Context) {
	dto.Success(c, h.svc.Status())
}

// Capture 前端上报浏览器延迟了安装提示
// @Summary 记录安装提示
// @Tags Install
// @Produce json
// @Success 200 {object} dto.Response[install.Status]
// @Router /v1/install/prompt [post]
func (h *InstallHandler) Capture(c *gin.Context) {
	dto.Success(c, h.svc.Capture(c.Request.Context()))
}

// Consume 前端上报用户对安装提示的选择
// @Summary 使用安装提示
// @Tags Install
// @Accept json
// @Produce json
// @Param body body dto.ConsumeInstallRequest true "accepted 或 dismissed"
// @Success 200 {object} dto.Response[install.Status]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/install/consume [post]
func (h *InstallHandler) Consume(c *gin.Context) {
	var req dto.ConsumeInstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	st, err := h.svc.Consume(c.Request.Context(), install.Outcome(req.Outcome))
	if err != nil {
		writeError(c, err, "failed to consume install prompt")
		return
	}
	dto.Success(c, st)
}
