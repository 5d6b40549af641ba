package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
)

// SendMessage 发送消息并开始流式生成，生成内容通过 /v1/events 推送
// @Summary 发送消息
// @Tags Messages
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.SendMessageRequest true "消息"
// @Success 202 {object} dto.Response[dto.GenerationResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages [post]
func (h *SessionHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	opt, err := h.resolveModel(req.Model)
	if err != nil {
		writeError(c, err, "failed to resolve model")
		return
	}

	gen, err := h.store.SendMessage(c.Request.Context(), dto.BindSessionID(c), req.Text, opt)
	if err != nil {
		writeError(c, err, "failed to send message")
		return
	}
	dto.Accepted(c, dto.ToGenerationResponse(gen))
}

// Regenerate 重新生成末尾的模型回答
// @Summary 重新生成
// @Tags Messages
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.RegenerateRequest false "模型"
// @Success 202 {object} dto.Response[dto.GenerationResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/regenerate [post]
func (h *SessionHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	opt, err := h.resolveModel(req.Model)
	if err != nil {
		writeError(c, err, "failed to resolve model")
		return
	}

	gen, err := h.store.Regenerate(c.Request.Context(), dto.BindSessionID(c), opt)
	if err != nil {
		writeError(c, err, "failed to regenerate")
		return
	}
	dto.Accepted(c, dto.ToGenerationResponse(gen))
}

// DeleteMessage 删除一条消息，须带 confirm=true
// @Summary 删除消息
// @Tags Messages
// @Produce json
// @Param sid path string true "会话 ID"
// @Param mid path string true "消息 ID"
// @Param confirm query bool true "确认删除"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 428 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/messages/{mid} [delete]
func (h *SessionHandler) DeleteMessage(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}
	sid := dto.BindSessionID(c)
	if err := h.store.DeleteMessage(sid, dto.BindMessageID(c)); err != nil {
		writeError(c, err, "failed to delete message")
		return
	}
	h.writeSession(c, sid)
}

// resolveModel 校验模型选项，空值使用默认模型，返回选项标识
func (h *SessionHandler) resolveModel(id string) (string, error) {
	if id == "" {
		return h.assistant.DefaultModel(), nil
	}
	opt, err := h.assistant.ResolveModel(id)
	if err != nil {
		return "", err
	}
	return opt.ID, nil
}
