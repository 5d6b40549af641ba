package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/session"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// SessionHandler 会话处理器
type SessionHandler struct {
	store     *session.Store
	assistant Assistant
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(store *session.Store, assistant Assistant) *SessionHandler {
	return &SessionHandler{store: store, assistant: assistant}
}

// GetState 返回完整快照
// @Summary 获取会话集合
// @Tags Sessions
// @Produce json
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/state [get]
func (h *SessionHandler) GetState(c *gin.Context) {
	dto.Success(c, dto.ToStateResponse(h.store.Snapshot()))
}

// CreateSession 新建会话并设为当前会话
// @Summary 新建会话
// @Tags Sessions
// @Produce json
// @Success 201 {object} dto.Response[dto.SessionResponse]
// @Router /v1/sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	sess, err := h.store.CreateSession()
	if err != nil {
		writeError(c, err, "failed to create session")
		return
	}
	logger.Info(c.Request.Context(), "session created", "session_id", sess.ID)
	dto.Created(c, dto.ToSessionResponse(sess, ""))
}

// SelectSession 切换当前会话；未知 ID 不做任何事
// @Summary 切换当前会话
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Router /v1/sessions/{sid}/select [put]
func (h *SessionHandler) SelectSession(c *gin.Context) {
	h.store.SelectSession(dto.BindSessionID(c))
	dto.Success(c, dto.ToStateResponse(h.store.Snapshot()))
}

// RenameSession 修改标题
// @Summary 重命名会话
// @Tags Sessions
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.RenameSessionRequest true "新标题"
// @Success 200 {object} dto.Response[dto.SessionResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [patch]
func (h *SessionHandler) RenameSession(c *gin.Context) {
	sid := dto.BindSessionID(c)

	var req dto.RenameSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.store.RenameSession(sid, req.Title); err != nil {
		writeError(c, err, "failed to rename session")
		return
	}
	h.writeSession(c, sid)
}

// DeleteSession 删除会话，须带 confirm=true
// @Summary 删除会话
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Param confirm query bool true "确认删除"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Failure 428 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}
	sid := dto.BindSessionID(c)
	if err := h.store.DeleteSession(sid); err != nil {
		writeError(c, err, "failed to delete session")
		return
	}
	logger.Info(c.Request.Context(), "session deleted", "session_id", sid)
	dto.Success(c, dto.ToStateResponse(h.store.Snapshot()))
}

// ClearAll 清空全部会话，须带 confirm=true
// @Summary 清空全部会话
// @Tags Sessions
// @Produce json
// @Param confirm query bool true "确认清空"
// @Success 200 {object} dto.Response[dto.StateResponse]
// @Failure 428 {object} dto.ErrorResponse
// @Router /v1/sessions [delete]
func (h *SessionHandler) ClearAll(c *gin.Context) {
	if !requireConfirm(c) {
		return
	}
	if err := h.store.ClearAll(c.Request.Context()); err != nil {
		writeError(c, err, "failed to clear sessions")
		return
	}
	dto.Success(c, dto.ToStateResponse(h.store.Snapshot()))
}

func (h *SessionHandler) writeSession(c *gin.Context, sid string) {
	st := h.store.Snapshot()
	sess, ok := st.Session(sid)
	if !ok {
		dto.NotFound(c, "session not found")
		return
	}
	dto.Success(c, dto.ToSessionResponse(sess, st.Generating[sid]))
}
