package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
)

// AddCharacter 向会话添加角色
// @Summary 添加角色
// @Tags Characters
// @Accept json
// @Produce json
// @Param sid path string true "会话 ID"
// @Param body body dto.CharacterRequest true "角色档案"
// @Success 201 {object} dto.Response[dto.CharacterResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/characters [post]
func (h *SessionHandler) AddCharacter(c *gin.Context) {
	var req dto.CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	profile, err := h.store.AddCharacter(dto.BindSessionID(c), req.ToEntity())
	if err != nil {
		writeError(c, err, "failed to add character")
		return
	}
	dto.Created(c, profile)
}

// SuggestField 为角色档案的某个字段生成建议，失败时返回固定提示文本
// @Summary 角色字段建议
// @Tags Characters
// @Accept json
// @Produce json
// @Param body body dto.SuggestFieldRequest true "字段与已知档案"
// @Success 200 {object} dto.Response[dto.SuggestFieldResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/characters/suggest [post]
func (h *SessionHandler) SuggestField(c *gin.Context) {
	var req dto.SuggestFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Profile.Name) == "" {
		dto.AppError(c, apperrors.ErrInvalidParam.WithDetail("profile.name is required for suggestions"))
		return
	}

	text := h.assistant.SuggestField(c.Request.Context(), req.Field, req.Profile.ToEntity())
	dto.Success(c, dto.SuggestFieldResponse{Field: req.Field, Suggestion: text})
}

// ListModels 返回可选模型
// @Summary 模型列表
// @Tags Models
// @Produce json
// @Success 200 {object} dto.Response[[]dto.ModelResponse]
// @Router /v1/models [get]
func (h *SessionHandler) ListModels(c *gin.Context) {
	dto.Success(c, dto.ToModelResponses(h.assistant.Models(), h.assistant.DefaultModel()))
}
