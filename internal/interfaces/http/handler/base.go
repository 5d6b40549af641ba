// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/dto"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// Assistant 处理器依赖的模型能力
type Assistant interface {
	Models() []config.ChatModelOption
	DefaultModel() string
	ResolveModel(id string) (config.ChatModelOption, error)
	SuggestField(ctx context.Context, field string, profile entity.CharacterProfile) string
}

// writeError 将 AppError 映射为对应状态码，其余错误记录日志后返回 500
func writeError(c *gin.Context, err error, msg string) {
	if apperrors.IsAppError(err) {
		appErr := apperrors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), msg, err)
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), msg, err)
	dto.InternalError(c, msg)
}

// requireConfirm 破坏性操作未确认时返回 428
func requireConfirm(c *gin.Context) bool {
	if dto.Confirmed(c) {
		return true
	}
	dto.AppError(c, apperrors.ErrConfirmationRequired.WithDetail("repeat the request with confirm=true"))
	return false
}
