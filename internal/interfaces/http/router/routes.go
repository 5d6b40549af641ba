package router

import (
	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/handler"
)

const eventsPath = "/v1/events"

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	sessionHandler *handler.SessionHandler,
	installHandler *handler.InstallHandler,
) {
	v1.GET("/state", sessionHandler.GetState)
	v1.GET("/events", sessionHandler.Events)
	v1.GET("/models", sessionHandler.ListModels)

	// 会话管理
	sessions := v1.Group("/sessions")
	{
		sessions.POST("", sessionHandler.CreateSession)
		sessions.DELETE("", sessionHandler.ClearAll)
		sessions.PATCH("/:sid", sessionHandler.RenameSession)
		sessions.DELETE("/:sid", sessionHandler.DeleteSession)
		sessions.PUT("/:sid/select", sessionHandler.SelectSession)

		// 会话下的消息
		sessions.POST("/:sid/messages", sessionHandler.SendMessage)
		sessions.DELETE("/:sid/messages/:mid", sessionHandler.DeleteMessage)
		sessions.POST("/:sid/regenerate", sessionHandler.Regenerate)

		// 会话下的角色
		sessions.POST("/:sid/characters", sessionHandler.AddCharacter)
	}

	v1.POST("/characters/suggest", sessionHandler.SuggestField)

	// 安装提示
	install := v1.Group("/install")
	{
		install.GET("", installHandler.Status)
		install.POST("/prompt", installHandler.Capture)
		install.POST("/consume", installHandler.Consume)
	}
}
