package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// CreateSessionRequest 新建会话请求（目前无字段，保留以便扩展）
type CreateSessionRequest struct{}

// RenameSessionRequest 重命名请求
type RenameSessionRequest struct {
	Title string `json:"title" binding:"required,max=200"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Text string `json:"text"`
	// Model 模型选项标识，空值使用默认模型
	Model string `json:"model,omitempty"`
}

// RegenerateRequest 重新生成请求
type RegenerateRequest struct {
	Model string `json:"model,omitempty"`
}

// CharacterRequest 角色档案
type CharacterRequest struct {
	Name          string `json:"name" binding:"max=200"`
	Role          string `json:"role"`
	Appearance    string `json:"appearance"`
	Backstory     string `json:"backstory"`
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	Goals         string `json:"goals"`
	Relationships string `json:"relationships"`
}

// ToEntity 转换为领域对象
func (r *CharacterRequest) ToEntity() entity.CharacterProfile {
	return entity.CharacterProfile{
		Name:          r.Name,
		Role:          r.Role,
		Appearance:    r.Appearance,
		Backstory:     r.Backstory,
		Strengths:     r.Strengths,
		Weaknesses:    r.Weaknesses,
		Goals:         r.Goals,
		Relationships: r.Relationships,
	}
}

// SuggestFieldRequest 角色字段建议请求
type SuggestFieldRequest struct {
	Field   string           `json:"field" binding:"required,oneof=appearance backstory strengths weaknesses goals relationships role"`
	Profile CharacterRequest `json:"profile"`
}

// SuggestFieldResponse 角色字段建议
type SuggestFieldResponse struct {
	Field      string `json:"field"`
	Suggestion string `json:"suggestion"`
}

// ConsumeInstallRequest 安装提示结果
type ConsumeInstallRequest struct {
	Outcome string `json:"outcome" binding:"required"`
}

// BindSessionID 从 URI 绑定会话 ID
func BindSessionID(c *gin.Context) string {
	return c.Param("sid")
}

// BindMessageID 从 URI 绑定消息 ID
func BindMessageID(c *gin.Context) string {
	return c.Param("mid")
}

// Confirmed 破坏性操作须带 confirm=true
func Confirmed(c *gin.Context) bool {
	ok, err := strconv.ParseBool(c.Query("confirm"))
	return err == nil && ok
}
