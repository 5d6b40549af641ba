package dto

import (
	"github.com/danglinh9623-svg/MuseFlow/internal/application/session"
	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// MessageResponse 消息
type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	WordCount int    `json:"word_count"`
	// Streaming 该消息正在被流式写入
	Streaming bool `json:"streaming,omitempty"`
}

// CharacterResponse 角色档案
type CharacterResponse = entity.CharacterProfile

// SessionResponse 会话
type SessionResponse struct {
	ID           string              `json:"id"`
	Title        string              `json:"title"`
	Messages     []MessageResponse   `json:"messages"`
	LastModified int64               `json:"last_modified"`
	Characters   []CharacterResponse `json:"characters"`
	Generating   bool                `json:"generating"`
}

// StateResponse 会话集合快照
type StateResponse struct {
	Version    uint64            `json:"version"`
	ActiveID   string            `json:"active_id"`
	Sessions   []SessionResponse `json:"sessions"`
	Generating []string          `json:"generating"`
}

// GenerationResponse 已开始的生成
type GenerationResponse struct {
	GenerationID  string `json:"generation_id"`
	SessionID     string `json:"session_id"`
	UserMessageID string `json:"user_message_id,omitempty"`
	MessageID     string `json:"message_id"`
	Kind          string `json:"kind"`
	Model         string `json:"model"`
}

// ModelResponse 可选模型
type ModelResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Label   string `json:"label"`
	Default bool   `json:"default"`
}

// ToMessageResponse 转换消息
func ToMessageResponse(m entity.Message, streaming bool) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		Timestamp: m.Timestamp.UnixMilli(),
		WordCount: m.WordCount(),
		Streaming: streaming,
	}
}

// ToSessionResponse 转换会话；placeholderID 为正在流式写入的消息，可为空
func ToSessionResponse(s *entity.Session, placeholderID string) SessionResponse {
	msgs := make([]MessageResponse, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, ToMessageResponse(m, placeholderID != "" && m.ID == placeholderID))
	}
	chars := make([]CharacterResponse, len(s.Characters))
	copy(chars, s.Characters)

	return SessionResponse{
		ID:           s.ID,
		Title:        s.Title,
		Messages:     msgs,
		LastModified: s.LastModified.UnixMilli(),
		Characters:   chars,
		Generating:   placeholderID != "",
	}
}

// ToStateResponse 转换整份快照
func ToStateResponse(st *session.State) StateResponse {
	sessions := make([]SessionResponse, 0, len(st.Sessions))
	for _, s := range st.Sessions {
		sessions = append(sessions, ToSessionResponse(s, st.Generating[s.ID]))
	}
	return StateResponse{
		Version:    st.Version,
		ActiveID:   st.ActiveID,
		Sessions:   sessions,
		Generating: st.GeneratingIDs(),
	}
}

// ToGenerationResponse 转换生成句柄
func ToGenerationResponse(g *session.Generation) GenerationResponse {
	return GenerationResponse{
		GenerationID:  g.ID,
		SessionID:     g.SessionID,
		UserMessageID: g.UserMessageID,
		MessageID:     g.MessageID,
		Kind:          g.Kind,
		Model:         g.Model,
	}
}

// ToModelResponses 转换模型列表
func ToModelResponses(opts []config.ChatModelOption, defaultID string) []ModelResponse {
	out := make([]ModelResponse, 0, len(opts))
	for _, o := range opts {
		out = append(out, ModelResponse{ID: o.ID, Model: o.Model, Label: o.Label, Default: o.ID == defaultID})
	}
	return out
}
