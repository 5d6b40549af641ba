package entity

import (
	"fmt"
	"strings"
	"time"
)

// 占位标题，两者都视为“仍未命名”，允许自动起标题
const (
	TitleUntitled = "Untitled Story"
	TitleFallback = "New Story"
)

// WelcomeText 新会话的欢迎语
const WelcomeText = "Hello! I am MuseFlow. Whether you're plotting a fantasy epic, a gritty noir, or a fluff fanfiction, I'm here to help. \n\nStart by telling me your idea, or define some characters using the Character Foundry on the right."

// GenerationErrorText 流式生成失败时写入占位消息的固定文本
const GenerationErrorText = "I encountered an error connecting to the Muse. Please try again (Check quota or connection)."

// Message 会话中的一条消息
type Message struct {
	ID        string
	Role      Role
	Content   string
	Timestamp time.Time
}

// WordCount 以空白切分统计词数，空白文本为 0
func (m Message) WordCount() int {
	return len(strings.Fields(m.Content))
}

// CharacterProfile 角色档案，全部为自由文本
type CharacterProfile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	Appearance    string `json:"appearance"`
	Backstory     string `json:"backstory"`
	Strengths     string `json:"strengths"`
	Weaknesses    string `json:"weaknesses"`
	Goals         string `json:"goals"`
	Relationships string `json:"relationships"`
}

// Session 一个故事会话
//
// Session 按值语义使用：持有者不得原地修改已发布的 Session，
// 需要变更时先 Clone 再替换。
type Session struct {
	ID           string
	Title        string
	Messages     []Message
	LastModified time.Time
	Characters   []CharacterProfile
}

// NewSession 创建带欢迎语的新会话
func NewSession(id, welcomeID string, now time.Time) *Session {
	return &Session{
		ID:    id,
		Title: TitleUntitled,
		Messages: []Message{{
			ID:        welcomeID,
			Role:      RoleModel,
			Content:   WelcomeText,
			Timestamp: now,
		}},
		LastModified: now,
		Characters:   []CharacterProfile{},
	}
}

// Clone 深拷贝会话
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	cp.Characters = append([]CharacterProfile(nil), s.Characters...)
	return &cp
}

// HasPlaceholderTitle 标题是否仍为占位标题
func (s *Session) HasPlaceholderTitle() bool {
	return s.Title == TitleUntitled || s.Title == TitleFallback
}

// MessageIndex 返回消息下标，不存在时返回 -1
func (s *Session) MessageIndex(id string) int {
	for i := range s.Messages {
		if s.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// LastMessage 返回最后一条消息
func (s *Session) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// CharacterAddedNotice 添加角色后追加的系统提示
func CharacterAddedNotice(name string) string {
	return fmt.Sprintf("*System: Character \"%s\" has been added to the story context.*", name)
}
