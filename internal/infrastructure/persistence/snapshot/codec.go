// Package snapshot 定义会话快照的持久化格式
//
// 格式与浏览器 localStorage 中的 museflow_sessions 保持一致：
// 一个 JSON 数组，字段使用 camelCase，时间为 Unix 毫秒。
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// ErrMalformed 快照内容无法解析或结构不合法
var ErrMalformed = errors.New("malformed session snapshot")

var validate = validator.New(validator.WithRequiredStructEnabled())

type messageRecord struct {
	ID        string `json:"id" validate:"required"`
	Role      string `json:"role" validate:"oneof=user model"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp" validate:"gte=0"`
}

type sessionRecord struct {
	ID           string                    `json:"id" validate:"required"`
	Title        string                    `json:"title"`
	Messages     []messageRecord           `json:"messages" validate:"required,min=1,dive"`
	LastModified int64                     `json:"lastModified" validate:"gte=0"`
	Characters   []entity.CharacterProfile `json:"characters"`
}

type document struct {
	Sessions []sessionRecord `validate:"unique=ID,dive"`
}

// Encode 序列化会话集合
func Encode(sessions []*entity.Session) ([]byte, error) {
	records := make([]sessionRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, toRecord(s))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode session snapshot: %w", err)
	}
	return data, nil
}

// Decode 反序列化并校验会话集合
//
// 空数组返回长度为 0 的切片；任何解析或校验失败都返回 ErrMalformed。
func Decode(data []byte) ([]*entity.Session, error) {
	var doc document
	if err := json.Unmarshal(data, &doc.Sessions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Sessions == nil {
		return nil, fmt.Errorf("%w: not an array", ErrMalformed)
	}
	if err := validate.Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	sessions := make([]*entity.Session, 0, len(doc.Sessions))
	for i := range doc.Sessions {
		sessions = append(sessions, fromRecord(&doc.Sessions[i]))
	}
	return sessions, nil
}

func toRecord(s *entity.Session) sessionRecord {
	msgs := make([]messageRecord, 0, len(s.Messages))
	for _, m := range s.Messages {
		msgs = append(msgs, messageRecord{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp.UnixMilli(),
		})
	}
	chars := s.Characters
	if chars == nil {
		chars = []entity.CharacterProfile{}
	}
	return sessionRecord{
		ID:           s.ID,
		Title:        s.Title,
		Messages:     msgs,
		LastModified: s.LastModified.UnixMilli(),
		Characters:   chars,
	}
}

func fromRecord(r *sessionRecord) *entity.Session {
	msgs := make([]entity.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, entity.Message{
			ID:        m.ID,
			Role:      entity.Role(m.Role),
			Content:   m.Content,
			Timestamp: time.UnixMilli(m.Timestamp),
		})
	}
	chars := append([]entity.CharacterProfile{}, r.Characters...)
	return &entity.Session{
		ID:           r.ID,
		Title:        r.Title,
		Messages:     msgs,
		LastModified: time.UnixMilli(r.LastModified),
		Characters:   chars,
	}
}
