package session

import (
	"strings"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
)

// 本文件中的函数都是纯状态转换：只读入旧 State，返回新 State，不修改入参。
// 返回 nil State 且 err 为 nil 表示无变更。

// streamPlan 发起一次流式生成所需的信息
type streamPlan struct {
	sessionID     string
	placeholderID string
	// userMessageID 本次生成所回答的用户消息
	userMessageID string
	prompt        string
	history       []entity.Message
	characters    []entity.CharacterProfile
	// titleSource 非空时需要异步生成标题
	titleSource string
}

func createTransition(st *State, sess *entity.Session) *State {
	next := st.clone()
	next.Sessions = append([]*entity.Session{sess}, next.Sessions...)
	next.ActiveID = sess.ID
	return next
}

func freshTransition(st *State, sess *entity.Session) *State {
	next := emptyState()
	next.Version = st.Version
	next.Sessions = []*entity.Session{sess}
	next.ActiveID = sess.ID
	return next
}

func loadedTransition(st *State, sessions []*entity.Session) *State {
	next := emptyState()
	next.Version = st.Version
	next.Sessions = append([]*entity.Session(nil), sessions...)
	next.ActiveID = sessions[0].ID
	return next
}

func selectTransition(st *State, id string) *State {
	if st.index(id) < 0 || st.ActiveID == id {
		return nil
	}
	next := st.clone()
	next.ActiveID = id
	return next
}

// deleteSessionTransition 删除会话；删除后集合为空时用 replacement 补位，整个过程是一次转换
func deleteSessionTransition(st *State, id string, replacement *entity.Session) (*State, error) {
	i := st.index(id)
	if i < 0 {
		return nil, apperrors.ErrSessionNotFound
	}

	next := st.clone()
	next.Sessions = append(next.Sessions[:i:i], next.Sessions[i+1:]...)
	delete(next.Generating, id)

	if len(next.Sessions) == 0 {
		next.Sessions = []*entity.Session{replacement}
		next.ActiveID = replacement.ID
		return next, nil
	}
	if next.ActiveID == id || next.index(next.ActiveID) < 0 {
		next.ActiveID = next.Sessions[0].ID
	}
	return next, nil
}

func renameTransition(st *State, id, title string) (*State, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperrors.ErrBlankInput
	}
	i := st.index(id)
	if i < 0 {
		return nil, apperrors.ErrSessionNotFound
	}
	if st.Sessions[i].Title == title {
		return nil, nil
	}
	sess := st.Sessions[i].Clone()
	sess.Title = title
	return st.withSession(i, sess), nil
}

func deleteMessageTransition(st *State, sessionID, messageID string, now time.Time) (*State, error) {
	i := st.index(sessionID)
	if i < 0 {
		return nil, apperrors.ErrSessionNotFound
	}
	j := st.Sessions[i].MessageIndex(messageID)
	if j < 0 {
		return nil, apperrors.ErrMessageNotFound
	}
	if len(st.Sessions[i].Messages) == 1 {
		return nil, apperrors.ErrLastMessage
	}

	sess := st.Sessions[i].Clone()
	sess.Messages = append(sess.Messages[:j:j], sess.Messages[j+1:]...)
	sess.LastModified = now

	next := st.withSession(i, sess)
	if next.Generating[sessionID] == messageID {
		delete(next.Generating, sessionID)
	}
	return next, nil
}

func sendTransition(st *State, sessionID, text string, userMsg, placeholder entity.Message, now time.Time) (*State, streamPlan, error) {
	if strings.TrimSpace(text) == "" {
		return nil, streamPlan{}, apperrors.ErrBlankInput
	}
	i := st.index(sessionID)
	if i < 0 {
		return nil, streamPlan{}, apperrors.ErrSessionNotFound
	}
	if st.IsGenerating(sessionID) {
		return nil, streamPlan{}, apperrors.ErrGenerationInFlight
	}

	sess := st.Sessions[i].Clone()
	plan := streamPlan{
		sessionID:     sessionID,
		placeholderID: placeholder.ID,
		userMessageID: userMsg.ID,
		prompt:        text,
		// 历史包含本次用户消息，不含占位消息
		history:       append(append([]entity.Message(nil), sess.Messages...), userMsg),
		characters:    append([]entity.CharacterProfile(nil), sess.Characters...),
	}
	if sess.HasPlaceholderTitle() {
		sess.Title = FallbackTitle(text)
		plan.titleSource = text
	}
	sess.Messages = append(sess.Messages, userMsg, placeholder)
	sess.LastModified = now

	next := st.withSession(i, sess)
	next.Generating[sessionID] = placeholder.ID
	return next, plan, nil
}

// regenerateTransition 仅当末条为 model 且其前一条为 user 时有效
//
// 移除末尾回答后，剩余消息（以该用户消息结尾）作为历史重新生成。
func regenerateTransition(st *State, sessionID string, placeholder entity.Message, now time.Time) (*State, streamPlan, error) {
	i := st.index(sessionID)
	if i < 0 {
		return nil, streamPlan{}, apperrors.ErrSessionNotFound
	}
	if st.IsGenerating(sessionID) {
		return nil, streamPlan{}, apperrors.ErrGenerationInFlight
	}

	msgs := st.Sessions[i].Messages
	n := len(msgs)
	if n < 2 || msgs[n-1].Role != entity.RoleModel || msgs[n-2].Role != entity.RoleUser {
		return nil, streamPlan{}, apperrors.ErrNothingToRegenerate
	}

	sess := st.Sessions[i].Clone()
	plan := streamPlan{
		sessionID:     sessionID,
		placeholderID: placeholder.ID,
		userMessageID: msgs[n-2].ID,
		prompt:        msgs[n-2].Content,
		history:       append([]entity.Message(nil), msgs[:n-1]...),
		characters:    append([]entity.CharacterProfile(nil), sess.Characters...),
	}
	sess.Messages = append(sess.Messages[:n-1:n-1], placeholder)
	sess.LastModified = now

	next := st.withSession(i, sess)
	next.Generating[sessionID] = placeholder.ID
	return next, plan, nil
}

// patchTransition 用累计全文覆盖占位消息；占位消息已不是该会话的生成目标时丢弃
func patchTransition(st *State, sessionID, placeholderID, content string) *State {
	if st.Generating[sessionID] != placeholderID {
		return nil
	}
	i := st.index(sessionID)
	if i < 0 {
		return nil
	}
	j := st.Sessions[i].MessageIndex(placeholderID)
	if j < 0 || st.Sessions[i].Messages[j].Content == content {
		return nil
	}
	sess := st.Sessions[i].Clone()
	sess.Messages[j].Content = content
	return st.withSession(i, sess)
}

// sealTransition 结束生成：清除进行中标记，写入最终内容并封存消息
func sealTransition(st *State, sessionID, placeholderID, content string, now time.Time) *State {
	if st.Generating[sessionID] != placeholderID {
		return nil
	}
	next := st.clone()
	delete(next.Generating, sessionID)

	i := next.index(sessionID)
	if i < 0 {
		return next
	}
	j := next.Sessions[i].MessageIndex(placeholderID)
	if j < 0 {
		return next
	}
	sess := next.Sessions[i].Clone()
	sess.Messages[j].Content = content
	sess.LastModified = now
	next.Sessions[i] = sess
	return next
}

func addCharacterTransition(st *State, sessionID string, profile entity.CharacterProfile, notice entity.Message, now time.Time) (*State, error) {
	i := st.index(sessionID)
	if i < 0 {
		return nil, apperrors.ErrSessionNotFound
	}
	sess := st.Sessions[i].Clone()
	sess.Characters = append(sess.Characters, profile)
	sess.Messages = append(sess.Messages, notice)
	sess.LastModified = now
	return st.withSession(i, sess), nil
}

// titleTransition 写入生成的标题；会话已删除时忽略
func titleTransition(st *State, sessionID, title string) *State {
	i := st.index(sessionID)
	if i < 0 || st.Sessions[i].Title == title {
		return nil
	}
	sess := st.Sessions[i].Clone()
	sess.Title = title
	return st.withSession(i, sess)
}
