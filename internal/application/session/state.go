// Package session 实现会话集合的状态机与流式更新协议
package session

import (
	"sort"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// State 会话集合的不可变快照
//
// 每次变更都构造新的 State 整体替换旧值。State 及其引用的 Session
// 一经发布便不再修改，读者可以在锁外安全使用。
type State struct {
	// Version 每次提交递增，持久化据此跳过重复写入
	Version  uint64
	Sessions []*entity.Session
	ActiveID string
	// Generating 会话 ID -> 正在流式写入的占位消息 ID
	Generating map[string]string
}

func emptyState() *State {
	return &State{Generating: map[string]string{}}
}

func (st *State) clone() *State {
	cp := &State{
		Version:    st.Version,
		Sessions:   append([]*entity.Session(nil), st.Sessions...),
		ActiveID:   st.ActiveID,
		Generating: make(map[string]string, len(st.Generating)),
	}
	for k, v := range st.Generating {
		cp.Generating[k] = v
	}
	return cp
}

func (st *State) index(id string) int {
	for i, s := range st.Sessions {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// Session 按 ID 查找会话
func (st *State) Session(id string) (*entity.Session, bool) {
	if i := st.index(id); i >= 0 {
		return st.Sessions[i], true
	}
	return nil, false
}

// Active 返回当前激活的会话
func (st *State) Active() (*entity.Session, bool) {
	return st.Session(st.ActiveID)
}

// IsGenerating 会话是否有进行中的生成
func (st *State) IsGenerating(id string) bool {
	_, ok := st.Generating[id]
	return ok
}

// GeneratingIDs 返回正在生成的会话 ID（已排序）
func (st *State) GeneratingIDs() []string {
	ids := make([]string, 0, len(st.Generating))
	for id := range st.Generating {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// withSession 替换第 i 个会话
func (st *State) withSession(i int, s *entity.Session) *State {
	next := st.clone()
	next.Sessions[i] = s
	return next
}
