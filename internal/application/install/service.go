// Package install 维护应用安装提示的可用状态
//
// 浏览器在满足安装条件时会延迟一次安装提示，前端把这一事件上报为 Capture，
// 用户点击安装后以 Consume 上报结果。该状态与会话状态机无关。
package install

import (
	"context"
	"sync"

	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// Outcome 用户对安装提示的选择
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeDismissed Outcome = "dismissed"
)

// Valid 是否为已知结果
func (o Outcome) Valid() bool {
	return o == OutcomeAccepted || o == OutcomeDismissed
}

// Status 安装状态快照
type Status struct {
	// Installed 应用已以独立窗口运行或用户已接受安装
	Installed bool `json:"installed"`
	// PromptAvailable 持有一次尚未使用的延迟安装提示
	PromptAvailable bool `json:"prompt_available"`
	// LastOutcome 最近一次提示的结果，未提示过时为空
	LastOutcome Outcome `json:"last_outcome,omitempty"`
}

// ErrNoPrompt 没有可用的安装提示
var ErrNoPrompt = apperrors.New(apperrors.CodeConflict, "no install prompt available")

// ErrInvalidOutcome 未知的提示结果
var ErrInvalidOutcome = apperrors.New(apperrors.CodeInvalidParam, "outcome must be accepted or dismissed")

// Service 进程内唯一的安装状态
type Service struct {
	mu     sync.Mutex
	status Status
}

// NewService 创建服务，installed 表示启动时已处于安装态
func NewService(installed bool) *Service {
	s := &Service{}
	s.Init(installed)
	return s
}

// Init 重置状态
func (s *Service) Init(installed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = Status{Installed: installed}
}

// Capture 记录浏览器延迟的安装提示；已安装时忽略
func (s *Service) Capture(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.Installed {
		s.status.PromptAvailable = true
		logger.Debug(ctx, "install prompt captured")
	}
	return s.status
}

// Status 返回当前状态
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Consume 使用一次安装提示
//
// 提示只能使用一次：accepted 进入已安装态；dismissed 释放提示，
// 用户仍可按手动说明安装。
func (s *Service) Consume(ctx context.Context, outcome Outcome) (Status, error) {
	if !outcome.Valid() {
		return Status{}, ErrInvalidOutcome.WithDetail(string(outcome))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.PromptAvailable {
		return s.status, ErrNoPrompt
	}
	s.status.PromptAvailable = false
	s.status.LastOutcome = outcome
	if outcome == OutcomeAccepted {
		s.status.Installed = true
	}

	logger.Info(ctx, "install prompt consumed", "outcome", string(outcome))
	return s.status, nil
}
