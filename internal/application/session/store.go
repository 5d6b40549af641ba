package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/completion"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
	"github.com/danglinh9623-svg/MuseFlow/pkg/metrics"
)

// Completer Store 依赖的补全能力
type Completer interface {
	StreamCompletion(ctx context.Context, req completion.ChatRequest, onPartial func(string)) (string, error)
	SuggestTitle(ctx context.Context, firstMessage string) string
}

// ErrClosed Store 已关闭
var ErrClosed = apperrors.New(apperrors.CodeServiceUnavailable, "session store is closed")

// Store 会话集合的唯一持有者
//
// 所有变更都在 mu 下以 旧 State -> 新 State 的方式整体替换，
// 流式回调与用户操作走同一把锁，因此同一次生成的覆盖按到达顺序生效。
type Store struct {
	repo      repository.SessionSnapshotRepository
	completer Completer
	opts      options

	mu       sync.Mutex
	state    *State
	inflight map[string]*Generation
	subs     map[int]chan struct{}
	nextSub  int
	closing  bool

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	persister *persister
}

// New 创建 Store；调用 Bootstrap 之前集合为空
func New(repo repository.SessionSnapshotRepository, completer Completer, opts ...Option) *Store {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		repo:      repo,
		completer: completer,
		opts:      o,
		state:     emptyState(),
		inflight:  map[string]*Generation{},
		subs:      map[int]chan struct{}{},
		baseCtx:   ctx,
		stop:      cancel,
	}
	s.persister = newPersister(s, repo, o)
	return s
}

// Bootstrap 从持久化存储恢复会话并启动后台写入
//
// 数据不存在、损坏或为空数组时以一个新会话开始；读取本身失败时返回错误，
// 避免用空状态覆盖仍可恢复的数据。
func (s *Store) Bootstrap(ctx context.Context) error {
	sessions, err := s.repo.Load(ctx)
	if err != nil {
		return apperrors.ErrStorage.WithError(fmt.Errorf("load sessions: %w", err))
	}

	err = s.mutate("bootstrap", func(st *State) (*State, error) {
		if len(sessions) == 0 {
			return freshTransition(st, s.newSession()), nil
		}
		return loadedTransition(st, sessions), nil
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "session store bootstrapped",
		"sessions", len(sessions),
		"driver", s.opts.driver,
	)
	s.persister.start()
	return nil
}

// Snapshot 返回当前不可变快照
func (s *Store) Snapshot() *State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe 订阅变更通知
//
// 通道容量为 1，连续多次变更只保证至少一次通知，收到后应重新读取 Snapshot。
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// CreateSession 新建会话并设为当前会话；Store 已关闭时返回 ErrClosed
func (s *Store) CreateSession() (*entity.Session, error) {
	sess := s.newSession()
	err := s.mutate("create_session", func(st *State) (*State, error) {
		return createTransition(st, sess), nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// SelectSession 切换当前会话，未知 ID 时不做任何事
func (s *Store) SelectSession(id string) {
	_ = s.mutate("select_session", func(st *State) (*State, error) {
		return selectTransition(st, id), nil
	})
}

// DeleteSession 删除会话，并丢弃该会话进行中的生成
func (s *Store) DeleteSession(id string) error {
	replacement := s.newSession()
	return s.mutate("delete_session", func(st *State) (*State, error) {
		next, err := deleteSessionTransition(st, id, replacement)
		if err != nil {
			return nil, err
		}
		s.dropLocked(id)
		return next, nil
	})
}

// RenameSession 修改标题
func (s *Store) RenameSession(id, title string) error {
	return s.mutate("rename_session", func(st *State) (*State, error) {
		return renameTransition(st, id, title)
	})
}

// DeleteMessage 删除一条消息；删除的是流式占位消息时同时取消该次生成
func (s *Store) DeleteMessage(sessionID, messageID string) error {
	now := s.opts.now()
	return s.mutate("delete_message", func(st *State) (*State, error) {
		next, err := deleteMessageTransition(st, sessionID, messageID, now)
		if err != nil {
			return nil, err
		}
		if st.Generating[sessionID] == messageID {
			s.dropLocked(sessionID)
		}
		return next, nil
	})
}

// AddCharacter 添加角色并追加系统提示消息
func (s *Store) AddCharacter(sessionID string, profile entity.CharacterProfile) (entity.CharacterProfile, error) {
	now := s.opts.now()
	if profile.ID == "" {
		profile.ID = s.opts.newID()
	}
	notice := entity.Message{
		ID:        s.opts.newID(),
		Role:      entity.RoleModel,
		Content:   entity.CharacterAddedNotice(profile.Name),
		Timestamp: now,
	}
	err := s.mutate("add_character", func(st *State) (*State, error) {
		return addCharacterTransition(st, sessionID, profile, notice, now)
	})
	if err != nil {
		return entity.CharacterProfile{}, err
	}
	return profile, nil
}

// SendMessage 追加用户消息并开始流式生成
//
// 空白文本、未知会话或会话已有进行中的生成时返回错误且不改变状态。
// 返回的 Generation 可用于等待生成结束。
func (s *Store) SendMessage(ctx context.Context, sessionID, text, model string) (*Generation, error) {
	now := s.opts.now()
	userMsg := entity.Message{ID: s.opts.newID(), Role: entity.RoleUser, Content: text, Timestamp: now}
	placeholder := entity.Message{ID: s.opts.newID(), Role: entity.RoleModel, Timestamp: now}

	gen, plan, err := s.startGeneration(ctx, kindSend, "send_message", model, func(st *State) (*State, streamPlan, error) {
		return sendTransition(st, sessionID, text, userMsg, placeholder, now)
	})
	if err != nil {
		return nil, err
	}

	if plan.titleSource != "" {
		s.requestTitle(ctx, sessionID, plan.titleSource)
	}
	return gen, nil
}

// Regenerate 用上一条用户消息重新生成末尾的模型回答
func (s *Store) Regenerate(ctx context.Context, sessionID, model string) (*Generation, error) {
	now := s.opts.now()
	placeholder := entity.Message{ID: s.opts.newID(), Role: entity.RoleModel, Timestamp: now}

	gen, _, err := s.startGeneration(ctx, kindRegenerate, "regenerate", model, func(st *State) (*State, streamPlan, error) {
		return regenerateTransition(st, sessionID, placeholder, now)
	})
	return gen, err
}

// ClearAll 清空持久化数据并以一个新会话重新开始
func (s *Store) ClearAll(ctx context.Context) error {
	fresh := s.newSession()
	err := s.mutate("clear_all", func(st *State) (*State, error) {
		for id := range s.inflight {
			s.dropLocked(id)
		}
		return freshTransition(st, fresh), nil
	})
	if err != nil {
		return err
	}

	if err := s.persister.reset(ctx); err != nil {
		return apperrors.ErrStorage.WithError(fmt.Errorf("clear sessions: %w", err))
	}
	logger.Info(ctx, "all sessions cleared")
	return nil
}

// Close 取消进行中的生成，等待后台任务结束并把最后状态写入存储
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.mu.Unlock()

	s.stop()

	waited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		logger.Warn(ctx, "timed out waiting for background generations")
	}

	return s.persister.close(ctx)
}

// mutate 在锁内执行转换；fn 返回 nil State 表示无变更
func (s *Store) mutate(op string, fn func(*State) (*State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		metrics.SessionOperationsTotal.WithLabelValues(op, "rejected").Inc()
		return ErrClosed
	}

	next, err := fn(s.state)
	if err != nil {
		metrics.SessionOperationsTotal.WithLabelValues(op, "rejected").Inc()
		return err
	}
	metrics.SessionOperationsTotal.WithLabelValues(op, "ok").Inc()
	if next != nil {
		s.commitLocked(next)
	}
	return nil
}

// commitLocked 发布新状态并通知订阅者，调用方须持有 mu
func (s *Store) commitLocked(next *State) {
	next.Version = s.state.Version + 1
	s.state = next
	metrics.SessionsCurrent.Set(float64(len(next.Sessions)))

	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// dropLocked 使会话的进行中生成失效并取消，调用方须持有 mu
func (s *Store) dropLocked(sessionID string) {
	g, ok := s.inflight[sessionID]
	if !ok {
		return
	}
	delete(s.inflight, sessionID)
	g.dropped = true
	g.cancel()
}

func (s *Store) newSession() *entity.Session {
	return entity.NewSession(s.opts.newID(), s.opts.newID(), s.opts.now())
}

// requestTitle 后台请求生成标题，结果仅在会话仍存在时写入
func (s *Store) requestTitle(ctx context.Context, sessionID, firstMessage string) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		tctx, cancel := context.WithTimeout(s.baseCtx, s.opts.titleTimeout)
		defer cancel()
		tctx = logger.WithContext(tctx, logger.SessionIDKey, sessionID)
		if rid, ok := ctx.Value(logger.RequestIDKey).(string); ok {
			tctx = logger.WithContext(tctx, logger.RequestIDKey, rid)
		}

		title := strings.TrimSpace(s.completer.SuggestTitle(tctx, firstMessage))
		if title == "" || title == entity.TitleFallback {
			return
		}

		err := s.mutate("apply_title", func(st *State) (*State, error) {
			return titleTransition(st, sessionID, title), nil
		})
		if err != nil && !errors.Is(err, ErrClosed) {
			logger.Warn(tctx, "failed to apply generated title", "error", err.Error())
		}
	}()
}
