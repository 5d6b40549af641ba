package session

import (
	"context"
	"errors"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/completion"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
	"github.com/danglinh9623-svg/MuseFlow/pkg/metrics"
)

// 生成类型
const (
	kindSend       = "send"
	kindRegenerate = "regenerate"
)

// Generation 一次进行中的流式生成
type Generation struct {
	ID            string
	SessionID     string
	UserMessageID string
	// MessageID 被流式写入的占位消息
	MessageID string
	Kind      string
	Model     string

	cancel context.CancelFunc
	done   chan struct{}
	err    error

	// dropped 由 Store.mu 保护；为 true 时结果不再写回
	dropped bool
}

// Done 生成结束（无论成功与否）后关闭
func (g *Generation) Done() <-chan struct{} {
	return g.done
}

// Wait 等待生成结束，返回补全调用的错误
func (g *Generation) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startGeneration 在一次转换中追加占位消息、设置进行中标记并启动生成协程
func (s *Store) startGeneration(
	ctx context.Context,
	kind, op, model string,
	fn func(*State) (*State, streamPlan, error),
) (*Generation, streamPlan, error) {
	var (
		gen  *Generation
		plan streamPlan
	)

	err := s.mutate(op, func(st *State) (*State, error) {
		next, p, err := fn(st)
		if err != nil {
			return nil, err
		}
		plan = p

		gctx, cancel := s.generationContext(ctx, p.sessionID)
		gen = &Generation{
			ID:            s.opts.newID(),
			SessionID:     p.sessionID,
			UserMessageID: p.userMessageID,
			MessageID:     p.placeholderID,
			Kind:          kind,
			Model:         model,
			cancel:        cancel,
			done:          make(chan struct{}),
		}
		s.inflight[p.sessionID] = gen
		s.wg.Add(1)
		go s.run(logger.WithContext(gctx, logger.GenerationIDKey, gen.ID), gen, p)
		return next, nil
	})
	if err != nil {
		return nil, streamPlan{}, err
	}
	return gen, plan, nil
}

// generationContext 生成协程的上下文挂在 Store 上而不是请求上，请求返回后生成继续进行
func (s *Store) generationContext(ctx context.Context, sessionID string) (context.Context, context.CancelFunc) {
	gctx := logger.WithContext(s.baseCtx, logger.SessionIDKey, sessionID)
	if rid, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		gctx = logger.WithContext(gctx, logger.RequestIDKey, rid)
	}
	if s.opts.generationTimeout > 0 {
		return context.WithTimeout(gctx, s.opts.generationTimeout)
	}
	return context.WithCancel(gctx)
}

func (s *Store) run(ctx context.Context, g *Generation, plan streamPlan) {
	defer s.wg.Done()
	defer close(g.done)
	defer g.cancel()

	start := time.Now()
	metrics.GenerationsActive.Inc()
	defer metrics.GenerationsActive.Dec()

	logger.Debug(ctx, "generation started", "kind", g.Kind, "model", g.Model)

	var latest string
	final, err := s.completer.StreamCompletion(ctx, completion.ChatRequest{
		History:    plan.history,
		Text:       plan.prompt,
		Characters: plan.characters,
		Model:      g.Model,
	}, func(text string) {
		latest = text
		s.patch(g, text)
	})

	status := s.finish(g, final, latest, err)
	g.err = err

	metrics.GenerationTotal.WithLabelValues(g.Kind, status).Inc()
	metrics.GenerationDuration.WithLabelValues(g.Kind).Observe(time.Since(start).Seconds())

	switch status {
	case "success":
		metrics.GenerationWordCount.Observe(float64(entity.Message{Content: final}.WordCount()))
		logger.Info(ctx, "generation completed", "kind", g.Kind, "duration_ms", time.Since(start).Milliseconds())
	case "error":
		logger.Error(ctx, "generation failed", err, "kind", g.Kind)
	default:
		logger.Info(ctx, "generation ended", "kind", g.Kind, "status", status)
	}
}

// patch 用累计全文覆盖占位消息；生成已被丢弃时直接返回
func (s *Store) patch(g *Generation, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.dropped {
		return
	}
	if next := patchTransition(s.state, g.SessionID, g.MessageID, text); next != nil {
		s.commitLocked(next)
	}
}

// finish 清除进行中标记并封存占位消息，返回用于指标的状态
//
// 关闭过程中被取消的生成保留已收到的部分内容；其余失败写入固定的错误提示。
func (s *Store) finish(g *Generation, final, latest string, err error) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[g.SessionID] == g {
		delete(s.inflight, g.SessionID)
	}
	if g.dropped {
		return "dropped"
	}

	content, status := final, "success"
	if err != nil {
		content, status = entity.GenerationErrorText, "error"
		if s.closing && errors.Is(err, context.Canceled) && latest != "" {
			content, status = latest, "interrupted"
		}
	}

	if next := sealTransition(s.state, g.SessionID, g.MessageID, content, s.opts.now()); next != nil {
		s.commitLocked(next)
	}
	return status
}
