package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// persister 把已提交的状态写入快照存储
//
// 第一次变更启动计时器，到期时写入当时最新的快照；计时期间的后续变更不会推迟写入，
// 因此持续流式输出时也会按 debounce 间隔周期落盘。写入失败会在下一个间隔重试。
type persister struct {
	store   *Store
	repo    repository.SessionSnapshotRepository
	every   time.Duration
	timeout time.Duration
	driver  string

	// saveMu 串行化写入与清空，saved 为最近一次成功写入的版本
	saveMu sync.Mutex
	saved  uint64

	startOnce sync.Once
	stopOnce  sync.Once
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func newPersister(store *Store, repo repository.SessionSnapshotRepository, o options) *persister {
	return &persister{
		store:   store,
		repo:    repo,
		every:   o.saveDebounce,
		timeout: o.saveTimeout,
		driver:  o.driver,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func (p *persister) start() {
	p.startOnce.Do(func() {
		notify, unsubscribe := p.store.Subscribe()
		go p.loop(notify, unsubscribe)
	})
}

func (p *persister) loop(notify <-chan struct{}, unsubscribe func()) {
	defer close(p.doneCh)
	defer unsubscribe()

	ctx := context.Background()
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(p.every)
			timerC = timer.C
		}
	}

	// 启动时的状态（例如新建的首个会话）也需要落盘
	schedule()
	for {
		select {
		case <-notify:
			schedule()
		case <-timerC:
			timer, timerC = nil, nil
			if err := p.flush(ctx); err != nil {
				logger.Warn(ctx, "failed to save session snapshot, will retry", "driver", p.driver, "error", err.Error())
				schedule()
			}
		case <-p.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// flush 写入最新快照；版本未变化时跳过
func (p *persister) flush(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()
	return p.saveLocked(ctx)
}

func (p *persister) saveLocked(ctx context.Context) error {
	st := p.store.Snapshot()
	if st.Version == p.saved {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.repo.Save(ctx, st.Sessions); err != nil {
		return fmt.Errorf("save snapshot v%d: %w", st.Version, err)
	}
	p.saved = st.Version
	return nil
}

// reset 清空存储后立即写入当前状态
//
// 与 flush 持有同一把锁，进行中的旧快照写入不会在清空之后落地。
func (p *persister) reset(ctx context.Context) error {
	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	err := p.repo.Clear(cctx)
	cancel()
	if err != nil {
		return err
	}
	p.saved = 0
	return p.saveLocked(ctx)
}

// close 停止后台循环并做最后一次写入
func (p *persister) close(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	// 从未启动时直接标记结束
	p.startOnce.Do(func() { close(p.doneCh) })
	select {
	case <-p.doneCh:
	case <-ctx.Done():
	}

	return p.flush(context.WithoutCancel(ctx))
}
