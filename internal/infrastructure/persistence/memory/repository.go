// Package memory 提供进程内会话快照存储，用于测试和无需落盘的运行方式
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/snapshot"
)

const driverName = "memory"

// Repository 保存编码后的快照字节，读写都经过与其他驱动相同的编解码
type Repository struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewRepository 创建空存储
func NewRepository() *Repository {
	return &Repository{}
}

// NewRepositoryWithData 以原始字节预置存储内容
func NewRepositoryWithData(data []byte) *Repository {
	return &Repository{data: append([]byte(nil), data...)}
}

// Load 读取快照
func (r *Repository) Load(ctx context.Context) ([]*entity.Session, error) {
	r.mu.Lock()
	data := r.data
	r.mu.Unlock()

	if data == nil {
		return nil, nil
	}
	return snapshot.DecodeStored(ctx, driverName, data), nil
}

// Save 覆盖写入快照
func (r *Repository) Save(_ context.Context, sessions []*entity.Session) error {
	start := time.Now()
	data, err := snapshot.Encode(sessions)
	snapshot.ObserveSave(driverName, start, len(data), err)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.data = data
	r.saves++
	r.mu.Unlock()
	return nil
}

// Clear 删除快照
func (r *Repository) Clear(context.Context) error {
	r.mu.Lock()
	r.data = nil
	r.mu.Unlock()
	return nil
}

// Raw 返回当前保存的原始字节
func (r *Repository) Raw() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]byte(nil), r.data...)
}

// SaveCount 返回成功写入次数
func (r *Repository) SaveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
