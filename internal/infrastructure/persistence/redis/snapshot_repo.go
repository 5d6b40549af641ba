package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/snapshot"
)

const driverName = "redis"

// SnapshotRepository 将会话集合保存在单个 Redis 字符串键中
type SnapshotRepository struct {
	client *Client
	key    string
}

// NewSnapshotRepository 创建快照存储
func NewSnapshotRepository(client *Client, key string) *SnapshotRepository {
	return &SnapshotRepository{client: client, key: key}
}

// Load 读取快照
func (r *SnapshotRepository) Load(ctx context.Context) ([]*entity.Session, error) {
	data, err := r.client.Get(ctx, r.key)
	if IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot.DecodeStored(ctx, driverName, data), nil
}

// Save 覆盖写入快照
func (r *SnapshotRepository) Save(ctx context.Context, sessions []*entity.Session) (err error) {
	start := time.Now()
	var data []byte
	defer func() { snapshot.ObserveSave(driverName, start, len(data), err) }()

	data, err = snapshot.Encode(sessions)
	if err != nil {
		return err
	}
	if err = r.client.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear 删除快照
func (r *SnapshotRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Ping 检查连接
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
