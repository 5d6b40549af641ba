// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// SessionSnapshotRepository 会话集合快照存储
//
// 只支持整体读写：Save 总是覆盖整个集合。
type SessionSnapshotRepository interface {
	// Load 读取快照；不存在时返回 nil, nil，数据损坏同样视为不存在
	Load(ctx context.Context) ([]*entity.Session, error)
	// Save 覆盖写入整个会话集合
	Save(ctx context.Context, sessions []*entity.Session) error
	// Clear 删除快照
	Clear(ctx context.Context) error
}

// SchemaMigrator 需要建表的存储实现
type SchemaMigrator interface {
	Migrate(ctx context.Context) error
}

// HealthChecker 可探活的存储实现
type HealthChecker interface {
	Ping(ctx context.Context) error
}
