package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/snapshot"
)

const driverName = "postgres"

// SnapshotRecord 快照表记录；value 使用 text 而非 jsonb，损坏内容也能读出后再判定
type SnapshotRecord struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 表名
func (SnapshotRecord) TableName() string {
	return "session_snapshots"
}

// SnapshotRepository 快照存储
type SnapshotRepository struct {
	client *Client
	key    string
}

// NewSnapshotRepository 创建快照存储
func NewSnapshotRepository(client *Client, key string) *SnapshotRepository {
	return &SnapshotRepository{client: client, key: key}
}

// Migrate 建表
func (r *SnapshotRepository) Migrate(ctx context.Context) error {
	if err := r.client.db.WithContext(ctx).AutoMigrate(&SnapshotRecord{}); err != nil {
		return fmt.Errorf("migrate session_snapshots: %w", err)
	}
	return nil
}

// Load 读取快照
func (r *SnapshotRepository) Load(ctx context.Context) ([]*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepository.Load",
		trace.WithAttributes(attribute.String("storage.key", r.key)))
	defer span.End()

	var rec SnapshotRecord
	err := r.client.db.WithContext(ctx).First(&rec, "key = ?", r.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot.DecodeStored(ctx, driverName, []byte(rec.Value)), nil
}

// Save 覆盖写入快照
func (r *SnapshotRepository) Save(ctx context.Context, sessions []*entity.Session) (err error) {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepository.Save",
		trace.WithAttributes(attribute.Int("storage.session_count", len(sessions))))
	defer span.End()

	start := time.Now()
	var data []byte
	defer func() { snapshot.ObserveSave(driverName, start, len(data), err) }()

	data, err = snapshot.Encode(sessions)
	if err != nil {
		return err
	}

	rec := &SnapshotRecord{Key: r.key, Value: string(data), UpdatedAt: time.Now()}
	err = r.client.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(rec).Error
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear 删除快照
func (r *SnapshotRepository) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "postgres.SnapshotRepository.Clear")
	defer span.End()

	if err := r.client.db.WithContext(ctx).Delete(&SnapshotRecord{}, "key = ?", r.key).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Ping 检查连接
func (r *SnapshotRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
