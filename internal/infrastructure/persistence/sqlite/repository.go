// Package sqlite 提供基于本地 SQLite 文件的会话快照存储
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/snapshot"
)

const driverName = "sqlite"

var tracer = otel.Tracer("sqlite")

const createTableSQL = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Repository SQLite 快照存储，整个会话集合保存在 kv_store 的一行中
type Repository struct {
	db  *sql.DB
	key string
}

// NewRepository 打开（或创建）数据库文件并建表
func NewRepository(cfg *config.SQLiteConfig, key string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, busy.Milliseconds())

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// 单用户本地进程，单连接即可避免 SQLITE_BUSY
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db, key: key}
	if err := repo.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Migrate 建表
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Load 读取快照
func (r *Repository) Load(ctx context.Context) ([]*entity.Session, error) {
	ctx, span := tracer.Start(ctx, "sqlite.Load",
		trace.WithAttributes(attribute.String("storage.key", r.key)))
	defer span.End()

	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, r.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snapshot.DecodeStored(ctx, driverName, []byte(value)), nil
}

// Save 覆盖写入快照
func (r *Repository) Save(ctx context.Context, sessions []*entity.Session) (err error) {
	ctx, span := tracer.Start(ctx, "sqlite.Save",
		trace.WithAttributes(attribute.Int("storage.session_count", len(sessions))))
	defer span.End()

	start := time.Now()
	var data []byte
	defer func() { snapshot.ObserveSave(driverName, start, len(data), err) }()

	data, err = snapshot.Encode(sessions)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		r.key, string(data), time.Now().UnixMilli())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear 删除快照
func (r *Repository) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlite.Clear")
	defer span.End()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, r.key); err != nil {
		span.RecordError(err)
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}

// Ping 检查数据库连接
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close 关闭数据库
func (r *Repository) Close() error {
	return r.db.Close()
}
