// Package persistence 按配置选择会话快照存储驱动
package persistence

import (
	"fmt"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/memory"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/postgres"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/redis"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence/sqlite"
)

// Open 根据 storage.driver 创建快照存储，返回的 cleanup 负责关闭底层连接
func Open(cfg *config.StorageConfig) (repository.SessionSnapshotRepository, func(), error) {
	switch cfg.Driver {
	case "sqlite", "":
		repo, err := sqlite.NewRepository(&cfg.SQLite, cfg.Key)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil

	case "redis":
		client, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewSnapshotRepository(client, cfg.Key), func() { _ = client.Close() }, nil

	case "postgres":
		client, err := postgres.NewClient(&cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSnapshotRepository(client, cfg.Key), func() { _ = client.Close() }, nil

	case "memory":
		return memory.NewRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
