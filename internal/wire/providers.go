package wire

import (
	"context"
	"fmt"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/install"
	"github.com/danglinh9623-svg/MuseFlow/internal/application/session"
	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/persistence"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/handler"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// ProvideSnapshotRepository 按 storage.driver 打开快照存储并建表
func ProvideSnapshotRepository(ctx context.Context, cfg *config.Config) (repository.SessionSnapshotRepository, func(), error) {
	repo, cleanup, err := persistence.Open(&cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	if m, ok := repo.(repository.SchemaMigrator); ok {
		if err := m.Migrate(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate %s storage: %w", cfg.Storage.Driver, err)
		}
	}
	return repo, cleanup, nil
}

// ProvideSessionStore 创建会话状态机并从存储恢复
//
// cleanup 取消进行中的生成并在 session.shutdown_timeout 内把最后状态落盘。
func ProvideSessionStore(ctx context.Context, cfg *config.Config, repo repository.SessionSnapshotRepository, completer session.Completer) (*session.Store, func(), error) {
	store := session.New(repo, completer,
		session.WithSaveDebounce(cfg.Storage.SaveDebounce),
		session.WithSaveTimeout(cfg.Storage.SaveTimeout),
		session.WithTitleTimeout(cfg.Session.TitleTimeout),
		session.WithGenerationTimeout(cfg.Session.GenerationTimeout),
		session.WithDriverName(cfg.Storage.Driver),
	)
	if err := store.Bootstrap(ctx); err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Session.ShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Error(closeCtx, "failed to flush sessions on shutdown", err)
		}
	}
	return store, cleanup, nil
}

// ProvideInstallService 按 install.installed 创建安装状态服务
func ProvideInstallService(cfg *config.Config) *install.Service {
	return install.NewService(cfg.Install.Installed)
}

// ProvideHealthHandler 创建健康检查处理器，存储支持探活时一并检查
func ProvideHealthHandler(cfg *config.Config, store *session.Store, repo repository.SessionSnapshotRepository) *handler.HealthHandler {
	checker, _ := repo.(repository.HealthChecker)
	return handler.NewHealthHandler(store, checker, cfg.Storage.Driver, cfg.App.Version)
}
