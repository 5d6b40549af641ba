//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"github.com/danglinh9623-svg/MuseFlow/internal/application/completion"
	"github.com/danglinh9623-svg/MuseFlow/internal/application/session"
	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/repository"
	"github.com/danglinh9623-svg/MuseFlow/internal/infrastructure/llm"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/handler"
	"github.com/danglinh9623-svg/MuseFlow/internal/interfaces/http/router"
	"github.com/danglinh9623-svg/MuseFlow/internal/workflow/port"
	workflowprompt "github.com/danglinh9623-svg/MuseFlow/internal/workflow/prompt"
)

// InitializeStorage 仅初始化快照存储（用于 bootstrap）
func InitializeStorage(ctx context.Context, cfg *config.Config) (repository.SessionSnapshotRepository, func(), error) {
	wire.Build(StorageSet)
	return nil, nil, nil
}

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		CompletionSet,
		SessionSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StorageSet 快照存储提供者集合
var StorageSet = wire.NewSet(
	ProvideSnapshotRepository,
)

// CompletionSet LLM 调用提供者集合
var CompletionSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(port.ChatModelFactory), new(*llm.EinoFactory)),
	workflowprompt.NewRegistry,
	completion.NewClient,
	wire.Bind(new(session.Completer), new(*completion.Client)),
	wire.Bind(new(handler.Assistant), new(*completion.Client)),
)

// SessionSet 会话状态机提供者集合
var SessionSet = wire.NewSet(
	ProvideSessionStore,
	ProvideInstallService,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	handler.NewSessionHandler,
	handler.NewInstallHandler,
	ProvideHealthHandler,
	router.New,
)
