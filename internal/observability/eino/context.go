package eino

import (
	"context"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
)

type workflowKey struct{}
type providerKey struct{}

// WithWorkflowProvider 在 context 中记录调用所属的业务流程和提供商，并初始化 callbacks
//
// 直接调用 ChatModel（不经过 compose 图）时，必须先初始化 callbacks 管理器，
// 全局 handler 才会被触发。
func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	ctx = context.WithValue(ctx, workflowKey{}, workflow)
	ctx = context.WithValue(ctx, providerKey{}, provider)
	return einocallbacks.InitCallbacks(ctx, &einocallbacks.RunInfo{
		Name:      workflow,
		Type:      provider,
		Component: components.ComponentOfChatModel,
	})
}

// WorkflowFromContext 读取业务流程名
func WorkflowFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(workflowKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// ProviderFromContext 读取提供商名
func ProviderFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(providerKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}
