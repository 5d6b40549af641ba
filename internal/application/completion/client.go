// Package completion 封装对远端 LLM 的流式对话与一次性生成调用
package completion

import (
	"context"
	"errors"
	"io"
	"strings"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	einoobs "github.com/danglinh9623-svg/MuseFlow/internal/observability/eino"
	"github.com/danglinh9623-svg/MuseFlow/internal/workflow/port"
	workflowprompt "github.com/danglinh9623-svg/MuseFlow/internal/workflow/prompt"
	apperrors "github.com/danglinh9623-svg/MuseFlow/pkg/errors"
	"github.com/danglinh9623-svg/MuseFlow/pkg/tracer"
)

const (
	workflowChat       = "chat_stream"
	workflowSuggestion = "character_suggestion"
	workflowTitle      = "session_title"
)

// ChatRequest 一次流式对话请求
type ChatRequest struct {
	// History 按轮次发送的对话历史；会话发送时已包含本次用户消息
	History    []entity.Message
	Text       string
	Characters []entity.CharacterProfile
	// Model 模型选项标识，空值使用默认模型
	Model string
}

// Client 对话客户端
type Client struct {
	factory port.ChatModelFactory
	prompts *workflowprompt.Registry
	cfg     config.LLMConfig

	suggestions singleflight.Group
}

// NewClient 创建对话客户端
func NewClient(factory port.ChatModelFactory, prompts *workflowprompt.Registry, cfg *config.Config) *Client {
	return &Client{
		factory: factory,
		prompts: prompts,
		cfg:     cfg.LLM,
	}
}

// Models 返回可选模型列表
func (c *Client) Models() []config.ChatModelOption {
	return append([]config.ChatModelOption(nil), c.cfg.ChatModels...)
}

// DefaultModel 返回默认模型标识
func (c *Client) DefaultModel() string {
	return c.cfg.DefaultModel
}

// ResolveModel 将模型标识（或提供商模型名）解析为模型选项
func (c *Client) ResolveModel(id string) (config.ChatModelOption, error) {
	if id == "" {
		id = c.cfg.DefaultModel
	}
	if opt, ok := c.cfg.ResolveModel(id); ok {
		return opt, nil
	}
	for _, opt := range c.cfg.ChatModels {
		if opt.Model == id {
			return opt, nil
		}
	}
	return config.ChatModelOption{}, apperrors.ErrUnknownModel.WithDetail(id)
}

// StreamCompletion 流式生成回复
//
// 每收到一个非空分片，onPartial 以累计全文被调用一次。返回最终全文；
// 出错时返回已累计的文本和错误。
func (c *Client) StreamCompletion(ctx context.Context, req ChatRequest, onPartial func(string)) (string, error) {
	opt, err := c.ResolveModel(req.Model)
	if err != nil {
		return "", err
	}

	ctx, span := tracer.Start(ctx, "completion.StreamCompletion",
		trace.WithAttributes(
			attribute.String("llm.model", opt.Model),
			attribute.Int("chat.history_len", len(req.History)),
			attribute.Int("chat.character_count", len(req.Characters)),
		))
	defer span.End()

	msgs, err := c.formatChat(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return "", err
	}

	ctx = einoobs.WithWorkflowProvider(ctx, workflowChat, c.cfg.DefaultProvider)
	chatModel, err := c.factory.Get(ctx, c.cfg.DefaultProvider)
	if err != nil {
		tracer.RecordError(span, err)
		return "", apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}

	reader, err := chatModel.Stream(ctx, msgs, c.modelOptions(opt, c.cfg.Chat)...)
	if err != nil {
		tracer.RecordError(span, err)
		return "", apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "stream completion failed")
	}
	defer reader.Close()

	var full strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return full.String(), ctxErr
		}
		if err != nil {
			tracer.RecordError(span, err)
			return full.String(), apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "stream completion failed")
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		full.WriteString(chunk.Content)
		if onPartial != nil {
			onPartial(full.String())
		}
	}

	span.SetAttributes(attribute.Int("chat.output_len", full.Len()))
	return full.String(), nil
}

func (c *Client) formatChat(ctx context.Context, req ChatRequest) ([]*schema.Message, error) {
	tpl, err := c.prompts.ChatTemplate(workflowprompt.PromptChatV1)
	if err != nil {
		return nil, err
	}
	return tpl.Format(ctx, map[string]any{
		workflowprompt.HistoryKey: toSchemaMessages(req.History),
		"message":                 BuildPrompt(req.Text, req.Characters),
	})
}

// modelOptions 组装单次调用参数；零值参数不下发
func (c *Client) modelOptions(opt config.ChatModelOption, params config.GenerationParams) []model.Option {
	opts := make([]model.Option, 0, 5)
	opts = append(opts, model.WithModel(opt.Model))

	if params.Temperature > 0 {
		opts = append(opts, model.WithTemperature(params.Temperature))
	}
	if params.TopP > 0 {
		opts = append(opts, model.WithTopP(params.TopP))
	}
	if params.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(params.MaxTokens))
	}
	if params.TopK > 0 {
		// OpenAI 协议没有 top_k，作为额外字段透传给兼容端点
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"top_k": params.TopK,
		}))
	}
	return opts
}

// toSchemaMessages 将会话消息转换为模型消息，model 角色映射为 assistant
func toSchemaMessages(history []entity.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case entity.RoleModel:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
