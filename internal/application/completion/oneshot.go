package completion

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/danglinh9623-svg/MuseFlow/internal/config"
	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
	einoobs "github.com/danglinh9623-svg/MuseFlow/internal/observability/eino"
	workflowprompt "github.com/danglinh9623-svg/MuseFlow/internal/workflow/prompt"
	"github.com/danglinh9623-svg/MuseFlow/pkg/logger"
)

// suggestionTimeout 单次角色字段建议的超时
const suggestionTimeout = 2 * time.Minute

// 一次性调用的兜底文本
const (
	SuggestionEmptyText = "Could not generate suggestion."
	SuggestionErrorText = "Error generating suggestion."
)

// SuggestField 为角色档案的某个字段生成建议，从不返回错误
//
// 相同字段与档案的并发请求只会触发一次模型调用，该调用不受首个调用方取消的影响。
func (c *Client) SuggestField(ctx context.Context, field string, profile entity.CharacterProfile) string {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		logger.Error(ctx, "failed to encode character profile", err)
		return SuggestionErrorText
	}

	// 共享调用不随任一调用方取消，调用方离开时只放弃等待
	key := field + "\x00" + string(profileJSON)
	ch := c.suggestions.DoChan(key, func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), suggestionTimeout)
		defer cancel()
		return c.suggestField(sctx, field, profile, string(profileJSON)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(string)
	case <-ctx.Done():
		logger.Warn(ctx, "character suggestion abandoned by caller", "field", field, "error", ctx.Err().Error())
		return SuggestionErrorText
	}
}

func (c *Client) suggestField(ctx context.Context, field string, profile entity.CharacterProfile, profileJSON string) string {
	vars := map[string]any{
		"name":         orUnknown(profile.Name),
		"role":         orUnknown(profile.Role),
		"profile_json": profileJSON,
		"field":        field,
	}
	text, err := c.generate(ctx, workflowSuggestion, workflowprompt.PromptCharacterSuggestionV1, vars, c.cfg.SuggestionModel, c.cfg.Suggestion)
	if err != nil {
		logger.Error(ctx, "failed to generate character suggestion", err, "field", field)
		return SuggestionErrorText
	}
	if text == "" {
		return SuggestionEmptyText
	}
	return text
}

// SuggestTitle 根据首条消息生成简短标题；失败或为空时返回 "New Story"
func (c *Client) SuggestTitle(ctx context.Context, firstMessage string) string {
	vars := map[string]any{"message": firstMessage}
	text, err := c.generate(ctx, workflowTitle, workflowprompt.PromptSessionTitleV1, vars, c.cfg.TitleModel, c.cfg.Title)
	if err != nil {
		logger.Warn(ctx, "failed to generate session title", "error", err.Error())
		return entity.TitleFallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.TitleFallback
	}
	return text
}

func (c *Client) generate(
	ctx context.Context,
	workflow string,
	id workflowprompt.PromptID,
	vars map[string]any,
	modelID string,
	params config.GenerationParams,
) (string, error) {
	opt, err := c.ResolveModel(modelID)
	if err != nil {
		return "", err
	}
	tpl, err := c.prompts.ChatTemplate(id)
	if err != nil {
		return "", err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return "", err
	}

	ctx = einoobs.WithWorkflowProvider(ctx, workflow, c.cfg.DefaultProvider)
	chatModel, err := c.factory.Get(ctx, c.cfg.DefaultProvider)
	if err != nil {
		return "", err
	}
	out, err := chatModel.Generate(ctx, msgs, c.modelOptions(opt, params)...)
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
