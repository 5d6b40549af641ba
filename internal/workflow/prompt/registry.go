// Package prompt 管理内嵌的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	// PromptChatV1 对话：系统指令 + 历史消息 + {message}
	PromptChatV1 PromptID = "chat_v1"
	// PromptCharacterSuggestionV1 角色字段建议：{name} {role} {profile_json} {field}
	PromptCharacterSuggestionV1 PromptID = "character_suggestion_v1"
	// PromptSessionTitleV1 会话标题：{message}
	PromptSessionTitleV1 PromptID = "session_title_v1"
)

// HistoryKey 对话模板中历史消息占位符的变量名
const HistoryKey = "history"

type templateFiles struct {
	system  string
	user    string
	history bool
}

type Registry struct {
	mu    sync.RWMutex
	cache map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		cache: make(map[PromptID]einoprompt.ChatTemplate),
	}
}

func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.cache[id]; ok {
		return tpl, nil
	}

	files, err := resolvePromptFiles(id)
	if err != nil {
		return nil, err
	}

	var msgs []schema.MessagesTemplate
	if files.system != "" {
		system, err := readEmbeddedText(files.system)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, schema.SystemMessage(system))
	}
	if files.history {
		msgs = append(msgs, schema.MessagesPlaceholder(HistoryKey, true))
	}
	user, err := readEmbeddedText(files.user)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, schema.UserMessage(user))

	tpl := einoprompt.FromMessages(schema.FString, msgs...)
	r.cache[id] = tpl
	return tpl, nil
}

func resolvePromptFiles(id PromptID) (templateFiles, error) {
	switch id {
	case PromptChatV1:
		return templateFiles{
			system:  "templates/chat_v1.system.txt",
			user:    "templates/chat_v1.user.txt",
			history: true,
		}, nil
	case PromptCharacterSuggestionV1:
		return templateFiles{user: "templates/character_suggestion_v1.user.txt"}, nil
	case PromptSessionTitleV1:
		return templateFiles{user: "templates/session_title_v1.user.txt"}, nil
	default:
		return templateFiles{}, fmt.Errorf("unknown prompt id: %s", id)
	}
}

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}
