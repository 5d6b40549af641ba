package completion

import (
	"fmt"
	"strings"

	"github.com/danglinh9623-svg/MuseFlow/internal/domain/entity"
)

// BuildPrompt 将角色档案渲染为上下文块并前置到消息前；没有角色时原样返回
func BuildPrompt(message string, characters []entity.CharacterProfile) string {
	if len(characters) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString("\n\n[ACTIVE CHARACTER CONTEXT]\n")
	for _, c := range characters {
		fmt.Fprintf(&b,
			"Name: %s\nRole: %s\nAppearance: %s\nBackstory: %s\nStrengths: %s\nWeaknesses: %s\nGoals: %s\nRelationships: %s\n---\n",
			c.Name, c.Role, c.Appearance, c.Backstory, c.Strengths, c.Weaknesses, c.Goals, c.Relationships,
		)
	}
	b.WriteString("[END CONTEXT]\n\n")
	b.WriteString(message)
	return b.String()
}
