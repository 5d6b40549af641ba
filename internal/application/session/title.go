package session

import (
	"strings"
	"unicode/utf8"
)

const (
	fallbackTitleWords = 5
	fallbackTitleRunes = 30
)

// FallbackTitle 由首条消息生成临时标题
//
// 按空白切分取前 5 个词、以单个空格连接；超过 30 个字符（rune）时截断并追加 "..."。
func FallbackTitle(text string) string {
	words := strings.Fields(text)
	if len(words) > fallbackTitleWords {
		words = words[:fallbackTitleWords]
	}
	title := strings.Join(words, " ")
	if utf8.RuneCountInString(title) > fallbackTitleRunes {
		title = string([]rune(title)[:fallbackTitleRunes]) + "..."
	}
	return title
}
