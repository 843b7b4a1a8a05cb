package transform

import (
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeFence 去掉模型回复外层的 ```json ... ``` 代码块
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFencePattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// RepairBackslashes 将所有后面不是字母 n 的反斜杠替换为两个反斜杠
// 模型常在JSON字符串里直接输出LaTeX命令(如 \alpha)，修复后才能解析，"\n" 换行转义保持不变
func RepairBackslashes(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 16)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && (i+1 >= len(s) || s[i+1] != 'n') {
			b.WriteString(`\\`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Sanitize 将双引号替换为单引号，避免破坏回复中的JSON结构
func Sanitize(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}
