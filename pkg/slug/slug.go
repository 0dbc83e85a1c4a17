// Package slug 提供从名称派生 URL 安全标识（slug）的工具。
package slug

import (
	"regexp"
	"strings"
)

var (
	// 去掉所有既不是单词字符、不是空白、也不是连字符的字符。
	invalidChars = regexp.MustCompile(`[^\w\s-]`)
	// 把连续的空白、下划线、连字符折叠成一个连字符。
	separatorRuns = regexp.MustCompile(`[\s_-]+`)
)

// Generate 从名称派生 slug。
// 规则（按顺序执行）：
// 1. 转小写并去除首尾空白。
// 2. 删除非法字符（保留字母数字、下划线、空白、连字符）。
// 3. 连续的空白/下划线/连字符折叠为单个连字符。
// 4. 去除首尾连字符。
// 对已合法的 slug 幂等：Generate(Generate(x)) == Generate(x)。
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = invalidChars.ReplaceAllString(s, "")
	s = separatorRuns.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
