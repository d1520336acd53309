// Package markdown 修复流式输出中未闭合的代码块
package markdown

import "strings"

const fence = "```"

// Repair 为未闭合的围栏代码块或行内代码补齐结束标记
// 对任意前缀安全，已平衡的文本原样返回
func Repair(content string) string {
	inFence := false
	inInline := false

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fence) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		if strings.Count(line, "`")%2 == 1 {
			inInline = !inInline
		}
	}

	switch {
	case inFence:
		return content + "\n" + fence
	case inInline:
		return content + "`"
	default:
		return content
	}
}
