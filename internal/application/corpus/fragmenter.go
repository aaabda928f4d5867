package corpus

import (
	"regexp"
	"strings"
	"unicode"

	"log/slog"

	"github.com/ragpro/backend/internal/infrastructure/log"
)

// 分片默认参数
const (
	// DefaultMaxFragmentTokens 单个片段的 Token 上限
	DefaultMaxFragmentTokens = 256
	// DefaultWindowRunes 超长段落按固定 rune 窗口切分的窗口大小
	DefaultWindowRunes = 800
)

// paragraphPattern 段落分隔：一个或多个空行
var paragraphPattern = regexp.MustCompile(`\n[\t ]*\n+`)

// spacePattern 连续空白
var spacePattern = regexp.MustCompile(`[\t ]+`)

// Fragmenter 文档分片器
// 按段落切分，超出 Token 上限的段落退化为固定 rune 窗口切分；
// 边界对相同输入完全确定，且永远不会落在多字节字符中间
type Fragmenter struct {
	maxTokens   int
	windowRunes int
	counter     *TokenCounter
	logger      *slog.Logger
}

// NewFragmenter 创建分片器
// tiktoken 编码不可用时退化为纯窗口计数（仍然确定性）
func NewFragmenter() *Fragmenter {
	counter, err := GetTokenCounter()
	f := &Fragmenter{
		maxTokens:   DefaultMaxFragmentTokens,
		windowRunes: DefaultWindowRunes,
		counter:     counter,
		logger:      log.NewModuleLogger("corpus", "fragmenter"),
	}
	if err != nil {
		f.logger.Warn("tiktoken encoding unavailable, falling back to rune windows", "error", err)
	}
	return f
}

// Split 将文档文本切分为片段文本序列
// 返回的片段均非空且已做空白规范化；全空输入返回 nil
func (f *Fragmenter) Split(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var fragments []string
	for _, para := range paragraphPattern.Split(normalized, -1) {
		para = NormalizeWhitespace(para)
		if para == "" {
			continue
		}
		if f.oversized(para) {
			fragments = append(fragments, f.splitWindows(para)...)
		} else {
			fragments = append(fragments, para)
		}
	}
	return fragments
}

// oversized 判断段落是否超出片段上限
func (f *Fragmenter) oversized(para string) bool {
	if f.counter != nil {
		return f.counter.CountTokens(para) > f.maxTokens
	}
	return len([]rune(para)) > f.windowRunes
}

// splitWindows 将超长段落按固定 rune 窗口切分
// 窗口边界优先回退到最近的空格，避免切断单词；
// 按 rune 索引切分保证不会落在多字节字符中间
func (f *Fragmenter) splitWindows(para string) []string {
	runes := []rune(para)
	var out []string

	start := 0
	for start < len(runes) {
		end := start + f.windowRunes
		if end >= len(runes) {
			out = append(out, strings.TrimSpace(string(runes[start:])))
			break
		}

		// 在窗口尾部向前找空白作为断点
		cut := end
		for cut > start && !unicode.IsSpace(runes[cut]) {
			cut--
		}
		if cut == start {
			// 整个窗口没有空白（长 token），硬切
			cut = end
		}

		piece := strings.TrimSpace(string(runes[start:cut]))
		if piece != "" {
			out = append(out, piece)
		}
		start = cut
		// 跳过断点处的空白
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
	}
	return out
}

// NormalizeWhitespace 空白规范化
// 行内连续空白折叠为单个空格，去除首尾空白，保留换行
func NormalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(spacePattern.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
