package corpus

import "time"

// Document 已摄入的文档
// 文档是片段的所有者，删除文档会级联删除其片段和缓存的实体
type Document struct {
	// ID 文档唯一标识（调用方提供或系统生成的 UUID）
	ID string
	// Text 原始文本（空白规范化后）
	Text string
	// CreatedAt 摄入时间
	CreatedAt time.Time
}

// Fragment 文档片段
// 片段是检索的最小可寻址单位，创建后不可变；
// 重新摄入同一文档会整体替换（删除+重建）其片段
type Fragment struct {
	// ID 片段唯一标识
	ID string
	// DocumentID 所属文档 ID（反向引用）
	DocumentID string
	// Text 片段文本（文档文本的非空子串）
	Text string
	// Position 在文档中的序号（从 0 开始，用于稳定排序）
	Position int
}

// DocumentSummary 文档摘要（列表展示用）
type DocumentSummary struct {
	ID            string    `json:"document_id"`
	TextPreview   string    `json:"text_preview"`
	TextLength    int       `json:"text_length"`
	FragmentCount int       `json:"fragment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// PreviewLen 摘要预览的最大字符数
const PreviewLen = 100

// Preview 生成文本预览（按 rune 截断，不会切断多字节字符）
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLen {
		return text
	}
	return string(runes[:PreviewLen]) + "..."
}
