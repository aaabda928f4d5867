package corpus

import "errors"

var (
	// ErrInvalidInput 文本为空或非法（在任何索引变更前拒绝）
	ErrInvalidInput = errors.New("invalid input")

	// ErrExtractionFailed 外部能力出错或返回无法解析的结果
	// 调用方决定重试或不带实体继续；提取失败绝不阻塞摄入
	ErrExtractionFailed = errors.New("entity extraction failed")
)
