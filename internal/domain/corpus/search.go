package corpus

// SearchHit 检索命中结果
type SearchHit struct {
	// FragmentID 命中的片段 ID
	FragmentID string `json:"fragment_id"`
	// DocumentID 片段所属文档 ID
	DocumentID string `json:"document_id"`
	// Text 片段文本
	Text string `json:"text"`
	// Score 词法相关性得分（非负，越大越相关）
	Score float64 `json:"score"`
	// Rank 排名（从 0 开始，按得分降序；同分按片段位置升序）
	Rank int `json:"rank"`
}
