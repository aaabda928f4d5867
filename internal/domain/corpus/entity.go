package corpus

// EntityType 实体类型枚举
// 固定枚举而非开放字符串，保证过滤和测试可穷举
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityLocation     EntityType = "location"
	EntityDate         EntityType = "date"
	EntityMoney        EntityType = "money"
	EntityOther        EntityType = "other"
)

// ParseEntityType 解析实体类型，未知类型归为 other
func ParseEntityType(s string) EntityType {
	switch EntityType(s) {
	case EntityPerson, EntityOrganization, EntityLocation, EntityDate, EntityMoney:
		return EntityType(s)
	default:
		return EntityOther
	}
}

// EntityMention 实体提及
// 由外部文本理解能力从文档中识别出的类型化命名片段，
// 按 (document_id, prompt_hash) 缓存，文档被替换时失效
type EntityMention struct {
	// DocumentID 所属文档 ID
	DocumentID string `json:"document_id"`
	// Type 实体类型
	Type EntityType `json:"type"`
	// Value 规范化后的文本片段（严格取自原文，不改写）
	Value string `json:"value"`
	// SourceFragmentID 来源片段 ID
	SourceFragmentID string `json:"source_fragment_id,omitempty"`
}
