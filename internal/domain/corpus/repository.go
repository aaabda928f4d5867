package corpus

// DocumentRepository 文档仓库接口
// 持久化文档及其片段；实现位于 infrastructure/storage
type DocumentRepository interface {
	// SaveDocument 保存文档及其全部片段（替换式，事务内先删后插）
	SaveDocument(doc *Document, fragments []*Fragment) error

	// GetDocument 按 ID 获取文档，不存在返回 nil
	GetDocument(documentID string) (*Document, error)

	// ListDocuments 列出全部文档摘要（按创建时间升序）
	ListDocuments() ([]*DocumentSummary, error)

	// DeleteDocument 删除文档、片段及缓存实体
	// 返回是否实际删除了记录（删除未知 ID 是 no-op）
	DeleteDocument(documentID string) (bool, error)

	// ListFragments 列出文档的全部片段（按位置升序）
	ListFragments(documentID string) ([]*Fragment, error)

	// ListAllFragments 列出库中全部片段（启动时重建索引用）
	ListAllFragments() ([]*Fragment, error)
}

// EntityRepository 实体缓存仓库接口
// 按 (document_id, prompt_hash) 缓存提取结果
type EntityRepository interface {
	// SaveMentions 保存一次提取的全部实体提及（替换同键旧值）
	SaveMentions(documentID, promptHash string, mentions []*EntityMention) error

	// GetMentions 按缓存键获取实体提及；未命中返回 (nil, false, nil)
	GetMentions(documentID, promptHash string) ([]*EntityMention, bool, error)

	// FindDocumentsByValues 查找实体值（大小写不敏感，OR 语义）
	// 命中的文档 ID 集合
	FindDocumentsByValues(values []string) (map[string]struct{}, error)

	// DeleteByDocument 删除文档的全部缓存实体
	DeleteByDocument(documentID string) error
}
