package index

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
)

// BM25 参数
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// tokenPattern 词元模式：字母/数字/下划线连续串（含撇号）
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:'[\p{L}\p{N}_]+)*`)

// LexicalIndex 词法倒排索引
// 对片段文本做 BM25 排序检索；调用方持有显式实例，没有共享全局状态。
// 写操作（Reindex/Remove）由片段存储的写锁串行化，读操作可并发
type LexicalIndex struct {
	mu sync.RWMutex

	// fragments 片段 ID -> 已索引条目
	fragments map[string]*indexedFragment
	// postings 词元 -> 含该词元的片段 ID 集合
	postings map[string]map[string]struct{}
	// totalTokens 全部片段的词元总数（平均长度归一化用）
	totalTokens int
}

// indexedFragment 已索引的片段条目
type indexedFragment struct {
	documentID string
	position   int
	text       string
	termFreq   map[string]int
	length     int
}

// NewLexicalIndex 创建空索引
func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{
		fragments: make(map[string]*indexedFragment),
		postings:  make(map[string]map[string]struct{}),
	}
}

// Reindex 索引或重索引一个片段
func (idx *LexicalIndex) Reindex(fragmentID, documentID string, position int, text string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.removeLocked(fragmentID)

	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		tf[tok]++
	}

	idx.fragments[fragmentID] = &indexedFragment{
		documentID: documentID,
		position:   position,
		text:       text,
		termFreq:   tf,
		length:     len(tokens),
	}
	idx.totalTokens += len(tokens)

	for term := range tf {
		set := idx.postings[term]
		if set == nil {
			set = make(map[string]struct{})
			idx.postings[term] = set
		}
		set[fragmentID] = struct{}{}
	}
}

// Remove 从索引移除一个片段（未知 ID 是 no-op）
func (idx *LexicalIndex) Remove(fragmentID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeLocked(fragmentID)
}

// RemoveDocument 移除一个文档的全部片段
func (idx *LexicalIndex) RemoveDocument(documentID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	var ids []string
	for id, frag := range idx.fragments {
		if frag.documentID == documentID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		idx.removeLocked(id)
	}
}

// removeLocked 持锁移除片段
func (idx *LexicalIndex) removeLocked(fragmentID string) {
	frag, ok := idx.fragments[fragmentID]
	if !ok {
		return
	}
	for term := range frag.termFreq {
		if set, ok := idx.postings[term]; ok {
			delete(set, fragmentID)
			if len(set) == 0 {
				delete(idx.postings, term)
			}
		}
	}
	idx.totalTokens -= frag.length
	delete(idx.fragments, fragmentID)
}

// Size 当前索引的片段数
func (idx *LexicalIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.fragments)
}

// Search 执行 BM25 检索
// 返回至多 k 条命中，按得分降序，同分按片段位置升序；
// allowedDocs 非 nil 时仅保留其中的文档；空索引或无命中返回空切片
func (idx *LexicalIndex) Search(query string, k int, allowedDocs map[string]struct{}) []domainCorpus.SearchHit {
	if k <= 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.fragments)
	if n == 0 {
		return nil
	}

	queryTerms := Tokenize(query)
	if len(queryTerms) == 0 {
		return nil
	}

	avgLen := float64(idx.totalTokens) / float64(n)
	if avgLen <= 0 {
		avgLen = 1
	}

	// 词元去重，保持首次出现顺序
	seen := make(map[string]struct{}, len(queryTerms))
	scores := make(map[string]float64)
	for _, term := range queryTerms {
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		set, ok := idx.postings[term]
		if !ok {
			continue
		}

		df := float64(len(set))
		// BM25+ 风格的 IDF，恒为正，保证得分非负
		idf := math.Log(1 + (float64(n)-df+0.5)/(df+0.5))

		for fragID := range set {
			frag := idx.fragments[fragID]
			if allowedDocs != nil {
				if _, allowed := allowedDocs[frag.documentID]; !allowed {
					continue
				}
			}
			tf := float64(frag.termFreq[term])
			norm := 1 - bm25B + bm25B*float64(frag.length)/avgLen
			scores[fragID] += idf * tf * (bm25K1 + 1) / (tf + bm25K1*norm)
		}
	}

	if len(scores) == 0 {
		return nil
	}

	type scored struct {
		id    string
		score float64
	}
	candidates := make([]scored, 0, len(scores))
	for id, score := range scores {
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scored{id: id, score: score})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.score != b.score {
			return a.score > b.score
		}
		fa, fb := idx.fragments[a.id], idx.fragments[b.id]
		if fa.position != fb.position {
			return fa.position < fb.position
		}
		// 最终用 ID 定序，保证重复调用结果完全一致
		return a.id < b.id
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}

	hits := make([]domainCorpus.SearchHit, 0, len(candidates))
	for rank, c := range candidates {
		frag := idx.fragments[c.id]
		hits = append(hits, domainCorpus.SearchHit{
			FragmentID: c.id,
			DocumentID: frag.documentID,
			Text:       frag.text,
			Score:      c.score,
			Rank:       rank,
		})
	}
	return hits
}

// Tokenize 文本分词
// 小写化后提取字母/数字串；与索引和查询两侧共用，保证一致性
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
