package extraction

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"log/slog"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	domainTrace "github.com/ragpro/backend/internal/domain/trace"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// DefaultTaskPrompt 默认提取指令
// 要求严格取自原文的命名实体，不允许改写
const DefaultTaskPrompt = "Extract named entities (person, organization, location, date, money) from the text. " +
	"Use the exact source text for each value, do not paraphrase."

// systemPrompt 提取系统提示词
// 输出约束为纯 JSON 数组，便于机器解析
const systemPrompt = `You are a named entity extraction engine.
Follow the task instruction and return ONLY a JSON array, no other text:
[{"type": "person|organization|location|date|money|other", "value": "<exact text span>"}]
Return [] when nothing matches.`

// Generator 文本理解能力（黑盒：给定指令和文本返回类型化片段）
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Extractor 实体提取器
// 调用外部文本理解能力识别类型化实体提及，
// 按 (document_id, hash(task_prompt)) 缓存，命中时不再调用外部能力
type Extractor struct {
	generator  Generator
	entityRepo domainCorpus.EntityRepository
	docRepo    domainCorpus.DocumentRepository
	traceRepo  domainTrace.Repository
	logger     *slog.Logger
}

// NewExtractor 创建实体提取器
func NewExtractor(
	generator Generator,
	entityRepo domainCorpus.EntityRepository,
	docRepo domainCorpus.DocumentRepository,
	traceRepo domainTrace.Repository,
) *Extractor {
	return &Extractor{
		generator:  generator,
		entityRepo: entityRepo,
		docRepo:    docRepo,
		traceRepo:  traceRepo,
		logger:     log.NewModuleLogger("extraction", "extractor"),
	}
}

// rawMention 外部能力返回的原始条目
type rawMention struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Extract 提取文档实体
// taskPrompt 为空时使用默认指令；缓存命中立即返回；
// 外部能力出错或返回无法解析的结果映射为 ErrExtractionFailed
func (e *Extractor) Extract(ctx context.Context, documentID, text, taskPrompt string) ([]*domainCorpus.EntityMention, error) {
	if taskPrompt == "" {
		taskPrompt = DefaultTaskPrompt
	}
	promptHash := HashPrompt(taskPrompt)

	cached, hit, err := e.entityRepo.GetMentions(documentID, promptHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read entity cache: %w", err)
	}
	if hit {
		e.logger.Debug("Entity cache hit",
			"document_id", documentID,
			"prompt_hash", promptHash,
			"mentions", len(cached),
		)
		return cached, nil
	}

	user := fmt.Sprintf("Task: %s\n\nText:\n%s", taskPrompt, text)
	content, err := e.generator.Complete(ctx, systemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainCorpus.ErrExtractionFailed, err)
	}

	raw, err := parseMentions(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainCorpus.ErrExtractionFailed, err)
	}

	mentions := e.toMentions(documentID, raw)

	if err := e.entityRepo.SaveMentions(documentID, promptHash, mentions); err != nil {
		return nil, fmt.Errorf("failed to cache mentions: %w", err)
	}

	e.logger.Info("Entities extracted",
		"document_id", documentID,
		"mentions", len(mentions),
	)
	e.appendTrace(documentID, len(mentions))

	return mentions, nil
}

// toMentions 将原始条目转换为领域实体提及并定位来源片段
func (e *Extractor) toMentions(documentID string, raw []rawMention) []*domainCorpus.EntityMention {
	fragments, err := e.docRepo.ListFragments(documentID)
	if err != nil {
		// 来源片段定位失败不致命，提及仍然有效
		e.logger.Warn("Failed to load fragments for source attribution",
			"document_id", documentID,
			"error", err,
		)
		fragments = nil
	}

	mentions := make([]*domainCorpus.EntityMention, 0, len(raw))
	for _, r := range raw {
		value := strings.TrimSpace(r.Value)
		if value == "" {
			continue
		}
		m := &domainCorpus.EntityMention{
			DocumentID: documentID,
			Type:       domainCorpus.ParseEntityType(strings.ToLower(strings.TrimSpace(r.Type))),
			Value:      value,
		}
		for _, frag := range fragments {
			if strings.Contains(strings.ToLower(frag.Text), strings.ToLower(value)) {
				m.SourceFragmentID = frag.ID
				break
			}
		}
		mentions = append(mentions, m)
	}
	return mentions
}

// parseMentions 解析外部能力返回的 JSON
// 容忍 markdown 代码围栏包裹
func parseMentions(content string) ([]rawMention, error) {
	cleaned := stripFences(content)

	var raw []rawMention
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("unparsable extraction result: %v", err)
	}
	return raw, nil
}

// stripFences 去除 markdown 代码围栏
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// HashPrompt 计算提取指令的缓存键
func HashPrompt(taskPrompt string) string {
	sum := sha256.Sum256([]byte(taskPrompt))
	return hex.EncodeToString(sum[:8])
}

// appendTrace 追加提取追踪记录
func (e *Extractor) appendTrace(documentID string, mentions int) {
	if e.traceRepo == nil {
		return
	}
	if err := e.traceRepo.Append(domainTrace.TypeExtract, map[string]any{
		"document_id": documentID,
		"mentions":    mentions,
	}); err != nil {
		e.logger.Warn("Failed to append trace", "error", err)
	}
}
