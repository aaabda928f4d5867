package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"log/slog"

	domain "github.com/ragpro/backend/internal/domain/orchestration"
	"github.com/ragpro/backend/internal/infrastructure/log"
)

// Generator 文本生成能力（黑盒）
// 由 infrastructure/llm.Client 提供；传输错误与超时已映射为类型化错误
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// plannerSystemPrompt 规划者系统提示词
const plannerSystemPrompt = `You are a retrieval planner for a document corpus.
Given a question and feedback from earlier attempts, produce the next search.
Return ONLY a JSON object, no other text:
{"query": "<search keywords>", "entity_filter": ["<optional entity values>"], "rationale": "<one sentence>"}
The query must be non-empty. Use entity_filter only when the question names specific entities.
Never repeat a query that already failed.`

// writerSystemPrompt 撰写者系统提示词
const writerSystemPrompt = `You are a precise writer. Answer the question using ONLY the provided context passages.
Do not use outside knowledge. If the context is insufficient, state plainly what is missing.
Answer in the language of the question.`

// criticSystemPrompt 批评者系统提示词
const criticSystemPrompt = `You are a strict reviewer. Judge whether the draft fully answers the question
using only the provided context. Return ONLY a JSON object, no other text:
{"sufficient": true|false, "guidance": "<when insufficient: what to search for next>"}`

// LLMPlanner 基于文本生成能力的规划者
// 生成结果无法解析时退化为用原始问题作为查询，保证规划阶段永不因格式问题卡死
type LLMPlanner struct {
	generator Generator
	logger    *slog.Logger
}

// NewLLMPlanner 创建规划者
func NewLLMPlanner(generator Generator) *LLMPlanner {
	return &LLMPlanner{
		generator: generator,
		logger:    log.NewModuleLogger("orchestration", "planner"),
	}
}

// Plan 产出下一轮检索规划
func (p *LLMPlanner) Plan(ctx context.Context, question string, history []domain.Iteration, guidance string) (domain.Plan, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n", question)
	if len(history) > 0 {
		sb.WriteString("\nEarlier attempts:\n")
		for _, it := range history {
			fmt.Fprintf(&sb, "- attempt %d: query=%q hits=%d sufficient=%v\n",
				it.Index, it.Plan.Query, len(it.Hits), it.Critique.Sufficient)
		}
	}
	if guidance != "" {
		fmt.Fprintf(&sb, "\nReviewer guidance: %s\n", guidance)
	}

	content, err := p.generator.Complete(ctx, plannerSystemPrompt, sb.String())
	if err != nil {
		return domain.Plan{}, err
	}

	var plan domain.Plan
	if err := json.Unmarshal([]byte(stripFences(content)), &plan); err != nil || strings.TrimSpace(plan.Query) == "" {
		// 解析失败退化为原始问题
		p.logger.Warn("Unparsable plan, falling back to raw question", "content", content)
		return domain.Plan{Query: question, Rationale: "fallback: raw question"}, nil
	}
	plan.Query = strings.TrimSpace(plan.Query)
	return plan, nil
}

// LLMDrafter 基于文本生成能力的撰写者
type LLMDrafter struct {
	generator Generator
	logger    *slog.Logger
}

// NewLLMDrafter 创建撰写者
func NewLLMDrafter(generator Generator) *LLMDrafter {
	return &LLMDrafter{
		generator: generator,
		logger:    log.NewModuleLogger("orchestration", "drafter"),
	}
}

// Draft 基于累积语料撰写草稿
func (d *LLMDrafter) Draft(ctx context.Context, question string, snippets []string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Context passages:\n")
	for i, snippet := range snippets {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, snippet)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	draft, err := d.generator.Complete(ctx, writerSystemPrompt, sb.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(draft), nil
}

// LLMCritic 基于文本生成能力的批评者
// 结论无法解析时判为不充分并要求重试，宁可多迭代一轮也不放过坏答案
type LLMCritic struct {
	generator Generator
	logger    *slog.Logger
}

// NewLLMCritic 创建批评者
func NewLLMCritic(generator Generator) *LLMCritic {
	return &LLMCritic{
		generator: generator,
		logger:    log.NewModuleLogger("orchestration", "critic"),
	}
}

// Critique 评审草稿
func (c *LLMCritic) Critique(ctx context.Context, question, draft string, snippets []string) (domain.Critique, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question: %s\n\nDraft answer:\n%s\n\nContext passages:\n", question, draft)
	for i, snippet := range snippets {
		fmt.Fprintf(&sb, "[%d] %s\n\n", i+1, snippet)
	}

	content, err := c.generator.Complete(ctx, criticSystemPrompt, sb.String())
	if err != nil {
		return domain.Critique{}, err
	}

	var critique domain.Critique
	if err := json.Unmarshal([]byte(stripFences(content)), &critique); err != nil {
		c.logger.Warn("Unparsable critique, treating as insufficient", "content", content)
		return domain.Critique{Sufficient: false, Guidance: "reviewer output was unusable, retry with a broader query"}, nil
	}
	return critique, nil
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
