package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"log/slog"

	"github.com/google/uuid"
	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	domain "github.com/ragpro/backend/internal/domain/orchestration"
	domainTrace "github.com/ragpro/backend/internal/domain/trace"
	"github.com/ragpro/backend/internal/infrastructure/config"
	"github.com/ragpro/backend/internal/infrastructure/log"
	"github.com/ragpro/backend/internal/infrastructure/websocket"
)

// Orchestrator 多能力编排器
// 以规划-检索-撰写-批评的循环回答问题：
// 每轮一个检索查询；批评者判定充分即提前结束；
// 迭代预算耗尽时返回尽力而为的非权威答案；
// 累计零命中立即以 no_relevant_documents 短路失败
type Orchestrator struct {
	searcher  Searcher
	planner   Planner
	drafter   Drafter
	critic    Critic
	traceRepo domainTrace.Repository
	hub       *websocket.Hub
	cfg       *config.OrchestratorConfig
	logger    *slog.Logger
}

// NewOrchestrator 创建编排器
func NewOrchestrator(
	searcher Searcher,
	planner Planner,
	drafter Drafter,
	critic Critic,
	traceRepo domainTrace.Repository,
	hub *websocket.Hub,
	cfg *config.OrchestratorConfig,
) *Orchestrator {
	return &Orchestrator{
		searcher:  searcher,
		planner:   planner,
		drafter:   drafter,
		critic:    critic,
		traceRepo: traceRepo,
		hub:       hub,
		cfg:       cfg,
		logger:    log.NewModuleLogger("orchestration", "orchestrator"),
	}
}

// Ask 同步执行一次运行
// 事件日志缓冲足够容纳全部事件，调用方无需消费
func (o *Orchestrator) Ask(ctx context.Context, req domain.Request) *domain.Result {
	runID := uuid.NewString()
	events := domain.NewEventLog(o.eventBuffer(&req))
	return o.execute(ctx, runID, req, events)
}

// Stream 启动一次运行并返回其事件日志
// 运行在独立协程中推进，调用方按序消费事件直到 final
func (o *Orchestrator) Stream(ctx context.Context, req domain.Request) (string, *domain.EventLog) {
	runID := uuid.NewString()
	events := domain.NewEventLog(o.eventBuffer(&req))
	go o.execute(ctx, runID, req, events)
	return runID, events
}

// eventBuffer 计算足以容纳整个运行的事件缓冲
func (o *Orchestrator) eventBuffer(req *domain.Request) int {
	iterations := req.MaxIterations
	if iterations <= 0 {
		iterations = o.cfg.MaxIterations
	}
	// 每轮最多 plan/hits/draft/critique 四个事件，外加一个 final
	return iterations*4 + 2
}

// runState 一次运行的累积状态
type runState struct {
	iterations []domain.Iteration
	sources    map[string]*domain.Source
	snippets   []string
	guidance   string
	bestDraft  string
	totalHits  int
	timedOut   bool
}

// execute 推进状态机直到终态
// 取消只在阶段边界检查；能力超时按"批评不充分"消耗一轮迭代，
// 传输失败立即终止运行
func (o *Orchestrator) execute(ctx context.Context, runID string, req domain.Request, events *domain.EventLog) *domain.Result {
	if req.MaxIterations <= 0 {
		req.MaxIterations = o.cfg.MaxIterations
	}
	req.Normalize()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return o.finish(runID, events, &domain.Result{
			Status:      domain.StatusFailed,
			ErrorKind:   domain.KindInvalidInput,
			ErrorDetail: "question is empty",
		})
	}

	o.logger.Info("Run started",
		"run_id", runID,
		"question", question,
		"max_iterations", req.MaxIterations,
	)
	o.appendTrace(domainTrace.TypeQuery, map[string]any{
		"run_id":         runID,
		"question":       question,
		"max_iterations": req.MaxIterations,
	})

	state := &runState{sources: make(map[string]*domain.Source)}

	for i := 1; i <= req.MaxIterations; i++ {
		lastIteration := i == req.MaxIterations

		if ctx.Err() != nil {
			return o.cancelled(runID, events, state)
		}

		// 规划
		plan, err := o.planner.Plan(ctx, question, state.iterations, state.guidance)
		if err != nil {
			if result := o.capabilityFailure(ctx, runID, events, state, i, lastIteration, "plan", err); result != nil {
				return result
			}
			continue
		}
		o.emit(events, domain.Event{Type: domain.EventPlan, RunID: runID, Iteration: i, Payload: plan})

		if ctx.Err() != nil {
			return o.cancelled(runID, events, state)
		}

		// 检索
		filter := mergeFilters(req.EntityFilter, plan.EntityFilter)
		hits, err := o.searcher.Search(ctx, plan.Query, o.cfg.SearchK, filter)
		if err != nil {
			return o.failed(runID, events, state, fmt.Errorf("search failed: %w", err))
		}
		o.emit(events, domain.Event{Type: domain.EventHits, RunID: runID, Iteration: i, Payload: hits})
		state.totalHits += len(hits)
		o.accumulate(state, hits)

		iteration := domain.Iteration{Index: i, Plan: plan, Hits: hits}

		if state.totalHits == 0 {
			// 至今所有查询零命中：短路失败，不再消耗剩余迭代
			state.iterations = append(state.iterations, iteration)
			return o.finish(runID, events, &domain.Result{
				Status:      domain.StatusFailed,
				ErrorKind:   domain.KindNoRelevantDocuments,
				ErrorDetail: "no fragments matched any query",
				Iterations:  state.iterations,
			})
		}

		if ctx.Err() != nil {
			return o.cancelled(runID, events, state)
		}

		// 撰写
		draft, err := o.drafter.Draft(ctx, question, state.snippets)
		if err != nil {
			if result := o.capabilityFailure(ctx, runID, events, state, i, lastIteration, "draft", err); result != nil {
				return result
			}
			continue
		}
		iteration.Draft = draft
		state.bestDraft = draft
		o.emit(events, domain.Event{Type: domain.EventDraft, RunID: runID, Iteration: i, Payload: draft})

		if ctx.Err() != nil {
			return o.cancelled(runID, events, state)
		}

		// 批评
		critique, err := o.critic.Critique(ctx, question, draft, state.snippets)
		if err != nil {
			if result := o.capabilityFailure(ctx, runID, events, state, i, lastIteration, "critique", err); result != nil {
				return result
			}
			continue
		}
		iteration.Critique = critique
		o.emit(events, domain.Event{Type: domain.EventCritique, RunID: runID, Iteration: i, Payload: critique})
		state.iterations = append(state.iterations, iteration)

		if critique.Sufficient {
			return o.finish(runID, events, &domain.Result{
				Status:     domain.StatusAnswered,
				Answer:     draft,
				Sources:    o.sortedSources(state),
				Iterations: state.iterations,
			})
		}
		state.guidance = critique.Guidance
	}

	return o.exhausted(runID, events, state)
}

// capabilityFailure 处理能力调用错误
// 超时在非最后一轮按不充分批评消耗本轮（返回 nil 表示继续循环）；
// 最后一轮的超时让运行落入耗尽收尾；其余错误立即终止
func (o *Orchestrator) capabilityFailure(ctx context.Context, runID string, events *domain.EventLog, state *runState, index int, lastIteration bool, phase string, err error) *domain.Result {
	if ctx.Err() != nil {
		return o.cancelled(runID, events, state)
	}
	if errors.Is(err, domain.ErrGenerationTimeout) {
		o.logger.Warn("Capability timed out",
			"run_id", runID,
			"iteration", index,
			"phase", phase,
		)
		state.timedOut = true
		if lastIteration {
			return o.exhausted(runID, events, state)
		}
		critique := domain.Critique{
			Sufficient: false,
			Guidance:   fmt.Sprintf("the %s step timed out, keep the query simple", phase),
		}
		o.emit(events, domain.Event{Type: domain.EventCritique, RunID: runID, Iteration: index, Payload: critique})
		state.iterations = append(state.iterations, domain.Iteration{Index: index, Critique: critique})
		state.guidance = critique.Guidance
		return nil
	}
	return o.failed(runID, events, state, err)
}

// exhausted 迭代预算耗尽的收尾
// 有草稿则降级为尽力而为答案；全程零命中报告无相关文档；
// 有命中却始终没写出草稿说明撰写一直超时
func (o *Orchestrator) exhausted(runID string, events *domain.EventLog, state *runState) *domain.Result {
	if state.totalHits == 0 {
		return o.finish(runID, events, &domain.Result{
			Status:      domain.StatusFailed,
			ErrorKind:   domain.KindNoRelevantDocuments,
			ErrorDetail: "no fragments matched any query",
			Iterations:  state.iterations,
		})
	}
	if state.bestDraft == "" {
		kind := domain.KindGenerationUnavailable
		detail := "no draft was produced"
		if state.timedOut {
			kind = domain.KindGenerationTimeout
			detail = "generation timed out before any draft was produced"
		}
		return o.finish(runID, events, &domain.Result{
			Status:      domain.StatusFailed,
			ErrorKind:   kind,
			ErrorDetail: detail,
			Iterations:  state.iterations,
		})
	}
	return o.finish(runID, events, &domain.Result{
		Status:     domain.StatusExhausted,
		Answer:     state.bestDraft,
		Sources:    o.sortedSources(state),
		BestEffort: true,
		Iterations: state.iterations,
	})
}

// cancelled 取消收尾
func (o *Orchestrator) cancelled(runID string, events *domain.EventLog, state *runState) *domain.Result {
	return o.finish(runID, events, &domain.Result{
		Status:      domain.StatusCancelled,
		ErrorKind:   domain.KindCancelled,
		ErrorDetail: domain.ErrCancelled.Error(),
		Iterations:  state.iterations,
	})
}

// failed 类型化失败收尾
func (o *Orchestrator) failed(runID string, events *domain.EventLog, state *runState, err error) *domain.Result {
	return o.finish(runID, events, &domain.Result{
		Status:      domain.StatusFailed,
		ErrorKind:   domain.KindOf(err),
		ErrorDetail: err.Error(),
		Iterations:  state.iterations,
	})
}

// finish 写终态事件与追踪并返回结果
func (o *Orchestrator) finish(runID string, events *domain.EventLog, result *domain.Result) *domain.Result {
	o.emit(events, domain.Event{Type: domain.EventFinal, RunID: runID, Payload: result})

	o.logger.Info("Run finished",
		"run_id", runID,
		"status", string(result.Status),
		"iterations", len(result.Iterations),
		"error_kind", string(result.ErrorKind),
	)
	o.appendTrace(domainTrace.TypeResult, map[string]any{
		"run_id":     runID,
		"status":     string(result.Status),
		"iterations": len(result.Iterations),
		"error_kind": string(result.ErrorKind),
	})
	return result
}

// accumulate 将新命中并入累积语料
// 片段按 ID 去重；重复命中保留最高得分
func (o *Orchestrator) accumulate(state *runState, hits []domainCorpus.SearchHit) {
	for _, hit := range hits {
		if existing, ok := state.sources[hit.FragmentID]; ok {
			if hit.Score > existing.Score {
				existing.Score = hit.Score
			}
			continue
		}
		state.sources[hit.FragmentID] = &domain.Source{
			FragmentID: hit.FragmentID,
			DocumentID: hit.DocumentID,
			Text:       hit.Text,
			Score:      hit.Score,
		}
		state.snippets = append(state.snippets, clampRunes(hit.Text, o.cfg.SnippetLen))
	}
}

// sortedSources 去重后的来源按得分降序
func (o *Orchestrator) sortedSources(state *runState) []domain.Source {
	out := make([]domain.Source, 0, len(state.sources))
	for _, src := range state.sources {
		out = append(out, *src)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].FragmentID < out[b].FragmentID
	})
	return out
}

// emit 追加事件并向运行主题广播
func (o *Orchestrator) emit(events *domain.EventLog, ev domain.Event) {
	events.Append(ev)
	if o.hub != nil {
		_ = o.hub.Broadcast(websocket.TopicRuns, ev)
	}
}

// appendTrace 追加追踪记录（失败只记日志）
func (o *Orchestrator) appendTrace(t domainTrace.Type, payload map[string]any) {
	if o.traceRepo == nil {
		return
	}
	if err := o.traceRepo.Append(t, payload); err != nil {
		o.logger.Warn("Failed to append trace", "type", string(t), "error", err)
	}
}

// mergeFilters 合并请求级与规划产出的实体过滤词（去重，保序）
func mergeFilters(requestFilter, planFilter []string) []string {
	if len(requestFilter) == 0 && len(planFilter) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for _, v := range append(append([]string{}, requestFilter...), planFilter...) {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// clampRunes 按 rune 截断文本
func clampRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
