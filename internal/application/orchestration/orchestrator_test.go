package orchestration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainCorpus "github.com/ragpro/backend/internal/domain/corpus"
	domain "github.com/ragpro/backend/internal/domain/orchestration"
	"github.com/ragpro/backend/internal/infrastructure/config"
)

// fakeSearcher 脚本化检索：按查询词返回预置命中
type fakeSearcher struct {
	byQuery map[string][]domainCorpus.SearchHit
	calls   []string
}

func (s *fakeSearcher) Search(ctx context.Context, query string, k int, entityFilter []string) ([]domainCorpus.SearchHit, error) {
	s.calls = append(s.calls, query)
	return s.byQuery[query], nil
}

// fakePlanner 按轮次返回预置规划
type fakePlanner struct {
	plans []domain.Plan
	errs  []error
	calls int
}

func (p *fakePlanner) Plan(ctx context.Context, question string, history []domain.Iteration, guidance string) (domain.Plan, error) {
	i := p.calls
	p.calls++
	if i < len(p.errs) && p.errs[i] != nil {
		return domain.Plan{}, p.errs[i]
	}
	if i < len(p.plans) {
		return p.plans[i], nil
	}
	return domain.Plan{Query: question}, nil
}

// fakeDrafter 按轮次返回预置草稿
type fakeDrafter struct {
	drafts []string
	errs   []error
	calls  int
}

func (d *fakeDrafter) Draft(ctx context.Context, question string, snippets []string) (string, error) {
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return "", d.errs[i]
	}
	if i < len(d.drafts) {
		return d.drafts[i], nil
	}
	return "draft " + fmt.Sprint(i+1), nil
}

// fakeCritic 按轮次返回预置批评结论
type fakeCritic struct {
	critiques []domain.Critique
	errs      []error
	calls     int
}

func (c *fakeCritic) Critique(ctx context.Context, question, draft string, snippets []string) (domain.Critique, error) {
	i := c.calls
	c.calls++
	if i < len(c.errs) && c.errs[i] != nil {
		return domain.Critique{}, c.errs[i]
	}
	if i < len(c.critiques) {
		return c.critiques[i], nil
	}
	return domain.Critique{Sufficient: true}, nil
}

func testConfig() *config.OrchestratorConfig {
	return &config.OrchestratorConfig{MaxIterations: 5, SearchK: 5, SnippetLen: 1200}
}

func newOrchestrator(searcher Searcher, planner Planner, drafter Drafter, critic Critic) *Orchestrator {
	return NewOrchestrator(searcher, planner, drafter, critic, nil, nil, testConfig())
}

var acmeHits = []domainCorpus.SearchHit{
	{FragmentID: "f1", DocumentID: "doc1", Text: "Acme Corp signed a contract in Berlin.", Score: 2.4, Rank: 0},
	{FragmentID: "f2", DocumentID: "doc1", Text: "The contract is worth two million dollars.", Score: 1.1, Rank: 1},
}

func TestOrchestrator_AnsweredOnFirstIteration(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"acme berlin": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "acme berlin"}}}
	drafter := &fakeDrafter{drafts: []string{"Acme Corp signed it in Berlin."}}
	critic := &fakeCritic{critiques: []domain.Critique{{Sufficient: true}}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Where did Acme sign?"})

	assert.Equal(t, domain.StatusAnswered, result.Status, "批评充分应以 answered 结束")
	assert.Equal(t, "Acme Corp signed it in Berlin.", result.Answer)
	assert.False(t, result.BestEffort, "正常结束的答案不应标记尽力而为")
	require.Len(t, result.Iterations, 1, "提前结束不应继续迭代")
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "f1", result.Sources[0].FragmentID, "来源应按得分降序")
	assert.Greater(t, result.Sources[0].Score, result.Sources[1].Score)
}

func TestOrchestrator_ExhaustedReturnsBestEffort(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}, {Query: "q"}, {Query: "q"}}}
	drafter := &fakeDrafter{drafts: []string{"draft one", "draft two", "draft three"}}
	critic := &fakeCritic{critiques: []domain.Critique{
		{Sufficient: false, Guidance: "more detail"},
		{Sufficient: false, Guidance: "still more"},
		{Sufficient: false, Guidance: "not enough"},
	}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 3})

	assert.Equal(t, domain.StatusExhausted, result.Status, "预算耗尽应以 exhausted 结束")
	assert.True(t, result.BestEffort, "耗尽时的答案必须标记为尽力而为")
	assert.Equal(t, "draft three", result.Answer, "应返回最后一轮草稿")
	assert.Len(t, result.Iterations, 3, "迭代数不得超过上限")
	assert.NotEmpty(t, result.Sources)
}

func TestOrchestrator_EmptyCorpusFailsNoRelevantDocuments(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{}}
	planner := &fakePlanner{}
	drafter := &fakeDrafter{}
	o := newOrchestrator(searcher, planner, drafter, &fakeCritic{})

	result := o.Ask(context.Background(), domain.Request{Question: "Anything?", MaxIterations: 5})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindNoRelevantDocuments, result.ErrorKind, "全程零命中应报告无相关文档")
	assert.Empty(t, result.Answer, "失败结果不应携带答案")
	assert.Equal(t, 1, planner.calls, "零命中应短路失败而非继续规划")
	assert.Len(t, searcher.calls, 1, "短路后不应再检索")
	assert.Equal(t, 0, drafter.calls, "零命中不应调用撰写")
	assert.Len(t, result.Iterations, 1, "剩余迭代预算不应被消耗")
}

func TestOrchestrator_LaterZeroHitIterationKeepsContext(t *testing.T) {
	// 首轮有命中后，后续零命中轮仍基于累积语料撰写，不触发短路
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"first try": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "first try"}, {Query: "second try"}}}
	drafter := &fakeDrafter{drafts: []string{"draft one", "answer from round two"}}
	critic := &fakeCritic{critiques: []domain.Critique{
		{Sufficient: false, Guidance: "more detail"},
		{Sufficient: true},
	}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 3})

	assert.Equal(t, domain.StatusAnswered, result.Status, "历史有命中时零命中轮不应短路")
	assert.Equal(t, 2, drafter.calls, "零命中轮仍应基于累积语料撰写")
	require.Len(t, result.Iterations, 2)
	assert.Equal(t, "answer from round two", result.Answer)
	assert.Len(t, result.Sources, 2, "来源应保留首轮命中")
}

func TestOrchestrator_TimeoutConsumesIteration(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}, {Query: "q"}}}
	drafter := &fakeDrafter{
		errs:   []error{domain.ErrGenerationTimeout, nil},
		drafts: []string{"", "recovered answer"},
	}
	critic := &fakeCritic{critiques: []domain.Critique{{Sufficient: true}}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 3})

	assert.Equal(t, domain.StatusAnswered, result.Status, "非最后一轮的超时应被下一轮吸收")
	assert.Equal(t, "recovered answer", result.Answer)
	require.Len(t, result.Iterations, 2)
	assert.False(t, result.Iterations[0].Critique.Sufficient, "超时轮应记录为不充分")
}

func TestOrchestrator_TimeoutOnLastIterationExhausts(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}, {Query: "q"}}}
	drafter := &fakeDrafter{
		drafts: []string{"partial answer"},
		errs:   []error{nil, domain.ErrGenerationTimeout},
	}
	critic := &fakeCritic{critiques: []domain.Critique{{Sufficient: false, Guidance: "dig deeper"}}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 2})

	assert.Equal(t, domain.StatusExhausted, result.Status, "最后一轮超时应直接落入耗尽收尾")
	assert.True(t, result.BestEffort)
	assert.Equal(t, "partial answer", result.Answer, "应返回此前最好的草稿")
}

func TestOrchestrator_AllDraftsTimedOutFailsTimeout(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}, {Query: "q"}}}
	drafter := &fakeDrafter{errs: []error{domain.ErrGenerationTimeout, domain.ErrGenerationTimeout}}
	o := newOrchestrator(searcher, planner, drafter, &fakeCritic{})

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 2})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindGenerationTimeout, result.ErrorKind, "有命中但草稿始终超时应报告超时")
}

func TestOrchestrator_TransportFailureFailsImmediately(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}}}
	drafter := &fakeDrafter{errs: []error{domain.ErrGenerationUnavailable}}
	o := newOrchestrator(searcher, planner, drafter, &fakeCritic{})

	result := o.Ask(context.Background(), domain.Request{Question: "Question?", MaxIterations: 5})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindGenerationUnavailable, result.ErrorKind, "传输失败应立即终止")
	assert.Equal(t, 1, planner.calls, "失败后不应再开始新迭代")
}

func TestOrchestrator_EmptyQuestionRejected(t *testing.T) {
	o := newOrchestrator(&fakeSearcher{}, &fakePlanner{}, &fakeDrafter{}, &fakeCritic{})

	result := o.Ask(context.Background(), domain.Request{Question: "   "})

	assert.Equal(t, domain.StatusFailed, result.Status)
	assert.Equal(t, domain.KindInvalidInput, result.ErrorKind, "空问题应在任何工作开始前被拒绝")
}

func TestOrchestrator_CancellationAtPhaseBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}}}
	// 撰写完成后取消，批评阶段不应再开始
	drafter := &fakeDrafter{drafts: []string{"draft"}}
	critic := &fakeCritic{}
	o := newOrchestrator(searcher, planner, &cancellingDrafter{inner: drafter, cancel: cancel}, critic)

	result := o.Ask(ctx, domain.Request{Question: "Question?"})

	assert.Equal(t, domain.StatusCancelled, result.Status, "取消应在阶段边界生效")
	assert.Equal(t, domain.KindCancelled, result.ErrorKind)
	assert.Equal(t, 0, critic.calls, "取消后不应再调用后续能力")
}

// cancellingDrafter 撰写成功后立即取消上下文
type cancellingDrafter struct {
	inner  *fakeDrafter
	cancel context.CancelFunc
}

func (d *cancellingDrafter) Draft(ctx context.Context, question string, snippets []string) (string, error) {
	draft, err := d.inner.Draft(ctx, question, snippets)
	d.cancel()
	return draft, err
}

func TestOrchestrator_EventLogOrderAndFinal(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{"q": acmeHits}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q"}}}
	drafter := &fakeDrafter{drafts: []string{"answer"}}
	critic := &fakeCritic{critiques: []domain.Critique{{Sufficient: true}}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	runID, events := o.Stream(context.Background(), domain.Request{Question: "Question?"})

	var types []domain.EventType
	var finals int
	for ev := range events.Events() {
		assert.Equal(t, runID, ev.RunID, "事件应携带运行 ID")
		types = append(types, ev.Type)
		if ev.Type == domain.EventFinal {
			finals++
		}
	}

	assert.Equal(t, []domain.EventType{
		domain.EventPlan, domain.EventHits, domain.EventDraft, domain.EventCritique, domain.EventFinal,
	}, types, "事件应按阶段顺序追加")
	assert.Equal(t, 1, finals, "终态事件应恰好一个且在最后")
}

func TestOrchestrator_SourcesDeduplicatedAcrossIterations(t *testing.T) {
	searcher := &fakeSearcher{byQuery: map[string][]domainCorpus.SearchHit{
		"q1": acmeHits,
		"q2": {acmeHits[0], {FragmentID: "f3", DocumentID: "doc2", Text: "Another passage.", Score: 0.5}},
	}}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q1"}, {Query: "q2"}}}
	drafter := &fakeDrafter{drafts: []string{"one", "two"}}
	critic := &fakeCritic{critiques: []domain.Critique{
		{Sufficient: false, Guidance: "more"},
		{Sufficient: true},
	}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{Question: "Question?"})

	require.Equal(t, domain.StatusAnswered, result.Status)
	require.Len(t, result.Sources, 3, "跨迭代重复命中的片段应去重")
	assert.Equal(t, "f1", result.Sources[0].FragmentID)
	for i := 1; i < len(result.Sources); i++ {
		assert.GreaterOrEqual(t, result.Sources[i-1].Score, result.Sources[i].Score, "来源应按得分降序")
	}
}

func TestOrchestrator_RequestEntityFilterMergedIntoEveryQuery(t *testing.T) {
	var captured [][]string
	searcher := &capturingSearcher{hits: acmeHits, captured: &captured}
	planner := &fakePlanner{plans: []domain.Plan{{Query: "q", EntityFilter: []string{"Berlin"}}}}
	drafter := &fakeDrafter{drafts: []string{"answer"}}
	critic := &fakeCritic{critiques: []domain.Critique{{Sufficient: true}}}
	o := newOrchestrator(searcher, planner, drafter, critic)

	result := o.Ask(context.Background(), domain.Request{
		Question:     "Question?",
		EntityFilter: []string{"Acme Corp", "berlin"},
	})

	require.Equal(t, domain.StatusAnswered, result.Status)
	require.Len(t, captured, 1)
	assert.Equal(t, []string{"Acme Corp", "berlin"}, captured[0], "请求级过滤词应合并规划过滤词并去重")
}

// capturingSearcher 记录每次检索的过滤词
type capturingSearcher struct {
	hits     []domainCorpus.SearchHit
	captured *[][]string
}

func (s *capturingSearcher) Search(ctx context.Context, query string, k int, entityFilter []string) ([]domainCorpus.SearchHit, error) {
	*s.captured = append(*s.captured, entityFilter)
	return s.hits, nil
}
