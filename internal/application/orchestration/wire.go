package orchestration

import "github.com/google/wire"

// ProviderSet 编排应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewLLMPlanner,
	NewLLMDrafter,
	NewLLMCritic,
	NewOrchestrator,
	wire.Bind(new(Planner), new(*LLMPlanner)),
	wire.Bind(new(Drafter), new(*LLMDrafter)),
	wire.Bind(new(Critic), new(*LLMCritic)),
)
