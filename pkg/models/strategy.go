package models

// StrategyName identifies one of the interchangeable execution strategies.
type StrategyName string

const (
	// StrategyAtomic runs a task as a single unit with no decomposition.
	StrategyAtomic StrategyName = "atomic"
	// StrategySequential runs steps one at a time, stopping on failure.
	StrategySequential StrategyName = "sequential"
	// StrategyParallel runs independent steps concurrently under a bound.
	StrategyParallel StrategyName = "parallel"
	// StrategyRecursive decomposes composite tasks and delegates back to
	// the orchestrator.
	StrategyRecursive StrategyName = "recursive"
)

// Valid returns true if the name is a known strategy.
func (s StrategyName) Valid() bool {
	switch s {
	case StrategyAtomic, StrategySequential, StrategyParallel, StrategyRecursive:
		return true
	default:
		return false
	}
}
