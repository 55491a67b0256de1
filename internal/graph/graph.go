// Package graph provides the dependency graph builder and parallel-group
// resolver for composite tasks.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ShayCichocki/strata/pkg/models"
)

// ErrCycleDetected indicates a circular dependency was found in the task graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node wraps one sub-task in the graph. Nodes are owned by the graph for
// the lifetime of one resolution pass and never shared across tasks.
type Node struct {
	// Task is the wrapped sub-task.
	Task *models.Task
	// Dependencies are the IDs of resolvable forward edges.
	Dependencies []string
	// Dependents are the IDs of tasks that depend on this one.
	Dependents []string
	// DeclaredDeps is the verbatim declared-dependency count, including
	// dangling references. Complexity scoring uses this, edge traversal
	// uses Dependencies.
	DeclaredDeps int
}

// DependencyGraph represents a directed graph of task dependencies.
// Tasks are nodes, and edges represent "blocked by" relationships.
type DependencyGraph struct {
	mu sync.RWMutex
	// nodes maps task ID to its node.
	nodes map[string]*Node
	// order preserves task insertion order for deterministic output.
	order []string
	// completed tracks which tasks have been marked complete.
	completed map[string]bool
	// skipped counts tasks dropped for lacking an ID.
	skipped int
	// missing counts declared dependencies that referenced no known task.
	missing int
	// debugLog is an optional logging function.
	debugLog func(format string, args ...interface{})
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		nodes:     make(map[string]*Node),
		completed: make(map[string]bool),
		debugLog:  func(format string, args ...interface{}) {},
	}
}

// SetDebugLog sets the debug logging function.
func (g *DependencyGraph) SetDebugLog(fn func(format string, args ...interface{})) {
	if fn != nil {
		g.debugLog = fn
	}
}

// Build constructs the dependency graph from a slice of tasks.
// Tasks without an ID are skipped with a warning, not an error. Declared
// dependencies that reference no task in the same slice are dropped from
// the edge set but still counted in the node's DeclaredDeps.
func (g *DependencyGraph) Build(tasks []*models.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.debugLog("[graph.Build] building graph from %d tasks", len(tasks))

	// First pass: register all tasks with IDs as nodes.
	for _, task := range tasks {
		if task.ID == "" {
			g.skipped++
			g.debugLog("[graph.Build] WARNING: skipping task without ID (title=%q)", task.Description)
			continue
		}
		if _, exists := g.nodes[task.ID]; exists {
			return fmt.Errorf("duplicate task ID %q", task.ID)
		}
		g.nodes[task.ID] = &Node{Task: task}
		g.order = append(g.order, task.ID)
	}

	// Second pass: build edges from declared dependencies.
	for _, id := range g.order {
		node := g.nodes[id]
		node.DeclaredDeps = len(node.Task.Dependencies)
		for _, dep := range node.Task.Dependencies {
			target, exists := g.nodes[dep.ID]
			if !exists {
				g.missing++
				g.debugLog("[graph.Build] WARNING: task %s depends on unknown task %s", id, dep.ID)
				continue
			}
			node.Dependencies = append(node.Dependencies, dep.ID)
			target.Dependents = append(target.Dependents, id)
		}
	}

	g.debugLog("[graph.Build] graph built with %d nodes, %d skipped, %d missing deps",
		len(g.nodes), g.skipped, g.missing)
	return nil
}

// HasCycle returns true if the graph contains a circular dependency.
// Uses depth-first search with coloring to detect back edges. A task
// listing itself as a dependency is a cycle.
func (g *DependencyGraph) HasCycle() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.hasCycleLocked()
}

func (g *DependencyGraph) hasCycleLocked() bool {
	return len(g.findCycleLocked()) > 0
}

// FindCycle returns the IDs forming one detected cycle, in order, or nil
// if the graph is acyclic. Used by the recovery engine to report which
// edge to break.
func (g *DependencyGraph) FindCycle() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.findCycleLocked()
}

func (g *DependencyGraph) findCycleLocked() []string {
	// Color states: 0 = white (unvisited), 1 = gray (on stack), 2 = black (done).
	colors := make(map[string]int, len(g.nodes))
	var stack []string
	var cycle []string

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		stack = append(stack, id)

		for _, depID := range g.nodes[id].Dependencies {
			switch colors[depID] {
			case 1:
				// Back edge: everything from depID on the stack is the cycle.
				for i, sid := range stack {
					if sid == depID {
						cycle = append([]string(nil), stack[i:]...)
						break
					}
				}
				return true
			case 0:
				if visit(depID) {
					return true
				}
			}
		}

		colors[id] = 2
		stack = stack[:len(stack)-1]
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 {
			if visit(id) {
				return cycle
			}
		}
	}
	return nil
}

// ParallelGroups partitions the graph into groups of tasks whose
// dependencies are all satisfied by earlier groups. Group membership is
// deterministic: tasks appear in insertion order within each group.
// Returns an error if remaining tasks can make no progress, which only
// happens when a cycle detection pass was skipped.
func (g *DependencyGraph) ParallelGroups() ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	grouped := make(map[string]bool, len(g.nodes))
	var groups [][]string

	for len(grouped) < len(g.nodes) {
		var group []string
		for _, id := range g.order {
			if grouped[id] {
				continue
			}
			ready := true
			for _, depID := range g.nodes[id].Dependencies {
				if !grouped[depID] {
					ready = false
					break
				}
			}
			if ready {
				group = append(group, id)
			}
		}

		if len(group) == 0 {
			remaining := len(g.nodes) - len(grouped)
			return nil, fmt.Errorf("no progress grouping %d remaining tasks: %w", remaining, ErrCycleDetected)
		}

		for _, id := range group {
			grouped[id] = true
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// GetReady returns task IDs whose dependencies are all complete and that
// are not themselves complete. These tasks can execute in parallel.
func (g *DependencyGraph) GetReady() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		if g.completed[id] {
			continue
		}
		allDepsComplete := true
		for _, depID := range g.nodes[id].Dependencies {
			if !g.completed[depID] {
				allDepsComplete = false
				break
			}
		}
		if allDepsComplete {
			ready = append(ready, id)
		}
	}
	return ready
}

// MarkComplete marks a task as completed in the graph.
// This affects subsequent calls to GetReady.
func (g *DependencyGraph) MarkComplete(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[taskID] = true
}

// GetTask returns the task for a given ID, or nil if not found.
func (g *DependencyGraph) GetTask(taskID string) *models.Task {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if node, ok := g.nodes[taskID]; ok {
		return node.Task
	}
	return nil
}

// Size returns the number of tasks in the graph.
func (g *DependencyGraph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// SkippedCount returns the number of tasks dropped for lacking an ID.
func (g *DependencyGraph) SkippedCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.skipped
}

// MissingDependencyCount returns the number of declared dependencies that
// referenced no known task.
func (g *DependencyGraph) MissingDependencyCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.missing
}

// GetDependencies returns the IDs of resolvable dependencies of a task.
func (g *DependencyGraph) GetDependencies(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if node, ok := g.nodes[taskID]; ok {
		return node.Dependencies
	}
	return nil
}

// GetDependents returns the IDs of tasks that depend on the given task.
func (g *DependencyGraph) GetDependents(taskID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if node, ok := g.nodes[taskID]; ok {
		return node.Dependents
	}
	return nil
}

// RootCount returns the number of tasks with zero resolvable dependencies.
func (g *DependencyGraph) RootCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, node := range g.nodes {
		if len(node.Dependencies) == 0 {
			count++
		}
	}
	return count
}

// IDs returns all task IDs in insertion order.
func (g *DependencyGraph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}
