package graph

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"

	"github.com/ShayCichocki/strata/pkg/models"
)

// Resolution is the outcome of one dependency-resolution pass.
type Resolution struct {
	// Success is false when a cycle or grouping failure was detected.
	Success bool
	// Error is the descriptive failure message when Success is false.
	Error string
	// Order is a valid topological execution order over the task IDs.
	Order []string
	// Groups partitions Order into parallel groups.
	Groups [][]string
	// Graph is the built dependency graph.
	Graph *DependencyGraph
}

// Resolve builds a dependency graph from the given sub-tasks, detects
// cycles, and computes the parallel-group execution order. Resolution
// fails on a cycle; dangling dependency references and ID-less tasks are
// warnings, not failures.
func Resolve(tasks []*models.Task) *Resolution {
	g := New()
	if err := g.Build(tasks); err != nil {
		return &Resolution{Success: false, Error: err.Error(), Graph: g}
	}

	if cycle := g.FindCycle(); len(cycle) > 0 {
		return &Resolution{
			Success: false,
			Error:   fmt.Sprintf("circular dependency detected: %s", strings.Join(cycle, " -> ")),
			Graph:   g,
		}
	}

	groups, err := g.ParallelGroups()
	if err != nil {
		return &Resolution{Success: false, Error: err.Error(), Graph: g}
	}

	// The concatenated groups are a topological order: every task's
	// dependencies land in an earlier group.
	var order []string
	for _, group := range groups {
		order = append(order, group...)
	}

	if err := crossCheckOrder(g, order); err != nil {
		return &Resolution{Success: false, Error: err.Error(), Graph: g}
	}

	return &Resolution{Success: true, Order: order, Groups: groups, Graph: g}
}

// crossCheckOrder verifies the computed order against an independent
// topological sort. Catches grouping bugs that would otherwise surface as
// dependency-order violations at execution time.
func crossCheckOrder(g *DependencyGraph, order []string) error {
	var edges []toposort.Edge
	for _, id := range g.IDs() {
		deps := g.GetDependencies(id)
		if len(deps) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, depID := range deps {
			edges = append(edges, toposort.Edge{depID, id})
		}
	}

	sorted, err := toposort.Toposort(edges)
	if err != nil {
		return fmt.Errorf("topological sort failed: %w", err)
	}

	count := 0
	for _, v := range sorted {
		if v != nil {
			count++
		}
	}
	if count != len(order) {
		return fmt.Errorf("execution order covers %d tasks, topological sort found %d", len(order), count)
	}
	return nil
}
