// Package tool defines the executor contract for the opaque units of work
// tasks invoke, and a registry to look them up by name.
package tool

import (
	"context"
	"sync"

	"github.com/ShayCichocki/strata/internal/faults"
)

// Result is the outcome of one tool invocation.
type Result struct {
	// Success indicates whether the invocation succeeded.
	Success bool
	// Output is the payload produced on success.
	Output interface{}
	// Error is the failure message on an unsuccessful invocation.
	Error string
}

// Tool executes one named unit of work with a parameter bag.
type Tool interface {
	// Name returns the registry name of the tool.
	Name() string
	// Execute runs the tool. A non-nil error indicates an infrastructure
	// failure; tool-level failures are carried in Result.
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	// ToolName is the registry name.
	ToolName string
	// Fn is the invoked function.
	Fn func(ctx context.Context, params map[string]interface{}) (*Result, error)
}

// Name returns the registry name of the adapted function.
func (f Func) Name() string { return f.ToolName }

// Execute invokes the adapted function.
func (f Func) Execute(ctx context.Context, params map[string]interface{}) (*Result, error) {
	return f.Fn(ctx, params)
}

// Registry is a named collection of tools. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool under its own name, replacing any previous entry.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name. A missing tool is a
// strategy-execution fault classified as tool_missing, never a crash.
func (r *Registry) Lookup(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, faults.New(faults.KindStrategyExecution, "", "no tool registered with name %q", name)
	}
	return t, nil
}

// Names returns the registered tool names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}
