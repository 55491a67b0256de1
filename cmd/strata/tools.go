package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ShayCichocki/strata/internal/tool"
)

// builtinTools returns the demo tool set registered for CLI runs.
func builtinTools() *tool.Registry {
	reg := tool.NewRegistry()
	reg.Register(tool.Func{ToolName: "calc", Fn: calc})
	reg.Register(tool.Func{ToolName: "echo", Fn: echo})
	reg.Register(tool.Func{ToolName: "sleep", Fn: sleep})
	return reg
}

// calc performs basic arithmetic: params op ("add", "sub", "mul", "div"),
// a, and b.
func calc(ctx context.Context, params map[string]interface{}) (*tool.Result, error) {
	a, aok := toFloat(params["a"])
	b, bok := toFloat(params["b"])
	if !aok || !bok {
		return &tool.Result{Error: "calc requires numeric params a and b"}, nil
	}

	op, _ := params["op"].(string)
	if op == "" {
		op = "add"
	}

	var out float64
	switch op {
	case "add":
		out = a + b
	case "sub":
		out = a - b
	case "mul":
		out = a * b
	case "div":
		if b == 0 {
			return &tool.Result{Error: "division by zero"}, nil
		}
		out = a / b
	default:
		return &tool.Result{Error: fmt.Sprintf("unknown op %q", op)}, nil
	}
	return &tool.Result{Success: true, Output: out}, nil
}

// echo returns its message param unchanged.
func echo(ctx context.Context, params map[string]interface{}) (*tool.Result, error) {
	return &tool.Result{Success: true, Output: params["message"]}, nil
}

// sleep pauses for duration_ms, honoring cancellation.
func sleep(ctx context.Context, params map[string]interface{}) (*tool.Result, error) {
	ms, ok := toFloat(params["duration_ms"])
	if !ok {
		ms = 100
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return &tool.Result{Success: true, Output: fmt.Sprintf("slept %vms", ms)}, nil
	}
}

// toFloat normalizes the numeric types YAML and JSON decoding produce.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
