package models

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []TaskStatus{
		TaskStatusPending,
		TaskStatusInProgress,
		TaskStatusBlocked,
		TaskStatusDone,
		TaskStatusFailed,
	}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}

	if TaskStatus("bogus").Valid() {
		t.Error("expected bogus status to be invalid")
	}
}

func TestIsComposite(t *testing.T) {
	atomic := &Task{ID: "t1", Tool: "calc"}
	if atomic.IsComposite() {
		t.Error("task without subtasks should be atomic")
	}

	composite := &Task{ID: "t2", Subtasks: []*Task{{ID: "t2a"}}}
	if !composite.IsComposite() {
		t.Error("task with subtasks should be composite")
	}
}

func TestDependencyKind(t *testing.T) {
	tests := []struct {
		name string
		dep  Dependency
		want DependencyType
	}{
		{"bare id", Dependency{ID: "a"}, DependencySimple},
		{"typed", Dependency{ID: "a", Type: "data"}, DependencyTyped},
		{"conditional", Dependency{ID: "a", Condition: "success"}, DependencyComplex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dep.Kind(); got != tt.want {
				t.Errorf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDependencyUnmarshalString(t *testing.T) {
	var task Task
	data := []byte(`
id: build
dependencies:
  - setup
  - id: lint
    type: quality
`)
	if err := yaml.Unmarshal(data, &task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(task.Dependencies) != 2 {
		t.Fatalf("expected 2 dependencies, got %d", len(task.Dependencies))
	}
	if task.Dependencies[0].ID != "setup" || task.Dependencies[0].Kind() != DependencySimple {
		t.Errorf("expected simple dependency on setup, got %+v", task.Dependencies[0])
	}
	if task.Dependencies[1].ID != "lint" || task.Dependencies[1].Kind() != DependencyTyped {
		t.Errorf("expected typed dependency on lint, got %+v", task.Dependencies[1])
	}
}

func TestDependencyUnmarshalMissingID(t *testing.T) {
	var dep Dependency
	err := yaml.Unmarshal([]byte(`{type: data}`), &dep)
	if err == nil {
		t.Fatal("expected error for dependency object without id")
	}
}

func TestDependencyIDs(t *testing.T) {
	task := &Task{ID: "t", Dependencies: Deps("a", "b", "c")}
	ids := task.DependencyIDs()
	if len(ids) != 3 {
		t.Fatalf("expected 3 IDs, got %d", len(ids))
	}
	if ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("unexpected IDs: %v", ids)
	}

	var empty Task
	if empty.DependencyIDs() != nil {
		t.Error("expected nil for task without dependencies")
	}
}
