package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTaskFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write task file: %v", err)
	}
	return path
}

func TestLoadTaskFile(t *testing.T) {
	path := writeTaskFile(t, `
tasks:
  - id: fetch
    tool: echo
    params:
      message: hello
  - id: process
    description: process the fetched data
    dependencies:
      - fetch
  - id: verify
    dependencies:
      - id: process
        type: completion
`)
	tasks, err := loadTaskFile(path)
	if err != nil {
		t.Fatalf("loadTaskFile: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("len = %d, want 3", len(tasks))
	}
	if tasks[0].Tool != "echo" || tasks[0].Params["message"] != "hello" {
		t.Errorf("first task = %+v, want echo tool with message", tasks[0])
	}
	if got := tasks[1].DependencyIDs(); len(got) != 1 || got[0] != "fetch" {
		t.Errorf("dependencies = %v, want [fetch]", got)
	}
	if got := tasks[2].DependencyIDs(); len(got) != 1 || got[0] != "process" {
		t.Errorf("typed dependency = %v, want [process]", got)
	}
}

func TestLoadTaskFileRejectsBadInput(t *testing.T) {
	if _, err := loadTaskFile(writeTaskFile(t, "tasks: []\n")); err == nil {
		t.Error("expected error for empty task list")
	}
	if _, err := loadTaskFile(writeTaskFile(t, "tasks:\n  - description: no id\n")); err == nil {
		t.Error("expected error for task without id")
	}
	if _, err := loadTaskFile(writeTaskFile(t, "tasks:\n  - id: a\n  - id: a\n")); err == nil {
		t.Error("expected error for duplicate ids")
	}
	if _, err := loadTaskFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
