package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/strata/pkg/models"
)

// taskFile is the YAML document format for CLI runs.
type taskFile struct {
	Tasks []*models.Task `yaml:"tasks"`
}

// loadTaskFile reads and validates a YAML task file.
func loadTaskFile(path string) ([]*models.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var tf taskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse task file: %w", err)
	}
	if len(tf.Tasks) == 0 {
		return nil, fmt.Errorf("task file %s defines no tasks", path)
	}

	seen := make(map[string]bool)
	for _, t := range tf.Tasks {
		if t.ID == "" {
			return nil, fmt.Errorf("task file %s contains a task without an id", path)
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("duplicate task id %q", t.ID)
		}
		seen[t.ID] = true
	}
	return tf.Tasks, nil
}
