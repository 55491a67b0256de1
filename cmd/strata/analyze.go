package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/strata/internal/analyzer"
	"github.com/ShayCichocki/strata/pkg/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <task-file>",
	Short: "Analyze tasks and report recommended strategies without executing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadTaskFile(args[0])
		if err != nil {
			return err
		}

		an := analyzer.New()
		for i, task := range tasks {
			if i > 0 {
				fmt.Println()
			}
			printAnalysis(an, task)
		}
		return nil
	},
}

func printAnalysis(an *analyzer.Analyzer, task *models.Task) {
	analysis := an.Analyze(task)
	rec := an.RecommendStrategy(task)

	bold := color.New(color.Bold)
	bold.Printf("Task %s\n", task.ID)
	if task.Description != "" {
		fmt.Printf("  %s\n", task.Description)
	}

	c := analysis.Complexity
	fmt.Printf("Complexity: overall=%.2f (structural=%.2f computational=%.2f dependency=%.2f)\n",
		c.Overall, c.Structural, c.Computational, c.Dependency)

	d := analysis.Dependencies
	fmt.Printf("Dependencies: count=%d circular=%v parallelizable=%v\n",
		d.Count, d.HasCircular, d.Parallelizable)
	if d.HasCircular {
		color.Red("  cycle: %s", strings.Join(d.Cycle, " -> "))
	}

	p := analysis.Parallelization
	fmt.Printf("Parallelization: possible=%v efficiency=%.2f max=%d\n",
		p.Possible, p.Efficiency, p.MaxParallelism)

	r := analysis.Resources
	fmt.Printf("Resources: cpu=%s memory=%s io=%s network=%s scalability=%s\n",
		r.CPU, r.Memory, r.IO, r.Network, r.Scalability)

	color.Green("Recommendation: %s (confidence %.2f)", rec.Strategy, rec.Confidence)
	for _, reason := range rec.Reasoning {
		fmt.Printf("  - %s\n", reason)
	}
	for _, alt := range rec.Alternatives {
		fmt.Printf("  alternative: %s (%s)\n", alt.Strategy, alt.Reason)
	}
	if len(rec.Parameters) > 0 {
		fmt.Printf("  parameters: %v\n", rec.Parameters)
	}
}
