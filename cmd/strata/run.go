package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/strata/internal/config"
	"github.com/ShayCichocki/strata/internal/llm"
	"github.com/ShayCichocki/strata/internal/orchestrator"
	"github.com/ShayCichocki/strata/internal/recovery"
	"github.com/ShayCichocki/strata/pkg/models"
)

var (
	runConcurrency int
	runTimeout     time.Duration
	runShowStats   bool
	runVerbose     bool
)

var runCmd = &cobra.Command{
	Use:   "run <task-file>",
	Short: "Execute the tasks in a YAML task file",
	Long: `Run loads a YAML task file and executes it. A file with a single
task runs directly; multiple tasks are scheduled as one plan in
dependency order.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := loadTaskFile(args[0])
		if err != nil {
			return err
		}

		cfg, err := config.LoadFrom(configPath)
		if err != nil {
			return err
		}
		if runConcurrency > 0 {
			cfg.Execution.MaxConcurrency = runConcurrency
		}
		if runTimeout > 0 {
			cfg.Execution.DefaultTimeout = runTimeout
		}

		orch, err := buildOrchestrator(cfg)
		if err != nil {
			return err
		}

		watchPath := configPath
		if watchPath == "" {
			watchPath = config.ProjectConfigPath()
		}
		if watchPath != "" {
			watcher, werr := config.Watch(watchPath, func(c *config.Config) {
				applyExecutionConfig(orch, c)
			})
			if werr != nil {
				fmt.Fprintf(os.Stderr, "config watch disabled: %v\n", werr)
			} else {
				defer watcher.Close()
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eventsDone := make(chan struct{})
		go printEvents(orch.Events(), eventsDone)

		var res *models.RunResult
		if len(tasks) == 1 {
			res = orch.Run(ctx, tasks[0])
		} else {
			res = orch.RunPlan(ctx, tasks)
		}

		orch.Close()
		<-eventsDone

		printResult(res)
		if runShowStats {
			printStatistics(orch)
		}

		if !res.Success {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 0, "Override execution.max_concurrency")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Override execution.default_timeout")
	runCmd.Flags().BoolVar(&runShowStats, "stats", false, "Print execution statistics after the run")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print task-level events during the run")
}

// buildOrchestrator wires the orchestrator from config: tools, limits,
// recovery budget, debug logging, and a completion client when one is
// configured.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, error) {
	opts := []orchestrator.Option{
		orchestrator.WithMaxConcurrency(cfg.Execution.MaxConcurrency),
		orchestrator.WithMaxDepth(cfg.Execution.MaxDepth),
		orchestrator.WithDefaultTimeout(cfg.Execution.DefaultTimeout),
		orchestrator.WithHistorySize(cfg.Execution.HistorySize),
		orchestrator.WithRecoveryEngine(recovery.NewEngine(recovery.WithMaxAttempts(cfg.Recovery.MaxAttempts))),
	}
	if cfg.Logging.Debug {
		opts = append(opts, orchestrator.WithLogger(orchestrator.NewDebugLoggerForDir(cfg.Logging.Dir)))
	}

	if cfg.Anthropic.APIKey != "" || cfg.Anthropic.UseBedrock {
		client, err := llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:        cfg.Anthropic.APIKey,
			UseAWSBedrock: cfg.Anthropic.UseBedrock,
			AWSRegion:     cfg.Anthropic.BedrockRegion,
			AWSProfile:    cfg.Anthropic.BedrockProfile,
		})
		if err != nil {
			return nil, fmt.Errorf("create completion client: %w", err)
		}
		opts = append(opts, orchestrator.WithClient(client))
	}

	return orchestrator.New(orchestrator.RequiredConfig{Tools: builtinTools()}, opts...)
}

// applyExecutionConfig pushes reloaded execution limits into the
// orchestrator. They take effect for runs started afterwards.
func applyExecutionConfig(orch *orchestrator.Orchestrator, cfg *config.Config) {
	orch.UpdateConfiguration(cfg.Execution.MaxConcurrency, cfg.Execution.MaxDepth, cfg.Execution.DefaultTimeout)
}

// printEvents streams run events to stdout until the channel closes.
func printEvents(events <-chan orchestrator.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventProgress:
			fmt.Printf("  progress: %.0f%%\n", ev.Progress)
		case orchestrator.EventTaskCompleted:
			if runVerbose {
				color.Green("  ✓ %s (%s)", ev.TaskID, ev.Duration.Round(time.Millisecond))
			}
		case orchestrator.EventTaskFailed:
			if runVerbose {
				color.Red("  ✗ %s: %s", ev.TaskID, failureText(ev))
			}
		case orchestrator.EventTaskRecovered:
			if runVerbose {
				color.Yellow("  ↻ %s: %s", ev.TaskID, ev.Message)
			}
		case orchestrator.EventStrategySelected:
			if runVerbose {
				fmt.Printf("  → %s via %s strategy\n", ev.TaskID, ev.Strategy)
			}
		}
	}
}

func failureText(ev orchestrator.Event) string {
	if ev.Error != nil {
		return ev.Error.Error()
	}
	return ev.Message
}

// printResult prints the run outcome.
func printResult(res *models.RunResult) {
	if res.Success {
		color.Green("Run %s succeeded in %s (%d tasks)",
			res.Metadata.ExecutionID, res.Metadata.Duration.Round(time.Millisecond), res.Metadata.CompletedCount)
		if res.Output != nil {
			fmt.Printf("Output: %v\n", res.Output)
		}
		return
	}
	color.Red("Run %s failed: %s", res.Metadata.ExecutionID, res.Error)
	if res.ErrorCode != "" {
		fmt.Printf("Code: %s  Retryable: %v\n", res.ErrorCode, res.Retryable)
	}
}

// printStatistics prints the history summary and per-strategy stats.
func printStatistics(orch *orchestrator.Orchestrator) {
	stats := orch.History().Statistics()
	fmt.Println()
	fmt.Printf("Executions: %d  Successes: %d  Failures: %d  Success rate: %.0f%%  Avg duration: %s\n",
		stats.Executions, stats.Successes, stats.Failures, stats.SuccessRate*100,
		stats.AverageDuration.Round(time.Millisecond))

	perf := orch.Analyzer().GetPerformanceStats()
	for name, s := range perf {
		fmt.Printf("  %-10s attempts=%d success=%.0f%% avg=%s\n",
			name, s.Attempts, s.SuccessRate*100, s.AverageDuration.Round(time.Millisecond))
	}
}
