package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/agent"
	"github.com/xkilldash9x/pagepilot/internal/browser"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/dom"
	"github.com/xkilldash9x/pagepilot/internal/executor"
	"github.com/xkilldash9x/pagepilot/internal/llmclient"
	"github.com/xkilldash9x/pagepilot/internal/observability"
	"github.com/xkilldash9x/pagepilot/internal/store"
)

type runOptions struct {
	resume  bool
	session string
}

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	var opts runOptions

	runCmd := &cobra.Command{
		Use:   "run <url> <task...>",
		Short: "Open a page and work on a task until it is done",
		Long: `Opens the page at <url> and runs the planner-actor loop for the task given by the
remaining arguments. Progress is saved after every step, so an interrupted run can be
continued with --resume.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			target := normalizeURL(args[0])
			task := strings.Join(args[1:], " ")
			return runTask(ctx, cfg, observability.GetLogger(), target, task, opts, cmd.OutOrStdout())
		},
	}

	runCmd.Flags().Int("max-steps", 0, "Maximum planner steps. (Overrides config/env)")
	runCmd.Flags().String("state-file", "", "File holding the saved agent state. (Overrides config/env)")
	runCmd.Flags().String("skills", "", "File with extra guidance for the planner. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run Chrome without a window. (Overrides config/env)")
	runCmd.Flags().BoolVar(&opts.resume, "resume", false, "Continue from the saved state instead of starting over.")
	runCmd.Flags().StringVar(&opts.session, "session", store.DefaultSession, "Name of the saved state to use.")

	return runCmd
}

func runTask(ctx context.Context, cfg *config.Config, logger *zap.Logger, target, task string, opts runOptions, out io.Writer) error {
	skills, err := loadSkills(cfg.Agent.SkillsFile)
	if err != nil {
		return err
	}

	// The oracle comes first so that a missing API key fails before Chrome starts.
	oracle, err := llmclient.NewOracle(ctx, cfg.LLM, logger)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}

	stateStore, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer closeStore()

	mgr, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Warn("Error during browser shutdown", zap.Error(err))
		}
	}()

	page, err := mgr.NewPage(ctx)
	if err != nil {
		return err
	}
	defer page.Close()

	analyzer := dom.NewAnalyzer(page, logger)
	exec := executor.New(page, analyzer, logger)
	a, err := agent.New(oracle, analyzer, exec, agent.OptionsFromConfig(cfg.Agent, cfg.LLM), logger)
	if err != nil {
		return err
	}
	a.SetSkills(skills)

	if opts.resume {
		state, err := stateStore.Load(ctx, opts.session)
		if err != nil {
			return fmt.Errorf("failed to load saved state: %w", err)
		}
		a.ImportState(state)
		if err := a.CanResume(); errors.Is(err, agent.ErrAlreadyDone) {
			fmt.Fprintln(out, "The saved task is already done; nothing to resume.")
			printResults(out, state.Results, state.History)
			return nil
		}
	}

	save := func(ctx context.Context, state schemas.AgentState) error {
		// A checkpoint must land even while the run is being interrupted.
		return stateStore.Save(context.WithoutCancel(ctx), opts.session, state)
	}
	a.SetCheckpoint(save)

	if err := page.Navigate(ctx, target); err != nil {
		return err
	}

	results := a.ExecuteTask(ctx, task, agent.RunOptions{Resume: opts.resume})
	if err := save(ctx, a.ExportState()); err != nil {
		logger.Warn("Failed to save final agent state.", zap.Error(err))
	}

	printResults(out, results, a.History())
	return ctx.Err()
}

// loadSkills reads the optional guidance file.
func loadSkills(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read skills file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// normalizeURL adds https:// to targets given without a scheme.
func normalizeURL(target string) string {
	target = strings.TrimSpace(target)
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "file://") || strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:") {
		return target
	}
	return "https://" + target
}

func printResults(out io.Writer, results []schemas.ActionResult, history []string) {
	fmt.Fprintf(out, "\nHistory (%d):\n", len(history))
	for _, h := range history {
		fmt.Fprintf(out, "  %s\n", h)
	}

	fmt.Fprintf(out, "\nResults (%d):\n", len(results))
	for i, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAIL"
		}
		fmt.Fprintf(out, "  %2d. [%-4s] %-8s %s", i+1, status, r.Action, r.Message)
		if r.ErrorCode != "" {
			fmt.Fprintf(out, " (%s)", r.ErrorCode)
		}
		fmt.Fprintln(out)
	}
}
