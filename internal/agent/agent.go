package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/llmutil"
	"github.com/xkilldash9x/pagepilot/internal/observability"
)

// ErrAlreadyDone is reported when a resume is requested for a task whose
// history already ends in a DONE entry.
var ErrAlreadyDone = errors.New("task already marked as done")

// Analyzer produces the textual page state shown to the oracle.
type Analyzer interface {
	GetStateDescription(ctx context.Context) (string, error)
}

// ActionExecutor runs a single validated action. It never returns an error;
// failures are reported in the result.
type ActionExecutor interface {
	Execute(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult
}

// Checkpointer persists the agent state. It is called before an action is
// dispatched and after every step, so progress survives a page teardown.
type Checkpointer func(ctx context.Context, state schemas.AgentState) error

// Options tunes the planner-actor loop.
type Options struct {
	MaxSteps     int
	UrgencySteps int
	StepDelay    time.Duration
	ActionDelay  time.Duration
	ParseRetries int
	Temperature  float32
	MaxTokens    int
}

// OptionsFromConfig maps the agent and llm configuration sections onto Options.
func OptionsFromConfig(agentCfg config.AgentConfig, llmCfg config.LLMConfig) Options {
	return Options{
		MaxSteps:     agentCfg.MaxSteps,
		UrgencySteps: agentCfg.UrgencySteps,
		StepDelay:    agentCfg.StepDelay,
		ActionDelay:  agentCfg.ActionDelay,
		ParseRetries: agentCfg.ParseRetries,
		Temperature:  llmCfg.Temperature,
		MaxTokens:    llmCfg.MaxTokens,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 20
	}
	if o.UrgencySteps < 0 {
		o.UrgencySteps = 0
	}
	if o.ParseRetries <= 0 {
		o.ParseRetries = llmutil.DefaultMaxAttempts
	}
	return o
}

// RunOptions controls a single ExecuteTask call.
type RunOptions struct {
	// Resume keeps the current History and Results and continues from the
	// step index they imply.
	Resume bool
	// MaxSteps overrides Options.MaxSteps when positive.
	MaxSteps int
}

// Agent drives the planner-actor loop against one page. Operations of a
// single Agent must not run concurrently; SetSkills, Stop and the state
// accessors are safe to call from other goroutines.
type Agent struct {
	oracle   schemas.Oracle
	analyzer Analyzer
	executor ActionExecutor
	opts     Options
	logger   *zap.Logger

	mu         sync.Mutex
	history    []string
	results    []schemas.ActionResult
	lastAction *schemas.ActionRequest
	skills     string
	checkpoint Checkpointer

	stopped atomic.Bool
	sleep   func(ctx context.Context, d time.Duration) error
}

// New creates an agent. All collaborators are required.
func New(oracle schemas.Oracle, analyzer Analyzer, executor ActionExecutor, opts Options, logger *zap.Logger) (*Agent, error) {
	if oracle == nil || analyzer == nil || executor == nil {
		return nil, fmt.Errorf("agent requires an oracle, an analyzer and an executor")
	}
	if logger == nil {
		logger = observability.GetLogger()
	}
	return &Agent{
		oracle:   oracle,
		analyzer: analyzer,
		executor: executor,
		opts:     opts.withDefaults(),
		logger:   logger,
		history:  []string{},
		results:  []schemas.ActionResult{},
		sleep:    sleepContext,
	}, nil
}

// SetSkills replaces the free-form guidance injected into later prompts.
func (a *Agent) SetSkills(skills string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.skills = strings.TrimSpace(skills)
}

// SetCheckpoint installs a state persistence hook. Pass nil to remove it.
func (a *Agent) SetCheckpoint(fn Checkpointer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkpoint = fn
}

// Stop prevents the next loop iteration. An in-flight oracle call or action
// is not interrupted.
func (a *Agent) Stop() {
	a.stopped.Store(true)
}

// ExecuteTask runs the planner-actor loop for task and returns every result
// recorded so far, including those of earlier runs when resuming. Errors
// end the run early but are only logged; partial results are returned.
func (a *Agent) ExecuteTask(ctx context.Context, task string, opts RunOptions) []schemas.ActionResult {
	runID := uuid.NewString()[:8]
	log := observability.ForRun(a.logger, "agent", runID)

	maxSteps := a.opts.MaxSteps
	if opts.MaxSteps > 0 {
		maxSteps = opts.MaxSteps
	}

	start := 0
	if opts.Resume {
		if err := a.CanResume(); err != nil {
			log.Info("Nothing to resume.", zap.Error(err))
			return a.Results()
		}
		start = a.NextStepIndex()
	} else {
		a.reset()
	}
	a.stopped.Store(false)

	log.Info("Starting task.",
		zap.String("task", task),
		zap.Bool("resume", opts.Resume),
		zap.Int("start_step", start),
		zap.Int("max_steps", maxSteps))

	for step := start; step < maxSteps; step++ {
		if a.stopped.Load() {
			log.Info("Stop requested; not starting another step.", zap.Int("step", step+1))
			break
		}
		if err := ctx.Err(); err != nil {
			log.Warn("Context done; ending task.", zap.Error(err))
			break
		}

		halt, err := a.runStep(ctx, log, task, step, maxSteps)
		a.saveCheckpoint(ctx, log)
		if err != nil {
			log.Error("Step failed; returning partial results.", zap.Int("step", step+1), zap.Error(err))
			break
		}
		if halt {
			break
		}
		if step+1 < maxSteps {
			if err := a.sleep(ctx, a.opts.StepDelay); err != nil {
				break
			}
		}
	}

	results := a.Results()
	log.Info("Task finished.", zap.Int("results", len(results)), zap.Int("history", a.historyLen()))
	return results
}

// runStep performs one plan/act iteration. It reports whether the loop
// should halt.
func (a *Agent) runStep(ctx context.Context, log *zap.Logger, task string, step, maxSteps int) (bool, error) {
	state, err := a.analyzer.GetStateDescription(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to capture page state: %w", err)
	}

	remaining := maxSteps - step
	plan, err := a.oracle.Invoke(ctx, a.planningMessages(task, state, remaining), a.invokeOptions(false))
	if err != nil {
		return false, fmt.Errorf("planning request failed: %w", err)
	}

	decision := classifyPlan(plan)
	switch decision.kind {
	case planAsk:
		log.Info("Oracle needs clarification before continuing.", zap.String("question", decision.text))
		return true, nil
	case planDone:
		a.appendHistory(doneEntry(decision.text))
		log.Info("Oracle reported the task as done.", zap.String("summary", decision.text))
		return true, nil
	}

	label := fmt.Sprintf("Step %d", step+1)
	a.appendHistory(fmt.Sprintf("%s plan: %s", label, decision.text))
	log.Debug("Planned step.", zap.Int("step", step+1), zap.String("plan", decision.text))

	reply, err := a.oracle.Invoke(ctx, a.actingMessages(task, state, decision.text), a.invokeOptions(true))
	if err != nil {
		return false, fmt.Errorf("action request failed: %w", err)
	}

	parsed := llmutil.ParseActions(reply, a.opts.ParseRetries)
	if parsed.Empty() {
		text := reply
		if parsed.LastErr != nil {
			log.Debug("No structured actions in reply.", zap.Int("attempts", parsed.Attempts), zap.Error(parsed.LastErr))
		} else if strings.TrimSpace(parsed.Summary) != "" {
			text = parsed.Summary
		}
		a.appendHistory(fmt.Sprintf("%s observation: %s", label, observation(text)))
		return false, nil
	}

	_, done := a.executeList(ctx, log, label, parsed.Actions)
	if done {
		a.appendHistory(doneEntry(doneReason(parsed.Actions, parsed.Summary)))
		return true, nil
	}
	return false, nil
}

func (a *Agent) invokeOptions(structured bool) schemas.InvokeOptions {
	return schemas.InvokeOptions{
		Structured:  structured,
		Temperature: a.opts.Temperature,
		MaxTokens:   a.opts.MaxTokens,
	}
}

// ExecuteActions runs actions in order through the loop guard and records
// them in the agent state. It stops after the first failure or a done
// action and returns the results of this list only.
func (a *Agent) ExecuteActions(ctx context.Context, actions []schemas.ActionRequest) []schemas.ActionResult {
	log := a.logger.Named("agent")
	results, _ := a.executeList(ctx, log, "Direct", actions)
	a.saveCheckpoint(ctx, log)
	return results
}

// ExecuteAction runs a single action through the loop guard.
func (a *Agent) ExecuteAction(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	return a.ExecuteActions(ctx, []schemas.ActionRequest{req})[0]
}

func (a *Agent) executeList(ctx context.Context, log *zap.Logger, label string, actions []schemas.ActionRequest) ([]schemas.ActionResult, bool) {
	results := make([]schemas.ActionResult, 0, len(actions))
	for i, req := range actions {
		if i > 0 {
			if err := a.sleep(ctx, a.opts.ActionDelay); err != nil {
				break
			}
		}

		if a.isLoop(req) {
			res := schemas.ActionResult{
				Success:   false,
				Action:    req.Kind,
				Message:   fmt.Sprintf("Loop detected: %s repeats the previous action; choose a different approach", req),
				Error:     "loop detected",
				ErrorCode: schemas.ErrCodeLoopDetected,
			}
			log.Warn("Rejected repeated action.", zap.String("action", req.String()))
			a.appendHistory(actionEntry(label, req, res))
			a.appendResult(res)
			results = append(results, res)
			return results, false
		}

		pos := a.appendHistory(fmt.Sprintf("%s action: %s -> pending", label, req))
		a.saveCheckpoint(ctx, log)

		res := a.executor.Execute(ctx, req)
		a.recordExecuted(pos, label, req, res)
		results = append(results, res)

		log.Debug("Action executed.",
			zap.String("action", req.String()),
			zap.Bool("success", res.Success),
			zap.String("message", res.Message))

		if !res.Success {
			return results, false
		}
		if req.Kind == schemas.ActionDone {
			return results, true
		}
	}
	return results, false
}

// loopExempt kinds may legitimately repeat back to back.
func loopExempt(kind schemas.ActionKind) bool {
	return kind == schemas.ActionScroll || kind == schemas.ActionWait
}

func (a *Agent) isLoop(req schemas.ActionRequest) bool {
	if loopExempt(req.Kind) {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastAction != nil && a.lastAction.Equivalent(req)
}

func (a *Agent) recordExecuted(pos int, label string, req schemas.ActionRequest, res schemas.ActionResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	last := req
	a.lastAction = &last
	entry := actionEntry(label, req, res)
	if pos >= 0 && pos < len(a.history) {
		a.history[pos] = entry
	} else {
		a.history = append(a.history, entry)
	}
	a.results = append(a.results, res)
}

func actionEntry(label string, req schemas.ActionRequest, res schemas.ActionResult) string {
	if res.Success {
		return fmt.Sprintf("%s action: %s -> %s", label, req, res.Message)
	}
	outcome := res.Message
	if res.ErrorCode != "" {
		outcome = fmt.Sprintf("%s (%s)", outcome, res.ErrorCode)
	}
	return fmt.Sprintf("%s action: %s -> FAILED: %s", label, req, outcome)
}

func doneReason(actions []schemas.ActionRequest, summary string) string {
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Kind == schemas.ActionDone && actions[i].Reasoning != "" {
			return actions[i].Reasoning
		}
	}
	return summary
}

func (a *Agent) saveCheckpoint(ctx context.Context, log *zap.Logger) {
	a.mu.Lock()
	fn := a.checkpoint
	a.mu.Unlock()
	if fn == nil {
		return
	}
	if err := fn(ctx, a.ExportState()); err != nil {
		log.Warn("Failed to checkpoint agent state.", zap.Error(err))
	}
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
