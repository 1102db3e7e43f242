package agent

import (
	"strings"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

const donePrefix = "DONE"

func doneEntry(summary string) string {
	if summary == "" {
		return donePrefix
	}
	return donePrefix + ": " + summary
}

func (a *Agent) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = []string{}
	a.results = []schemas.ActionResult{}
	a.lastAction = nil
}

// appendHistory adds an entry and returns its position.
func (a *Agent) appendHistory(entry string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = append(a.history, entry)
	return len(a.history) - 1
}

func (a *Agent) appendResult(res schemas.ActionResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, res)
}

func (a *Agent) historyLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}

// History returns a copy of the step transcript.
func (a *Agent) History() []string {
	return a.ExportState().History
}

// Results returns a copy of every recorded action result.
func (a *Agent) Results() []schemas.ActionResult {
	return a.ExportState().Results
}

// ExportState returns a deep copy of the resumable state.
func (a *Agent) ExportState() schemas.AgentState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return schemas.AgentState{History: a.history, Results: a.results}.Clone()
}

// ImportState replaces the agent state. The loop guard starts fresh.
func (a *Agent) ImportState(state schemas.AgentState) {
	state = state.Clone()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = state.History
	a.results = state.Results
	a.lastAction = nil
}

// ExportStateJSON encodes the state blob.
func (a *Agent) ExportStateJSON() ([]byte, error) {
	return schemas.MarshalState(a.ExportState())
}

// ImportStateJSON decodes and imports a state blob. Missing fields import
// as empty.
func (a *Agent) ImportStateJSON(data []byte) error {
	state, err := schemas.UnmarshalState(data)
	if err != nil {
		return err
	}
	a.ImportState(state)
	return nil
}

// NextStepIndex is the zero-based step a resumed run starts from: half the
// history length once any action has run, zero otherwise.
func (a *Agent) NextStepIndex() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.results) == 0 {
		return 0
	}
	return len(a.history) / 2
}

// CanResume returns ErrAlreadyDone when the recorded history ends in a DONE
// entry. Resuming such a task is a no-op.
func (a *Agent) CanResume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := len(a.history); n > 0 && strings.HasPrefix(a.history[n-1], donePrefix) {
		return ErrAlreadyDone
	}
	return nil
}
