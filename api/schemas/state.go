package schemas

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// AgentState is the resumable progress log of a task. History holds one line
// per plan, observation or action outcome; Results holds every executed
// action's result in order.
type AgentState struct {
	History []string       `json:"history"`
	Results []ActionResult `json:"results"`
}

// Clone returns a deep copy so callers cannot alias internal slices.
func (s AgentState) Clone() AgentState {
	out := AgentState{
		History: make([]string, len(s.History)),
		Results: make([]ActionResult, len(s.Results)),
	}
	copy(out.History, s.History)
	for i, r := range s.Results {
		if r.Element != nil {
			el := *r.Element
			r.Element = &el
		}
		out.Results[i] = r
	}
	return out
}

// IsEmpty reports whether nothing has been recorded yet.
func (s AgentState) IsEmpty() bool {
	return len(s.History) == 0 && len(s.Results) == 0
}

// MarshalState encodes a state blob. Nil slices are written as empty arrays.
func MarshalState(s AgentState) ([]byte, error) {
	s = s.Clone()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode agent state: %w", err)
	}
	return data, nil
}

// UnmarshalState decodes a state blob produced by MarshalState.
func UnmarshalState(data []byte) (AgentState, error) {
	var s AgentState
	if err := json.Unmarshal(data, &s); err != nil {
		return AgentState{}, fmt.Errorf("failed to decode agent state: %w", err)
	}
	return s.Clone(), nil
}
