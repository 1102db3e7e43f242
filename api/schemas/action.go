package schemas

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// -- Action Schemas --

// ActionKind discriminates the ActionRequest union.
type ActionKind string

const (
	ActionClick    ActionKind = "click"
	ActionType     ActionKind = "type"
	ActionSelect   ActionKind = "select"
	ActionScroll   ActionKind = "scroll"
	ActionWait     ActionKind = "wait"
	ActionDone     ActionKind = "done"
	ActionHover    ActionKind = "hover"
	ActionFocus    ActionKind = "focus"
	ActionNavigate ActionKind = "navigate"
	ActionBack     ActionKind = "back"
	ActionForward  ActionKind = "forward"
	ActionRefresh  ActionKind = "refresh"
)

// PlannerActionKinds are the kinds offered to the oracle when it proposes
// actions. The remaining kinds are available to direct callers.
var PlannerActionKinds = []ActionKind{
	ActionClick, ActionType, ActionSelect, ActionScroll, ActionWait, ActionDone,
}

var knownKinds = map[ActionKind]struct{}{
	ActionClick: {}, ActionType: {}, ActionSelect: {}, ActionScroll: {},
	ActionWait: {}, ActionDone: {}, ActionHover: {}, ActionFocus: {},
	ActionNavigate: {}, ActionBack: {}, ActionForward: {}, ActionRefresh: {},
}

// RequiresElement reports whether the kind targets an element by index.
func (k ActionKind) RequiresElement() bool {
	switch k {
	case ActionClick, ActionType, ActionSelect, ActionHover, ActionFocus:
		return true
	}
	return false
}

// ScrollDirection is the direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp   ScrollDirection = "up"
	ScrollDown ScrollDirection = "down"
)

// ActionRequest is a tagged union keyed by Kind. Only the fields relevant to
// the kind are populated; ValidateAction enforces which ones are required.
type ActionRequest struct {
	Kind      ActionKind      `json:"action"`
	Index     *int            `json:"index,omitempty"`
	Text      string          `json:"text,omitempty"`
	Append    bool            `json:"append,omitempty"`
	Value     string          `json:"value,omitempty"`
	Direction ScrollDirection `json:"direction,omitempty"`
	Amount    int             `json:"amount,omitempty"`
	Ms        *int            `json:"ms,omitempty"`
	URL       string          `json:"url,omitempty"`
	Reasoning string          `json:"reasoning,omitempty"`
}

// ElementIndex returns the target index, or -1 when the action has none.
func (a ActionRequest) ElementIndex() int {
	if a.Index == nil {
		return -1
	}
	return *a.Index
}

// Equivalent reports whether two requests would do the same thing. The
// free-text reasoning is not part of an action's identity.
func (a ActionRequest) Equivalent(b ActionRequest) bool {
	return a.Kind == b.Kind &&
		a.ElementIndex() == b.ElementIndex() &&
		a.Text == b.Text &&
		a.Append == b.Append &&
		a.Value == b.Value &&
		a.Direction == b.Direction &&
		a.Amount == b.Amount &&
		intPtrEqual(a.Ms, b.Ms) &&
		a.URL == b.URL
}

// String renders a compact, human-readable description of the action.
func (a ActionRequest) String() string {
	var sb strings.Builder
	sb.WriteString(string(a.Kind))
	if a.Index != nil {
		fmt.Fprintf(&sb, " [%d]", *a.Index)
	}
	switch a.Kind {
	case ActionType:
		fmt.Fprintf(&sb, " %q", a.Text)
	case ActionSelect:
		fmt.Fprintf(&sb, " %q", a.Value)
	case ActionScroll:
		fmt.Fprintf(&sb, " %s", a.Direction)
	case ActionWait:
		if a.Ms != nil {
			fmt.Fprintf(&sb, " %dms", *a.Ms)
		}
	case ActionNavigate:
		fmt.Fprintf(&sb, " %s", a.URL)
	}
	return sb.String()
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IntPtr is a small helper for building requests in code.
func IntPtr(v int) *int { return &v }

// ActionBatch is the multi-action oracle reply shape.
type ActionBatch struct {
	Actions []ActionRequest `json:"actions"`
	Summary string          `json:"summary,omitempty"`
}

// -- Validation --

// ErrInvalidAction is wrapped by every validation failure.
var ErrInvalidAction = errors.New("invalid action")

// ValidationError names the offending field of a rejected action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid action: %s", e.Reason)
	}
	return fmt.Sprintf("invalid action: field %q %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidAction }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ValidateAction converts a decoded JSON object into an ActionRequest,
// enforcing the fields required by its kind. Unknown keys are ignored.
func ValidateAction(raw map[string]interface{}) (ActionRequest, error) {
	var req ActionRequest

	kind, ok, err := stringField(raw, "action")
	if err != nil {
		return req, err
	}
	if !ok || kind == "" {
		return req, invalid("action", "is required")
	}
	req.Kind = ActionKind(strings.ToLower(strings.TrimSpace(kind)))
	if _, known := knownKinds[req.Kind]; !known {
		return req, invalid("action", "has unknown kind %q", kind)
	}

	if req.Reasoning, _, err = stringField(raw, "reasoning"); err != nil {
		return req, err
	}

	if req.Kind.RequiresElement() {
		idx, ok, err := intField(raw, "index")
		if err != nil {
			return req, err
		}
		if !ok {
			return req, invalid("index", "is required for %s", req.Kind)
		}
		if idx < 0 {
			return req, invalid("index", "must be non-negative, got %d", idx)
		}
		req.Index = &idx
	}

	switch req.Kind {
	case ActionType:
		text, ok, err := stringField(raw, "text")
		if err != nil {
			return req, err
		}
		if !ok {
			return req, invalid("text", "is required for type")
		}
		req.Text = text
		if req.Append, _, err = boolField(raw, "append"); err != nil {
			return req, err
		}
	case ActionSelect:
		value, ok, err := stringField(raw, "value")
		if err != nil {
			return req, err
		}
		if !ok {
			return req, invalid("value", "is required for select")
		}
		req.Value = value
	case ActionScroll:
		dir, ok, err := stringField(raw, "direction")
		if err != nil {
			return req, err
		}
		if !ok {
			return req, invalid("direction", "is required for scroll")
		}
		req.Direction = ScrollDirection(strings.ToLower(strings.TrimSpace(dir)))
		if req.Direction != ScrollUp && req.Direction != ScrollDown {
			return req, invalid("direction", "must be \"up\" or \"down\", got %q", dir)
		}
		amount, ok, err := intField(raw, "amount")
		if err != nil {
			return req, err
		}
		if ok {
			if amount <= 0 {
				return req, invalid("amount", "must be positive, got %d", amount)
			}
			req.Amount = amount
		}
	case ActionWait:
		ms, ok, err := intField(raw, "ms")
		if err != nil {
			return req, err
		}
		if ok {
			if ms < 0 {
				return req, invalid("ms", "must be non-negative, got %d", ms)
			}
			req.Ms = &ms
		}
	case ActionNavigate:
		url, ok, err := stringField(raw, "url")
		if err != nil {
			return req, err
		}
		if !ok || strings.TrimSpace(url) == "" {
			return req, invalid("url", "is required for navigate")
		}
		req.URL = strings.TrimSpace(url)
	}

	return req, nil
}

// ValidateBatch converts a decoded {actions, summary} object into an
// ActionBatch. Every entry must validate for the batch to be accepted; an
// empty list is valid and leaves only the summary.
func ValidateBatch(raw map[string]interface{}) (ActionBatch, error) {
	var batch ActionBatch

	v, ok := raw["actions"]
	if !ok {
		return batch, invalid("actions", "is required")
	}
	list, ok := v.([]interface{})
	if !ok {
		return batch, invalid("actions", "must be an array")
	}
	batch.Actions = make([]ActionRequest, 0, len(list))

	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return batch, invalid(fmt.Sprintf("actions[%d]", i), "must be an object")
		}
		req, err := ValidateAction(obj)
		if err != nil {
			return batch, fmt.Errorf("actions[%d]: %w", i, err)
		}
		batch.Actions = append(batch.Actions, req)
	}

	summary, _, err := stringField(raw, "summary")
	if err != nil {
		return batch, err
	}
	batch.Summary = summary
	return batch, nil
}

func stringField(raw map[string]interface{}, key string) (string, bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, invalid(key, "must be a string, got %T", v)
	}
	return s, true, nil
}

func boolField(raw map[string]interface{}, key string) (bool, bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, invalid(key, "must be a boolean, got %T", v)
	}
	return b, true, nil
}

func intField(raw map[string]interface{}, key string) (int, bool, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false, invalid(key, "must be an integer, got %v", n)
		}
		return int(n), true, nil
	case int:
		return n, true, nil
	case int64:
		return int(n), true, nil
	default:
		return 0, false, invalid(key, "must be a number, got %T", v)
	}
}

// -- Action Results --

// ErrorCode classifies action failures for callers and the planner.
type ErrorCode string

const (
	ErrCodeElementNotFound   ErrorCode = "ELEMENT_NOT_FOUND"
	ErrCodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
	ErrCodeInvalidParameters ErrorCode = "INVALID_PARAMETERS"
	ErrCodeOptionNotFound    ErrorCode = "OPTION_NOT_FOUND"
	ErrCodeUnknownAction     ErrorCode = "UNKNOWN_ACTION"
	ErrCodeLoopDetected      ErrorCode = "LOOP_DETECTED"
	ErrCodeExecutorPanic     ErrorCode = "EXECUTOR_PANIC"
)

// ElementSummary is the partial element info attached to a result.
type ElementSummary struct {
	Index int    `json:"index"`
	Tag   string `json:"tag"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// ActionResult is the outcome of one executed action. Executors report
// failures here instead of returning errors.
type ActionResult struct {
	Success   bool            `json:"success"`
	Action    ActionKind      `json:"action"`
	Message   string          `json:"message"`
	Error     string          `json:"error,omitempty"`
	ErrorCode ErrorCode       `json:"errorCode,omitempty"`
	Element   *ElementSummary `json:"element,omitempty"`
}
