// Package executor performs single ActionRequests against the live page and
// reports every outcome as an ActionResult. It never returns errors.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/api/schemas"
	"github.com/xkilldash9x/pagepilot/internal/dom"
)

const (
	// DefaultWaitMs is used when a wait action carries no duration.
	DefaultWaitMs = 1000
	// DefaultScrollAmount is the scroll distance in pixels.
	DefaultScrollAmount = 500
)

// handlerFunc executes one kind of action.
type handlerFunc func(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult

// Executor dispatches actions to per-kind handlers.
type Executor struct {
	driver   Driver
	resolver ElementResolver
	logger   *zap.Logger
	handlers map[schemas.ActionKind]handlerFunc

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
	now   func() time.Time
}

// New creates an executor over driver, resolving indices through resolver.
func New(driver Driver, resolver ElementResolver, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		driver:   driver,
		resolver: resolver,
		logger:   logger.Named("action_executor"),
		handlers: make(map[schemas.ActionKind]handlerFunc),
		sleep:    sleepContext,
		now:      time.Now,
	}
	e.registerHandlers()
	return e
}

func (e *Executor) registerHandlers() {
	e.handlers[schemas.ActionClick] = e.handleClick
	e.handlers[schemas.ActionType] = e.handleType
	e.handlers[schemas.ActionSelect] = e.handleSelect
	e.handlers[schemas.ActionScroll] = e.handleScroll
	e.handlers[schemas.ActionWait] = e.handleWait
	e.handlers[schemas.ActionHover] = e.handleHover
	e.handlers[schemas.ActionFocus] = e.handleFocus
	e.handlers[schemas.ActionNavigate] = e.handleNavigate
	e.handlers[schemas.ActionBack] = e.handleHistory(schemas.ActionBack)
	e.handlers[schemas.ActionForward] = e.handleHistory(schemas.ActionForward)
	e.handlers[schemas.ActionRefresh] = e.handleHistory(schemas.ActionRefresh)
	e.handlers[schemas.ActionDone] = e.handleDone
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Execute runs req. Failures, including panics in handlers, are reported in
// the returned result.
func (e *Executor) Execute(ctx context.Context, req schemas.ActionRequest) (result schemas.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic while executing action.",
				zap.String("action", string(req.Kind)),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			result = failure(req.Kind, schemas.ErrCodeExecutorPanic, fmt.Sprintf("internal error while executing %s", req.Kind), fmt.Sprint(r))
		}
	}()

	handler, ok := e.handlers[req.Kind]
	if !ok {
		return failure(req.Kind, schemas.ErrCodeUnknownAction, fmt.Sprintf("Unknown action %q", req.Kind), "unknown action kind")
	}

	result = handler(ctx, req)
	if result.Success {
		e.logger.Debug("Action succeeded.", zap.String("action", req.String()), zap.String("message", result.Message))
	} else {
		e.logger.Warn("Action failed.",
			zap.String("action", req.String()),
			zap.String("error_code", string(result.ErrorCode)),
			zap.String("error", result.Error))
	}
	return result
}

// -- Result helpers --

func success(kind schemas.ActionKind, h *dom.Handle, format string, args ...interface{}) schemas.ActionResult {
	res := schemas.ActionResult{Success: true, Action: kind, Message: fmt.Sprintf(format, args...)}
	if h != nil {
		res.Element = summarize(*h)
	}
	return res
}

func failure(kind schemas.ActionKind, code schemas.ErrorCode, message, detail string) schemas.ActionResult {
	return schemas.ActionResult{Success: false, Action: kind, Message: message, Error: detail, ErrorCode: code}
}

func summarize(h dom.Handle) *schemas.ElementSummary {
	return &schemas.ElementSummary{Index: h.Index, Tag: h.Tag, Type: h.Type, Label: h.Label}
}

// describe renders an element the way results and the state description do.
func describe(h dom.Handle) string {
	return fmt.Sprintf("[%d] %s %q", h.Index, h.Type, h.Label)
}

// driverFailure maps a driver error onto a result for the element behind h.
func driverFailure(kind schemas.ActionKind, h dom.Handle, verb string, err error) schemas.ActionResult {
	if errors.Is(err, dom.ErrStaleHandle) {
		res := failure(kind, schemas.ErrCodeElementNotFound,
			fmt.Sprintf("Element [%d] is no longer on the page; analyze the page again", h.Index), err.Error())
		res.Element = summarize(h)
		return res
	}
	res := failure(kind, schemas.ErrCodeExecutionFailure,
		fmt.Sprintf("Failed to %s %s", verb, describe(h)), err.Error())
	res.Element = summarize(h)
	return res
}

// resolve looks up the handle for an element action.
func (e *Executor) resolve(req schemas.ActionRequest) (dom.Handle, *schemas.ActionResult) {
	if req.Index == nil {
		res := failure(req.Kind, schemas.ErrCodeInvalidParameters, fmt.Sprintf("%s requires an element index", req.Kind), "missing index")
		return dom.Handle{}, &res
	}
	h, ok := e.resolver.GetElement(*req.Index)
	if !ok {
		res := failure(req.Kind, schemas.ErrCodeElementNotFound,
			fmt.Sprintf("Element [%d] not found in the current page snapshot", *req.Index), dom.ErrElementNotFound.Error())
		return dom.Handle{}, &res
	}
	return h, nil
}

// -- Element actions --

// nativeActivation lists tags whose click() already performs the element's
// default behavior.
var nativeActivation = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"summary": true, "label": true, "option": true,
}

func hasNativeActivation(st *ElementState) bool {
	if st.Tag == "a" {
		return st.HasHref
	}
	return nativeActivation[st.Tag]
}

func (e *Executor) handleClick(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	h, fail := e.resolve(req)
	if fail != nil {
		return *fail
	}
	st, err := e.driver.Inspect(ctx, h)
	if err != nil {
		return driverFailure(req.Kind, h, "click", err)
	}
	if st.Disabled {
		res := failure(req.Kind, schemas.ErrCodeExecutionFailure, fmt.Sprintf("Cannot click %s: element is disabled", describe(h)), "element is disabled")
		res.Element = summarize(h)
		return res
	}
	if err := e.driver.Click(ctx, h, !hasNativeActivation(st)); err != nil {
		return driverFailure(req.Kind, h, "click", err)
	}
	return success(req.Kind, &h, "Clicked %s", describe(h))
}

// directValueTypes are input types whose value is assigned rather than typed.
var directValueTypes = map[string]bool{
	"date": true, "time": true, "datetime": true, "datetime-local": true,
	"month": true, "week": true, "color": true, "range": true, "hidden": true,
}

func (e *Executor) handleType(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	h, fail := e.resolve(req)
	if fail != nil {
		return *fail
	}
	st, err := e.driver.Inspect(ctx, h)
	if err != nil {
		return driverFailure(req.Kind, h, "type into", err)
	}

	switch {
	case st.Tag == "input" && (st.InputType == "checkbox" || st.InputType == "radio"):
		checked := ParseTruthy(req.Text)
		if err := e.driver.SetChecked(ctx, h, checked); err != nil {
			return driverFailure(req.Kind, h, "toggle", err)
		}
		verb := "Unchecked"
		if checked {
			verb = "Checked"
		}
		return success(req.Kind, &h, "%s %s", verb, describe(h))

	case st.Tag == "input" && directValueTypes[st.InputType]:
		if err := e.driver.SetValue(ctx, h, req.Text); err != nil {
			return driverFailure(req.Kind, h, "set", err)
		}
		return success(req.Kind, &h, "Set %s to %q", describe(h), req.Text)

	case st.Tag == "select":
		return e.selectOption(ctx, req.Kind, h, st, req.Text)

	case st.Tag == "input" || st.Tag == "textarea" || st.ContentEditable:
		if err := e.driver.TypeText(ctx, h, req.Text, !req.Append); err != nil {
			return driverFailure(req.Kind, h, "type into", err)
		}
		if req.Append {
			return success(req.Kind, &h, "Appended %q to %s", req.Text, describe(h))
		}
		return success(req.Kind, &h, "Typed %q into %s", req.Text, describe(h))

	default:
		res := failure(req.Kind, schemas.ErrCodeInvalidParameters,
			fmt.Sprintf("Cannot type into %s: element is not editable", describe(h)), "element is not editable")
		res.Element = summarize(h)
		return res
	}
}

// truthy lists the words that check a checkbox when typed into it.
var truthy = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "checked": true,
}

// ParseTruthy reports whether text asks for a checked state.
func ParseTruthy(text string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(text))]
}

func (e *Executor) handleSelect(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	h, fail := e.resolve(req)
	if fail != nil {
		return *fail
	}
	st, err := e.driver.Inspect(ctx, h)
	if err != nil {
		return driverFailure(req.Kind, h, "select in", err)
	}
	if st.Tag != "select" {
		res := failure(req.Kind, schemas.ErrCodeInvalidParameters,
			fmt.Sprintf("Cannot select in %s: element is not a dropdown", describe(h)), "element is not a select")
		res.Element = summarize(h)
		return res
	}
	return e.selectOption(ctx, req.Kind, h, st, req.Value)
}

func (e *Executor) selectOption(ctx context.Context, kind schemas.ActionKind, h dom.Handle, st *ElementState, want string) schemas.ActionResult {
	i, ok := MatchOption(st.Options, want)
	if !ok {
		res := failure(kind, schemas.ErrCodeOptionNotFound,
			fmt.Sprintf("No option matching %q in %s. Available: %s", want, describe(h), listOptions(st.Options)),
			"option not found")
		res.Element = summarize(h)
		return res
	}
	if err := e.driver.SelectOption(ctx, h, i); err != nil {
		return driverFailure(kind, h, "select in", err)
	}
	opt := st.Options[i]
	return success(kind, &h, "Selected %q (value %q) in %s", opt.Label, opt.Value, describe(h))
}

// MatchOption finds the option for want, trying in order: exact value,
// case-insensitive value, exact label, case-insensitive label, and finally a
// case-insensitive label substring.
func MatchOption(options []Option, want string) (int, bool) {
	w := strings.TrimSpace(want)
	lw := strings.ToLower(w)
	passes := []func(o Option) bool{
		func(o Option) bool { return o.Value == w },
		func(o Option) bool { return strings.ToLower(o.Value) == lw },
		func(o Option) bool { return strings.TrimSpace(o.Label) == w },
		func(o Option) bool { return strings.ToLower(strings.TrimSpace(o.Label)) == lw },
		func(o Option) bool { return lw != "" && strings.Contains(strings.ToLower(o.Label), lw) },
	}
	for _, match := range passes {
		for i, o := range options {
			if match(o) {
				return i, true
			}
		}
	}
	return -1, false
}

const maxListedOptions = 10

func listOptions(options []Option) string {
	if len(options) == 0 {
		return "(none)"
	}
	parts := make([]string, 0, maxListedOptions+1)
	for i, o := range options {
		if i == maxListedOptions {
			parts = append(parts, fmt.Sprintf("... %d more", len(options)-i))
			break
		}
		parts = append(parts, fmt.Sprintf("%q", o.Label))
	}
	return strings.Join(parts, ", ")
}

func (e *Executor) handleHover(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	h, fail := e.resolve(req)
	if fail != nil {
		return *fail
	}
	if err := e.driver.Hover(ctx, h); err != nil {
		return driverFailure(req.Kind, h, "hover over", err)
	}
	return success(req.Kind, &h, "Hovered over %s", describe(h))
}

func (e *Executor) handleFocus(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	h, fail := e.resolve(req)
	if fail != nil {
		return *fail
	}
	if err := e.driver.Focus(ctx, h); err != nil {
		return driverFailure(req.Kind, h, "focus", err)
	}
	return success(req.Kind, &h, "Focused %s", describe(h))
}

// -- Page actions --

func (e *Executor) handleScroll(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	amount := req.Amount
	if amount <= 0 {
		amount = DefaultScrollAmount
	}
	direction := req.Direction
	dy := amount
	if direction == schemas.ScrollUp {
		dy = -amount
	} else {
		direction = schemas.ScrollDown
	}
	// Scrolling past either end is not an error; neither is a failed scroll.
	if err := e.driver.ScrollBy(ctx, 0, dy); err != nil {
		e.logger.Debug("Scroll did not complete.", zap.Error(err))
	}
	return success(req.Kind, nil, "Scrolled %s %dpx", direction, amount)
}

func (e *Executor) handleWait(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	ms := DefaultWaitMs
	if req.Ms != nil && *req.Ms >= 0 {
		ms = *req.Ms
	}
	start := e.now()
	e.sleep(ctx, time.Duration(ms)*time.Millisecond)
	elapsed := e.now().Sub(start)
	return success(req.Kind, nil, "Waited %dms", elapsed.Milliseconds())
}

func (e *Executor) handleNavigate(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	if strings.TrimSpace(req.URL) == "" {
		return failure(req.Kind, schemas.ErrCodeInvalidParameters, "navigate requires a url", "missing url")
	}
	return e.trigger(req.Kind, fmt.Sprintf("Navigation to %s", req.URL), e.driver.Navigate(ctx, req.URL))
}

func (e *Executor) handleHistory(kind schemas.ActionKind) handlerFunc {
	return func(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
		switch kind {
		case schemas.ActionBack:
			return e.trigger(kind, "Back navigation", e.driver.Back(ctx))
		case schemas.ActionForward:
			return e.trigger(kind, "Forward navigation", e.driver.Forward(ctx))
		default:
			return e.trigger(kind, "Page reload", e.driver.Reload(ctx))
		}
	}
}

// trigger reports navigation-like actions. They count as triggered even when
// the browser reports an error; the next snapshot shows where the page ended up.
func (e *Executor) trigger(kind schemas.ActionKind, what string, err error) schemas.ActionResult {
	switch {
	case err == nil:
		return success(kind, nil, "%s triggered", what)
	case errors.Is(err, context.DeadlineExceeded):
		return success(kind, nil, "%s triggered (page still loading)", what)
	default:
		e.logger.Debug("Navigation primitive reported an error.", zap.String("action", string(kind)), zap.Error(err))
		return success(kind, nil, "%s triggered (browser reported: %v)", what, err)
	}
}

func (e *Executor) handleDone(_ context.Context, req schemas.ActionRequest) schemas.ActionResult {
	if req.Reasoning != "" {
		return success(req.Kind, nil, "Task marked as done: %s", req.Reasoning)
	}
	return success(req.Kind, nil, "Task marked as done")
}
