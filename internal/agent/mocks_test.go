package agent

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

// -- Oracle --

type oracleReply struct {
	text string
	err  error
}

type oracleCall struct {
	messages []schemas.Message
	opts     schemas.InvokeOptions
}

// scriptedOracle answers calls from a fixed script, in order.
type scriptedOracle struct {
	mu      sync.Mutex
	replies []oracleReply
	calls   []oracleCall
}

func newScriptedOracle(replies ...oracleReply) *scriptedOracle {
	return &scriptedOracle{replies: replies}
}

func reply(text string) oracleReply { return oracleReply{text: text} }

func (o *scriptedOracle) Invoke(_ context.Context, messages []schemas.Message, opts schemas.InvokeOptions) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, oracleCall{messages: messages, opts: opts})
	if len(o.replies) == 0 {
		return "", errors.New("oracle script exhausted")
	}
	next := o.replies[0]
	o.replies = o.replies[1:]
	return next.text, next.err
}

func (o *scriptedOracle) Calls() []oracleCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]oracleCall(nil), o.calls...)
}

// userPrompt returns the user message of the i-th call.
func (o *scriptedOracle) userPrompt(i int) string {
	calls := o.Calls()
	if i >= len(calls) {
		return ""
	}
	for _, m := range calls[i].messages {
		if m.Role == schemas.RoleUser {
			return m.Content
		}
	}
	return ""
}

// -- Analyzer --

type fakeAnalyzer struct {
	state string
	err   error
	calls int
}

func (f *fakeAnalyzer) GetStateDescription(context.Context) (string, error) {
	f.calls++
	return f.state, f.err
}

// -- Executor --

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, req schemas.ActionRequest) schemas.ActionResult {
	args := m.Called(ctx, req)
	return args.Get(0).(schemas.ActionResult)
}

func isAction(kind schemas.ActionKind, index int) interface{} {
	return mock.MatchedBy(func(req schemas.ActionRequest) bool {
		return req.Kind == kind && req.ElementIndex() == index
	})
}

func ok(kind schemas.ActionKind, msg string) schemas.ActionResult {
	return schemas.ActionResult{Success: true, Action: kind, Message: msg}
}
