package llmutil

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

func TestParseActions_BatchInProse(t *testing.T) {
	text := `Sure! Here is what I would do next:
{"actions":[{"action":"wait","ms":500,"reasoning":"x"}],"summary":"s"}
Let me know if you need anything else.`

	res := ParseActions(text, DefaultMaxAttempts)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, schemas.ActionWait, res.Actions[0].Kind)
	require.NotNil(t, res.Actions[0].Ms)
	assert.Equal(t, 500, *res.Actions[0].Ms)
	assert.Equal(t, "s", res.Summary)
	assert.Equal(t, 1, res.Attempts)
	assert.NoError(t, res.LastErr)
}

func TestParseActions_SingleAction(t *testing.T) {
	text := "```json\n{\"action\": \"click\", \"index\": 0, \"reasoning\": \"open {search}\"}\n```"

	res := ParseActions(text, DefaultMaxAttempts)
	want := []schemas.ActionRequest{{Kind: schemas.ActionClick, Index: schemas.IntPtr(0), Reasoning: "open {search}"}}
	if diff := cmp.Diff(want, res.Actions); diff != "" {
		t.Errorf("unexpected actions (-want +got):\n%s", diff)
	}
}

func TestParseActions_SkipsRejectedCandidates(t *testing.T) {
	text := `I considered {not json} and {"foo": 1} but settled on {"action":"scroll","direction":"down"}`

	res := ParseActions(text, 5)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, schemas.ActionScroll, res.Actions[0].Kind)
	assert.Equal(t, schemas.ScrollDown, res.Actions[0].Direction)
	assert.Equal(t, 3, res.Attempts)
}

func TestParseActions_AttemptsAreBounded(t *testing.T) {
	text := `{bad} {bad} {bad} {"action":"done","reasoning":"ok"}`

	res := ParseActions(text, 3)
	assert.True(t, res.Empty())
	assert.Equal(t, 3, res.Attempts)
	assert.Error(t, res.LastErr)

	res = ParseActions(text, 4)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, schemas.ActionDone, res.Actions[0].Kind)
}

func TestParseActions_NestedCandidateAfterOuterFailure(t *testing.T) {
	// The outer object has no recognized shape; advancing past its brace
	// reaches the embedded action.
	text := `{"plan": {"action":"type","index":2,"text":"hello"}}`

	res := ParseActions(text, DefaultMaxAttempts)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "hello", res.Actions[0].Text)
	assert.Equal(t, 2, res.Attempts)
}

func TestParseActions_InvalidActions(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I think the task is finished."},
		{"unknown kind", `{"action":"teleport","index":1}`},
		{"missing index", `{"action":"click"}`},
		{"scroll sideways", `{"action":"scroll","direction":"left"}`},
		{"one bad entry spoils the list", `{"actions":[{"action":"click","index":0},{"action":"type","index":1}]}`},
		{"unterminated", `{"action":"click","index":0`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseActions(tt.text, DefaultMaxAttempts)
			assert.True(t, res.Empty())
			assert.Error(t, res.LastErr)
		})
	}
}

func TestParseActions_RejectedBatchIsSkippedWhole(t *testing.T) {
	text := `{"actions":[{"action":"click","index":0},{"action":"type","index":1}],"summary":"s"} then {"action":"scroll","direction":"down"}`

	res := ParseActions(text, DefaultMaxAttempts)
	require.Len(t, res.Actions, 1, "no entry of the rejected list may run")
	assert.Equal(t, schemas.ActionScroll, res.Actions[0].Kind)
	assert.Equal(t, 2, res.Attempts)
}

func TestParseActions_EmptyList(t *testing.T) {
	res := ParseActions(`Nothing to do here. {"actions":[],"summary":"The results are already shown."}`, DefaultMaxAttempts)
	assert.True(t, res.Empty())
	assert.NoError(t, res.LastErr)
	assert.Equal(t, "The results are already shown.", res.Summary)
	assert.Equal(t, 1, res.Attempts)
}

func TestParseActions_DefaultAttempts(t *testing.T) {
	text := strings.Repeat("{x} ", 10)
	res := ParseActions(text, 0)
	assert.Equal(t, DefaultMaxAttempts, res.Attempts)
}

func TestFirstObject(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		err  error
	}{
		{"plain", `{"a":1}`, `{"a":1}`, nil},
		{"prose around", `say {"a":{"b":2}} ok`, `{"a":{"b":2}}`, nil},
		{"brace in string", `{"a":"}{"}`, `{"a":"}{"}`, nil},
		{"escaped quote", `{"a":"\"}"}`, `{"a":"\"}"}`, nil},
		{"none", `nothing here`, "", ErrNoJSONObject},
		{"unbalanced", `{"a":{`, "", ErrUnbalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := FirstObject(tt.text)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tt.text[start:end])
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdef", 2))
	assert.Equal(t, "", truncateString("abc", 0))
}
