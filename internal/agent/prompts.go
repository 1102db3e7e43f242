package agent

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

const plannerSystemPrompt = `You are the planner of a web automation agent. You see a textual snapshot of the current page, where every interactive element carries an index like [3], and the history of what has been done so far.

Decide the single next step toward the task and reply in plain text using exactly one of these forms:
- DONE: <short summary>    when the task is complete.
- ASK: <question>          when the task is ambiguous and you need the user to clarify before going on.
- <next step>              one concrete, high-level step, e.g. "Type the email address into the Email field and press the Sign in button."

Rules:
- Work only with what the current page shows. Do not invent elements.
- Errors listed under ERRORS ON PAGE are usually caused by the previous step; address them first.
- If an action failed, do not repeat it unchanged. Try a different element or approach.
- Keep every constraint stated in the task for the whole run.`

const actorSystemPrompt = `You are the actor of a web automation agent. Turn the given step into concrete actions on the current page.

Reply with a single JSON object and nothing else:
{"actions": [<action>, ...], "summary": "<one sentence>"}

Each <action> is one of:
{"action": "click", "index": <element index>, "reasoning": "..."}
{"action": "type", "index": <element index>, "text": "<text>", "reasoning": "..."}
{"action": "select", "index": <element index>, "value": "<option value or label>", "reasoning": "..."}
{"action": "scroll", "direction": "up" | "down", "reasoning": "..."}
{"action": "wait", "ms": <milliseconds, default 1000>, "reasoning": "..."}
{"action": "done", "reasoning": "..."}

Rules:
- Use only indices that appear in the page state.
- For checkboxes and radio buttons use "type" with text "yes" or "no".
- Return an empty "actions" list if the step needs no action.
- Never break a constraint stated in the task.`

const urgencyNotice = `ATTENTION: only %d step(s) remain. Stop exploring. Finish the task with the fewest possible actions, or reply DONE with what has been achieved.`

func (a *Agent) planningMessages(task, state string, remaining int) []schemas.Message {
	a.mu.Lock()
	skills := a.skills
	history := append([]string(nil), a.history...)
	a.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "TASK:\n%s\n", task)
	if skills != "" {
		fmt.Fprintf(&b, "\nSKILLS AND GUIDANCE:\n%s\n", skills)
	}
	if a.opts.UrgencySteps > 0 && remaining <= a.opts.UrgencySteps {
		fmt.Fprintf(&b, "\n%s\n", fmt.Sprintf(urgencyNotice, remaining))
	}
	fmt.Fprintf(&b, "\nCURRENT PAGE STATE:\n%s\n", state)
	b.WriteString("\nHISTORY:\n")
	if len(history) == 0 {
		b.WriteString("(nothing done yet)\n")
	}
	for _, h := range history {
		fmt.Fprintf(&b, "- %s\n", h)
	}
	b.WriteString("\nWhat is the next step?")

	return []schemas.Message{
		{Role: schemas.RoleSystem, Content: plannerSystemPrompt},
		{Role: schemas.RoleUser, Content: b.String()},
	}
}

func (a *Agent) actingMessages(task, state, step string) []schemas.Message {
	a.mu.Lock()
	skills := a.skills
	a.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "OVERALL TASK (its constraints always apply):\n%s\n", task)
	if skills != "" {
		fmt.Fprintf(&b, "\nSKILLS AND GUIDANCE:\n%s\n", skills)
	}
	fmt.Fprintf(&b, "\nSTEP TO PERFORM NOW:\n%s\n", step)
	fmt.Fprintf(&b, "\nCURRENT PAGE STATE:\n%s\n", state)

	return []schemas.Message{
		{Role: schemas.RoleSystem, Content: actorSystemPrompt},
		{Role: schemas.RoleUser, Content: b.String()},
	}
}

type planKind int

const (
	planStep planKind = iota
	planAsk
	planDone
)

type planDecision struct {
	kind planKind
	text string
}

// successPhrases end the task even without the DONE prefix. Matching is
// case-insensitive.
var successPhrases = []string{
	"task is complete",
	"task has been completed",
	"task completed successfully",
	"task is done",
	"task has been accomplished",
	"successfully completed the task",
	"goal has been achieved",
}

// stepPrefixes are stripped from actionable plans.
var stepPrefixes = []string{"NEXT STEP:", "NEXT:", "STEP:"}

func classifyPlan(plan string) planDecision {
	text := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(plan), "*#>` "))
	upper := strings.ToUpper(text)

	switch {
	case strings.HasPrefix(upper, "ASK:"):
		return planDecision{kind: planAsk, text: strings.TrimSpace(text[len("ASK:"):])}
	case isDoneSentinel(upper):
		rest := strings.TrimSpace(text[len(donePrefix):])
		rest = strings.TrimSpace(strings.TrimLeft(rest, ":.-!* "))
		return planDecision{kind: planDone, text: rest}
	}

	lower := strings.ToLower(text)
	for _, phrase := range successPhrases {
		if strings.Contains(lower, phrase) {
			return planDecision{kind: planDone, text: text}
		}
	}

	for _, p := range stepPrefixes {
		if strings.HasPrefix(upper, p) {
			text = strings.TrimSpace(text[len(p):])
			break
		}
	}
	return planDecision{kind: planStep, text: text}
}

// isDoneSentinel matches DONE as a whole word, so "Doneness" is a plan.
func isDoneSentinel(upper string) bool {
	if !strings.HasPrefix(upper, donePrefix) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(upper[len(donePrefix):])
	return next == utf8.RuneError || !(unicode.IsLetter(next) || unicode.IsDigit(next))
}

// maxObservationLen is counted in runes.
const maxObservationLen = 500

func observation(reply string) string {
	text := strings.Join(strings.Fields(reply), " ")
	if text == "" {
		return "(no actions proposed)"
	}
	runes := []rune(text)
	if len(runes) > maxObservationLen {
		return string(runes[:maxObservationLen]) + "..."
	}
	return text
}
