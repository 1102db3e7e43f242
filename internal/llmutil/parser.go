// internal/llmutil/parser.go
package llmutil

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/pagepilot/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMaxAttempts bounds how many JSON candidates are tried per response.
const DefaultMaxAttempts = 3

var (
	// ErrNoJSONObject is reported when the text holds no further '{'.
	ErrNoJSONObject = errors.New("no JSON object found")
	// ErrUnbalanced is reported when an object is opened but never closed.
	ErrUnbalanced = errors.New("unbalanced JSON object")
	// ErrUnrecognizedShape is reported for valid JSON that is neither an
	// action nor an action list.
	ErrUnrecognizedShape = errors.New("object is neither an action nor an action list")
)

// ParseResult is what the parser recovered from one oracle response. An
// empty Actions slice means nothing usable was found; a valid empty list
// still carries its Summary with a nil LastErr.
type ParseResult struct {
	Actions  []schemas.ActionRequest
	Summary  string
	Attempts int
	// LastErr explains why the last candidate was rejected.
	LastErr error
}

// Empty reports whether no action was recovered.
func (r ParseResult) Empty() bool { return len(r.Actions) == 0 }

// ParseActions scans text for the first brace-delimited JSON object and
// validates it as a single action or as an {actions, summary} list. An
// object carrying an action key that fails validation is skipped whole, so
// none of its entries run. Any other rejected candidate resumes the scan just
// past its opening brace. At most maxAttempts candidates are tried.
func ParseActions(text string, maxAttempts int) ParseResult {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	var res ParseResult
	rest := text
	for res.Attempts < maxAttempts {
		start, end, err := FirstObject(rest)
		if errors.Is(err, ErrNoJSONObject) {
			if res.LastErr == nil {
				res.LastErr = err
			}
			break
		}
		res.Attempts++
		next := start + 1
		if err == nil {
			actions, summary, recognized, decodeErr := decodeCandidate(rest[start:end])
			if decodeErr == nil {
				res.Actions = actions
				res.Summary = summary
				res.LastErr = nil
				return res
			}
			if recognized {
				next = end
			}
			err = decodeErr
		}
		res.LastErr = err
		rest = rest[next:]
	}
	return res
}

// FirstObject locates the first balanced {...} in text, skipping braces
// inside JSON strings. It returns the byte offsets of the object.
func FirstObject(text string) (start, end int, err error) {
	start = strings.IndexByte(text, '{')
	if start < 0 {
		return -1, -1, ErrNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return start, i + 1, nil
			}
		}
	}
	return start, -1, ErrUnbalanced
}

// decodeCandidate tries the single-action shape first, then the list shape.
// recognized reports whether the object carried an action key at all.
func decodeCandidate(candidate string) (actions []schemas.ActionRequest, summary string, recognized bool, err error) {
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil, "", false, fmt.Errorf("invalid JSON %s: %w", truncateString(candidate, 120), err)
	}

	_, hasAction := raw["action"]
	_, hasList := raw["actions"]
	if !hasAction && !hasList {
		return nil, "", false, ErrUnrecognizedShape
	}

	if hasAction {
		req, err := schemas.ValidateAction(raw)
		if err == nil {
			return []schemas.ActionRequest{req}, "", true, nil
		}
		if !hasList {
			return nil, "", true, err
		}
	}
	batch, err := schemas.ValidateBatch(raw)
	if err != nil {
		return nil, "", true, err
	}
	return batch.Actions, batch.Summary, true, nil
}

// truncateString truncates a string to a maximum length.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	// Byte truncation is fine for log output.
	return s[:maxLen] + "..."
}
