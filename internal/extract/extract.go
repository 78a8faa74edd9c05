// Package extract recovers structured data from model output. Models wrap
// JSON in code fences, prepend commentary, and sometimes truncate the
// document mid-token; callers need to know whether they got everything, a
// best-effort subset, or nothing.
package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Outcome tags the result of a parse attempt.
type Outcome int

const (
	// StrictSuccess means the cleaned text parsed as complete JSON.
	StrictSuccess Outcome = iota
	// RecoveredPartial means strict parsing failed but a best-effort
	// structure was recovered from the truncated document.
	RecoveredPartial
	// Failed means both parse stages failed.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case StrictSuccess:
		return "strict-success"
	case RecoveredPartial:
		return "recovered-partial"
	default:
		return "failed"
	}
}

// Clean strips code-fence markers and clips the text to the substring
// between the first '{' and the last '}', discarding any commentary the
// model added around the document.
func Clean(raw string) string {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first != -1 && last != -1 && last > first {
		cleaned = cleaned[first : last+1]
	}
	return cleaned
}

// JSON cleans raw model output and decodes it into v. It tries a strict
// parse first, then falls back to truncation repair. The returned Outcome
// distinguishes the two success paths; on Failed the error describes the
// strict-parse failure.
func JSON(raw string, v any) (Outcome, error) {
	cleaned := Clean(raw)
	if cleaned == "" {
		return Failed, fmt.Errorf("no JSON object found in response")
	}

	strictErr := json.Unmarshal([]byte(cleaned), v)
	if strictErr == nil {
		return StrictSuccess, nil
	}

	repaired, ok := repair(cleaned)
	if !ok {
		return Failed, fmt.Errorf("response is not parseable JSON: %w", strictErr)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return Failed, fmt.Errorf("response is not parseable JSON: %w", strictErr)
	}
	return RecoveredPartial, nil
}

// repair completes a truncated JSON document by closing open strings,
// arrays, and objects. When the document ends on a dangling token (a key
// with no value, a trailing comma) it backs up to the previous structural
// boundary and retries, dropping the unrecoverable tail.
func repair(s string) (string, bool) {
	const maxAttempts = 16

	candidate := s
	for attempt := 0; attempt < maxAttempts && candidate != ""; attempt++ {
		closed := candidate + closers(candidate)
		if gjson.Valid(closed) {
			return closed, true
		}

		cut := strings.LastIndexAny(candidate, ",{[")
		if cut <= 0 {
			return "", false
		}
		candidate = strings.TrimRight(candidate[:cut], " \t\r\n")
	}
	return "", false
}

// closers returns the closing runes needed to balance s, accounting for an
// unterminated string at the tail.
func closers(s string) string {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var sb strings.Builder
	if inString {
		sb.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		sb.WriteByte(stack[i])
	}
	return sb.String()
}
