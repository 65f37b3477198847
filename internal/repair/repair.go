// Package repair turns noisy generator output into parsed JSON values.
//
// Parse extracts the most likely JSON payload, removes control characters
// and trailing commas, then tries a direct decode followed by a decode
// after quote normalisation. Partial results are never returned.
package repair

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrRepairExhausted is matched by every *Error returned from Parse.
var ErrRepairExhausted = errors.New("repair exhausted")

// Error reports that no parse attempt succeeded.
type Error struct {
	// Cleaned is the text after extraction and cleanup, kept for diagnostics.
	Cleaned string
	// Err is the error from the last parse attempt.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("repair exhausted: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrRepairExhausted) hold for any *Error.
func (e *Error) Is(target error) bool { return target == ErrRepairExhausted }

var (
	fenced        = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	objectSpan    = regexp.MustCompile(`\{[\s\S]*\}`)
	controlChars  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	doubledQuotes = regexp.MustCompile(`""([^"]*)""`)
)

var quoteReplacer = strings.NewReplacer(
	"「", `"`, "」", `"`,
	"『", `"`, "』", `"`,
	"“", `"`, "”", `"`, "＂", `"`,
	"‘", "'", "’", "'",
)

// Parse repairs raw and decodes it into a value of the shapes produced by
// encoding/json: map[string]any, []any, string, float64, bool or nil.
func Parse(raw string) (any, error) {
	cleaned := Clean(Extract(raw))

	var v any
	err := json.Unmarshal([]byte(cleaned), &v)
	if err == nil {
		return v, nil
	}

	if err = json.Unmarshal([]byte(NormalizeQuotes(cleaned)), &v); err == nil {
		return v, nil
	}
	return nil, &Error{Cleaned: cleaned, Err: err}
}

// ParseObject is Parse restricted to a top-level object.
func ParseObject(raw string) (map[string]any, error) {
	v, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &Error{Cleaned: Clean(Extract(raw)), Err: fmt.Errorf("top-level value is %T, want object", v)}
	}
	return obj, nil
}

// Extract returns the first fenced block whose content looks like JSON,
// else the span from the first '{' to the last '}', else the trimmed input.
func Extract(raw string) string {
	for _, m := range fenced.FindAllStringSubmatch(raw, -1) {
		body := strings.TrimSpace(m[1])
		if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
			return body
		}
	}
	if span := objectSpan.FindString(raw); span != "" {
		return strings.TrimSpace(span)
	}
	return strings.TrimSpace(raw)
}

// Clean drops control characters other than tab, newline and carriage
// return, and removes commas directly before a closing brace or bracket.
func Clean(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	return trailingComma.ReplaceAllString(s, "$1")
}

// NormalizeQuotes maps doubled, full-width, curly and corner-bracket quotes
// to ASCII quotes. It can change quotation marks inside string values.
func NormalizeQuotes(s string) string {
	s = doubledQuotes.ReplaceAllString(s, `"$1"`)
	return quoteReplacer.Replace(s)
}
