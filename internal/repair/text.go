package repair

import (
	"regexp"
	"strings"
)

var newlineReplacer = strings.NewReplacer(
	`\r\n`, "\n",
	`\n`, "\n",
	`\r`, "\n",
	"\r\n", "\n",
	"\r", "\n",
)

// NormalizeNewlines maps escaped and literal CRLF, LF and CR sequences to
// a single "\n". Applying it twice is the same as applying it once.
func NormalizeNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	// entryStart matches a 1-2 digit entry number and its separator.
	entryStart = regexp.MustCompile(`\d{1,2}[.、]`)
)

// CleanMultiLineField normalises a field holding numbered entries so that
// each entry sits on its own line. Text without line breaks is split in
// front of each entry number.
func CleanMultiLineField(s string) string {
	s = NormalizeNewlines(s)

	var lines []string
	if strings.Contains(s, "\n") {
		lines = strings.Split(s, "\n")
	} else {
		lines = splitEntries(s)
	}

	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// splitEntries cuts s before every entry number that does not directly
// follow another digit.
func splitEntries(s string) []string {
	var parts []string
	start := 0
	for _, loc := range entryStart.FindAllStringIndex(s, -1) {
		i := loc[0]
		if i == 0 || isDigit(s[i-1]) {
			continue
		}
		parts = append(parts, s[start:i])
		start = i
	}
	return append(parts, s[start:])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// ApplyToEveryStringField returns v with NormalizeNewlines applied to every
// string leaf. Maps and slices are copied; other scalars are kept as is.
func ApplyToEveryStringField(v any) any {
	switch v := v.(type) {
	case string:
		return NormalizeNewlines(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = ApplyToEveryStringField(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ApplyToEveryStringField(item)
		}
		return out
	default:
		return v
	}
}

// CleanFields applies CleanMultiLineField to the named string fields of obj
// in place. Missing and non-string fields are left alone.
func CleanFields(obj map[string]any, names ...string) {
	for _, name := range names {
		if s, ok := obj[name].(string); ok {
			obj[name] = CleanMultiLineField(s)
		}
	}
}
