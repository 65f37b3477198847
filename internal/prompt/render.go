package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxPasses bounds conditional resolution; real templates settle in two.
const maxPasses = 32

var (
	placeholder = regexp.MustCompile(`\{\{\s*([\p{L}\p{N}_]+)\s*\}\}`)
	anyMarker   = regexp.MustCompile(`\{\{[^{}]*\}\}`)
	tag         = regexp.MustCompile(`\{%\s*(?:(if)\s+(.+?)|(else)|(endif))\s*%\}`)
)

// Render substitutes {{key}} markers from vars, resolves
// {% if %}/{% else %}/{% endif %} sections until the text stops changing,
// then removes any markers left without a value.
func Render(text string, vars map[string]any) string {
	out := placeholder.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			return m
		}
		return stringify(v)
	})

	for range maxPasses {
		next := resolve(out, vars)
		if next == out {
			break
		}
		out = next
	}

	for anyMarker.MatchString(out) {
		out = anyMarker.ReplaceAllString(out, "")
	}
	return out
}

// segment is literal text or a conditional section with its branches.
type segment struct {
	text      string
	cond      string
	isCond    bool
	then, els []segment
}

type frame struct {
	open, elseTag string
	cond          string
	then, els     []segment
	inElse        bool
}

func (f *frame) add(s segment) {
	if f.inElse {
		f.els = append(f.els, s)
	} else {
		f.then = append(f.then, s)
	}
}

// resolve evaluates one pass of conditional sections. Tags that do not
// pair up are kept as literal text.
func resolve(text string, vars map[string]any) string {
	root := &frame{}
	stack := []*frame{root}
	top := func() *frame { return stack[len(stack)-1] }

	pos := 0
	for _, loc := range tag.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > pos {
			top().add(segment{text: text[pos:loc[0]]})
		}
		raw := text[loc[0]:loc[1]]
		pos = loc[1]

		switch {
		case loc[2] >= 0: // if
			stack = append(stack, &frame{open: raw, cond: text[loc[4]:loc[5]]})
		case loc[6] >= 0: // else
			if len(stack) == 1 || top().inElse {
				top().add(segment{text: raw})
				continue
			}
			top().inElse = true
			top().elseTag = raw
		default: // endif
			if len(stack) == 1 {
				top().add(segment{text: raw})
				continue
			}
			f := top()
			stack = stack[:len(stack)-1]
			top().add(segment{isCond: true, cond: f.cond, then: f.then, els: f.els})
		}
	}
	if pos < len(text) {
		top().add(segment{text: text[pos:]})
	}

	// Unclosed sections are flattened back to literal text.
	for len(stack) > 1 {
		f := top()
		stack = stack[:len(stack)-1]
		parent := top()
		parent.add(segment{text: f.open})
		for _, s := range f.then {
			parent.add(s)
		}
		if f.inElse {
			parent.add(segment{text: f.elseTag})
			for _, s := range f.els {
				parent.add(s)
			}
		}
	}

	var b strings.Builder
	write(&b, root.then, vars)
	return b.String()
}

func write(b *strings.Builder, segs []segment, vars map[string]any) {
	for _, s := range segs {
		switch {
		case !s.isCond:
			b.WriteString(s.text)
		case evaluate(s.cond, vars):
			write(b, s.then, vars)
		default:
			write(b, s.els, vars)
		}
	}
}

// stringify renders a variable value for substitution and comparison.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case []string:
		return strings.Join(v, ",")
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
