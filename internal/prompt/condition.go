package prompt

import (
	"reflect"
	"regexp"
	"strings"
)

var comparison = regexp.MustCompile(`^([\p{L}\p{N}_]+)\s*(==|!=)\s*(.+)$`)

// evaluate reports whether a condition holds. A condition is either a bare
// variable name, tested for truthiness, or a comparison against a literal.
func evaluate(cond string, vars map[string]any) bool {
	cond = strings.TrimSpace(cond)

	m := comparison.FindStringSubmatch(cond)
	if m == nil {
		return truthy(vars[cond])
	}

	actual := vars[m[1]]
	var equal bool
	switch lit := strings.TrimSpace(m[3]); {
	case lit == "true" || lit == "false":
		equal = truthy(actual) == (lit == "true")
	case lit == "null":
		equal = stringify(actual) == ""
	default:
		equal = stringify(actual) == unquote(lit)
	}

	if m[2] == "!=" {
		return !equal
	}
	return equal
}

func unquote(lit string) string {
	if len(lit) >= 2 {
		first, last := lit[0], lit[len(lit)-1]
		if (first == '"' || first == '\'') && first == last {
			return lit[1 : len(lit)-1]
		}
	}
	return lit
}

// truthy treats nil, "", "false", false and numeric zero as false.
func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return v != "" && v != "false"
	case bool:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	}
	return true
}
