package repair

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "trailing comma",
			raw:  `{"a": 1,}`,
			want: map[string]any{"a": 1.0},
		},
		{
			name: "fenced json with prose",
			raw:  "Here is the plan:\n```json\n{\"theme\": \"spring\", \"items\": [1, 2,],}\n```\nHope it helps.",
			want: map[string]any{"theme": "spring", "items": []any{1.0, 2.0}},
		},
		{
			name: "bare fence holding an array",
			raw:  "```\n[\"a\", \"b\"]\n```",
			want: []any{"a", "b"},
		},
		{
			name: "fence without json falls back to braces",
			raw:  "```\nnot code\n```\nresult: {\"ok\": true}",
			want: map[string]any{"ok": true},
		},
		{
			name: "object surrounded by prose",
			raw:  `Sure! {"k": "v"} Let me know.`,
			want: map[string]any{"k": "v"},
		},
		{
			name: "control characters dropped",
			raw:  "{\"k\": \"a\x01b\x7f\"}",
			want: map[string]any{"k": "ab"},
		},
		{
			name: "curly quotes",
			raw:  `{“主题”: “春天”}`,
			want: map[string]any{"主题": "春天"},
		},
		{
			name: "corner brackets",
			raw:  `{「目标」: 『认识花草』}`,
			want: map[string]any{"目标": "认识花草"},
		},
		{
			name: "doubled straight quotes",
			raw:  `{""name"": ""value""}`,
			want: map[string]any{"name": "value"},
		},
		{
			name: "bare scalar",
			raw:  "  42  ",
			want: 42.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Exhausted(t *testing.T) {
	_, err := Parse("not json at all")
	if !errors.Is(err, ErrRepairExhausted) {
		t.Fatalf("Parse() error = %v, want ErrRepairExhausted", err)
	}

	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("error %T is not *Error", err)
	}
	if re.Cleaned != "not json at all" {
		t.Errorf("Cleaned = %q, want %q", re.Cleaned, "not json at all")
	}
	if re.Err == nil {
		t.Error("Err should carry the last parse error")
	}
}

func TestParse_ExhaustedKeepsCleanedText(t *testing.T) {
	_, err := Parse("prefix {\"a\": [1,], broken} suffix")
	var re *Error
	if !errors.As(err, &re) {
		t.Fatalf("Parse() error = %v, want *Error", err)
	}
	if want := `{"a": [1], broken}`; re.Cleaned != want {
		t.Errorf("Cleaned = %q, want %q", re.Cleaned, want)
	}
}

func TestParseObject(t *testing.T) {
	obj, err := ParseObject("```json\n{\"a\": \"b\"}\n```")
	if err != nil {
		t.Fatalf("ParseObject() error = %v", err)
	}
	if obj["a"] != "b" {
		t.Errorf("obj[a] = %v, want b", obj["a"])
	}

	_, err = ParseObject(`["x"]`)
	if !errors.Is(err, ErrRepairExhausted) {
		t.Errorf("ParseObject(array) error = %v, want ErrRepairExhausted", err)
	}
}

func TestExtract_FencedContentExact(t *testing.T) {
	inner := "{\"a\": {\"b\": [1, 2]}}"
	for _, raw := range []string{
		"intro\n```json\n" + inner + "\n```\noutro {\"other\": 1}",
		"```" + inner + "```",
		"text ```json   " + inner + "   ``` more",
	} {
		if got := Extract(raw); got != inner {
			t.Errorf("Extract(%q) = %q, want %q", raw, got, inner)
		}
	}
}

func TestExtract_Fallbacks(t *testing.T) {
	tests := []struct {
		raw, want string
	}{
		{"a {x} b {y} c", "{x} b {y}"},
		{"  plain text  ", "plain text"},
		{"```\nhello\n```", "```\nhello\n```"},
	}
	for _, tt := range tests {
		if got := Extract(tt.raw); got != tt.want {
			t.Errorf("Extract(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	got := Clean("{\"a\":[1,2 ,\n],\t\"b\":\"x\x0By\",\r\n}")
	want := "{\"a\":[1,2 \n],\t\"b\":\"xy\"\r\n}"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestNormalizeQuotes_Lossy(t *testing.T) {
	// Quotation marks inside values are rewritten too.
	got := NormalizeQuotes(`{"a": "他说“你好”"}`)
	if !strings.Contains(got, `他说"你好"`) {
		t.Errorf("NormalizeQuotes() = %q", got)
	}
}
