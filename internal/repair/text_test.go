package repair

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"escaped crlf", `a\r\nb`, "a\nb"},
		{"escaped lf", `a\nb`, "a\nb"},
		{"escaped cr", `a\rb`, "a\nb"},
		{"literal crlf", "a\r\nb", "a\nb"},
		{"literal cr", "a\rb", "a\nb"},
		{"literal lf kept", "a\nb", "a\nb"},
		{"mixed", "1\\n2\r\n3\r4\\r\\n5", "1\n2\n3\n4\n5"},
		{"nothing to do", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeNewlines(tt.in)
			if got != tt.want {
				t.Errorf("NormalizeNewlines(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := NormalizeNewlines(got); again != got {
				t.Errorf("second pass changed %q to %q", got, again)
			}
		})
	}
}

func TestCleanMultiLineField(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{
			name: "real newlines",
			in:   "1、早操\n\n   2、  晨读   \n",
			want: "1、早操\n2、 晨读",
		},
		{
			name: "escaped newlines",
			in:   `1.a\n2.b`,
			want: "1.a\n2.b",
		},
		{
			name: "inferred split points",
			in:   "1.跑步 2.跳绳3.拍球",
			want: "1.跑步\n2.跳绳\n3.拍球",
		},
		{
			name: "two digit numbers",
			in:   "9.九 10.十 11、十一",
			want: "9.九\n10.十\n11、十一",
		},
		{
			name: "digits inside a longer number are not split",
			in:   "共120.5米",
			want: "共120.5米",
		},
		{
			name: "no numbering",
			in:   "  just   one   line ",
			want: "just one line",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMultiLineField(tt.in); got != tt.want {
				t.Errorf("CleanMultiLineField(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestApplyToEveryStringField(t *testing.T) {
	in := map[string]any{
		"a": `x\ny`,
		"b": []any{"1\r\n2", 3.0, true, nil},
		"c": map[string]any{"d": `p\rq`},
	}
	want := map[string]any{
		"a": "x\ny",
		"b": []any{"1\n2", 3.0, true, nil},
		"c": map[string]any{"d": "p\nq"},
	}

	got := ApplyToEveryStringField(in)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if in["a"] != `x\ny` {
		t.Error("input map was modified")
	}
}

func TestCleanFields(t *testing.T) {
	obj := map[string]any{
		"集体活动": "1.唱歌 2.跳舞",
		"学习区":  7.0,
		"其他":   "1.a 2.b",
	}
	CleanFields(obj, "集体活动", "学习区", "缺失")

	want := map[string]any{
		"集体活动": "1.唱歌\n2.跳舞",
		"学习区":  7.0,
		"其他":   "1.a 2.b",
	}
	if diff := cmp.Diff(want, obj); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
