package plan

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the JSON kind a generated field must have.
type Kind int

const (
	KindString Kind = iota
	// KindText is a string holding numbered entries, one per line.
	KindText
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString, KindText:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Field declares one key of a generated object.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// Shape is the expected structure of a generated object.
type Shape struct {
	Name   string
	Fields []Field
}

// FillPayload is the flat field to string mapping handed to the document
// renderer.
type FillPayload map[string]string

// ErrShapeInvalid matches every *ShapeError.
var ErrShapeInvalid = errors.New("generated output does not match shape")

// ShapeError lists every problem found while validating one value.
type ShapeError struct {
	Shape    string
	Problems []string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s shape invalid: %s", e.Shape, strings.Join(e.Problems, "; "))
}

// Is reports whether target is ErrShapeInvalid.
func (e *ShapeError) Is(target error) bool {
	return target == ErrShapeInvalid
}

// Names returns the declared field names in order.
func (s Shape) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// TextFields returns the names of KindText fields.
func (s Shape) TextFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == KindText {
			names = append(names, f.Name)
		}
	}
	return names
}

// Validate checks that v is an object whose required fields are present and
// non-null and whose declared fields have the declared kind. Undeclared keys
// are allowed.
func (s Shape) Validate(v any) (map[string]any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ShapeError{Shape: s.Name, Problems: []string{fmt.Sprintf("expected object, got %s", jsonKind(v))}}
	}

	var problems []string
	for _, f := range s.Fields {
		val, present := obj[f.Name]
		if !present || val == nil {
			if f.Required {
				problems = append(problems, f.Name+": missing")
			}
			continue
		}
		if !f.Kind.accepts(val) {
			problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", f.Name, f.Kind, jsonKind(val)))
		}
	}
	if len(problems) > 0 {
		return nil, &ShapeError{Shape: s.Name, Problems: problems}
	}
	return obj, nil
}

func (k Kind) accepts(v any) bool {
	switch v.(type) {
	case string:
		return k == KindString || k == KindText
	case float64:
		return k == KindNumber
	case bool:
		return k == KindBool
	default:
		return false
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ToFillPayload turns every declared field of v into a string. Missing, null
// and mismatched values become "". Numbers and booleans are formatted only
// for fields declared with that kind.
func ToFillPayload(v any, shape Shape) FillPayload {
	obj, _ := v.(map[string]any)
	out := make(FillPayload, len(shape.Fields))
	for _, f := range shape.Fields {
		out[f.Name] = ""
		switch val := obj[f.Name].(type) {
		case string:
			if f.Kind == KindString || f.Kind == KindText {
				out[f.Name] = val
			}
		case float64:
			if f.Kind == KindNumber {
				out[f.Name] = strconv.FormatFloat(val, 'f', -1, 64)
			}
		case bool:
			if f.Kind == KindBool {
				out[f.Name] = strconv.FormatBool(val)
			}
		}
	}
	return out
}

// Weekly plan sections filled outside the main generation.
const (
	FieldLastWeekReview = "上周回顾"
	FieldWeekReview     = "周回顾"
	FieldReflection     = "观察与反思"
)

// WeeklyShape is the generated part of a weekly plan.
var WeeklyShape = Shape{
	Name: "weekly-plan",
	Fields: []Field{
		{Name: "本周主题", Kind: KindString, Required: true},
		{Name: "本周目标", Kind: KindString, Required: true},
		{Name: "儿童议会", Kind: KindString, Required: true},
		{Name: "集体活动", Kind: KindText, Required: true},
		{Name: "学习区", Kind: KindText, Required: true},
		{Name: "运动区", Kind: KindText, Required: true},
		{Name: "公共区域", Kind: KindText, Required: true},
		{Name: "班级区域", Kind: KindText, Required: true},
		{Name: "过渡环节", Kind: KindText, Required: true},
		{Name: "自主签到", Kind: KindString, Required: true},
		{Name: "餐点进餐", Kind: KindString, Required: true},
		{Name: "环境创设", Kind: KindString, Required: true},
		{Name: "资源利用", Kind: KindString, Required: true},
		{Name: "家园共育", Kind: KindString, Required: true},
		{Name: "反思与调整", Kind: KindString, Required: true},
		{Name: FieldLastWeekReview, Kind: KindText},
		{Name: FieldWeekReview, Kind: KindText},
		{Name: FieldReflection, Kind: KindText},
	},
}

// DailyShape is the generated part of a daily plan.
var DailyShape = Shape{
	Name: "daily-plan",
	Fields: []Field{
		{Name: "日期", Kind: KindString, Required: true},
		{Name: "活动名称", Kind: KindString, Required: true},
		{Name: "早餐", Kind: KindString, Required: true},
		{Name: "晨间活动", Kind: KindString, Required: true},
		{Name: "集体活动", Kind: KindText, Required: true},
		{Name: "午餐", Kind: KindString, Required: true},
		{Name: "午休", Kind: KindString, Required: true},
		{Name: "午点", Kind: KindString, Required: true},
		{Name: "离园活动", Kind: KindString, Required: true},
	},
}
