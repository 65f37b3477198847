// Package prompt loads named instruction templates and renders them with
// variable substitution and conditional sections.
package prompt

import "errors"

var (
	// ErrTemplateNotFound is returned when no source exists for a template name.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrTemplateMalformed is returned when a template cannot be decoded or
	// lacks its system or user instruction text.
	ErrTemplateMalformed = errors.New("template malformed")
)

// Template is a named pair of instruction strings plus the output fields
// the generator is expected to produce. Templates are immutable once loaded.
type Template struct {
	Name      string     `yaml:"-"`
	System    string     `yaml:"systemPrompt"`
	User      string     `yaml:"userTemplate"`
	Fields    []string   `yaml:"fields"`
	Variables []Variable `yaml:"variables"`
}

// Variable documents one variable a template expects.
type Variable struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
}

// Rendered is a template's instruction pair after rendering.
type Rendered struct {
	System string
	User   string
	Fields []string
}
