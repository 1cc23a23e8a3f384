// Package prompt renders named prompt templates against structured task
// context. Templates are loaded once from a static definition set at
// process start and treated as immutable for the process lifetime.
package prompt

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template names known to the renderer.
const (
	TaskAnalysis = "task_analysis"
	Scheduling   = "scheduling"
)

// bracePattern matches ${varname} - varname can contain alphanumeric and underscore.
var bracePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// allowedVars lists the context fields each template may reference.
// A template referencing anything else is a configuration error caught
// at load time, not a per-request failure.
var allowedVars = map[string]map[string]bool{
	TaskAnalysis: {
		"title":         true,
		"description":   true,
		"context_notes": true,
		"priority":      true,
	},
	Scheduling: {
		"title":            true,
		"duration_minutes": true,
		"priority":         true,
		"deadline":         true,
		"context_notes":    true,
		"calendar_summary": true,
		"work_hours":       true,
		"focus_preference": true,
	},
}

// Prompt is a rendered system+user message pair.
type Prompt struct {
	System string
	User   string
}

// promptTemplate is one named template definition.
type promptTemplate struct {
	System       string `yaml:"system"`
	UserTemplate string `yaml:"user_template"`
}

// Renderer renders the static template set.
// Safe for concurrent use after construction.
type Renderer struct {
	templates map[string]promptTemplate
}

// NewRenderer parses and validates the template definitions.
// Validation failures here are fatal configuration errors: every template
// must exist, and every placeholder must name an allowed context field.
func NewRenderer(definitions []byte) (*Renderer, error) {
	var templates map[string]promptTemplate
	if err := yaml.Unmarshal(definitions, &templates); err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}

	for _, name := range []string{TaskAnalysis, Scheduling} {
		tpl, ok := templates[name]
		if !ok {
			return nil, fmt.Errorf("prompt template %q missing", name)
		}
		for _, varName := range placeholders(tpl.UserTemplate) {
			if !allowedVars[name][varName] {
				return nil, fmt.Errorf("prompt template %q references unknown field %q", name, varName)
			}
		}
	}

	return &Renderer{templates: templates}, nil
}

// NewDefaultRenderer loads the embedded template definitions.
func NewDefaultRenderer() (*Renderer, error) {
	return NewRenderer(defaultTemplates)
}

// Render substitutes vars into the named template.
// Returns an error for unknown templates or missing variables; callers
// supply a complete variable set, so a miss indicates a programming error.
func (r *Renderer) Render(name string, vars map[string]any) (Prompt, error) {
	tpl, ok := r.templates[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt template: %s", name)
	}

	var missing []string
	user := bracePattern.ReplaceAllStringFunc(tpl.UserTemplate, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := vars[varName]; ok {
			return fmt.Sprintf("%v", val)
		}
		missing = append(missing, varName)
		return match
	})

	if len(missing) > 0 {
		sort.Strings(missing)
		return Prompt{}, fmt.Errorf("template %s: undefined variables: %s", name, strings.Join(missing, ", "))
	}

	return Prompt{System: tpl.System, User: user}, nil
}

// placeholders extracts the ${var} names referenced by a template.
func placeholders(s string) []string {
	matches := bracePattern.FindAllStringSubmatch(s, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
