package task

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// Template is a predefined starting point for a new task.
type Template struct {
	ID            string   `yaml:"id" json:"id"`
	Title         string   `yaml:"title" json:"title"`
	Description   string   `yaml:"description" json:"description"`
	Category      string   `yaml:"category" json:"category"`
	Priority      Priority `yaml:"priority" json:"priority"`
	EstimatedTime string   `yaml:"estimated_time,omitempty" json:"estimated_time,omitempty"`
}

// NewTask converts the template into creation fields.
func (tpl Template) NewTask() NewTask {
	return NewTask{
		Title:       tpl.Title,
		Description: tpl.Description,
		Category:    tpl.Category,
		Priority:    tpl.Priority,
	}
}

// Merge overlays the non-empty fields of n onto the template's fields.
func (tpl Template) Merge(n NewTask) NewTask {
	base := tpl.NewTask()
	if n.Title != "" {
		base.Title = n.Title
	}
	if n.Description != "" {
		base.Description = n.Description
	}
	if n.Priority != "" {
		base.Priority = n.Priority
	}
	if n.Category != "" {
		base.Category = n.Category
	}
	if n.DueDate != nil {
		base.DueDate = n.DueDate
	}
	base.Completed = n.Completed
	return base
}

//nolint:gochecknoglobals // Parsed once from the embedded file
var (
	templatesOnce sync.Once
	templates     []Template
	templatesErr  error
)

// Templates returns the built-in task templates.
func Templates() ([]Template, error) {
	templatesOnce.Do(func() {
		templates, templatesErr = parseTemplates(templatesYAML)
	})
	out := make([]Template, len(templates))
	copy(out, templates)
	return out, templatesErr
}

// FindTemplate looks up a built-in template by ID.
func FindTemplate(id string) (Template, bool) {
	all, err := Templates()
	if err != nil {
		return Template{}, false
	}
	for _, tpl := range all {
		if tpl.ID == id {
			return tpl, true
		}
	}
	return Template{}, false
}

func parseTemplates(data []byte) ([]Template, error) {
	var out []Template
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, tpl := range out {
		if !IsValidPriority(tpl.Priority) {
			return nil, fmt.Errorf("template %s: invalid priority %q", tpl.ID, tpl.Priority)
		}
	}
	return out, nil
}
