package storage

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abatilo/taskflow/internal/task"
)

const frontmatterDelimiter = "---"

// taskFrontmatter is the YAML-serializable portion of a task.
type taskFrontmatter struct {
	ID             string        `yaml:"id"`
	Title          string        `yaml:"title"`
	Completed      bool          `yaml:"completed"`
	Priority       task.Priority `yaml:"priority"`
	Category       string        `yaml:"category"`
	DueDate        *string       `yaml:"due_date,omitempty"`
	CreatedAt      string        `yaml:"created_at"`
	UpdatedAt      string        `yaml:"updated_at,omitempty"`
	CompletedAt    *string       `yaml:"completed_at,omitempty"`
	TotalTimeSpent int64         `yaml:"total_time_spent,omitempty"`
}

// ParseMarkdown parses a markdown file with YAML frontmatter into a Task.
// Imported tasks are never active.
func ParseMarkdown(content []byte) (*task.Task, error) {
	lines := strings.Split(string(content), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != frontmatterDelimiter {
		return nil, &parseError{"missing YAML frontmatter"}
	}

	var frontmatterEnd int
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontmatterDelimiter {
			frontmatterEnd = i
			break
		}
	}
	if frontmatterEnd == 0 {
		return nil, &parseError{"unclosed YAML frontmatter"}
	}

	yamlContent := strings.Join(lines[1:frontmatterEnd], "\n")
	var fm taskFrontmatter
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return nil, &parseError{"invalid YAML: " + err.Error()}
	}
	if strings.TrimSpace(fm.Title) == "" {
		return nil, &parseError{"missing title"}
	}

	createdAt, err := parseTime(fm.CreatedAt)
	if err != nil {
		return nil, &parseError{"invalid created_at: " + err.Error()}
	}
	updatedAt := createdAt
	if fm.UpdatedAt != "" {
		if updatedAt, err = parseTime(fm.UpdatedAt); err != nil {
			return nil, &parseError{"invalid updated_at: " + err.Error()}
		}
	}

	var completedAt *time.Time
	if fm.CompletedAt != nil {
		t, err := parseTime(*fm.CompletedAt)
		if err != nil {
			return nil, &parseError{"invalid completed_at: " + err.Error()}
		}
		completedAt = &t
	}

	var dueDate *task.Date
	if fm.DueDate != nil {
		d, err := task.ParseDate(*fm.DueDate)
		if err != nil {
			return nil, &parseError{"invalid due_date: " + err.Error()}
		}
		dueDate = &d
	}

	priority := fm.Priority
	if priority == "" {
		priority = task.PriorityMedium
	}
	if !task.IsValidPriority(priority) {
		return nil, &parseError{fmt.Sprintf("invalid priority: %s", priority)}
	}
	category := fm.Category
	if category == "" {
		category = task.DefaultCategory
	}

	var description string
	if frontmatterEnd+1 < len(lines) {
		description = strings.TrimSpace(strings.Join(lines[frontmatterEnd+1:], "\n"))
	}

	return &task.Task{
		ID:             fm.ID,
		Title:          fm.Title,
		Description:    description,
		Completed:      fm.Completed,
		Priority:       priority,
		DueDate:        dueDate,
		Category:       category,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		CompletedAt:    completedAt,
		TotalTimeSpent: max(fm.TotalTimeSpent, 0),
	}, nil
}

// SerializeMarkdown converts a Task to markdown with YAML frontmatter.
func SerializeMarkdown(t *task.Task) ([]byte, error) {
	fm := taskFrontmatter{
		ID:             t.ID,
		Title:          t.Title,
		Completed:      t.Completed,
		Priority:       t.Priority,
		Category:       t.Category,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      t.UpdatedAt.Format(time.RFC3339),
		TotalTimeSpent: t.TotalTimeSpent,
	}
	if t.DueDate != nil {
		s := t.DueDate.String()
		fm.DueDate = &s
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		fm.CompletedAt = &s
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, err
	}
	enc.Close()

	buf.WriteString(frontmatterDelimiter + "\n")

	if t.Description != "" {
		buf.WriteString("\n")
		buf.WriteString(t.Description)
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// parseTime tries to parse a time string in common formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &parseError{"unrecognized time format"}
}
