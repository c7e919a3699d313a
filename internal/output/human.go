package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

const timeLayout = "2006-01-02 15:04"

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
	}
)

// HumanFormatter formats output for human-readable terminal display.
type HumanFormatter struct{}

// NewHumanFormatter creates a new HumanFormatter.
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// FormatTask formats a single task for display.
func (f *HumanFormatter) FormatTask(t task.Task) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n", mutedStyle.Render("["+t.ID+"]"), titleStyle.Render(t.Title))
	fmt.Fprintf(&sb, "  Status:   %s\n", f.status(t))
	fmt.Fprintf(&sb, "  Priority: %s\n", f.priority(t.Priority))
	fmt.Fprintf(&sb, "  Category: %s\n", t.Category)
	if t.DueDate != nil {
		fmt.Fprintf(&sb, "  Due:      %s\n", t.DueDate)
	}
	fmt.Fprintf(&sb, "  Tracked:  %s\n", session.FormatTotal(t.TotalTimeSpent))
	fmt.Fprintf(&sb, "  Created:  %s\n", t.CreatedAt.Local().Format(timeLayout))
	if t.StartedAt != nil {
		fmt.Fprintf(&sb, "  Started:  %s\n", t.StartedAt.Local().Format(timeLayout))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(&sb, "  Done:     %s\n", t.CompletedAt.Local().Format(timeLayout))
	}
	if t.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(t.Description)
		sb.WriteString("\n")
	}

	return sb.String()
}

// FormatTaskList formats a list of tasks for display.
func (f *HumanFormatter) FormatTaskList(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "No tasks found.\n"
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}

	var sb strings.Builder
	for _, t := range tasks {
		sb.WriteString(f.formatTaskLine(t, task.ShortID(t.ID, ids)))
	}
	return sb.String()
}

// formatTaskLine formats a single task as a compact one-liner.
func (f *HumanFormatter) formatTaskLine(t task.Task, shortID string) string {
	extra := ""
	if t.TotalTimeSpent > 0 {
		extra += " " + mutedStyle.Render("("+session.FormatTotal(t.TotalTimeSpent)+")")
	}
	if t.DueDate != nil {
		extra += " " + mutedStyle.Render("due "+t.DueDate.String())
	}
	return fmt.Sprintf("%s %s [%s] %s %s%s\n",
		f.statusIcon(t), f.priorityMark(t.Priority), shortID, t.Title, mutedStyle.Render("#"+t.Category), extra)
}

func (f *HumanFormatter) status(t task.Task) string {
	switch {
	case t.IsActive:
		return activeStyle.Render("active")
	case t.Completed:
		return "completed"
	default:
		return "pending"
	}
}

func (f *HumanFormatter) statusIcon(t task.Task) string {
	switch {
	case t.IsActive:
		return activeStyle.Render("[*]")
	case t.Completed:
		return "[X]"
	default:
		return "[ ]"
	}
}

func (f *HumanFormatter) priority(p task.Priority) string {
	if style, ok := priorityStyles[p]; ok {
		return style.Render(string(p))
	}
	return string(p)
}

func (f *HumanFormatter) priorityMark(p task.Priority) string {
	var mark string
	switch p {
	case task.PriorityHigh:
		mark = "H"
	case task.PriorityMedium:
		mark = "M"
	case task.PriorityLow:
		mark = "L"
	default:
		mark = "?"
	}
	if style, ok := priorityStyles[p]; ok {
		return style.Render(mark)
	}
	return mark
}

// FormatActive formats the running task with a live clock.
func (f *HumanFormatter) FormatActive(a Active) string {
	if a.Task == nil {
		return "No active task.\n"
	}
	return fmt.Sprintf("%s %s  %s  %s\n",
		activeStyle.Render("▶"),
		titleStyle.Render(a.Task.Title),
		session.FormatClock(a.Current),
		mutedStyle.Render("total "+session.FormatTotal(a.Total())))
}

// FormatHistory formats history entries, newest first.
func (f *HumanFormatter) FormatHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No history.\n"
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %-9s  %s", e.Timestamp.Local().Format(timeLayout), e.Action, short(e.TaskID))
		if len(e.NewValues) > 0 && e.Action == history.ActionUpdated {
			fmt.Fprintf(&sb, "  %s", mutedStyle.Render(string(e.NewValues)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatSessions formats time sessions, newest first.
func (f *HumanFormatter) FormatSessions(sessions []session.Session) string {
	if len(sessions) == 0 {
		return "No sessions.\n"
	}

	var sb strings.Builder
	for _, s := range sessions {
		dur := activeStyle.Render("running")
		if s.Duration != nil {
			dur = session.FormatClock(*s.Duration)
		}
		fmt.Fprintf(&sb, "%s  %s  %s\n", s.StartedAt.Local().Format(timeLayout), short(s.TaskID), dur)
	}
	return sb.String()
}

// FormatAnalytics formats totals and the per-category breakdown.
func (f *HumanFormatter) FormatAnalytics(a session.Analytics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", titleStyle.Render("Time tracked"))
	fmt.Fprintf(&sb, "  Total:    %s\n", session.FormatTotal(a.TotalTime))
	fmt.Fprintf(&sb, "  Sessions: %d\n", a.SessionCount)
	fmt.Fprintf(&sb, "  Average:  %s\n", session.FormatTotal(int64(a.AvgSessionTime)))

	if len(a.CategoryStats) > 0 {
		categories := make([]string, 0, len(a.CategoryStats))
		for c := range a.CategoryStats {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool {
			ci, cj := a.CategoryStats[categories[i]], a.CategoryStats[categories[j]]
			if ci != cj {
				return ci > cj
			}
			return categories[i] < categories[j]
		})

		fmt.Fprintf(&sb, "\n%s\n", titleStyle.Render("By category"))
		for i, c := range categories {
			connector := "├── "
			if i == len(categories)-1 {
				connector = "└── "
			}
			fmt.Fprintf(&sb, "%s%s  %s\n", connector, c, session.FormatTotal(a.CategoryStats[c]))
		}
	}
	return sb.String()
}

// FormatStats formats task counts.
func (f *HumanFormatter) FormatStats(s task.Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "  Total:      %d\n", s.Total)
	fmt.Fprintf(&sb, "  Completed:  %d\n", s.Completed)
	fmt.Fprintf(&sb, "  Pending:    %d\n", s.Pending)
	fmt.Fprintf(&sb, "  Overdue:    %d\n", s.Overdue)
	fmt.Fprintf(&sb, "  Completion: %d%%\n", s.CompletionRate)
	return sb.String()
}

// FormatTemplates formats the template catalogue grouped by category.
func (f *HumanFormatter) FormatTemplates(templates []task.Template) string {
	if len(templates) == 0 {
		return "No templates.\n"
	}

	var sb strings.Builder
	current := ""
	for _, tpl := range templates {
		if tpl.Category != current {
			current = tpl.Category
			fmt.Fprintf(&sb, "%s\n", titleStyle.Render(current))
		}
		est := ""
		if tpl.EstimatedTime != "" {
			est = " " + mutedStyle.Render("~"+tpl.EstimatedTime)
		}
		fmt.Fprintf(&sb, "  %-22s %s %s%s\n", tpl.ID, f.priorityMark(tpl.Priority), tpl.Title, est)
	}
	return sb.String()
}

// FormatMode formats the persistence mode.
func (f *HumanFormatter) FormatMode(m ModeStatus) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mode:   %s\n", m.Mode)
	if m.Configured {
		fmt.Fprintf(&sb, "Remote: %s\n", m.Driver)
	} else {
		sb.WriteString("Remote: not configured\n")
	}
	if m.Cause != "" {
		fmt.Fprintf(&sb, "Cause:  %s\n", m.Cause)
	}
	return sb.String()
}

// FormatError formats an error for display.
func (f *HumanFormatter) FormatError(err error) string {
	return fmt.Sprintf("%s %s\n", errorStyle.Render("Error:"), err.Error())
}

// FormatMessage formats a simple message.
func (f *HumanFormatter) FormatMessage(msg string) string {
	return msg + "\n"
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
