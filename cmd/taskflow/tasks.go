package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/output"
	"github.com/abatilo/taskflow/internal/task"
)

// parseDue parses a --due flag value.
func parseDue(value string) *task.Date {
	d, err := task.ParseDate(value)
	if err != nil {
		printError(tferrors.ValidationError{Field: "due_date", Reason: err.Error()})
	}
	return &d
}

// addCmd implements 'taskflow add'.
func addCmd() *cobra.Command {
	var description, priority, category, due, template string
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Add a new task",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			n := task.NewTask{
				Description: description,
				Priority:    task.Priority(priority),
				Category:    category,
			}
			if len(args) == 1 {
				n.Title = args[0]
			}
			if due != "" {
				n.DueDate = parseDue(due)
			}
			if template != "" {
				tpl, ok := task.FindTemplate(template)
				if !ok {
					printError(TemplateNotFoundError{ID: template})
				}
				n = tpl.Merge(n)
			}

			eng, _ := mustEngine(cmd)
			defer eng.Close()

			t, err := eng.AddTask(cmd.Context(), n)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority (high, medium, low; default medium)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category (default general)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&template, "template", "t", "", "Start from a template (see 'taskflow templates')")
	return cmd
}

// listCmd implements 'taskflow list'.
func listCmd() *cobra.Command {
	var showPending, showCompleted, byPriority bool
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			filter := task.Filter{
				Pending:   showPending,
				Completed: showCompleted,
				Category:  category,
			}
			tasks := filter.Apply(eng.Tasks())
			if byPriority {
				task.SortByPriority(tasks)
			}
			printOutput(formatter.FormatTaskList(tasks))
		},
	}
	cmd.Flags().BoolVar(&showPending, "pending", false, "Show only pending tasks")
	cmd.Flags().BoolVar(&showCompleted, "completed", false, "Show only completed tasks")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Show only tasks in category")
	cmd.Flags().BoolVar(&byPriority, "by-priority", false, "Sort by priority instead of creation time")
	return cmd
}

// showCmd implements 'taskflow show'.
func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show task details",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			id := resolveTaskID(eng, args[0])
			t, ok := eng.Task(id)
			if !ok {
				printError(tferrors.TaskNotFoundError{ID: id})
			}
			printOutput(formatter.FormatTask(t))
		},
	}
}

// updateCmd implements 'taskflow update'.
func updateCmd() *cobra.Command {
	var title, description, priority, category, due string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change task fields",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			var patch task.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = task.Ptr(title)
			}
			if flags.Changed("description") {
				patch.Description = task.Ptr(description)
			}
			if flags.Changed("priority") {
				patch.Priority = task.Ptr(task.Priority(priority))
			}
			if flags.Changed("category") {
				patch.Category = task.Ptr(category)
			}
			if flags.Changed("due") {
				patch.DueDate = parseDue(due)
			}
			if patch.IsEmpty() {
				printError(NoChangesError{})
			}

			eng, _ := mustEngine(cmd)
			defer eng.Close()

			t, err := eng.UpdateTask(cmd.Context(), resolveTaskID(eng, args[0]), patch)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "New priority (high, medium, low)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "New category")
	cmd.Flags().StringVar(&due, "due", "", "New due date (YYYY-MM-DD)")
	return cmd
}

// startCmd implements 'taskflow start'.
func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start timing a task, pausing any other active task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			t, err := eng.StartTask(cmd.Context(), resolveTaskID(eng, args[0]))
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
}

// pauseCmd implements 'taskflow pause'. Without an id it pauses the active task.
func pauseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pause [id]",
		Short: "Stop timing a task",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			var id string
			if len(args) == 1 {
				id = resolveTaskID(eng, args[0])
			} else {
				active, ok := eng.ActiveTask()
				if !ok {
					printOutput(formatter.FormatMessage("No active task"))
					return
				}
				id = active.ID
			}

			t, err := eng.PauseTask(cmd.Context(), id)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
}

// completeCmd implements 'taskflow complete'.
func completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a task completed, pausing it first if active",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			t, err := eng.CompleteTask(cmd.Context(), resolveTaskID(eng, args[0]))
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTask(t))
		},
	}
}

// rmCmd implements 'taskflow rm'.
func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Remove a task",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			removed, err := eng.DeleteTask(cmd.Context(), resolveTaskID(eng, args[0]))
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Removed task %s (%s)", removed.ID, removed.Title)))
		},
	}
}

// activeCmd implements 'taskflow active'.
func activeCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "active",
		Short: "Show the task being timed",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			current := func() output.Active {
				t, elapsed, ok := eng.ActiveElapsed()
				if !ok {
					return output.Active{}
				}
				return output.Active{Task: &t, Current: elapsed}
			}

			a := current()
			printOutput(formatter.FormatActive(a))
			if !watch || jsonOutput || a.Task == nil {
				return
			}

			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-cmd.Context().Done():
					return
				case <-ticker.C:
					printOutput("\033[1A\033[2K" + formatter.FormatActive(current()))
				}
			}
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep the clock running until interrupted")
	return cmd
}

// templatesCmd implements 'taskflow templates'.
func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List built-in task templates",
		Run: func(_ *cobra.Command, _ []string) {
			templates, err := task.Templates()
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatTemplates(templates))
		},
	}
}
