package main

import (
	"github.com/spf13/cobra"

	"github.com/abatilo/taskflow/internal/engine"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

// historyTaskID resolves arg against live tasks. History outlives deleted
// tasks, so an unmatched arg is used verbatim.
func historyTaskID(eng *engine.Engine, arg string) string {
	tasks := eng.Tasks()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	if id, err := task.ResolveID(arg, ids); err == nil {
		return id
	}
	return arg
}

// historyCmd implements 'taskflow history'.
func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [id]",
		Short: "Show recent lifecycle actions, for one task or all",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			var taskID string
			if len(args) == 1 {
				taskID = historyTaskID(eng, args[0])
			}
			printOutput(formatter.FormatHistory(eng.TaskHistory(cmd.Context(), taskID)))
		},
	}
}

// sessionsCmd implements 'taskflow sessions'.
func sessionsCmd() *cobra.Command {
	var taskArg string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List time sessions",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			sessions := eng.Sessions()
			if taskArg != "" {
				id := historyTaskID(eng, taskArg)
				sessions = session.NewLedger(sessions).ForTask(id)
			}
			printOutput(formatter.FormatSessions(sessions))
		},
	}
	cmd.Flags().StringVar(&taskArg, "task", "", "Only sessions of this task")
	return cmd
}

// analyticsCmd implements 'taskflow analytics'.
func analyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Summarize tracked time by category",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			printOutput(formatter.FormatAnalytics(eng.TimeAnalytics()))
		},
	}
}

// statsCmd implements 'taskflow stats'.
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tasks by state",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			printOutput(formatter.FormatStats(eng.Stats()))
		},
	}
}
