package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/abatilo/taskflow/internal/storage"
)

// exportCmd implements 'taskflow export'.
func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write every task as a markdown file with YAML frontmatter",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			eng, _ := mustEngine(cmd)
			defer eng.Close()

			paths, err := storage.ExportMarkdown(args[0], eng.Tasks())
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Exported %d task(s) to %s", len(paths), args[0])))
		},
	}
}

// importCmd implements 'taskflow import'.
func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Add tasks from markdown files, skipping ids already present",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			tasks, failed, err := storage.ImportMarkdown(args[0])
			if err != nil {
				printError(err)
			}

			eng, _ := mustEngine(cmd)
			defer eng.Close()

			for path, ferr := range failed {
				slog.Warn("skipping unreadable task file", "path", path, "error", ferr)
			}

			imported, err := eng.ImportTasks(cmd.Context(), tasks)
			if err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf(
				"Imported %d task(s), skipped %d duplicate(s), %d unreadable file(s)",
				len(imported), len(tasks)-len(imported), len(failed))))
		},
	}
}
