package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abatilo/taskflow/internal/config"
	"github.com/abatilo/taskflow/internal/engine"
	"github.com/abatilo/taskflow/internal/output"
)

// modeCmd implements 'taskflow mode' command group.
func modeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mode",
		Short: "Persistence mode inspection",
	}

	cmd.AddCommand(
		modeStatusCmd(),
		modeProbeCmd(),
	)

	return cmd
}

func modeStatus(eng *engine.Engine, cfg *config.Config) output.ModeStatus {
	status := output.ModeStatus{
		Mode:       eng.Mode(),
		Configured: cfg.RemoteConfigured(),
	}
	if status.Configured {
		status.Driver = cfg.Remote.Driver
	}
	if err := eng.OfflineCause(); err != nil {
		status.Cause = err.Error()
	}
	return status
}

// modeStatusCmd implements 'taskflow mode status'.
func modeStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether tasks persist to the remote store or locally",
		Run: func(cmd *cobra.Command, _ []string) {
			eng, cfg := mustEngine(cmd)
			defer eng.Close()

			printOutput(formatter.FormatMode(modeStatus(eng, cfg)))
		},
	}
}

// modeProbeCmd implements 'taskflow mode probe'.
func modeProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Ping the remote store and report latency",
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, logger, err := loadConfig()
			if err != nil {
				printError(err)
			}
			client := openRemote(cfg, logger)
			if client == nil {
				printOutput(formatter.FormatMessage("No remote store configured"))
				return
			}
			defer client.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Remote.Timeout)
			defer cancel()

			start := time.Now()
			if err = client.Ping(ctx); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Remote %s reachable in %s", cfg.Remote.Driver, time.Since(start).Round(time.Millisecond))))
		},
	}
}
