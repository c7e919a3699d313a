package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abatilo/taskflow/internal/config"
	"github.com/abatilo/taskflow/internal/engine"
	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/logging"
	"github.com/abatilo/taskflow/internal/output"
	"github.com/abatilo/taskflow/internal/remote"
	"github.com/abatilo/taskflow/internal/storage"
	"github.com/abatilo/taskflow/internal/task"
)

//nolint:gochecknoglobals // CLI flags and formatter are package-level by design
var (
	jsonOutput bool
	configPath string
	logLevel   string
	formatter  output.Formatter
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskflow",
		Short: "Task and time tracking with remote sync",
		Long:  "taskflow - Track tasks and the time spent on them, synced to a remote store with local fallback.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if jsonOutput {
				formatter = output.NewJSONFormatter()
			} else {
				formatter = output.NewHumanFormatter()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $TASKFLOW_CONFIG or ~/.taskflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		initCmd(),
		addCmd(),
		listCmd(),
		showCmd(),
		updateCmd(),
		startCmd(),
		pauseCmd(),
		completeCmd(),
		rmCmd(),
		activeCmd(),
		historyCmd(),
		sessionsCmd(),
		analyticsCmd(),
		statsCmd(),
		templatesCmd(),
		modeCmd(),
		exportCmd(),
		importCmd(),
		serveCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

// loadConfig reads settings and builds the logger they describe.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(os.Stderr, logging.ResolveLevel(logLevel, cfg.Log.Level), cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openKV opens the configured local backend. The data directory must exist.
func openKV(cfg *config.Config, logger *slog.Logger) (storage.KV, error) {
	files := storage.NewFileKV(cfg.DataDir)
	if !files.IsInitialized() {
		return nil, tferrors.NotInitializedError{Path: cfg.DataDir}
	}
	if cfg.Storage.Backend == config.BackendSQLite {
		db, err := storage.NewSQLiteKV(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		logger.Debug("using sqlite store", "path", db.Path())
		return db, nil
	}
	return files, nil
}

// openRemote builds the remote client, or nil when none is configured.
// Construction failures are logged and the engine runs offline.
func openRemote(cfg *config.Config, logger *slog.Logger) remote.Client {
	if !cfg.RemoteConfigured() {
		logger.Debug("no remote store configured", "driver", cfg.Remote.Driver)
		return nil
	}
	client, err := remote.New(cfg.RemoteClientConfig(), logger)
	if err != nil {
		logger.Warn("remote store unavailable, running offline", "error", err)
		return nil
	}
	return client
}

// getEngine builds a ready engine from configuration.
func getEngine(ctx context.Context) (*engine.Engine, *config.Config, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	kv, err := openKV(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	eng, err := engine.New(ctx, engine.Options{
		Local:     storage.NewLocal(kv, logger),
		Remote:    openRemote(cfg, logger),
		Logger:    logger,
		Retention: cfg.History.Retention,
	})
	if err != nil {
		return nil, nil, errors.Join(err, kv.Close())
	}
	return eng, cfg, nil
}

// mustEngine is getEngine for command bodies; it exits on failure.
func mustEngine(cmd *cobra.Command) (*engine.Engine, *config.Config) {
	eng, cfg, err := getEngine(cmd.Context())
	if err != nil {
		printError(err)
	}
	return eng, cfg
}

// resolveTaskID accepts a full id or any unique prefix of one.
func resolveTaskID(eng *engine.Engine, arg string) string {
	tasks := eng.Tasks()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	id, err := task.ResolveID(arg, ids)
	if err != nil {
		printError(err)
	}
	return id
}

func printOutput(s string) {
	os.Stdout.WriteString(s) //nolint:gosec // stdout write errors are unrecoverable
}

func printError(err error) {
	os.Stdout.WriteString(formatter.FormatError(err)) //nolint:gosec // stdout write errors are unrecoverable
	os.Exit(1)
}

// initCmd implements 'taskflow init'.
func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the taskflow data directory and config file",
		Run: func(_ *cobra.Command, _ []string) {
			cfg, _, err := loadConfig()
			if err != nil {
				printError(err)
			}

			files := storage.NewFileKV(cfg.DataDir)
			if err = files.Init(force); err != nil {
				printError(err)
			}
			path := config.Path(configPath)
			if err = config.Write(path, cfg, force); err != nil {
				printError(err)
			}
			printOutput(formatter.FormatMessage(fmt.Sprintf("Initialized taskflow at %s (config %s)", files.BasePath(), path)))
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Reinitialize even if already exists")
	return cmd
}
