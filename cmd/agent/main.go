package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dontdude/execagent/internal/agent"
	"github.com/dontdude/execagent/internal/config"
	execagent "github.com/dontdude/execagent/internal/executor"
	"github.com/dontdude/execagent/internal/link"
	dockersandbox "github.com/dontdude/execagent/internal/sandbox/docker"
	"github.com/dontdude/execagent/internal/telemetry"
	"github.com/dontdude/execagent/internal/workspace"
)

var cfg = config.FromEnv(config.Default())

var rootCmd = &cobra.Command{
	Use:   "execagent",
	Short: "Execution agent: runs dispatcher jobs in isolated containers",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfg.DispatcherURL, "dispatcher-url", cfg.DispatcherURL, "dispatcher websocket URL")
	rootCmd.Flags().StringVar(&cfg.WorkspaceRoot, "workspace-root", cfg.WorkspaceRoot, "per-job scratch directory root")
	rootCmd.Flags().DurationVar(&cfg.ReconnectDelay, "reconnect-delay", cfg.ReconnectDelay, "delay between dispatcher reconnect attempts")
	rootCmd.Flags().StringVar(&cfg.LanguageProfilesPath, "language-profiles", cfg.LanguageProfilesPath, "path to a languages.yaml overriding the embedded defaults")
	rootCmd.Flags().IntVar(&cfg.MaxConcurrentJobs, "max-concurrent-jobs", cfg.MaxConcurrentJobs, "maximum number of jobs executed concurrently")
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("execagent exited with error", "error", err)
		os.Exit(1)
	}
}

func run() {
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	registry, err := config.LoadLanguageRegistry(cfg.LanguageProfilesPath)
	if err != nil {
		slog.Error("failed to load language profiles", "error", err)
		os.Exit(1)
	}

	workspace.Sweep(cfg.WorkspaceRoot)

	driver, err := dockersandbox.New()
	if err != nil {
		slog.Error("failed to initialise docker sandbox driver", "error", err)
		os.Exit(1)
	}

	probe := telemetry.New(driver.Client())
	exec := execagent.New(registry, driver, cfg.WorkspaceRoot)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	agentID := agent.NewID()
	lnk := link.New(cfg.DispatcherURL, agentID, cfg.ReconnectDelay)
	ag := agent.New(agentID, lnk, exec, probe, registry, cfg.MaxConcurrentJobs)

	slog.Info("starting execution agent", "agentId", ag.ID(), "dispatcherURL", cfg.DispatcherURL)

	go lnk.Run(ctx)
	ag.Run(ctx)

	slog.Info("execution agent shutting down")
	time.Sleep(100 * time.Millisecond) // let in-flight log lines flush
}
