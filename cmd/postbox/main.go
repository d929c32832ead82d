package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/blackcoderx/postbox/pkg/core"
	"github.com/blackcoderx/postbox/pkg/core/tools"
	"github.com/blackcoderx/postbox/pkg/history"
	"github.com/blackcoderx/postbox/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
	rootCmd      = &cobra.Command{
		Use:   "postbox",
		Short: "postbox - store, resolve and replay HTTP requests from collections",
		Long: `postbox keeps HTTP requests in named collections, fills them in from
named environments of {{variables}}, and replays them from the terminal or
through a small HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case outputText, outputJSON, outputYAML:
			default:
				return fmt.Errorf("%w: --output must be text, json or yaml", storage.ErrValidation)
			}

			// Load .env file if it exists (optional, warn if malformed)
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
			}
			return nil
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .postbox/config.json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", outputText, "output format: text, json or yaml")

	rootCmd.AddCommand(
		newRunCmd(),
		newSaveCmd(),
		newCollectionsCmd(),
		newEnvCmd(),
		newHistoryCmd(),
		newServeCmd(),
	)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(core.WorkspaceFolderName)
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	defaults := core.DefaultConfig()
	viper.SetDefault("collections_dir", defaults.CollectionsDir)
	viper.SetDefault("environments_dir", defaults.EnvironmentsDir)
	viper.SetDefault("history_path", defaults.HistoryPath)
	viper.SetDefault("skip_disabled_variables", defaults.SkipDisabledVariables)
	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("http.timeout_seconds", defaults.HTTP.TimeoutSeconds)
	viper.SetDefault("http.requests_per_second", defaults.HTTP.RequestsPerSecond)

	viper.SetEnvPrefix("POSTBOX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// Names used by earlier deployments of the runner.
	_ = viper.BindEnv("collections_dir", "POSTBOX_COLLECTIONS_DIR", "COLLECTIONS_DIR")
	_ = viper.BindEnv("environments_dir", "POSTBOX_ENVIRONMENTS_DIR", "ENV_DIR")

	_ = viper.ReadInConfig()
}

// loadConfig initializes the workspace on first run and returns the
// effective configuration.
func loadConfig() (core.Config, error) {
	var cfg core.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	if err := core.InitializeWorkspace(cfg); err != nil {
		return cfg, err
	}

	// Re-read config after initialization (first run creates config.json
	// after Viper's initial read, so values would be stale without this)
	if cfgFile == "" {
		if err := viper.ReadInConfig(); err == nil {
			if err := viper.Unmarshal(&cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	return cfg, nil
}

// app holds the wired components for one command invocation.
type app struct {
	cfg          core.Config
	collections  *storage.CollectionStore
	environments *storage.EnvironmentStore
	resolver     *core.Resolver
	runner       *core.Runner
	history      *history.Store
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:          cfg,
		collections:  storage.NewCollectionStore(storage.NewDirStore(filepath.Clean(cfg.CollectionsDir))),
		environments: storage.NewEnvironmentStore(storage.NewDirStore(filepath.Clean(cfg.EnvironmentsDir))),
	}

	a.resolver = core.NewResolver(a.collections, a.environments,
		core.WithSkipDisabled(cfg.SkipDisabledVariables))

	var recorder core.Recorder
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: history disabled: %v\n", err)
		} else {
			a.history = store
			recorder = store
		}
	}

	executor := tools.NewHTTPTool(
		tools.WithTimeout(time.Duration(cfg.HTTP.TimeoutSeconds)*time.Second),
		tools.WithRateLimit(cfg.HTTP.RequestsPerSecond),
	)
	a.runner = core.NewRunner(a.resolver, executor, recorder)
	return a, nil
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close history: %v\n", err)
		}
	}
}

// exitCode maps error kinds onto distinct process exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return 3
	case errors.Is(err, storage.ErrValidation):
		return 2
	case errors.Is(err, storage.ErrParse):
		return 4
	case core.IsExecutionError(err):
		return 5
	default:
		return 1
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
