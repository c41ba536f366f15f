// Command engine runs the behavioral-profiling and mission-recommendation
// engine: feature extraction, tilt prediction, eligibility, bundle
// suggestion and strategic context, plus catalog maintenance.
//
// Every query prints JSON to stdout; logs go to stderr.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/ChoraichiFadwa/ECOLead-Finance/config"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/domain/shared"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// Exit codes let scripts tell caller mistakes from engine failures.
const (
	exitError            = 1
	exitInvalid          = 2
	exitNotFound         = 3
	exitModelUnavailable = 4
)

type rootOptions struct {
	configPath  string
	historyPath string
	logLevel    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	switch {
	case shared.IsValidation(err):
		return exitInvalid
	case shared.IsNotFound(err):
		return exitNotFound
	case shared.IsModelUnavailable(err):
		return exitModelUnavailable
	default:
		return exitError
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "engine",
		Short:         "Behavioral profiling and mission recommendation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&opts.historyPath, "history", "", "JSON fixture of students and completions for the in-memory store")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override observability.log_level")

	root.AddCommand(
		newFeaturesCmd(opts),
		newTiltCmd(opts),
		newEligibleCmd(opts),
		newSuggestCmd(opts),
		newContextCmd(opts),
		newRecordCmd(opts),
		newReloadCmd(opts),
		newWatchCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, *logger.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Observability.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	log := logger.New(logger.Options{
		Output:    os.Stderr,
		Level:     logger.ParseLevel(level),
		Format:    cfg.Observability.LogFormat,
		AddCaller: !cfg.IsProduction(),
	}).With(
		logger.String("app", cfg.App.Name),
		logger.String("env", string(cfg.App.Environment)),
	)
	return cfg, log, nil
}

// withApp builds the application for one command and tears it down after.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, log, err := o.loadConfig()
	if err != nil {
		return err
	}
	ctx := logger.WithContext(cmd.Context(), log)

	a, err := newApp(ctx, cfg, log, o.historyPath)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
