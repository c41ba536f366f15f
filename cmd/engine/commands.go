package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/command"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/application/query"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/catalog"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/persistence/postgres"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/scheduler"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/infrastructure/scheduler/jobs"
	"github.com/ChoraichiFadwa/ECOLead-Finance/internal/interface/ops"
	"github.com/ChoraichiFadwa/ECOLead-Finance/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

func newFeaturesCmd(opts *rootOptions) *cobra.Command {
	var q query.ComputeFeaturesQuery
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Compute a student's 13-dimension behavioral vector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.features.Handle(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	return cmd
}

func newTiltCmd(opts *rootOptions) *cobra.Command {
	var q query.PredictTiltQuery
	cmd := &cobra.Command{
		Use:   "tilt",
		Short: "Classify a student's (or a raw vector's) risk appetite",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.predict.Handle(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	cmd.Flags().Float64SliceVar(&q.Vector, "vector", nil, "comma-separated feature vector (13 values)")
	return cmd
}

func newEligibleCmd(opts *rootOptions) *cobra.Command {
	var q query.GetEligibleMissionsQuery
	cmd := &cobra.Command{
		Use:   "eligible",
		Short: "List the missions a student can attempt now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.eligible.Handle(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&q.Track, "track", "", "track override")
	cmd.Flags().StringSliceVar(&q.Whitelist, "concept", nil, "restrict to these concepts (repeatable)")
	return cmd
}

func newSuggestCmd(opts *rootOptions) *cobra.Command {
	var q query.SuggestBundleQuery
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Rank eligible missions against a learning goal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.suggest.Handle(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&q.Goal, "goal", "balance", "reduce_stress | boost_rentabilite | preserve_liquidity | balance")
	cmd.Flags().IntVar(&q.MaxBundle, "max", 0, "bundle size, 1 to 6 (default 3)")
	cmd.Flags().StringSliceVar(&q.Whitelist, "concept", nil, "restrict to these concepts (repeatable)")
	return cmd
}

func newContextCmd(opts *rootOptions) *cobra.Command {
	var q query.GetStrategicContextQuery
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Build the stage-adaptive strategic context for a student",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.strategic.Handle(ctx, q)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
	cmd.Flags().StringVar(&q.StudentID, "student", "", "student id")
	return cmd
}

// ══════════════════════════════════════════════════════════════════════════════
// COMMANDS
// ══════════════════════════════════════════════════════════════════════════════

func newRecordCmd(opts *rootOptions) *cobra.Command {
	var c command.RecordCompletionCommand
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a completed mission (recomputes the tilt on cadence)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.record.Handle(ctx, c)
				if res != nil {
					if perr := printJSON(cmd, res); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&c.StudentID, "student", "", "student id")
	cmd.Flags().StringVar(&c.MissionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&c.ChosenOption, "option", "", "chosen option key")
	cmd.Flags().Float64Var(&c.TimeSpentSeconds, "time", 0, "seconds spent on the mission")
	cmd.Flags().StringSliceVar(&c.ActiveEventIDs, "event", nil, "active market event ids (repeatable)")
	cmd.Flags().BoolVar(&c.EventViewed, "event-viewed", false, "the event card was opened")
	cmd.Flags().BoolVar(&c.QuickCheckCorrect, "quick-check", false, "the quick check was answered correctly")
	cmd.Flags().StringVar(&c.CorrelationID, "correlation-id", "", "propagated to emitted events")
	return cmd
}

func newReloadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload and validate the mission and event catalog",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.reload.Handle(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}

// newWatchCmd keeps the catalog fresh and serves ops endpoints until
// interrupted.
func newWatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Hot-reload the catalog and serve health and metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				return runWatch(ctx, a)
			})
		},
	}
}

func runWatch(ctx context.Context, a *app) error {
	cfg := a.cfg
	g, ctx := errgroup.WithContext(ctx)
	var running int

	if cfg.Catalog.Watch {
		w, err := catalog.NewWatcher(a.reload, a.loader.Paths(), cfg.Catalog.Debounce, a.log)
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
		running++
	}

	if cfg.Catalog.PollInterval > 0 {
		s := scheduler.NewScheduler(scheduler.Config{Logger: a.log})
		if err := s.Register(jobs.NewPollCatalogJob(a.reload), scheduler.Every(cfg.Catalog.PollInterval)); err != nil {
			return err
		}
		g.Go(func() error { return s.Run(ctx) })
		running++
	}

	if cfg.Observability.OpsAddr != "" {
		srv := ops.NewServer(cfg.Observability.OpsAddr, a.health, a.log)
		g.Go(func() error { return srv.Run(ctx) })
		running++
	}

	if running == 0 {
		return errors.New("nothing to run: enable catalog.watch, catalog.poll_interval or observability.ops_addr")
	}
	a.log.Info("watching", logger.Int("services", running))
	return g.Wait()
}

// newMigrateCmd manages the Postgres schema. It needs no catalog.
func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, log, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if !cfg.Database.Enabled() {
				return errors.New("migrate: database.url or database.host is not configured")
			}

			ctx := cmd.Context()
			conn, err := postgres.NewConnection(ctx, postgresConfig(cfg.Database), log)
			if err != nil {
				return err
			}
			defer conn.Close()
			m := postgres.NewMigrator(conn)

			switch action {
			case "down":
				return m.Rollback(ctx)
			case "status":
				status, err := m.Status(ctx)
				if err != nil {
					return err
				}
				for _, s := range status {
					state := "pending"
					if s.IsApplied {
						state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%03d %-32s %s\n", s.Version, s.Name, state)
				}
				return nil
			default:
				n, err := m.Migrate(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", n)
				return nil
			}
		},
	}
	return cmd
}
