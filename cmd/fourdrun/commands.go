package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/fourdrun/internal/application/pipeline"
	"github.com/sawpanic/fourdrun/internal/config"
	"github.com/sawpanic/fourdrun/internal/draw"
	httpserver "github.com/sawpanic/fourdrun/internal/interfaces/http"
	"github.com/sawpanic/fourdrun/internal/interfaces/http/handlers"
	"github.com/sawpanic/fourdrun/internal/provider"
	"github.com/sawpanic/fourdrun/internal/scheduler"
)

// withApp opens the application for the duration of fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func (c *cli) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest results and append them to the history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.Fetch(ctx)
				if err != nil {
					return err
				}
				printFetch(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|->",
		Short: "Import historical results from a results-sheet CSV",
		Long: `Import rows laid out as DrawDate,1st,2nd,3rd,Starter,Consolation.
Starter and Consolation hold space separated numbers. Use - to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.Import(ctx, in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d new records from %d rows (%d rows and %d numbers dropped)\n",
					res.Added, res.Report.Rows, res.Report.DroppedRows, res.Report.DroppedNumbers)
				return nil
			})
		},
	}
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv|-]",
		Short: "Write the stored history as a results-sheet CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				export := func(w io.Writer) (int, error) { return a.exec.Export(ctx, w) }

				var (
					rows int
					err  error
				)
				if len(args) == 1 && args[0] != "-" {
					f, createErr := os.Create(args[0])
					if createErr != nil {
						return createErr
					}
					rows, err = exportTo(f, export)
				} else {
					rows, err = export(cmd.OutOrStdout())
				}
				if err != nil {
					return err
				}
				log.Info().Int("rows", rows).Msg("History exported")
				return nil
			})
		},
	}
}

// exportTo runs export against out and closes it. A close error is returned
// when the export itself succeeded.
func exportTo(out io.WriteCloser, export func(io.Writer) (int, error)) (int, error) {
	rows, err := export(out)
	if cerr := out.Close(); cerr != nil && err == nil {
		return rows, fmt.Errorf("close export file: %w", cerr)
	}
	return rows, err
}

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and write configuration",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <file.yaml>",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", args[0])
			}
			if err := config.Save(c.cfg, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}

func (c *cli) predictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict",
		Short: "Rank candidates from the history and store them in the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.Predict(ctx)
				if err != nil {
					return err
				}
				return c.renderer(cmd.OutOrStdout()).Candidates(res.Ranked)
			})
		},
	}
}

func (c *cli) boxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "box",
		Short: "Build and store a 4x4 box with the configured strategy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.BuildBox(ctx)
				if err != nil {
					return err
				}
				return c.renderer(cmd.OutOrStdout()).Box(res.Result)
			})
		},
	}
}

func (c *cli) settleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settle",
		Short: "Score the outstanding prediction and boxes against the latest draw",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.Settle(ctx)
				if err != nil {
					return err
				}
				return c.printSettlement(ctx, cmd.OutOrStdout(), a, res)
			})
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, settle, predict and build a box in one pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res, err := a.exec.Run(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				r := c.renderer(out)
				if res.Fetch != nil {
					printFetch(out, res.Fetch)
				}
				for _, e := range res.Errors {
					fmt.Fprintf(out, "! %s: %s\n", e.Step, e.Message)
				}
				if err := c.printSettlement(ctx, out, a, res.Settlement); err != nil {
					return err
				}
				if err := r.Candidates(res.Predict.Ranked); err != nil {
					return err
				}
				return r.Box(res.Box.Result)
			})
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only monitoring endpoints and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				deps := handlers.Deps{
					Repo:     a.repo,
					Health:   a.health,
					Metrics:  a.metrics,
					Feed:     a.feed,
					FeedName: provider.Name,
					Version:  version,
				}

				if withScheduler {
					sched, err := scheduler.New(a.exec, c.cfg.Schedule)
					if err != nil {
						return err
					}
					deps.Scheduler = sched
					go func() {
						if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
							log.Error().Err(err).Msg("Scheduler stopped")
						}
					}()
				}

				server, err := httpserver.NewServer(c.cfg.HTTP, deps)
				if err != nil {
					return err
				}

				errCh := make(chan error, 1)
				go func() { errCh <- server.Start() }()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
					log.Info().Msg("Shutdown signal received")
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			})
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "schedule", false, "also run the pipeline on the configured interval")
	return cmd
}

func (c *cli) scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the full pipeline on a fixed interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				sched, err := scheduler.New(a.exec, c.cfg.Schedule)
				if err != nil {
					return err
				}
				if err := sched.Start(ctx); err != nil && ctx.Err() == nil {
					return err
				}
				return nil
			})
		},
	}
}

func printFetch(out io.Writer, res *pipeline.FetchResult) {
	date := draw.FormatDrawDate(res.Date)
	if res.Skipped {
		fmt.Fprintf(out, "Results for %s already stored\n", date)
		return
	}
	src := "feed"
	if res.Cached {
		src = "cache"
	}
	fmt.Fprintf(out, "Stored %d of %d numbers for %s (from %s)\n", res.Added, res.Numbers, date, src)
}

// printSettlement renders each settled entry in the palette color of its
// position in the ledger.
func (c *cli) printSettlement(ctx context.Context, out io.Writer, a *app, s *pipeline.Settlement) error {
	if s == nil {
		fmt.Fprintln(out, "No draws stored yet")
		return nil
	}
	r := c.renderer(out)
	if err := r.Header("Settled against " + draw.FormatDrawDate(s.DrawDate)); err != nil {
		return err
	}
	if s.Prediction == nil && len(s.Boxes) == 0 {
		fmt.Fprintln(out, "Nothing to settle")
		return nil
	}

	if s.Prediction != nil {
		ledger, err := a.repo.Predictions.List(ctx, 0)
		if err != nil {
			return err
		}
		if err := r.Stats(len(ledger), s.Prediction.Stats.String()); err != nil {
			return err
		}
	}

	if len(s.Boxes) > 0 {
		all, err := a.repo.Boxes.All(ctx)
		if err != nil {
			return err
		}
		row := make(map[string]int, len(all))
		for i, b := range all {
			row[b.ID] = i + 1
		}
		for _, b := range s.Boxes {
			if err := r.Stats(row[b.ID], b.Stats.String()); err != nil {
				return err
			}
		}
	}
	return nil
}
