package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cellarpos/backend/internal/cache"
	"cellarpos/backend/internal/config"
	"cellarpos/backend/internal/domain"
	"cellarpos/backend/internal/forecast"
	"cellarpos/backend/internal/service"
	"cellarpos/backend/internal/store"
	"cellarpos/backend/internal/store/memory"
	pgstore "cellarpos/backend/internal/store/postgres"
)

const operatorActor = "forecastctl"

type options struct {
	databaseURL string
	orgID       string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "forecastctl",
		Short:        "Run and inspect budget forecasts from the command line",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL, in-memory demo data when empty)")
	root.PersistentFlags().StringVarP(&opts.orgID, "org", "o", memory.DemoOrganizationID, "Organization id")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	root.AddCommand(newRunCmd(opts), newHistoryCmd(opts))
	return root
}

func newRunCmd(opts *options) *cobra.Command {
	var months, historyMonths int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute a forecast and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := operatorContext(cmd.Context(), opts, cmd.ErrOrStderr())
			repo, closeRepo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeRepo()

			var newJitter func() forecast.Jitter
			if seed != 0 {
				newJitter = func() forecast.Jitter { return forecast.NewRandomJitter(seed) }
			}
			svc := service.New(repo, cache.NoopForecastCache{}, forecast.NewEngine(newJitter), service.Options{})

			resp, _, err := svc.Forecast(ctx, domain.ForecastRequest{
				OrganizationID: opts.orgID,
				Months:         months,
				HistoryMonths:  historyMonths,
			})
			if err != nil {
				return fmt.Errorf("forecast failed: %w", err)
			}

			waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := svc.Wait(waitCtx); err != nil {
				return fmt.Errorf("forecast was not persisted: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", forecast.DefaultMonths, "Months to forecast (1-36)")
	cmd.Flags().IntVar(&historyMonths, "history", forecast.DefaultHistoryMonths, "Months of history to aggregate (1-36)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Fix the jitter seed for a reproducible run")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List persisted forecasts, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := operatorContext(cmd.Context(), opts, cmd.ErrOrStderr())
			repo, closeRepo, err := openRepository(ctx, opts)
			if err != nil {
				return err
			}
			defer closeRepo()

			svc := service.New(repo, nil, nil, service.Options{})
			list, err := svc.ListForecasts(ctx, opts.orgID, limit)
			if err != nil {
				return fmt.Errorf("list forecasts failed: %w", err)
			}
			return printHistory(cmd.OutOrStdout(), list.Forecasts)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum records to show (max 100)")
	return cmd
}

func operatorContext(parent context.Context, opts *options, stderr io.Writer) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(parent)
	return service.WithActor(ctx, domain.Actor{Username: operatorActor, Role: "operator"})
}

func openRepository(ctx context.Context, opts *options) (store.Repository, func(), error) {
	databaseURL := opts.databaseURL
	if databaseURL == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, nil, err
		}
		databaseURL = cfg.DatabaseURL
	}

	if databaseURL == "" {
		zerolog.Ctx(ctx).Debug().Msg("repository: in-memory demo")
		return memory.NewSeeded(), func() {}, nil
	}

	pg, err := pgstore.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pg, func() { _ = pg.Close() }, nil
}

func printHistory(out io.Writer, records []domain.BudgetForecastRecord) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tMONTHS\tHISTORY\tCONFIDENCE\tEXPENSE GROWTH\tCREATED BY")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.2f\t%.2f%%\t%s\n",
			r.ID, r.CreatedAt.Format(time.RFC3339), r.ForecastMonths, r.HistoryMonths,
			r.ConfidenceScore, r.AvgExpenseGrowth, r.CreatedBy)
	}
	return tw.Flush()
}
