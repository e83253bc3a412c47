package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gobunch/adapters/excel"
	"gobunch/adapters/rng"
	"gobunch/adapters/sqlstore"
	"gobunch/app"
	"gobunch/domain/core"
	"gobunch/internal/binning"
	"gobunch/internal/config"
	"gobunch/internal/dominance"
	"gobunch/internal/logging"
	"gobunch/internal/scenario"
	"gobunch/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	verbose bool
	workers int
	store   bool

	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gobunch",
		Short: "Bunching diagnostics and stochastic dominance tests for share variables",
		Long: `gobunch estimates counterfactual densities around suspected bunching points by
bootstrapping polynomial fits with bins left out, and compares two samples with the
Barrett–Donald first-order stochastic dominance test.

Settings come from the environment (and a .env file when present); flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env file is not an error.
			_ = godotenv.Load()

			var err error
			cfg, err = config.Load()
			if err != nil {
				return err
			}
			logger, err = logging.New(cfg.LogLevel, verbose)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Bunching.Workers = workers
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Concurrent bootstrap iterations (0 = all CPUs)")
	rootCmd.PersistentFlags().BoolVar(&store, "store", false, "Persist results to DATABASE_URL")

	rootCmd.AddCommand(
		newGridCmd(),
		newBunchingCmd(),
		newDominanceCmd(),
		newResultsCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGridCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grid",
		Short: "Print the bin midpoints implied by BUNCH_LOWER, BUNCH_UPPER and BUNCH_BINWIDTH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grid, err := cfg.Grid()
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"width":     grid.Width(),
				"lower":     grid.Lower(),
				"upper":     grid.Upper(),
				"midpoints": grid.Midpoints(),
			})
		},
	}
}

func newBunchingCmd() *cobra.Command {
	var req ports.SampleRequest
	var seed int64
	var iterations int
	var families []string
	var edge string

	cmd := &cobra.Command{
		Use:   "bunching",
		Short: "Run the local, baseline and window bunching scenarios on one column",
		Long: `Run the bootstrap bunching diagnostic on a numeric column of a CSV or XLSX file.

Example: gobunch bunching --file ipc.xlsx --column phase3_share --iterations 500 --seed 123`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("seed") {
				cfg.Bunching.Seed = seed
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Bunching.Iterations = iterations
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			edgePolicy, err := binning.ParseEdgePolicy(edge)
			if err != nil {
				return err
			}

			sample, err := excel.NewDataReader(logger).ReadSample(req)
			if err != nil {
				return err
			}
			grid, err := cfg.Grid()
			if err != nil {
				return err
			}
			familyCfg := cfg.FamilyConfig(grid)
			for _, name := range families {
				f, err := scenario.ParseFamily(name)
				if err != nil {
					return err
				}
				familyCfg.Families = append(familyCfg.Families, f)
			}

			ctx := cmd.Context()
			svc, closeStore, err := newService(ctx, edgePolicy)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := svc.RunBunching(ctx, app.BunchingRequest{Sample: sample, Families: familyCfg})
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&req.Path, "file", "", "CSV or XLSX file holding the sample")
	cmd.Flags().StringVar(&req.Sheet, "sheet", "", "XLSX sheet (default: first sheet)")
	cmd.Flags().StringVar(&req.Column, "column", "", "Column holding the observations")
	cmd.Flags().StringVar(&req.WeightColumn, "weights", "", "Optional column holding observation weights")
	cmd.Flags().Int64Var(&seed, "seed", 123, "Master seed for the bootstrap streams")
	cmd.Flags().IntVar(&iterations, "iterations", scenario.DefaultIterations, "Bootstrap iterations per scenario")
	cmd.Flags().StringSliceVar(&families, "family", nil, "Scenario families to run: local, baseline, window (default: all)")
	cmd.Flags().StringVar(&edge, "edge", binning.EdgeReject.String(), "Out-of-range observations: reject or clamp")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("column")

	return cmd
}

func newDominanceCmd() *cobra.Command {
	var reqA, reqB ports.SampleRequest
	var key string
	var seed int64
	var iterations int
	var alpha float64

	cmd := &cobra.Command{
		Use:   "dominance",
		Short: "Test whether one sample first-order stochastically dominates another",
		Long: `Run the Barrett–Donald test between two numeric columns.

Example: gobunch dominance --file-a 2023.csv --column-a share --file-b 2024.csv --column-b share`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("iterations") {
				cfg.Dominance.Iterations = iterations
			}
			if cmd.Flags().Changed("alpha") {
				cfg.Dominance.Alpha = alpha
			}
			if cmd.Flags().Changed("seed") {
				cfg.Bunching.Seed = seed
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			reader := excel.NewDataReader(logger)
			a, err := reader.ReadSample(reqA)
			if err != nil {
				return fmt.Errorf("sample A: %w", err)
			}
			b, err := reader.ReadSample(reqB)
			if err != nil {
				return fmt.Errorf("sample B: %w", err)
			}

			ctx := cmd.Context()
			svc, closeStore, err := newService(ctx, binning.EdgeReject)
			if err != nil {
				return err
			}
			defer closeStore()

			report, err := svc.CompareSamples(ctx, app.DominanceRequest{Key: key, A: a, B: b})
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}

	cmd.Flags().StringVar(&reqA.Path, "file-a", "", "File holding sample A")
	cmd.Flags().StringVar(&reqA.Column, "column-a", "", "Column of sample A")
	cmd.Flags().StringVar(&reqA.Sheet, "sheet-a", "", "XLSX sheet of sample A")
	cmd.Flags().StringVar(&reqB.Path, "file-b", "", "File holding sample B (default: --file-a)")
	cmd.Flags().StringVar(&reqB.Column, "column-b", "", "Column of sample B")
	cmd.Flags().StringVar(&reqB.Sheet, "sheet-b", "", "XLSX sheet of sample B")
	cmd.Flags().StringVar(&key, "key", "", "Name of the comparison")
	cmd.Flags().Int64Var(&seed, "seed", 123, "Master seed for the bootstrap streams")
	cmd.Flags().IntVar(&iterations, "iterations", dominance.DefaultIterations, "Bootstrap repetitions")
	cmd.Flags().Float64Var(&alpha, "alpha", dominance.DefaultAlpha, "Significance level")
	_ = cmd.MarkFlagRequired("file-a")
	_ = cmd.MarkFlagRequired("column-a")
	_ = cmd.MarkFlagRequired("column-b")

	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		if reqB.Path == "" {
			reqB.Path = reqA.Path
		}
	}
	return cmd
}

func newResultsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "results [run-id]",
		Short: "Print the stored results of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			repo := sqlstore.NewResultRepository(db)
			scenarios, err := repo.ListScenarios(cmd.Context(), runID)
			if err != nil {
				return err
			}
			comparisons, err := repo.ListDominance(cmd.Context(), runID)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"run_id":    runID,
				"scenarios": scenarios,
				"dominance": comparisons,
			})
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the result tables in DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := sqlstore.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Info("result tables ready")
			return nil
		},
	}
}

// newService wires the analysis service. With --store the results are also
// written to DATABASE_URL; the returned func closes the connection.
func newService(ctx context.Context, edge binning.EdgePolicy) (*app.AnalysisService, func(), error) {
	rngAdapter := rng.NewAdapter()

	runner := scenario.NewRunner(rngAdapter, logger)
	runner.Workers = cfg.Bunching.Workers
	runner.Binner.Precision = cfg.Bunching.Precision
	runner.Binner.Edge = edge

	tester := dominance.NewTester(rngAdapter, logger)
	tester.Iterations = cfg.Dominance.Iterations
	tester.Alpha = cfg.Dominance.Alpha
	tester.Workers = cfg.Bunching.Workers
	tester.Seed = cfg.Bunching.Seed

	var repo ports.ResultRepository
	closeStore := func() {}
	if store {
		db, err := openDB(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo = sqlstore.NewResultRepository(db)
		closeStore = func() { db.Close() }
	}

	return app.NewAnalysisService(runner, tester, repo, logger), closeStore, nil
}

func openDB(ctx context.Context) (*sqlx.DB, error) {
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
