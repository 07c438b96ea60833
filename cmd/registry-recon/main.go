package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/registry/registry/internal/config"
	"github.com/registry/registry/internal/domain/evaluation"
	"github.com/registry/registry/internal/domain/recon"
	"github.com/registry/registry/internal/domain/transplant"
	"github.com/registry/registry/internal/platform/db"
)

// confirmToken is the exact string a human must type before a destructive
// pass mutates the store.
const confirmToken = "DELETE"

func main() {
	rootCmd := &cobra.Command{
		Use:   "registry-recon",
		Short: "Transplant registry record reconciliation engine",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dedupeCmd())
	rootCmd.AddCommand(reassignCmd())
	rootCmd.AddCommand(fixIntegrityCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wiring every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	pool     *pgxpool.Pool
	evals    evaluation.Repository
	cases    transplant.CaseRepository
	samples  transplant.SampleRepository
	backups  *recon.BackupWriter
	merges   *recon.MergeService
	reassign *recon.ReassignService
	fixes    *recon.FixService
	verifier *recon.Verifier
	detector *recon.Detector
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		evals:   evaluation.NewRepoPG(pool),
		cases:   transplant.NewCaseRepoPG(pool),
		samples: transplant.NewSampleRepoPG(pool),
		backups: recon.NewBackupWriter(cfg.BackupDir),
	}
	a.merges = recon.NewMergeService(a.evals, a.backups, cfg.ReconBatchSize, logger)
	a.reassign = recon.NewReassignService(a.cases, a.samples, a.backups, logger)
	a.fixes = recon.NewFixService(a.cases, a.samples, a.backups, cfg.ReconBatchSize, logger)
	a.verifier = recon.NewVerifier(recon.NewStatsRepoPG(pool), logger)
	a.detector = recon.NewDetector(cfg.SimilarityThreshold, cfg.ExactThreshold)
	return a, nil
}

func (a *app) close() { a.pool.Close() }

// confirmDestructive enforces the confirmation gate: --yes skips the prompt,
// otherwise the exact token must be typed on stdin. Declining leaves the
// store untouched.
func confirmDestructive(yes bool) bool {
	if yes {
		return true
	}
	fmt.Printf("This will permanently modify the registry. Type %s to continue: ", confirmToken)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == confirmToken
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only reconciliation report API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			e.Use(echomw.Recover())
			e.Use(echomw.RequestID())

			e.GET("/health", db.HealthHandler(a.pool))
			api := e.Group("/api/v1")
			recon.NewHandler(a.verifier, a.detector, a.merges, a.evals).RegisterRoutes(api)

			srv := &http.Server{
				Addr:         ":" + a.cfg.Port,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 60 * time.Second,
			}

			go func() {
				a.logger.Info().Str("port", a.cfg.Port).Msg("report API listening")
				if err := e.StartServer(srv); err != nil && err != http.ErrServerClosed {
					a.logger.Fatal().Err(err).Msg("server failed")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	var dir string
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := db.NewMigrator(a.pool, dir).Up(ctx)
			if err != nil {
				return err
			}
			a.logger.Info().Int("applied", n).Msg("migrations complete")
			return nil
		},
	}
	upCmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			statuses, err := db.NewMigrator(a.pool, dir).Status(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Printf("%03d %-40s %s\n", s.Version, s.Name, state)
			}
			return nil
		},
	}
	statusCmd.Flags().StringVar(&dir, "dir", "migrations", "migrations directory")

	cmd.AddCommand(upCmd)
	cmd.AddCommand(statusCmd)
	return cmd
}

func dedupeCmd() *cobra.Command {
	var execute, yes bool
	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Detect duplicate evaluations and resolve keep/delete per patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			all, err := a.evals.ListAll(ctx)
			if err != nil {
				return err
			}
			cluster := a.detector.Detect(recon.GroupByPatient(all))
			a.logger.Info().
				Int("patients", cluster.PatientsScanned).
				Int("flagged", len(cluster.Summaries)).
				Int("exact", cluster.ExactDuplicates).
				Msg("duplicate detection complete")
			for class, n := range cluster.TallyByClass {
				a.logger.Info().Str("class", string(class)).Int("pairs", n).Msg("gap class tally")
			}

			if execute && !confirmDestructive(yes) {
				a.logger.Warn().Msg("confirmation declined, running as dry run")
				execute = false
			}

			result, err := a.merges.Run(ctx, execute)
			if err != nil {
				return err
			}
			printMergeSummary(result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&execute, "execute", false, "apply deletions (default is dry run)")
	cmd.Flags().BoolVar(&yes, "yes", false, "skip the interactive confirmation prompt")
	return cmd
}

func reassignCmd() *cobra.Command {
	var mappingPath string
	cmd := &cobra.Command{
		Use:   "reassign",
		Short: "Move misfiled intraop samples per the vetted correction mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mappingPath == "" {
				return fmt.Errorf("--mapping is required")
			}
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			entries, skipped, err := recon.LoadCorrectionMapping(mappingPath)
			if err != nil {
				return err
			}
			for _, reason := range skipped {
				a.logger.Warn().Str("reason", reason).Msg("mapping entry skipped")
			}

			result, err := a.reassign.Run(ctx, entries)
			if err != nil {
				return err
			}
			fmt.Printf("entries: %d  applied: %d  already clean: %d  samples moved: %d  errors: %d\n",
				result.EntriesTotal, result.EntriesApplied, result.EntriesEmpty,
				result.SamplesMoved, len(result.Errors))
			for _, e := range result.Errors {
				fmt.Println("  error:", e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "path to the correction-mapping JSON file")
	return cmd
}

func fixIntegrityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-integrity",
		Short: "Recompute case durations and flag out-of-window samples",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.fixes.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("cases fixed: %d  samples flagged: %d  errors: %d\n",
				len(report.CasesFixed), len(report.SamplesFlagged), len(report.Errors))
			for _, e := range report.Errors {
				fmt.Println("  error:", e)
			}
			return nil
		},
	}
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compute and print the data integrity report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.verifier.Report(ctx)
			if err != nil {
				return err
			}
			report.Render(os.Stdout)

			path, err := recon.NewBackupWriter(a.cfg.ReportDir).Write("verification-report", report)
			if err != nil {
				return err
			}
			a.logger.Info().Str("path", path).Msg("verification report archived")
			return nil
		},
	}
}

func printMergeSummary(result *recon.MergeRunResult) {
	mode := "EXECUTED"
	if result.DryRun {
		mode = "DRY RUN"
	}
	fmt.Printf("[%s] patients: %d  kept: %d  planned deletes: %d  deleted: %d  errors: %d\n",
		mode, result.Summary.PatientsProcessed, result.Summary.RecordsKept,
		result.Summary.RecordsToDelete, result.RecordsDeleted, len(result.Errors))
	fmt.Println("backup:", result.BackupPath)
	for _, e := range result.Errors {
		fmt.Println("  error:", e)
	}
	fmt.Printf("patients still holding multiple evaluations: %d\n", result.PatientsRemaining)
}
