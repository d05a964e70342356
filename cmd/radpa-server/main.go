package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/radpa/radpa/internal/config"
	"github.com/radpa/radpa/internal/domain/order"
	"github.com/radpa/radpa/internal/domain/orderstate"
	"github.com/radpa/radpa/internal/domain/pastatus"
	"github.com/radpa/radpa/internal/platform/db"
	"github.com/radpa/radpa/internal/platform/kvstore"
	"github.com/radpa/radpa/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "radpa-server",
		Short: "Radiology prior authorization dashboard API",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(stateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadDataset(cfg *config.Config) (order.Dataset, error) {
	if cfg.DatasetPath != "" {
		return order.NewFileDataset(cfg.DatasetPath)
	}
	return order.NewEmbeddedDataset()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx := context.Background()
	backend, err := kvstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.StateBackend).Msg("failed to open state backend")
	}
	defer backend.Store.Close()

	dataset, err := loadDataset(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load order dataset")
	}

	srv := newServer(cfg, logger, dataset, backend)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("backend", backend.Backend).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	srv.filings.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres state schema",
	}

	withMigrator := func(fn func(ctx context.Context, m *db.Migrator) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()
			return fn(ctx, db.NewMigrator(pool, migrations.FS))
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
			count, err := m.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: withMigrator(func(ctx context.Context, m *db.Migrator) error {
			statuses, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		}),
	})

	return cmd
}

// openState wires the order service over the configured backend for the
// offline commands.
func openState(ctx context.Context) (*order.Service, *orderstate.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	backend, err := kvstore.Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		return nil, nil, nil, err
	}
	dataset, err := loadDataset(cfg)
	if err != nil {
		backend.Store.Close()
		return nil, nil, nil, err
	}
	store := orderstate.NewStore(orderstate.NewKVRepository(backend.Store))
	return order.NewService(dataset, store), store, func() { backend.Store.Close() }, nil
}

func ordersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List orders with their current PA status",
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			ctx := context.Background()
			orders, _, closeFn, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			rows, err := summarizeOrders(ctx, orders, search)
			if err != nil {
				return err
			}
			printOrders(os.Stdout, rows)
			return nil
		},
	}
	cmd.Flags().String("search", "", "Filter by patient name or MRN")
	return cmd
}

// orderSummary is a table row with the statuses derived from the overlaid
// order.
type orderSummary struct {
	order.TableRow
	Submission string
	NextAction string
}

func summarizeOrders(ctx context.Context, orders *order.Service, search string) ([]orderSummary, error) {
	rows, err := orders.TableRows(ctx, search)
	if err != nil {
		return nil, err
	}
	out := make([]orderSummary, 0, len(rows))
	for _, r := range rows {
		o, err := orders.GetByMRN(ctx, r.MRN)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.MRN, err)
		}
		out = append(out, orderSummary{
			TableRow:   r,
			Submission: pastatus.SubmissionStatus(o),
			NextAction: pastatus.NextAction(o),
		})
	}
	return out, nil
}

func printOrders(w io.Writer, rows []orderSummary) {
	const format = "%-8s %-22s %-10s %-28s %-7s %-26s %-22s %s\n"
	fmt.Fprintf(w, format, "ORDER", "PATIENT", "MRN", "IMAGING", "PAYER", "AUTH STATUS", "SUBMISSION", "NEXT ACTION")
	for _, r := range rows {
		fmt.Fprintf(w, format,
			r.OrderID, r.PatientName, r.MRN, truncate(r.ImagingType, 28), r.Payer, r.AuthStatus, r.Submission, r.NextAction)
	}
	fmt.Fprintf(w, "%d order(s)\n", len(rows))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func stateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or clear the stored workflow state of an order",
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every stored value for a patient's order",
		RunE: func(cmd *cobra.Command, args []string) error {
			mrn, _ := cmd.Flags().GetString("mrn")
			ctx := context.Background()
			orders, store, closeFn, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			o, err := orders.Original(ctx, mrn)
			if err != nil {
				return fmt.Errorf("%s: %w", mrn, err)
			}
			values, err := store.Dump(ctx, o.OrderID)
			if err != nil {
				return err
			}
			fmt.Print(formatDump(o.OrderID, values))

			stray, err := store.StrayKeys(ctx, o.OrderID, mrn)
			if err != nil {
				return err
			}
			if len(stray) > 0 {
				fmt.Printf("Keys stored under %s instead of %s:\n  %s\n", mrn, o.OrderID, strings.Join(stray, "\n  "))
			}
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset a patient's PA submission, or with --all every stored value",
		RunE: func(cmd *cobra.Command, args []string) error {
			mrn, _ := cmd.Flags().GetString("mrn")
			all, _ := cmd.Flags().GetBool("all")
			ctx := context.Background()
			orders, store, closeFn, err := openState(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			o, err := orders.Original(ctx, mrn)
			if err != nil {
				return fmt.Errorf("%s: %w", mrn, err)
			}
			msg, err := resetState(ctx, store, o.OrderID, all)
			if err != nil {
				return err
			}
			fmt.Printf("%s for %s (%s).\n", msg, o.OrderID, mrn)
			return nil
		},
	}
	resetCmd.Flags().Bool("all", false, "Also clear business office notes, processing requests and RPA state")

	for _, c := range []*cobra.Command{dumpCmd, resetCmd} {
		c.Flags().String("mrn", "", "Patient MRN")
		c.MarkFlagRequired("mrn")
		cmd.AddCommand(c)
	}
	return cmd
}

// resetState discards the PA submission, auth number and case completion.
// With all set it clears every per-order value.
func resetState(ctx context.Context, store *orderstate.Store, orderID string, all bool) (string, error) {
	if all {
		return "Cleared state", store.ClearAll(ctx, orderID)
	}
	return "Reset PA submission", store.ResetSubmission(ctx, orderID)
}

// formatDump renders values sorted by key, pretty-printing JSON values.
func formatDump(orderID string, values map[string]string) string {
	if len(values) == 0 {
		return fmt.Sprintf("No stored state for %s.\n", orderID)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := values[k]
		var parsed interface{}
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			if pretty, err := json.MarshalIndent(parsed, "  ", "  "); err == nil {
				v = string(pretty)
			}
		}
		fmt.Fprintf(&b, "%s:\n  %s\n", k, v)
	}
	return b.String()
}
