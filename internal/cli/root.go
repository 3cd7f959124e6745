package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"credit_engine/internal/config"
	"credit_engine/internal/db"
	"credit_engine/internal/domain"
	"credit_engine/internal/logger"
	"credit_engine/internal/service"
	"credit_engine/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "creditctl",
	Short:         "Operate the credit engine database",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		logger.Init(cfg.LogLevel, "console")
		service.InitJWT(cfg.JWTSecret)
		return nil
	},
}

// Execute runs the command line and prints the error, if any, to stderr.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
	}
	return err
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, cfg.DatabaseURL)
}

// withEngine opens the database, builds the engine and closes the pool when fn returns.
func withEngine(ctx context.Context, fn func(eng *service.Engine) error) error {
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	st := postgres.New(pool)
	defer st.Close()

	return fn(service.NewEngine(st, service.Options{
		Retry: service.RetryPolicy{
			Attempts: cfg.StorageRetryAttempts,
			Backoff:  cfg.StorageRetryBackoff,
		},
		ReversalPolicy: domain.ReversalPolicy(cfg.ReversalPolicy),
	}))
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations",
	Long: `Apply every embedded migration in order. The migrations are idempotent,
so running the command against an up-to-date database changes nothing.
With --list the files are printed and nothing is applied.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("list", false, "only list the migrations")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		names, err := db.Migrations()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	ctx := cmd.Context()
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	return db.Migrate(ctx, pool, func(name string) {
		fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
	})
}
