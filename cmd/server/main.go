package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"rental-backend/internal/config"
	"rental-backend/internal/database"
	"rental-backend/internal/db"
)

func main() {
	root := &cobra.Command{
		Use:           "rental-backend",
		Short:         "Rental property management API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newBillingCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}

// bootstrap loads configuration and opens the main pool.
func bootstrap(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	applied, err := database.NewMigrator(pool).RunMigrations(ctx)
	if err != nil {
		return err
	}
	log.Printf("[Migrator] %d migration(s) applied", applied)
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, pool, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return migrate(cmd.Context(), pool)
		},
	}
}

func init() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}
