package main

import (
	"log"

	"github.com/spf13/cobra"

	"rental-backend/internal/cache"
	"rental-backend/internal/repositories"
	"rental-backend/internal/services"
)

// newBillingCmd groups the batch jobs for manual runs and backfills. serve
// already runs both on billing.schedule_interval_minutes.
func newBillingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "billing",
		Short: "Rent log batch jobs",
	}

	var month string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Create rent logs for every active tenant for a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			billing, closeFn, err := billingService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := billing.GenerateMonthly(cmd.Context(), month)
			if err != nil {
				return err
			}
			log.Printf("[Billing] Month %s: %d rent log(s) created", result.Month, result.Inserted)
			return nil
		},
	}
	generate.Flags().StringVar(&month, "month", "", "billing month as YYYY-MM (default: next month in IST)")

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Mark unpaid rent logs past their grace period as overdue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			billing, closeFn, err := billingService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			updated, err := billing.SweepOverdue(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("[Billing] Sweep done: %d rent log(s) now overdue", updated)
			return nil
		},
	}

	cmd.AddCommand(generate, sweep)
	return cmd
}

// billingService wires the billing service without the HTTP surface. Redis is
// optional so cached stats still get invalidated when it is reachable.
func billingService(cmd *cobra.Command) (*services.BillingService, func(), error) {
	cfg, pool, err := bootstrap(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	if err := cache.Init(cfg); err != nil {
		log.Printf("[Redis] Cache unavailable: %v", err)
	}

	billing := services.NewBillingService(
		pool,
		repositories.NewUnitRepository(pool),
		repositories.NewTenantRepository(pool),
		repositories.NewRentLogRepository(pool),
		repositories.NewPaymentRepository(pool),
		repositories.NewAuditLogRepository(pool),
		nil,
	)
	return billing, func() {
		cache.Close()
		pool.Close()
	}, nil
}
