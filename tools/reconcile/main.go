// Command reconcile runs back-office maintenance jobs from the shell:
// a full supplier balance reconciliation with drift reporting against
// the cached columns, and a commission recompute sweep per supplier.
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	billingapp "voyage-backoffice/internal/billing/application"
	billingrepo "voyage-backoffice/internal/billing/infrastructure/postgres"
	"voyage-backoffice/internal/billing/interfaces"
	commissionapp "voyage-backoffice/internal/commission/application"
	commissionrepo "voyage-backoffice/internal/commission/infrastructure/postgres"
	"voyage-backoffice/internal/config"
	"voyage-backoffice/internal/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var rootCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Supplier balance reconciliation and commission sweep jobs",
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Reconcile every supplier balance from the invoice history",
	Long: `Recomputes each supplier's current debt and credit by folding its
invoice and settlement history, then reports drift against the cached
balance columns. With --write-back the cached columns are refreshed.`,
	RunE: runBalances,
}

var commissionsCmd = &cobra.Command{
	Use:   "commissions [supplier-id]",
	Short: "Recompute commissions for a supplier's tickets",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommissions,
}

func init() {
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(commissionsCmd)

	balancesCmd.Flags().Bool("write-back", false, "Refresh the cached balance columns")
	balancesCmd.Flags().String("export", "", "Write the balance report to this xlsx file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openDeps() (config.Config, *sql.DB, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, fmt.Errorf("config load: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return cfg, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return cfg, nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return cfg, nil, fmt.Errorf("db ping: %w", err)
	}
	return cfg, db, nil
}

func runBalances(cmd *cobra.Command, args []string) error {
	writeBack, _ := cmd.Flags().GetBool("write-back")
	exportPath, _ := cmd.Flags().GetString("export")

	cfg, db, err := openDeps()
	if err != nil {
		return err
	}
	defer db.Close()
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	supplierRepo := billingrepo.NewSupplierRepository(db)
	invoiceRepo := billingrepo.NewInvoiceRepository(db)
	reconciler, err := billingapp.NewReconciler(supplierRepo, invoiceRepo, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	balances, err := reconciler.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconcile all: %w", err)
	}

	drifted := 0
	for _, b := range balances {
		debtDrift := b.Detail.CurrentDebt.Sub(b.Supplier.CurrentDebt)
		creditDrift := b.Detail.CurrentCredit.Sub(b.Supplier.CurrentCredit)
		if debtDrift.IsZero() && creditDrift.IsZero() {
			continue
		}
		drifted++
		log.Warn().
			Str("supplier_id", b.Supplier.ID).
			Str("cached_debt", b.Supplier.CurrentDebt.String()).
			Str("computed_debt", b.Detail.CurrentDebt.String()).
			Str("cached_credit", b.Supplier.CurrentCredit.String()).
			Str("computed_credit", b.Detail.CurrentCredit.String()).
			Msg("balance drift")
		if writeBack {
			if _, err := reconciler.RefreshCached(ctx, b.Supplier.ID); err != nil {
				return fmt.Errorf("refresh %s: %w", b.Supplier.ID, err)
			}
		}
	}
	log.Info().
		Int("suppliers", len(balances)).
		Int("drifted", drifted).
		Bool("write_back", writeBack).
		Msg("balance reconciliation done")

	if exportPath != "" {
		data, err := interfaces.BuildBalanceReportXLSX(balances, cfg.Currency)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(exportPath, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		log.Info().Str("path", exportPath).Msg("balance report written")
	}
	return nil
}

func runCommissions(cmd *cobra.Command, args []string) error {
	supplierID := args[0]

	cfg, db, err := openDeps()
	if err != nil {
		return err
	}
	defer db.Close()
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}

	ticketRepo := commissionrepo.NewTicketRepository(db)
	ruleRepo := commissionrepo.NewRuleRepository(db)
	service, err := commissionapp.NewService(ticketRepo, ruleRepo, commissionapp.SystemClock{}, log)
	if err != nil {
		return err
	}

	updated, err := service.RecomputeSupplierTickets(cmd.Context(), supplierID)
	if err != nil {
		return fmt.Errorf("recompute: %w", err)
	}
	log.Info().
		Str("supplier_id", supplierID).
		Int("tickets_updated", updated).
		Msg("commission sweep done")
	return nil
}
