package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/infrastructure/persistence"
)

var resyncCmd = &cobra.Command{
	Use:   "resync INVOICE_ID...",
	Short: "Reset invoices to PENDING_SYNC and queue them again",
	Long: `Reset FAILED or stuck PENDING_SYNC invoices and publish their queue
messages again. SYNCED invoices are refused.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResync,
}

func init() {
	rootCmd.AddCommand(resyncCmd)
}

func runResync(cmd *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, len(args))
	for i, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid invoice id %q: %w", arg, err)
		}
		ids[i] = id
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	db, err := e.openDB()
	if err != nil {
		return err
	}
	q, err := e.openQueue(ctx)
	if err != nil {
		return err
	}
	// Resync never presigns, so no document store is needed
	svc := invoicingapp.NewInvoiceService(persistence.NewGormInvoiceRepository(db.DB), nil, q, e.log)
	operator := invoicingapp.Viewer{Operator: true}

	var failed int
	for _, id := range ids {
		res, err := svc.Resync(ctx, operator, id)
		if err != nil {
			failed++
			fmt.Printf("%s  error: %v\n", id, err)
			continue
		}
		fmt.Printf("%s  %s  queued\n", id, res.Invoice.Folio)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d invoices could not be resynced", failed, len(ids))
	}
	return nil
}
