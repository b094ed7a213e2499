package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/infrastructure/erp"
	"github.com/portal/backend/internal/infrastructure/persistence"
)

var erpCmd = &cobra.Command{
	Use:   "erp",
	Short: "Talk to the ERP account directly",
}

var erpQueryCmd = &cobra.Command{
	Use:   "query SUITEQL",
	Short: "Run a SuiteQL query and print the rows as JSON",
	Example: `  portalctl erp query "SELECT id, tranid FROM transaction WHERE type = 'PurchOrd'"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runERPQuery,
}

var erpImportCmd = &cobra.Command{
	Use:   "import-purchase-orders",
	Short: "Upsert open purchase orders from the ERP into the portal",
	Args:  cobra.NoArgs,
	RunE:  runERPImport,
}

func init() {
	rootCmd.AddCommand(erpCmd)
	erpCmd.AddCommand(erpQueryCmd, erpImportCmd)
}

func newERPClient(e *env) (*erp.Client, error) {
	return erp.NewClient(erp.FromAppConfig(e.cfg.ERP), erp.WithLogger(e.log))
}

func runERPQuery(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	client, err := newERPClient(e)
	if err != nil {
		return err
	}
	rows, err := client.Query(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func runERPImport(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	client, err := newERPClient(e)
	if err != nil {
		return err
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	svc := invoicingapp.NewPurchaseOrderSyncService(
		erp.NewPurchaseOrderSource(client),
		persistence.NewGormPurchaseOrderRepository(db.DB),
		e.log,
	)
	res, err := svc.Sync(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Println(res.Message)
	fmt.Printf("fetched: %d  created: %d  updated: %d\n", res.Fetched, res.Created, res.Updated)
	return nil
}
