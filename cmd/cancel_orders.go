package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-settle/internal/app"
	"github.com/mselser95/polymarket-settle/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var cancelOrdersCmd = &cobra.Command{
	Use:   "cancel-orders",
	Short: "Cancel all open orders on Polymarket",
	Long: `Cancel all open orders atomically using the /cancel-all endpoint.

The API credentials are verified first. Use --dry-run to stop after
verification without canceling.

Examples:
  # Check credentials only
  polymarket-settle cancel-orders --dry-run

  # Cancel all orders immediately
  polymarket-settle cancel-orders`,
	Args: cobra.NoArgs,
	RunE: runCancelOrders,
}

//nolint:gochecknoglobals // Cobra boilerplate
var cancelDryRun bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(cancelOrdersCmd)
	cancelOrdersCmd.Flags().BoolVar(&cancelDryRun, "dry-run", false, "Verify credentials without canceling")
}

func runCancelOrders(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.PrivateKey == "" {
		return errors.New("POLYMARKET_PRIVATE_KEY not set")
	}
	if !cfg.HasCLOBCredentials() {
		return errors.New("POLYMARKET_API_KEY, POLYMARKET_SECRET and POLYMARKET_PASSPHRASE must all be set")
	}

	client, err := app.NewOrderClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	keys, err := client.VerifyAuthentication(ctx)
	if err != nil {
		return fmt.Errorf("verify authentication: %w", err)
	}
	fmt.Printf("Authenticated as %s (%d API key(s))\n", client.Signer().Hex(), len(keys.APIKeys))

	if cancelDryRun {
		fmt.Println("\n[DRY RUN] No orders were canceled.")
		return nil
	}

	fmt.Println("\nCanceling all orders...")
	result, err := client.CancelAllOrders(ctx)
	if err != nil {
		return fmt.Errorf("cancel orders: %w", err)
	}

	displayCancelResults(result)

	return nil
}

func displayCancelResults(result *types.CancelResponse) {
	fmt.Println("\n========================================")
	fmt.Println("Cancellation Results")
	fmt.Println("========================================")

	fmt.Printf("✅ Canceled: %d orders\n", len(result.Canceled))

	if len(result.NotCanceled) == 0 {
		return
	}

	fmt.Printf("❌ Not canceled: %d orders\n", len(result.NotCanceled))
	fmt.Println("\nFailed cancellations:")

	ids := make([]string, 0, len(result.NotCanceled))
	for orderID := range result.NotCanceled {
		ids = append(ids, orderID)
	}
	sort.Strings(ids)

	for _, orderID := range ids {
		fmt.Printf("  - %s: %s\n", short(orderID), result.NotCanceled[orderID])
	}
}
