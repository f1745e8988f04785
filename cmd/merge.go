package cmd

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/app"
	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/internal/merge"
)

//nolint:gochecknoglobals // Cobra boilerplate
var mergeCmd = &cobra.Command{
	Use:   "merge <condition-id>...",
	Short: "Merge matched YES/NO tokens back into USDC",
	Long: `Reads the wallet's YES and NO balances for each condition and merges
min(YES, NO) back into collateral.

The path is chosen from the wallet's on-chain code: a deployed multisig
executes the merge itself, a forwarding proxy goes through the relayer and
needs POLY_BUILDER_API_KEY, POLY_BUILDER_SECRET and POLY_BUILDER_PASSPHRASE.

Requires:
- POLYMARKET_PRIVATE_KEY (wallet owner)
- POLYMARKET_PROXY_ADDRESS (wallet holding the tokens)
- MATIC on the owner for gas when the wallet is a multisig

Example:
  polymarket-settle merge 0x5f2b...c9a1
  polymarket-settle merge --try-anyway 0x5f2b...c9a1 0x77aa...0b3e`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

//nolint:gochecknoglobals // Cobra boilerplate
var mergeTryAnyway bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().BoolVar(&mergeTryAnyway, "try-anyway", false,
		"Submit through the relayer even if the wallet is not the derived proxy")
}

func runMerge(cmd *cobra.Command, args []string) (err error) {
	conditionIDs, err := parseConditionIDs(args)
	if err != nil {
		return err
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if mergeTryAnyway {
		cfg.MergeTryAnyway = true
	}

	application, err := app.New(cfg, logger, &app.Options{Merge: true})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	fmt.Printf("=== Polymarket Merge ===\n\n")
	fmt.Printf("Wallet: %s\n", cfg.ProxyAddress)
	fmt.Printf("Conditions: %d\n", len(conditionIDs))
	printCollateral(cmd, application, "USDC before")
	fmt.Println()

	var merged, skipped, failed int
	for _, conditionID := range conditionIDs {
		result, mergeErr := application.MergeMax(cmd.Context(), conditionID)
		switch {
		case mergeErr == nil:
			merged++
			fmt.Printf("✓  %s: merged %s via %s (tx %s)\n",
				short(conditionID.Hex()), result.Amount, result.Path, result.TxHash)
		case errors.Is(mergeErr, merge.ErrNothingToMerge):
			skipped++
			fmt.Printf("-  %s: %v\n", short(conditionID.Hex()), mergeErr)
		default:
			failed++
			fmt.Printf("❌ %s: %v\n", short(conditionID.Hex()), mergeErr)
			logger.Error("merge-failed",
				zap.String("condition-id", conditionID.Hex()),
				zap.Error(mergeErr))
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Merged: %d\n", merged)
	fmt.Printf("Nothing to merge: %d\n", skipped)
	fmt.Printf("Failed: %d\n", failed)
	if merged > 0 {
		printCollateral(cmd, application, "USDC after")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d merges failed", failed, len(conditionIDs))
	}
	return nil
}

func printCollateral(cmd *cobra.Command, application *app.App, label string) {
	balance, err := application.CollateralBalance(cmd.Context())
	if err != nil {
		fmt.Printf("%s: unavailable (%v)\n", label, err)
		return
	}
	fmt.Printf("%s: %s\n", label, formatUSDC(balance))
}

// formatUSDC renders a 6-decimal collateral amount.
func formatUSDC(amount *big.Int) string {
	return decimal.NewFromBigInt(amount, -6).StringFixed(6)
}

func parseConditionIDs(args []string) ([]common.Hash, error) {
	ids := make([]common.Hash, 0, len(args))
	for _, arg := range args {
		id, err := ctf.ParseConditionID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func short(s string) string {
	if len(s) <= 14 {
		return s
	}
	return s[:8] + "..." + s[len(s)-4:]
}
