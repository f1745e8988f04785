package cmd

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/app"
	"github.com/mselser95/polymarket-settle/internal/arbitrage"
	"github.com/mselser95/polymarket-settle/internal/execution"
)

//nolint:gochecknoglobals // Cobra boilerplate
var executePairCmd = &cobra.Command{
	Use:   "execute-pair",
	Short: "Buy YES and NO of one market in a single batch",
	Long: `Places a buy order for each outcome of a binary market in one batch and
reconciles the fills.

The size is the smaller of both ask sizes and EXECUTION_MAX_ORDER_SIZE.
Each price is the ask plus slippage: EXECUTION_SLIPPAGE_SECOND when the
leg's direction is down, EXECUTION_SLIPPAGE_FIRST otherwise. Both legs
must be worth more than 1 USDC.

With --unwind, a leg that filled alone is sold back at its buy price.

Example:
  polymarket-settle execute-pair \
    --market-slug will-it-rain --yes-token 1001 --no-token 1002 \
    --yes-price 0.40 --no-price 0.55 --yes-size 100 --no-size 100 \
    --yes-direction up --no-direction down`,
	Args: cobra.NoArgs,
	RunE: runExecutePair,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(executePairCmd)
	addPairFlags(executePairCmd)
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("market-id", "", "Market id (informational)")
	cmd.Flags().String("market-slug", "", "Market slug (informational)")
	cmd.Flags().String("yes-token", "", "YES outcome token id")
	cmd.Flags().String("no-token", "", "NO outcome token id")
	cmd.Flags().String("yes-price", "", "Best YES ask price")
	cmd.Flags().String("no-price", "", "Best NO ask price")
	cmd.Flags().String("yes-size", "", "Size available at the YES ask")
	cmd.Flags().String("no-size", "", "Size available at the NO ask")
	cmd.Flags().String("yes-direction", "up", "Recent YES price movement (up, down, flat)")
	cmd.Flags().String("no-direction", "up", "Recent NO price movement (up, down, flat)")
	cmd.Flags().Bool("neg-risk", false, "Market settles through the neg-risk exchange")
	cmd.Flags().Bool("unwind", false, "Sell back a leg that filled alone")

	for _, name := range []string{"yes-token", "no-token", "yes-price", "no-price", "yes-size", "no-size"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func runExecutePair(cmd *cobra.Command, args []string) (err error) {
	opp, err := opportunityFromFlags(cmd)
	if err != nil {
		return err
	}

	err = arbitrage.Admit(opp, "cli")
	if err != nil {
		return err
	}

	yesDirFlag, _ := cmd.Flags().GetString("yes-direction")
	noDirFlag, _ := cmd.Flags().GetString("no-direction")
	unwind, _ := cmd.Flags().GetBool("unwind")

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{Pairs: true})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer application.Close()

	fmt.Printf("=== Polymarket Order Pair ===\n\n")
	fmt.Printf("Market: %s\n", opp.MarketSlug)
	fmt.Printf("YES ask: %s x %s\n", opp.YesAskPrice, opp.YesAskSize)
	fmt.Printf("NO ask:  %s x %s\n", opp.NoAskPrice, opp.NoAskSize)
	fmt.Printf("Price sum: %s (%d bps)\n\n", opp.PriceSum(), opp.ProfitBPS())

	result, err := application.PairExecutor().ExecutePair(cmd.Context(), opp,
		execution.ParseDirection(yesDirFlag),
		execution.ParseDirection(noDirFlag))
	if err != nil {
		var fillErr *execution.FillFailureError
		if errors.As(err, &fillErr) {
			fmt.Printf("❌ Neither leg filled\n")
			fmt.Printf("   YES: %s\n", fillErr.YesReason)
			fmt.Printf("   NO:  %s\n", fillErr.NoReason)
		}
		return fmt.Errorf("execute pair: %w", err)
	}

	printPairResult(result)

	if !unwind || result.Outcome != execution.OutcomePartialFill {
		return nil
	}

	tokenID, price, size := unwindLeg(result)
	fmt.Printf("\nUnwinding %s shares of %s at %s...\n", size, short(tokenID), price)

	resp, err := application.OrderClient().SellAtPrice(cmd.Context(), tokenID, price, size, opp.NegRisk)
	if err != nil {
		logger.Error("unwind-failed",
			zap.String("pair-id", result.PairID),
			zap.String("token-id", tokenID),
			zap.Error(err))
		return fmt.Errorf("unwind leg: %w", err)
	}

	fmt.Printf("✓  Sell order placed: %s\n", resp.OrderID)
	return nil
}

func opportunityFromFlags(cmd *cobra.Command) (*arbitrage.Opportunity, error) {
	flags := cmd.Flags()

	marketID, _ := flags.GetString("market-id")
	slug, _ := flags.GetString("market-slug")
	yesToken, _ := flags.GetString("yes-token")
	noToken, _ := flags.GetString("no-token")
	negRisk, _ := flags.GetBool("neg-risk")

	values := make(map[string]decimal.Decimal, 4)
	for _, name := range []string{"yes-price", "no-price", "yes-size", "no-size"} {
		raw, _ := flags.GetString(name)
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parse --%s: %w", name, err)
		}
		values[name] = d
	}

	return arbitrage.NewOpportunity(arbitrage.Params{
		MarketID:    marketID,
		MarketSlug:  slug,
		YesTokenID:  yesToken,
		NoTokenID:   noToken,
		YesAskPrice: values["yes-price"],
		YesAskSize:  values["yes-size"],
		NoAskPrice:  values["no-price"],
		NoAskSize:   values["no-size"],
		NegRisk:     negRisk,
	}), nil
}

// unwindLeg picks the leg that filled alone.
func unwindLeg(result *execution.PairResult) (tokenID string, price, size decimal.Decimal) {
	if result.YesFilled.IsPositive() {
		return result.YesTokenID, result.YesPrice, result.YesFilled
	}
	return result.NoTokenID, result.NoPrice, result.NoFilled
}

func printPairResult(result *execution.PairResult) {
	fmt.Println("========================================")
	if result.Outcome == execution.OutcomeFullFill {
		fmt.Println("✅ Both legs filled")
	} else {
		fmt.Println("⚠️  Partial fill: one leg is exposed")
	}
	fmt.Println("========================================")
	fmt.Printf("Pair:  %s\n", result.PairID)
	fmt.Printf("YES:   %s @ %s, filled %s/%s\n", short(result.YesOrderID), result.YesPrice, result.YesFilled, result.YesSize)
	fmt.Printf("NO:    %s @ %s, filled %s/%s\n", short(result.NoOrderID), result.NoPrice, result.NoFilled, result.NoSize)
	fmt.Printf("Type:  %s\n", result.OrderType)
}
