package storage

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"

	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
)

const rule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	out    io.Writer
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		out:    os.Stdout,
		logger: logger,
	}
}

// StoreMerge pretty-prints a merge attempt.
func (c *ConsoleStorage) StoreMerge(_ context.Context, rec *merge.Record) error {
	fmt.Fprintln(c.out, "\n"+rule)
	if rec.Error == "" {
		fmt.Fprintf(c.out, "✅ MERGE SUBMITTED\n")
	} else {
		fmt.Fprintf(c.out, "❌ MERGE FAILED\n")
	}
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "ID:        %s\n", rec.ID)
	fmt.Fprintf(c.out, "Condition: %s\n", rec.ConditionID.Hex())
	fmt.Fprintf(c.out, "Wallet:    %s (%s)\n", rec.Wallet.Hex(), rec.Path)
	fmt.Fprintf(c.out, "Time:      %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "📊 BALANCES\n")
	fmt.Fprintf(c.out, "  YES:     %s\n", bigString(rec.YesBalance))
	fmt.Fprintf(c.out, "  NO:      %s\n", bigString(rec.NoBalance))
	fmt.Fprintf(c.out, "  Merged:  %s\n", bigString(rec.Amount))
	if rec.TxHash != "" {
		fmt.Fprintf(c.out, "  Tx:      %s\n", rec.TxHash)
	}
	if rec.Error != "" {
		fmt.Fprintf(c.out, "  Error:   %s\n", rec.Error)
	}
	fmt.Fprintln(c.out, rule)

	return nil
}

// StorePair pretty-prints an executed order pair.
func (c *ConsoleStorage) StorePair(_ context.Context, result *execution.PairResult) error {
	fmt.Fprintln(c.out, "\n"+rule)
	if result.Outcome == execution.OutcomePartialFill {
		fmt.Fprintf(c.out, "⚠️  ORDER PAIR PARTIALLY FILLED\n")
	} else {
		fmt.Fprintf(c.out, "🎯 ORDER PAIR FILLED\n")
	}
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "Pair:     %s\n", result.PairID)
	fmt.Fprintf(c.out, "Market:   %s\n", result.MarketSlug)
	fmt.Fprintf(c.out, "Type:     %s\n", result.OrderType)
	fmt.Fprintf(c.out, "Time:     %s\n", result.ExecutedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(c.out, rule)
	fmt.Fprintf(c.out, "  YES:    %s @ %s filled %s (%s)\n",
		result.YesSize, result.YesPrice.StringFixed(4), result.YesFilled, result.YesOrderID)
	fmt.Fprintf(c.out, "  NO:     %s @ %s filled %s (%s)\n",
		result.NoSize, result.NoPrice.StringFixed(4), result.NoFilled, result.NoOrderID)
	fmt.Fprintln(c.out, rule)

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
