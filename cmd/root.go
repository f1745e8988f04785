package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "polymarket-settle",
	Short: "Polymarket merge settlement and order-pair execution",
	Long: `Settles Polymarket positions and executes YES/NO order pairs.

merge merges matched YES and NO outcome tokens back into USDC, either by
executing from a multisig wallet or by submitting a signed meta-transaction
for a forwarding proxy wallet through the relayer.

execute-pair places a batch of two buy orders, one per outcome, and reports
whether both, one or neither leg filled.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadRuntime loads .env, the configuration and the logger shared by every command.
func loadRuntime() (cfg *config.Config, logger *zap.Logger, err error) {
	err = godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}

	cfg, err = config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err = config.NewLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}
