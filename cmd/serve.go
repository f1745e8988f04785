package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-settle/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the merge and order-pair API",
	Long: `Starts the HTTP server with:
  GET  /health, /ready, /metrics
  POST /api/merge   {"condition_id": "0x..."}
  POST /api/pairs   {"yes_token_id": ..., "yes_ask_price": ..., ...}

Each request runs one attempt. /ready also checks the Polygon RPC and,
in postgres storage mode, the database.

Use --merge=false or --pairs=false to leave a route out.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("merge", true, "Mount POST /api/merge")
	serveCmd.Flags().Bool("pairs", true, "Mount POST /api/pairs")
}

func runServe(cmd *cobra.Command, args []string) error {
	withMerge, _ := cmd.Flags().GetBool("merge")
	withPairs, _ := cmd.Flags().GetBool("pairs")
	if !withMerge && !withPairs {
		return errors.New("nothing to serve: both --merge and --pairs are disabled")
	}

	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, &app.Options{
		Merge: withMerge,
		Pairs: withPairs,
		HTTP:  true,
	})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
