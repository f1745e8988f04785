package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/pkg/polyauth"
)

//nolint:gochecknoglobals // Cobra boilerplate
var deriveProxyCmd = &cobra.Command{
	Use:   "derive-proxy",
	Short: "Show the forwarding proxy wallet derived for the signing key",
	Long: `Derives the forwarding proxy wallet the proxy factory deploys for the
address of POLYMARKET_PRIVATE_KEY and compares it with POLYMARKET_PROXY_ADDRESS.

A mismatch means relayer merges will be refused unless MERGE_TRY_ANYWAY is set.

Example:
  polymarket-settle derive-proxy
  polymarket-settle derive-proxy --owner 0x1234...abcd`,
	Args: cobra.NoArgs,
	RunE: runDeriveProxy,
}

//nolint:gochecknoglobals // Cobra boilerplate
var (
	deriveOwner   string
	deriveFactory string
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(deriveProxyCmd)
	deriveProxyCmd.Flags().StringVar(&deriveOwner, "owner", "",
		"Owner address (default: address of POLYMARKET_PRIVATE_KEY)")
	deriveProxyCmd.Flags().StringVar(&deriveFactory, "factory", ctf.ProxyFactoryAddress.Hex(),
		"Proxy factory address")
}

func runDeriveProxy(cmd *cobra.Command, args []string) error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}

	owner, err := resolveOwner(deriveOwner, os.Getenv("POLYMARKET_PRIVATE_KEY"))
	if err != nil {
		return err
	}

	if !common.IsHexAddress(deriveFactory) {
		return fmt.Errorf("invalid factory address %q", deriveFactory)
	}

	derived := ctf.DeriveProxyWallet(owner, common.HexToAddress(deriveFactory))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Owner:   %s\n", owner.Hex())
	fmt.Fprintf(out, "Factory: %s\n", common.HexToAddress(deriveFactory).Hex())
	fmt.Fprintf(out, "Proxy:   %s\n", derived.Hex())

	configured := strings.TrimSpace(os.Getenv("POLYMARKET_PROXY_ADDRESS"))
	switch {
	case configured == "":
	case !common.IsHexAddress(configured):
		fmt.Fprintf(out, "\n⚠️  POLYMARKET_PROXY_ADDRESS is not an address: %q\n", configured)
	case common.HexToAddress(configured) == derived:
		fmt.Fprintf(out, "\n✓  POLYMARKET_PROXY_ADDRESS matches\n")
	default:
		fmt.Fprintf(out, "\n⚠️  POLYMARKET_PROXY_ADDRESS is %s, not the derived proxy\n",
			common.HexToAddress(configured).Hex())
	}

	return nil
}

func resolveOwner(ownerFlag, privateKey string) (common.Address, error) {
	if ownerFlag != "" {
		if !common.IsHexAddress(ownerFlag) {
			return common.Address{}, fmt.Errorf("invalid owner address %q", ownerFlag)
		}
		return common.HexToAddress(ownerFlag), nil
	}

	if privateKey == "" {
		return common.Address{}, fmt.Errorf("pass --owner or set POLYMARKET_PRIVATE_KEY")
	}

	key, err := polyauth.ParsePrivateKey(privateKey)
	if err != nil {
		return common.Address{}, err
	}
	return polyauth.AddressOf(key), nil
}
