// Package ctf encodes calls against the conditional-token framework and the
// proxy-wallet factory, and derives the addresses and ids they depend on.
package ctf

import (
	"github.com/ethereum/go-ethereum/common"
)

// Polygon mainnet deployments.
//
//nolint:gochecknoglobals // Contract addresses
var (
	USDCAddress         = common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	ProxyFactoryAddress = common.HexToAddress("0xaB45c5A4B0c941a2F231C04C3f49182e1A254052")
	RelayHubAddress     = common.HexToAddress("0xD216153c06E857cD7f72665E0aF1d7D82172F494")
	ConditionalTokens   = common.HexToAddress("0x4D97DCd97eC945f40cF65F87097ACe5EA0476045")

	// ProxyInitCodeHash is the keccak of the proxy wallet creation code used by the factory.
	ProxyInitCodeHash = common.HexToHash("0xd21df8dc65880a8606f09fe0ce3df9b8869287ab0b058be05aa9e8af6330a00b")
)

const (
	// PolygonChainID is the chain id of Polygon PoS mainnet.
	PolygonChainID = 137

	// DefaultProxyGasLimit is the gas limit attached to relayed proxy calls.
	DefaultProxyGasLimit uint64 = 160000
)
