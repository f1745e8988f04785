// Package wallet reads the on-chain state a settlement needs: outcome-token
// balances, collateral balances, deployed code and collection ids.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/pkg/cache"
)

// collection ids never change for a given input
const collectionIDTTL = 24 * time.Hour

const tokensABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

const conditionalTokensABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":true,"inputs":[
		{"name":"parentCollectionId","type":"bytes32"},
		{"name":"conditionId","type":"bytes32"},
		{"name":"indexSet","type":"uint256"}
	],"name":"getCollectionId","outputs":[{"name":"","type":"bytes32"}],"type":"function"}
]`

// Caller is the read-only chain access the client needs. *ethclient.Client satisfies it.
type Caller interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Client reads balances, code and collection ids from chain.
type Client struct {
	caller            Caller
	collateral        common.Address
	conditionalTokens common.Address
	tokensABI         abi.ABI
	ctfABI            abi.ABI
	cache             cache.Cache
	logger            *zap.Logger
}

// Config holds wallet client configuration.
type Config struct {
	Caller            Caller
	Collateral        common.Address
	ConditionalTokens common.Address
	// Cache is optional. Without it every collection id is read from chain.
	Cache  cache.Cache
	Logger *zap.Logger
}

// NewClient creates a new wallet client.
func NewClient(cfg *Config) (c *Client, err error) {
	if cfg.Caller == nil {
		return nil, errors.New("caller cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	tokensABI, err := abi.JSON(strings.NewReader(tokensABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	ctfABI, err := abi.JSON(strings.NewReader(conditionalTokensABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	collateral := cfg.Collateral
	if collateral == (common.Address{}) {
		collateral = ctf.USDCAddress
	}

	conditional := cfg.ConditionalTokens
	if conditional == (common.Address{}) {
		conditional = ctf.ConditionalTokens
	}

	c = &Client{
		caller:            cfg.Caller,
		collateral:        collateral,
		conditionalTokens: conditional,
		tokensABI:         tokensABI,
		ctfABI:            ctfABI,
		cache:             cfg.Cache,
		logger:            cfg.Logger,
	}

	return c, nil
}

// PositionBalance returns owner's ERC-1155 balance of positionID.
func (c *Client) PositionBalance(ctx context.Context, owner common.Address, positionID *big.Int) (balance *big.Int, err error) {
	out, err := c.call(ctx, c.conditionalTokens, c.ctfABI, "balanceOf", owner, positionID)
	if err != nil {
		return nil, fmt.Errorf("get position balance: %w", err)
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("get position balance: unexpected type %T", out[0])
	}
	return balance, nil
}

// CollateralBalance returns owner's collateral balance in 6-decimal units.
func (c *Client) CollateralBalance(ctx context.Context, owner common.Address) (balance *big.Int, err error) {
	out, err := c.call(ctx, c.collateral, c.tokensABI, "balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("get collateral balance: %w", err)
	}

	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("get collateral balance: unexpected type %T", out[0])
	}

	usd, _ := new(big.Float).Quo(new(big.Float).SetInt(balance), big.NewFloat(1e6)).Float64()
	USDCBalance.Set(usd)

	return balance, nil
}

// Code returns the bytecode deployed at account. Empty means an EOA or
// an undeployed address.
func (c *Client) Code(ctx context.Context, account common.Address) ([]byte, error) {
	code, err := c.caller.CodeAt(ctx, account, nil)
	RPCCallsTotal.WithLabelValues("getCode", resultLabel(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	return code, nil
}

// CollectionID resolves getCollectionId(parent, condition, indexSet) on the
// conditional-token contract.
func (c *Client) CollectionID(ctx context.Context, parent, conditionID common.Hash, indexSet *big.Int) (id common.Hash, err error) {
	key := fmt.Sprintf("collection:%s:%s:%s", parent.Hex(), conditionID.Hex(), indexSet.String())
	if c.cache != nil {
		if v, found := c.cache.Get(key); found {
			if cached, ok := v.(common.Hash); ok {
				return cached, nil
			}
		}
	}

	out, err := c.call(ctx, c.conditionalTokens, c.ctfABI, "getCollectionId", [32]byte(parent), [32]byte(conditionID), indexSet)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get collection id: %w", err)
	}

	raw, ok := out[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("get collection id: unexpected type %T", out[0])
	}
	id = common.Hash(raw)

	if c.cache != nil {
		c.cache.Set(key, id, collectionIDTTL)
	}

	c.logger.Debug("collection-id-resolved",
		zap.String("condition-id", conditionID.Hex()),
		zap.String("index-set", indexSet.String()),
		zap.String("collection-id", id.Hex()))

	return id, nil
}

func (c *Client) call(
	ctx context.Context,
	to common.Address,
	contractABI abi.ABI,
	method string,
	args ...interface{},
) (out []interface{}, err error) {
	defer func() {
		RPCCallsTotal.WithLabelValues(method, resultLabel(err)).Inc()
	}()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack ABI: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}

	result, err := c.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call contract: %w", err)
	}

	out, err = contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack result: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected result len %d", len(out))
	}

	return out, nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
