// Package safe drives a 1-of-1 Gnosis Safe: it reads the wallet nonce, asks
// the wallet to encode a transaction for signing, and executes the signed
// transaction from the owner EOA.
package safe

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// OperationCall is a plain CALL from the wallet.
const OperationCall uint8 = 0

// ErrExecutionReverted means the outer transaction was mined but the wallet
// did not execute the inner call.
var ErrExecutionReverted = errors.New("wallet execution reverted")

// Backend is the chain access the wallet needs. *ethclient.Client satisfies it.
type Backend interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Transaction is a wallet transaction with no gas refund parameters.
type Transaction struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation uint8
}

// Wallet is a Gnosis Safe controlled by a single owner key.
type Wallet struct {
	address common.Address
	owner   *ecdsa.PrivateKey
	chainID *big.Int
	backend Backend
	abi     abi.ABI
	logger  *zap.Logger
}

// Config holds wallet configuration.
type Config struct {
	Address  common.Address
	OwnerKey *ecdsa.PrivateKey
	ChainID  *big.Int
	Backend  Backend
	Logger   *zap.Logger
}

// New creates a wallet handle.
func New(cfg *Config) (*Wallet, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.OwnerKey == nil {
		return nil, errors.New("owner key is required")
	}
	if cfg.ChainID == nil {
		return nil, errors.New("chain id is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	parsed, err := abi.JSON(strings.NewReader(walletABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ABI: %w", err)
	}

	return &Wallet{
		address: cfg.Address,
		owner:   cfg.OwnerKey,
		chainID: cfg.ChainID,
		backend: cfg.Backend,
		abi:     parsed,
		logger:  cfg.Logger,
	}, nil
}

// Address returns the wallet address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// Nonce reads the wallet's current transaction nonce.
func (w *Wallet) Nonce(ctx context.Context) (*big.Int, error) {
	vals, err := w.call(ctx, "nonce")
	if err != nil {
		if looksLikeRevert(err) {
			return nil, fmt.Errorf("read wallet nonce (address may not be a Gnosis Safe): %w", err)
		}
		return nil, fmt.Errorf("read wallet nonce: %w", err)
	}

	if len(vals) != 1 {
		return nil, fmt.Errorf("read wallet nonce: unexpected result len %d", len(vals))
	}
	n, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("read wallet nonce: unexpected type %T", vals[0])
	}
	return n, nil
}

// EncodeTransactionData asks the wallet for the exact bytes its owners sign.
func (w *Wallet) EncodeTransactionData(ctx context.Context, tx Transaction, nonce *big.Int) ([]byte, error) {
	vals, err := w.call(ctx, "encodeTransactionData",
		tx.To,
		valueOrZero(tx.Value),
		tx.Data,
		tx.Operation,
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		nonce,
	)
	if err != nil {
		return nil, fmt.Errorf("encode transaction data: %w", err)
	}

	if len(vals) != 1 {
		return nil, fmt.Errorf("encode transaction data: unexpected result len %d", len(vals))
	}
	encoded, ok := vals[0].([]byte)
	if !ok {
		return nil, fmt.Errorf("encode transaction data: unexpected type %T", vals[0])
	}
	return encoded, nil
}

// TransactionHash is the digest owners sign: keccak256 of the wallet-encoded data.
func TransactionHash(encoded []byte) common.Hash {
	return crypto.Keccak256Hash(encoded)
}

// Execute submits execTransaction from the owner EOA and waits for the receipt.
func (w *Wallet) Execute(ctx context.Context, tx Transaction, signatures []byte) (receipt *types.Receipt, err error) {
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		ExecutionsTotal.WithLabelValues(result).Inc()
	}()

	data, err := w.abi.Pack("execTransaction",
		tx.To,
		valueOrZero(tx.Value),
		tx.Data,
		tx.Operation,
		big.NewInt(0),
		big.NewInt(0),
		big.NewInt(0),
		common.Address{},
		common.Address{},
		signatures,
	)
	if err != nil {
		return nil, fmt.Errorf("pack call data: %w", err)
	}

	from := crypto.PubkeyToAddress(w.owner.PublicKey)

	nonce, err := w.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("get nonce: %w", err)
	}

	gasPrice, err := w.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	to := w.address
	gasLimit, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}
	// 20% headroom over the estimate
	gasLimit += gasLimit / 5

	signedTx, err := types.SignTx(
		types.NewTransaction(nonce, to, big.NewInt(0), gasLimit, gasPrice, data),
		types.NewEIP155Signer(w.chainID),
		w.owner,
	)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}

	err = w.backend.SendTransaction(ctx, signedTx)
	if err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	w.logger.Info("wallet-exec-sent",
		zap.String("wallet", w.address.Hex()),
		zap.String("tx-hash", signedTx.Hash().Hex()),
		zap.Uint64("gas-limit", gasLimit))

	receipt, err = bind.WaitMined(ctx, w.backend, signedTx)
	if err != nil {
		return nil, fmt.Errorf("wait for tx: %w", err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: tx %s status %d", ErrExecutionReverted, receipt.TxHash.Hex(), receipt.Status)
	}
	if w.emitted(receipt, executionFailureTopic) {
		return receipt, fmt.Errorf("%w: tx %s emitted ExecutionFailure", ErrExecutionReverted, receipt.TxHash.Hex())
	}

	GasUsed.Observe(float64(receipt.GasUsed))
	w.logger.Info("wallet-exec-confirmed",
		zap.String("tx-hash", receipt.TxHash.Hex()),
		zap.Uint64("gas-used", receipt.GasUsed),
		zap.Bool("success-event", w.emitted(receipt, executionSuccessTopic)))

	return receipt, nil
}

func (w *Wallet) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := w.abi.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	to := w.address
	out, err := w.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return w.abi.Unpack(method, out)
}

func (w *Wallet) emitted(receipt *types.Receipt, topic common.Hash) bool {
	for _, l := range receipt.Logs {
		if l.Address == w.address && len(l.Topics) > 0 && l.Topics[0] == topic {
			return true
		}
	}
	return false
}

func looksLikeRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert")
}

func valueOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
