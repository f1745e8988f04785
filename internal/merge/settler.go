// Package merge converts matched YES and NO outcome tokens held by a wallet
// back into collateral, routing through either the multisig wallet itself or
// the meta-transaction relayer depending on what is deployed at the wallet.
package merge

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/internal/relayer"
	"github.com/mselser95/polymarket-settle/internal/safe"
	"github.com/mselser95/polymarket-settle/pkg/polyauth"
)

// ChainReader reads the state a merge is computed from.
type ChainReader interface {
	CollectionID(ctx context.Context, parent, conditionID common.Hash, indexSet *big.Int) (common.Hash, error)
	PositionBalance(ctx context.Context, owner common.Address, positionID *big.Int) (*big.Int, error)
	Code(ctx context.Context, account common.Address) ([]byte, error)
}

// MultisigWallet executes owner-signed transactions from the wallet.
type MultisigWallet interface {
	Nonce(ctx context.Context) (*big.Int, error)
	EncodeTransactionData(ctx context.Context, tx safe.Transaction, nonce *big.Int) ([]byte, error)
	Execute(ctx context.Context, tx safe.Transaction, signatures []byte) (*types.Receipt, error)
}

// Relayer forwards signed proxy calls.
type Relayer interface {
	GetRelayAssignment(ctx context.Context, signer common.Address) (*relayer.Assignment, error)
	Submit(ctx context.Context, req *relayer.SubmitRequest, creds polyauth.Credentials) (string, error)
}

// Recorder persists merge attempts.
type Recorder interface {
	StoreMerge(ctx context.Context, rec *Record) error
}

// Result describes a submitted merge.
type Result struct {
	ConditionID common.Hash
	Wallet      common.Address
	Path        WalletKind
	Amount      *big.Int
	YesBalance  *big.Int
	NoBalance   *big.Int
	TxHash      string
}

// Record is one merge attempt, successful or not.
type Record struct {
	ID          uuid.UUID
	ConditionID common.Hash
	Wallet      common.Address
	Path        WalletKind
	Amount      *big.Int
	YesBalance  *big.Int
	NoBalance   *big.Int
	TxHash      string
	Error       string
	CreatedAt   time.Time
}

// Config holds settler configuration. Addresses left zero take the Polygon
// mainnet defaults.
type Config struct {
	Wallet            common.Address
	OwnerKey          *ecdsa.PrivateKey
	Collateral        common.Address
	ConditionalTokens common.Address
	ProxyFactory      common.Address
	RelayHub          common.Address
	GasLimit          uint64
	TryAnyway         bool
	Credentials       polyauth.Credentials

	Chain    ChainReader
	Multisig MultisigWallet
	Relayer  Relayer
	// Recorder is optional.
	Recorder Recorder
	Logger   *zap.Logger
}

// Settler merges the maximum matched amount for a condition.
type Settler struct {
	cfg   Config
	owner common.Address
}

// NewSettler creates a settler.
func NewSettler(cfg *Config) (*Settler, error) {
	if cfg.OwnerKey == nil {
		return nil, errors.New("owner key is required")
	}
	if cfg.Chain == nil {
		return nil, errors.New("chain reader is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Wallet == (common.Address{}) {
		return nil, errors.New("wallet address is required")
	}

	c := *cfg
	if c.Collateral == (common.Address{}) {
		c.Collateral = ctf.USDCAddress
	}
	if c.ConditionalTokens == (common.Address{}) {
		c.ConditionalTokens = ctf.ConditionalTokens
	}
	if c.ProxyFactory == (common.Address{}) {
		c.ProxyFactory = ctf.ProxyFactoryAddress
	}
	if c.RelayHub == (common.Address{}) {
		c.RelayHub = ctf.RelayHubAddress
	}
	if c.GasLimit == 0 {
		c.GasLimit = ctf.DefaultProxyGasLimit
	}

	return &Settler{
		cfg:   c,
		owner: polyauth.AddressOf(c.OwnerKey),
	}, nil
}

// MergeMax merges min(YES, NO) of the wallet's balances for conditionID.
func (s *Settler) MergeMax(ctx context.Context, conditionID common.Hash) (result *Result, err error) {
	start := time.Now()
	logger := s.cfg.Logger.With(
		zap.String("condition-id", conditionID.Hex()),
		zap.String("wallet", s.cfg.Wallet.Hex()))

	rec := &Record{
		ID:          uuid.New(),
		ConditionID: conditionID,
		Wallet:      s.cfg.Wallet,
		CreatedAt:   start,
	}
	defer func() {
		s.finish(ctx, rec, result, err, start)
	}()

	yesID, noID, err := s.positionIDs(ctx, conditionID)
	if err != nil {
		return nil, err
	}

	yes := s.balance(ctx, logger, yesID, "yes")
	no := s.balance(ctx, logger, noID, "no")
	rec.YesBalance, rec.NoBalance = yes, no

	amount := minBig(yes, no)
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("%w: yes=%s no=%s", ErrNothingToMerge, yes, no)
	}
	rec.Amount = amount

	logger.Info("merge-amount-computed",
		zap.String("yes-balance", yes.String()),
		zap.String("no-balance", no.String()),
		zap.String("amount", amount.String()))

	calldata := ctf.EncodeMergePositions(ctf.NewBinaryMerge(s.cfg.Collateral, conditionID, amount))

	code, err := s.cfg.Chain.Code(ctx, s.cfg.Wallet)
	if err != nil {
		logger.Warn("wallet-code-read-failed", zap.Error(err))
		code = nil
	}
	kind := ClassifyWallet(code)
	rec.Path = kind

	logger.Info("merge-path-selected",
		zap.Stringer("path", kind),
		zap.Int("code-size", len(code)))

	var txHash string
	switch kind {
	case KindForwardingProxy:
		txHash, err = s.viaRelayer(ctx, logger, calldata)
	case KindDeployedMultisig:
		txHash, err = s.viaMultisig(ctx, logger, calldata)
	}
	if err != nil {
		return nil, err
	}

	result = &Result{
		ConditionID: conditionID,
		Wallet:      s.cfg.Wallet,
		Path:        kind,
		Amount:      amount,
		YesBalance:  yes,
		NoBalance:   no,
		TxHash:      txHash,
	}

	logger.Info("merge-submitted",
		zap.Stringer("path", kind),
		zap.String("amount", amount.String()),
		zap.String("tx-hash", txHash))

	return result, nil
}

func (s *Settler) positionIDs(ctx context.Context, conditionID common.Hash) (yes, no *big.Int, err error) {
	yesCollection, err := s.cfg.Chain.CollectionID(ctx, common.Hash{}, conditionID, big.NewInt(ctf.IndexSetYes))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve YES collection: %w", err)
	}

	noCollection, err := s.cfg.Chain.CollectionID(ctx, common.Hash{}, conditionID, big.NewInt(ctf.IndexSetNo))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve NO collection: %w", err)
	}

	return ctf.PositionID(s.cfg.Collateral, yesCollection), ctf.PositionID(s.cfg.Collateral, noCollection), nil
}

// balance reads fresh on every call. A failed read counts as zero.
func (s *Settler) balance(ctx context.Context, logger *zap.Logger, positionID *big.Int, side string) *big.Int {
	b, err := s.cfg.Chain.PositionBalance(ctx, s.cfg.Wallet, positionID)
	if err != nil || b == nil {
		logger.Warn("balance-read-failed",
			zap.String("side", side),
			zap.String("position-id", positionID.String()),
			zap.Error(err))
		return big.NewInt(0)
	}
	return b
}

func (s *Settler) viaRelayer(ctx context.Context, logger *zap.Logger, calldata []byte) (string, error) {
	derived := ctf.DeriveProxyWallet(s.owner, s.cfg.ProxyFactory)
	if derived != s.cfg.Wallet {
		if !s.cfg.TryAnyway {
			return "", fmt.Errorf("%w: configured=%s derived=%s", ErrProxyMismatch, s.cfg.Wallet.Hex(), derived.Hex())
		}
		logger.Warn("proxy-mismatch-ignored",
			zap.String("derived", derived.Hex()))
	}

	if !s.cfg.Credentials.Complete() {
		return "", ErrMissingRelayerCredentials
	}
	if s.cfg.Relayer == nil {
		return "", errors.New("relayer client not configured")
	}

	assignment, err := s.cfg.Relayer.GetRelayAssignment(ctx, s.owner)
	if err != nil {
		return "", fmt.Errorf("get relay assignment: %w", err)
	}

	proxyData, err := ctf.EncodeProxyCall(s.cfg.ConditionalTokens, calldata)
	if err != nil {
		return "", err
	}

	structHash := relayer.StructHash(relayer.MetaTx{
		From:     s.owner,
		To:       s.cfg.ProxyFactory,
		Data:     proxyData,
		GasLimit: s.cfg.GasLimit,
		Nonce:    assignment.Nonce,
		RelayHub: s.cfg.RelayHub,
		Relay:    assignment.Relay,
	})

	sig, err := polyauth.SignDigest(s.cfg.OwnerKey, relayer.PersonalMessageHash(structHash))
	if err != nil {
		return "", err
	}

	logger.Debug("relay-request-signed",
		zap.String("relay", assignment.Relay.Hex()),
		zap.String("nonce", assignment.Nonce),
		zap.String("struct-hash", structHash.Hex()))

	txHash, err := s.cfg.Relayer.Submit(ctx, &relayer.SubmitRequest{
		From:        s.owner,
		To:          s.cfg.ProxyFactory,
		ProxyWallet: s.cfg.Wallet,
		Data:        proxyData,
		Nonce:       assignment.Nonce,
		Signature:   sig,
		GasLimit:    s.cfg.GasLimit,
		RelayHub:    s.cfg.RelayHub,
		Relay:       assignment.Relay,
		Metadata:    relayer.DefaultMetadata,
	}, s.cfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("%w: relayer: %w", ErrSubmission, err)
	}

	return txHash, nil
}

func (s *Settler) viaMultisig(ctx context.Context, logger *zap.Logger, calldata []byte) (string, error) {
	if s.cfg.Multisig == nil {
		return "", fmt.Errorf("%w: multisig client not configured", ErrWalletRead)
	}

	nonce, err := s.cfg.Multisig.Nonce(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWalletRead, err)
	}

	tx := safe.Transaction{
		To:        s.cfg.ConditionalTokens,
		Value:     big.NewInt(0),
		Data:      calldata,
		Operation: safe.OperationCall,
	}

	encoded, err := s.cfg.Multisig.EncodeTransactionData(ctx, tx, nonce)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrWalletRead, err)
	}

	digest := safe.TransactionHash(encoded)
	sig, err := polyauth.SignDigest(s.cfg.OwnerKey, digest)
	if err != nil {
		return "", err
	}

	logger.Debug("multisig-tx-signed",
		zap.String("nonce", nonce.String()),
		zap.String("safe-tx-hash", digest.Hex()))

	receipt, err := s.cfg.Multisig.Execute(ctx, tx, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	return receipt.TxHash.Hex(), nil
}

func (s *Settler) finish(ctx context.Context, rec *Record, result *Result, err error, start time.Time) {
	path := "none"
	if rec.Path != 0 {
		path = rec.Path.String()
	}

	outcome := "success"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrNothingToMerge) {
			outcome = "nothing-to-merge"
		}
		rec.Error = err.Error()
	}

	AttemptsTotal.WithLabelValues(path, outcome).Inc()
	DurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if result != nil {
		rec.TxHash = result.TxHash
		amount, _ := new(big.Float).SetInt(result.Amount).Float64()
		MergedUnitsTotal.Add(amount)
	}

	if s.cfg.Recorder == nil {
		return
	}
	if storeErr := s.cfg.Recorder.StoreMerge(ctx, rec); storeErr != nil {
		s.cfg.Logger.Warn("merge-record-store-failed",
			zap.String("record-id", rec.ID.String()),
			zap.Error(storeErr))
	}
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}
