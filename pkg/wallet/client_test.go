package wallet

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/pkg/cache"
)

type fakeCaller struct {
	ctfABI    abi.ABI
	tokensABI abi.ABI

	balances    map[string]*big.Int
	collections map[string]common.Hash
	code        []byte
	err         error

	calls map[string]int
}

func newFakeCaller(t *testing.T) *fakeCaller {
	t.Helper()

	ctfABI, err := abi.JSON(strings.NewReader(conditionalTokensABIJSON))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}
	tokensABI, err := abi.JSON(strings.NewReader(tokensABIJSON))
	if err != nil {
		t.Fatalf("parse ABI: %v", err)
	}

	return &fakeCaller{
		ctfABI:      ctfABI,
		tokensABI:   tokensABI,
		balances:    make(map[string]*big.Int),
		collections: make(map[string]common.Hash),
		calls:       make(map[string]int),
	}
}

func (f *fakeCaller) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	f.calls["getCode"]++
	return f.code, f.err
}

func (f *fakeCaller) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}

	if *call.To == ctf.USDCAddress {
		f.calls["erc20-balanceOf"]++
		method := f.tokensABI.Methods["balanceOf"]
		args, err := method.Inputs.Unpack(call.Data[4:])
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(f.balance("usdc:" + args[0].(common.Address).Hex()))
	}

	method, err := f.ctfABI.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++

	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "balanceOf":
		key := args[0].(common.Address).Hex() + ":" + args[1].(*big.Int).String()
		return method.Outputs.Pack(f.balance(key))
	case "getCollectionId":
		key := common.Hash(args[1].([32]byte)).Hex() + ":" + args[2].(*big.Int).String()
		return method.Outputs.Pack([32]byte(f.collections[key]))
	}
	return nil, errors.New("unexpected method")
}

func (f *fakeCaller) balance(key string) *big.Int {
	if b, ok := f.balances[key]; ok {
		return b
	}
	return big.NewInt(0)
}

func newTestClient(t *testing.T, caller Caller, c cache.Cache) *Client {
	t.Helper()

	client, err := NewClient(&Config{Caller: caller, Cache: c, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid-config",
			cfg:     &Config{Caller: &fakeCaller{}, Logger: logger},
			wantErr: false,
		},
		{
			name:    "nil-caller",
			cfg:     &Config{Logger: logger},
			wantErr: true,
		},
		{
			name:    "nil-logger",
			cfg:     &Config{Caller: &fakeCaller{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				if client.collateral != ctf.USDCAddress {
					t.Errorf("NewClient() collateral = %v, want %v", client.collateral, ctf.USDCAddress)
				}
				if client.conditionalTokens != ctf.ConditionalTokens {
					t.Errorf("NewClient() conditionalTokens = %v, want %v", client.conditionalTokens, ctf.ConditionalTokens)
				}
			}
		})
	}
}

func TestPositionBalance(t *testing.T) {
	caller := newFakeCaller(t)
	owner := common.HexToAddress("0x1234")
	caller.balances[owner.Hex()+":77"] = big.NewInt(50_000_000)

	client := newTestClient(t, caller, nil)

	got, err := client.PositionBalance(context.Background(), owner, big.NewInt(77))
	if err != nil {
		t.Fatalf("PositionBalance() error = %v", err)
	}
	if got.Cmp(big.NewInt(50_000_000)) != 0 {
		t.Errorf("PositionBalance() = %v, want 50000000", got)
	}

	got, err = client.PositionBalance(context.Background(), owner, big.NewInt(78))
	if err != nil {
		t.Fatalf("PositionBalance() error = %v", err)
	}
	if got.Sign() != 0 {
		t.Errorf("PositionBalance() = %v, want 0", got)
	}
}

func TestCollateralBalance(t *testing.T) {
	caller := newFakeCaller(t)
	owner := common.HexToAddress("0x1234")
	caller.balances["usdc:"+owner.Hex()] = big.NewInt(12_500_000)

	client := newTestClient(t, caller, nil)

	got, err := client.CollateralBalance(context.Background(), owner)
	if err != nil {
		t.Fatalf("CollateralBalance() error = %v", err)
	}
	if got.Cmp(big.NewInt(12_500_000)) != 0 {
		t.Errorf("CollateralBalance() = %v, want 12500000", got)
	}
}

func TestCode(t *testing.T) {
	caller := newFakeCaller(t)
	caller.code = []byte{0x60, 0x80}

	client := newTestClient(t, caller, nil)

	code, err := client.Code(context.Background(), common.HexToAddress("0x1"))
	if err != nil {
		t.Fatalf("Code() error = %v", err)
	}
	if len(code) != 2 {
		t.Errorf("Code() len = %d, want 2", len(code))
	}
}

func TestCallErrorsAreWrapped(t *testing.T) {
	caller := newFakeCaller(t)
	caller.err = errors.New("rpc down")

	client := newTestClient(t, caller, nil)

	if _, err := client.PositionBalance(context.Background(), common.Address{}, big.NewInt(1)); err == nil {
		t.Error("expected PositionBalance error")
	}
	if _, err := client.Code(context.Background(), common.Address{}); err == nil {
		t.Error("expected Code error")
	}
	if _, err := client.CollectionID(context.Background(), common.Hash{}, common.Hash{1}, big.NewInt(1)); err == nil {
		t.Error("expected CollectionID error")
	}
}

func TestCollectionID_Cached(t *testing.T) {
	caller := newFakeCaller(t)
	condition := common.HexToHash("0xc0ffee")
	want := common.HexToHash("0xbeef")
	caller.collections[condition.Hex()+":1"] = want

	c, err := cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	defer c.Close()

	client := newTestClient(t, caller, c)

	for i := 0; i < 3; i++ {
		got, err := client.CollectionID(context.Background(), common.Hash{}, condition, big.NewInt(1))
		if err != nil {
			t.Fatalf("CollectionID() error = %v", err)
		}
		if got != want {
			t.Errorf("CollectionID() = %v, want %v", got, want)
		}
		c.Wait()
	}

	if caller.calls["getCollectionId"] != 1 {
		t.Errorf("expected 1 chain read, got %d", caller.calls["getCollectionId"])
	}
}

func TestCollectionID_NoCache(t *testing.T) {
	caller := newFakeCaller(t)
	client := newTestClient(t, caller, nil)

	for i := 0; i < 2; i++ {
		_, err := client.CollectionID(context.Background(), common.Hash{}, common.Hash{}, big.NewInt(2))
		if err != nil {
			t.Fatalf("CollectionID() error = %v", err)
		}
	}

	if caller.calls["getCollectionId"] != 2 {
		t.Errorf("expected 2 chain reads, got %d", caller.calls["getCollectionId"])
	}
}
