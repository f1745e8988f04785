package ctf

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

// CallTypeCall is the proxy wallet call type for a plain CALL.
const CallTypeCall uint8 = 1

const proxyABIJSON = `[{
	"name": "proxy",
	"type": "function",
	"stateMutability": "payable",
	"inputs": [{
		"name": "calls",
		"type": "tuple[]",
		"components": [
			{"name": "typeCode", "type": "uint8"},
			{"name": "to", "type": "address"},
			{"name": "value", "type": "uint256"},
			{"name": "data", "type": "bytes"}
		]
	}],
	"outputs": [{"name": "returnValues", "type": "bytes[]"}]
}]`

//nolint:gochecknoglobals // Function selectors
var (
	mergePositionsSelector = crypto.Keccak256([]byte("mergePositions(address,bytes32,bytes32,uint256[],uint256)"))[:4]

	proxyABI = mustParseABI(proxyABIJSON)
)

// ProxyCall is one entry of a proxy wallet batch.
type ProxyCall struct {
	TypeCode uint8
	To       common.Address
	Value    *big.Int
	Data     []byte
}

// MergeRequest describes a mergePositions call.
type MergeRequest struct {
	Collateral         common.Address
	ParentCollectionID common.Hash
	ConditionID        common.Hash
	Partition          []*big.Int
	Amount             *big.Int
}

// NewBinaryMerge returns a merge of both outcomes of a top-level binary condition.
func NewBinaryMerge(collateral common.Address, conditionID common.Hash, amount *big.Int) MergeRequest {
	return MergeRequest{
		Collateral:  collateral,
		ConditionID: conditionID,
		Partition:   BinaryPartition(),
		Amount:      amount,
	}
}

// EncodeMergePositions returns the calldata for
// mergePositions(address,bytes32,bytes32,uint256[],uint256).
func EncodeMergePositions(req MergeRequest) []byte {
	words := 5 + 1 + len(req.Partition)
	out := make([]byte, 0, 4+32*words)

	out = append(out, mergePositionsSelector...)
	out = append(out, common.LeftPadBytes(req.Collateral.Bytes(), 32)...)
	out = append(out, req.ParentCollectionID.Bytes()...)
	out = append(out, req.ConditionID.Bytes()...)
	// offset of the partition array: five head words
	out = append(out, word(big.NewInt(5*32))...)
	out = append(out, word(req.Amount)...)
	out = append(out, word(big.NewInt(int64(len(req.Partition))))...)
	for _, p := range req.Partition {
		out = append(out, word(p)...)
	}

	return out
}

// EncodeProxyCall wraps data in a single-entry proxy((uint8,address,uint256,bytes)[])
// batch targeting to with zero value.
func EncodeProxyCall(to common.Address, data []byte) ([]byte, error) {
	calls := []ProxyCall{{
		TypeCode: CallTypeCall,
		To:       to,
		Value:    big.NewInt(0),
		Data:     data,
	}}

	packed, err := proxyABI.Pack("proxy", calls)
	if err != nil {
		return nil, fmt.Errorf("pack proxy call: %w", err)
	}

	return packed, nil
}

func word(v *big.Int) []byte {
	if v == nil {
		return make([]byte, 32)
	}
	return math.U256Bytes(new(big.Int).Set(v))
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("parse ABI: %v", err))
	}
	return parsed
}
