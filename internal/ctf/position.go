package ctf

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Index sets of a binary market. Bit i of an index set selects outcome slot i.
const (
	IndexSetYes = 1
	IndexSetNo  = 2
)

// BinaryPartition returns the partition {YES, NO} covering both outcome slots.
func BinaryPartition() []*big.Int {
	return []*big.Int{big.NewInt(IndexSetYes), big.NewInt(IndexSetNo)}
}

// PositionID returns the ERC-1155 token id of the position backed by collateral
// in the given collection.
func PositionID(collateral common.Address, collectionID common.Hash) *big.Int {
	h := crypto.Keccak256(collateral.Bytes(), collectionID.Bytes())
	return new(big.Int).SetBytes(h)
}

// ParseConditionID reads a 32-byte condition id written as hex, with or
// without the 0x prefix.
func ParseConditionID(s string) (common.Hash, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}

	b, err := hexutil.Decode(raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("parse condition id %q: %w", s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("condition id %q must be %d bytes, got %d", s, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
