package relayer

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

const structPrefix = "rlx:"

// MetaTx is the set of fields the relay hub signs over.
type MetaTx struct {
	From     common.Address
	To       common.Address
	Data     []byte
	TxFee    uint64
	GasPrice uint64
	GasLimit uint64
	Nonce    string
	RelayHub common.Address
	Relay    common.Address
}

// StructHash returns keccak256("rlx:" ‖ from ‖ to ‖ data ‖ fee ‖ gasPrice ‖ gasLimit ‖ nonce ‖ relayHub ‖ relay)
// with numeric fields as 32-byte big-endian words.
func StructHash(tx MetaTx) common.Hash {
	buf := make([]byte, 0, len(structPrefix)+4*common.AddressLength+len(tx.Data)+4*32)
	buf = append(buf, structPrefix...)
	buf = append(buf, tx.From.Bytes()...)
	buf = append(buf, tx.To.Bytes()...)
	buf = append(buf, tx.Data...)
	buf = append(buf, uint256Word(tx.TxFee)...)
	buf = append(buf, uint256Word(tx.GasPrice)...)
	buf = append(buf, uint256Word(tx.GasLimit)...)
	buf = append(buf, uint256Word(ParseNonce(tx.Nonce))...)
	buf = append(buf, tx.RelayHub.Bytes()...)
	buf = append(buf, tx.Relay.Bytes()...)

	return crypto.Keccak256Hash(buf)
}

// PersonalMessageHash applies the EIP-191 personal-message prefix to a 32-byte hash.
func PersonalMessageHash(h common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte("\x19Ethereum Signed Message:\n32"), h.Bytes())
}

// ParseNonce reads a relay nonce as an unsigned decimal. Anything else is zero.
func ParseNonce(nonce string) uint64 {
	n, err := strconv.ParseUint(nonce, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func uint256Word(v uint64) []byte {
	return math.U256Bytes(new(big.Int).SetUint64(v))
}
