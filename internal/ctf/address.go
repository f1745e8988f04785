package ctf

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DeriveProxyWallet returns the CREATE2 address the factory deploys for owner.
// The salt is keccak256(owner).
func DeriveProxyWallet(owner common.Address, factory common.Address) common.Address {
	salt := crypto.Keccak256(owner.Bytes())

	buf := make([]byte, 0, 1+common.AddressLength+2*common.HashLength)
	buf = append(buf, 0xff)
	buf = append(buf, factory.Bytes()...)
	buf = append(buf, salt...)
	buf = append(buf, ProxyInitCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}
