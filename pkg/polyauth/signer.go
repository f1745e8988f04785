package polyauth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ParsePrivateKey parses a hex private key with or without 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// AddressOf returns the EOA address controlled by key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// SignDigest signs a 32-byte digest and returns r‖s‖v with v in {27, 28}.
func SignDigest(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("sign digest: %w", err)
	}
	return NormalizeRecoveryByte(sig), nil
}

// NormalizeRecoveryByte maps a trailing recovery byte of 0 or 1 to 27 or 28.
// Any other signature is returned unchanged.
func NormalizeRecoveryByte(sig []byte) []byte {
	if len(sig) == crypto.SignatureLength && sig[64] < 2 {
		sig[64] += 27
	}
	return sig
}
