// Package polyauth implements the request authentication shared by the
// Polymarket CLOB and relayer APIs, plus the EOA signing helpers used
// when submitting transactions on behalf of a wallet.
package polyauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// NormalizeSecret converts a base64url API secret into standard base64.
// Padding is not added; a secret that does not decode is an error in Sign.
func NormalizeSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	secret = strings.ReplaceAll(secret, "-", "+")
	return strings.ReplaceAll(secret, "_", "/")
}

// Sign returns the URL-safe base64 HMAC-SHA256 of timestamp+method+path+body
// keyed with the decoded secret. Padding is kept.
func Sign(secret string, timestamp int64, method, path string, body []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(NormalizeSecret(secret))
	if err != nil {
		return "", fmt.Errorf("decode base64 secret: %w", err)
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write(body)

	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	sig = strings.ReplaceAll(sig, "+", "-")
	sig = strings.ReplaceAll(sig, "/", "_")
	return sig, nil
}
