package polyauth

import (
	"fmt"
	"net/http"
	"strconv"
)

// Header names for CLOB level-2 authentication.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
)

// Header names for builder (relayer) authentication.
const (
	HeaderBuilderAPIKey     = "POLY_BUILDER_API_KEY"
	HeaderBuilderPassphrase = "POLY_BUILDER_PASSPHRASE"
	HeaderBuilderSignature  = "POLY_BUILDER_SIGNATURE"
	HeaderBuilderTimestamp  = "POLY_BUILDER_TIMESTAMP"
)

// Credentials is an API key triple.
type Credentials struct {
	Key        string
	Secret     string
	Passphrase string
}

// Complete reports whether all three parts are present.
func (c Credentials) Complete() bool {
	return c.Key != "" && c.Secret != "" && c.Passphrase != ""
}

// String redacts the secret parts.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Key: %q, Secret: [redacted], Passphrase: [redacted]}", c.Key)
}

// ApplyL2Headers signs the request with c and sets the POLY_* headers.
// timestamp is in seconds.
func (c Credentials) ApplyL2Headers(req *http.Request, address string, timestamp int64, path string, body []byte) error {
	sig, err := Sign(c.Secret, timestamp, req.Method, path, body)
	if err != nil {
		return err
	}

	req.Header.Set(HeaderAddress, address)
	req.Header.Set(HeaderAPIKey, c.Key)
	req.Header.Set(HeaderPassphrase, c.Passphrase)
	req.Header.Set(HeaderSignature, sig)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	return nil
}

// ApplyBuilderHeaders signs the request with c and sets the POLY_BUILDER_* headers.
// timestamp is in milliseconds.
func (c Credentials) ApplyBuilderHeaders(req *http.Request, timestamp int64, path string, body []byte) error {
	sig, err := Sign(c.Secret, timestamp, req.Method, path, body)
	if err != nil {
		return err
	}

	req.Header.Set(HeaderBuilderAPIKey, c.Key)
	req.Header.Set(HeaderBuilderPassphrase, c.Passphrase)
	req.Header.Set(HeaderBuilderSignature, sig)
	req.Header.Set(HeaderBuilderTimestamp, strconv.FormatInt(timestamp, 10))
	return nil
}
