package merge

import "errors"

var (
	// ErrNothingToMerge means at least one side holds zero tokens.
	ErrNothingToMerge = errors.New("nothing to merge")

	// ErrProxyMismatch means the configured wallet is not the proxy the
	// factory derives for the signing key.
	ErrProxyMismatch = errors.New("configured wallet does not match derived proxy wallet")

	// ErrMissingRelayerCredentials means the relayer path was chosen without
	// a complete builder credential set.
	ErrMissingRelayerCredentials = errors.New("relayer credentials incomplete")

	// ErrWalletRead means the multisig wallet could not be read.
	ErrWalletRead = errors.New("read multisig wallet")

	// ErrSubmission means the multisig execution or the relayer submission
	// itself failed.
	ErrSubmission = errors.New("submission failed")
)
