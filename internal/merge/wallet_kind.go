package merge

// WalletKind is the execution path a wallet is settled through.
type WalletKind int

const (
	// KindForwardingProxy is a minimal forwarding proxy driven by the relayer.
	KindForwardingProxy WalletKind = iota + 1
	// KindDeployedMultisig is a full multisig wallet executed directly.
	KindDeployedMultisig
)

// Forwarding proxies are tiny clones. Anything at least this large is
// treated as a full multisig deployment.
const multisigCodeThreshold = 150

// ClassifyWallet decides the path from the code deployed at the wallet.
func ClassifyWallet(code []byte) WalletKind {
	if len(code) < multisigCodeThreshold {
		return KindForwardingProxy
	}
	return KindDeployedMultisig
}

func (k WalletKind) String() string {
	switch k {
	case KindForwardingProxy:
		return "forwarding-proxy"
	case KindDeployedMultisig:
		return "deployed-multisig"
	default:
		return "unknown"
	}
}
