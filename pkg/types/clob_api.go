package types

// OrderType is the CLOB time-in-force policy.
type OrderType string

// Order types accepted by the CLOB.
const (
	OrderTypeGTC OrderType = "GTC" // good till cancelled
	OrderTypeGTD OrderType = "GTD" // good till date, carries an expiration
	OrderTypeFOK OrderType = "FOK" // fill or kill
	OrderTypeFAK OrderType = "FAK" // fill and kill
)

// Valid reports whether t is one of the four known order types.
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeGTC, OrderTypeGTD, OrderTypeFOK, OrderTypeFAK:
		return true
	default:
		return false
	}
}

// OrderSubmissionResponse represents the response from POST /order or POST /orders.
type OrderSubmissionResponse struct {
	Success      bool     `json:"success"`      // Server-side success indicator
	ErrorMsg     string   `json:"errorMsg"`     // Error message if success=false
	OrderID      string   `json:"orderID"`      // Decoding is case-insensitive, "orderId" also matches
	OrderHashes  []string `json:"orderHashes"`  // Settlement transaction hashes
	Status       string   `json:"status"`       // matched, live, delayed, unmatched
	TakingAmount string   `json:"takingAmount"` // Amount received (shares for a BUY)
	MakingAmount string   `json:"makingAmount"` // Amount given (USDC for a BUY)
}

// SignedOrderJSON represents a signed order in the format expected by the CLOB API.
// Fields match the EIP-712 order structure after signing.
type SignedOrderJSON struct {
	Salt          int64  `json:"salt"`          // CLOB expects a number here, not a string
	Maker         string `json:"maker"`         // Funder address
	Signer        string `json:"signer"`        // Signing address (EOA)
	Taker         string `json:"taker"`         // Operator address (0x0000... for public)
	TokenID       string `json:"tokenId"`       // ERC1155 token ID
	MakerAmount   string `json:"makerAmount"`   // Raw amount (6 decimals for USDC)
	TakerAmount   string `json:"takerAmount"`   // Raw token amount
	Side          string `json:"side"`          // "BUY" or "SELL"
	Expiration    string `json:"expiration"`    // Unix timestamp (0 for no expiry)
	Nonce         string `json:"nonce"`         // Nonce value
	FeeRateBps    string `json:"feeRateBps"`    // Fee rate in basis points
	SignatureType int    `json:"signatureType"` // Integer: 0=EOA, 1=POLY_PROXY, 2=GNOSIS_SAFE
	Signature     string `json:"signature"`     // Hex-encoded signature with 0x prefix
}

// OrderSubmissionRequest represents a single order submission wrapped with metadata.
type OrderSubmissionRequest struct {
	Order     SignedOrderJSON `json:"order"`     // Signed order data
	Owner     string          `json:"owner"`     // API key (not maker address!)
	OrderType OrderType       `json:"orderType"` // GTC, FOK, GTD, or FAK
}

// BatchOrderRequest represents a batch order submission to POST /orders.
// Maximum 15 orders per batch per Polymarket API limits.
type BatchOrderRequest []OrderSubmissionRequest

// BatchOrderResponse represents the response from POST /orders.
// Contains one OrderSubmissionResponse per submitted order, in submission order.
type BatchOrderResponse []OrderSubmissionResponse

// CancelResponse is returned by DELETE /cancel-all.
type CancelResponse struct {
	Canceled    []string          `json:"canceled"`
	NotCanceled map[string]string `json:"not_canceled"`
}

// APIKeysResponse is returned by GET /auth/api-keys.
type APIKeysResponse struct {
	APIKeys []string `json:"apiKeys"`
}
