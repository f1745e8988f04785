// Package relayer talks to the Polymarket meta-transaction relayer, which
// forwards signed proxy-wallet calls on chain and pays their gas.
package relayer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/pkg/polyauth"
)

const (
	// DefaultBaseURL is the production relayer.
	DefaultBaseURL = "https://relayer-v2.polymarket.com"

	relayPayloadPath = "/relay-payload"
	submitPath       = "/submit"

	txTypeProxy = "PROXY"

	// DefaultMetadata labels merge submissions.
	DefaultMetadata = "Merge positions"
)

// ErrRequestFailed is wrapped by every RequestError.
var ErrRequestFailed = errors.New("relayer request failed")

// RequestError is a non-2xx relayer response.
type RequestError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("relayer %s failed: status=%d body=%s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrRequestFailed.
func (e *RequestError) Unwrap() error {
	return ErrRequestFailed
}

// Assignment is the relay node and nonce the relayer hands out for a signer.
type Assignment struct {
	Relay common.Address
	Nonce string
}

// SubmitRequest is a signed proxy call ready for the relayer.
type SubmitRequest struct {
	From        common.Address
	To          common.Address
	ProxyWallet common.Address
	Data        []byte
	Nonce       string
	Signature   []byte
	GasLimit    uint64
	RelayHub    common.Address
	Relay       common.Address
	Metadata    string
}

type signatureParams struct {
	GasPrice   string `json:"gasPrice"`
	GasLimit   string `json:"gasLimit"`
	RelayerFee string `json:"relayerFee"`
	RelayHub   string `json:"relayHub"`
	Relay      string `json:"relay"`
}

// field order is part of the signed body
type submitBody struct {
	From            string          `json:"from"`
	To              string          `json:"to"`
	ProxyWallet     string          `json:"proxyWallet"`
	Data            string          `json:"data"`
	Nonce           string          `json:"nonce"`
	Signature       string          `json:"signature"`
	SignatureParams signatureParams `json:"signatureParams"`
	Type            string          `json:"type"`
	Metadata        string          `json:"metadata"`
}

type relayPayloadResponse struct {
	Address string          `json:"address"`
	Nonce   json.RawMessage `json:"nonce"`
}

type submitResponse struct {
	TransactionHash      string `json:"transactionHash"`
	TransactionHashSnake string `json:"transaction_hash"`
}

// Client is a relayer HTTP client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// Config holds relayer client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a relayer client.
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		now:        time.Now,
		logger:     cfg.Logger,
	}, nil
}

// GetRelayAssignment asks which relay node and nonce to use for signer.
func (c *Client) GetRelayAssignment(ctx context.Context, signer common.Address) (a *Assignment, err error) {
	start := time.Now()
	defer func() { c.observe(relayPayloadPath, start, err) }()

	q := url.Values{}
	q.Set("address", lowerHex(signer))
	q.Set("type", txTypeProxy)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+relayPayloadPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &RequestError{Endpoint: relayPayloadPath, StatusCode: status, Body: string(body)}
	}

	var resp relayPayloadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse relay payload: %w", err)
	}

	if !common.IsHexAddress(resp.Address) {
		return nil, fmt.Errorf("relay payload has no valid address: %q", resp.Address)
	}

	a = &Assignment{
		Relay: common.HexToAddress(resp.Address),
		Nonce: decodeNonce(resp.Nonce),
	}

	if _, perr := strconv.ParseUint(a.Nonce, 10, 64); perr != nil {
		c.logger.Warn("relay-nonce-unparsable",
			zap.String("nonce", a.Nonce),
			zap.String("note", "signing with nonce 0"))
	}

	c.logger.Debug("relay-assignment-received",
		zap.String("signer", signer.Hex()),
		zap.String("relay", a.Relay.Hex()),
		zap.String("nonce", a.Nonce))

	return a, nil
}

// Submit posts a signed proxy call and returns the transaction hash the relayer
// reports, or the raw response body when it reports none.
func (c *Client) Submit(ctx context.Context, sr *SubmitRequest, creds polyauth.Credentials) (txHash string, err error) {
	start := time.Now()
	defer func() { c.observe(submitPath, start, err) }()

	payload, err := EncodeSubmitBody(sr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+submitPath, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	err = creds.ApplyBuilderHeaders(req, c.now().UnixMilli(), submitPath, payload)
	if err != nil {
		return "", fmt.Errorf("sign submit request: %w", err)
	}

	status, body, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", &RequestError{Endpoint: submitPath, StatusCode: status, Body: string(body)}
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse submit response: %w", err)
	}

	switch {
	case resp.TransactionHash != "":
		txHash = resp.TransactionHash
	case resp.TransactionHashSnake != "":
		txHash = resp.TransactionHashSnake
	default:
		c.logger.Warn("relayer-response-without-hash", zap.String("body", string(body)))
		txHash = string(body)
	}

	c.logger.Info("relayer-submitted",
		zap.String("proxy-wallet", sr.ProxyWallet.Hex()),
		zap.String("tx-hash", txHash))

	return txHash, nil
}

// EncodeSubmitBody renders the JSON body of a submit call.
func EncodeSubmitBody(sr *SubmitRequest) ([]byte, error) {
	metadata := sr.Metadata
	if metadata == "" {
		metadata = DefaultMetadata
	}

	body := submitBody{
		From:        lowerHex(sr.From),
		To:          lowerHex(sr.To),
		ProxyWallet: lowerHex(sr.ProxyWallet),
		Data:        hexutil.Encode(sr.Data),
		Nonce:       sr.Nonce,
		Signature:   hexutil.Encode(sr.Signature),
		SignatureParams: signatureParams{
			GasPrice:   "0",
			GasLimit:   strconv.FormatUint(sr.GasLimit, 10),
			RelayerFee: "0",
			RelayHub:   lowerHex(sr.RelayHub),
			Relay:      lowerHex(sr.Relay),
		},
		Type:     txTypeProxy,
		Metadata: metadata,
	}

	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal submit body: %w", err)
	}
	return out, nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func (c *Client) observe(endpoint string, start time.Time, err error) {
	RequestDurationSeconds.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	result := "success"
	if err != nil {
		result = "error"
	}
	RequestsTotal.WithLabelValues(endpoint, result).Inc()
}

// decodeNonce keeps a JSON string nonce verbatim and renders an unsigned
// integer as decimal text. Missing, null or any other value means "0".
func decodeNonce(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return "0"
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10)
	}

	return "0"
}

func lowerHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}
