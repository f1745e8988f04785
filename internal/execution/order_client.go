package execution

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/pkg/polyauth"
	"github.com/mselser95/polymarket-settle/pkg/types"
)

const (
	// DefaultCLOBURL is the production order book API.
	DefaultCLOBURL = "https://clob.polymarket.com"

	orderPath     = "/order"
	ordersPath    = "/orders"
	cancelAllPath = "/cancel-all"
	apiKeysPath   = "/auth/api-keys"

	zeroAddress = "0x0000000000000000000000000000000000000000"
)

// ErrCLOBRequestFailed is wrapped by every APIError.
var ErrCLOBRequestFailed = errors.New("clob request failed")

// APIError is a non-2xx response from the order book API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error on %s (status %d): %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrCLOBRequestFailed.
func (e *APIError) Unwrap() error {
	return ErrCLOBRequestFailed
}

// OrderIntent is an unsigned limit order.
// Expiration is set only for GTD orders.
type OrderIntent struct {
	TokenID    string
	Side       model.Side
	Price      decimal.Decimal
	Size       decimal.Decimal
	OrderType  types.OrderType
	Expiration *time.Time
	NegRisk    bool
}

// PostOrder is one entry of a batch submission.
type PostOrder struct {
	Order     *model.SignedOrder
	OrderType types.OrderType
}

// OrderClient handles order construction and submission to the Polymarket CLOB.
type OrderClient struct {
	baseURL       string
	httpClient    *http.Client
	creds         polyauth.Credentials
	privateKey    *ecdsa.PrivateKey
	signer        common.Address
	maker         common.Address
	signatureType model.SignatureType
	chainID       *big.Int
	now           func() time.Time
	logger        *zap.Logger
}

// OrderClientConfig holds configuration for the order client.
type OrderClientConfig struct {
	BaseURL       string
	HTTPClient    *http.Client
	Credentials   polyauth.Credentials
	PrivateKey    string
	ProxyAddress  string // funder; empty means the signer funds its own orders
	SignatureType int
	ChainID       int64
	Logger        *zap.Logger
}

// NewOrderClient creates a new order client.
func NewOrderClient(cfg *OrderClientConfig) (*OrderClient, error) {
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}

	privateKey, err := polyauth.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	signer := polyauth.AddressOf(privateKey)

	maker := signer
	if cfg.ProxyAddress != "" {
		if !common.IsHexAddress(cfg.ProxyAddress) {
			return nil, fmt.Errorf("invalid proxy address %q", cfg.ProxyAddress)
		}
		maker = common.HexToAddress(cfg.ProxyAddress)
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultCLOBURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	chainID := cfg.ChainID
	if chainID == 0 {
		chainID = 137 // Polygon mainnet
	}

	return &OrderClient{
		baseURL:       base,
		httpClient:    httpClient,
		creds:         cfg.Credentials,
		privateKey:    privateKey,
		signer:        signer,
		maker:         maker,
		signatureType: model.SignatureType(cfg.SignatureType),
		chainID:       big.NewInt(chainID),
		now:           time.Now,
		logger:        cfg.Logger,
	}, nil
}

// Signer returns the EOA that signs orders and API requests.
func (c *OrderClient) Signer() common.Address {
	return c.signer
}

// Maker returns the address that funds orders.
func (c *OrderClient) Maker() common.Address {
	return c.maker
}

// BuildOrder converts an intent into unsigned order data.
func (c *OrderClient) BuildOrder(intent OrderIntent) (*model.OrderData, error) {
	if intent.TokenID == "" {
		return nil, errors.New("token id is required")
	}
	if !intent.Price.IsPositive() || !intent.Size.IsPositive() {
		return nil, fmt.Errorf("invalid price %s or size %s", intent.Price, intent.Size)
	}

	makerAmount, takerAmount := orderAmounts(intent.Side, intent.Price, intent.Size)

	expiration := "0"
	if intent.OrderType == types.OrderTypeGTD {
		if intent.Expiration == nil {
			return nil, errors.New("GTD order requires an expiration")
		}
		expiration = strconv.FormatInt(intent.Expiration.Unix(), 10)
	}

	return &model.OrderData{
		Maker:         c.maker.Hex(),
		Taker:         zeroAddress,
		TokenId:       intent.TokenID,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          intent.Side,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.signer.Hex(),
		Expiration:    expiration,
		SignatureType: c.signatureType,
	}, nil
}

// SignOrder signs order data for the CTF exchange, or the neg-risk exchange when negRisk is set.
func (c *OrderClient) SignOrder(data *model.OrderData, negRisk bool) (*model.SignedOrder, error) {
	contract := model.CTFExchange
	if negRisk {
		contract = model.NegRiskCTFExchange
	}

	// one builder per call, SignOrder runs on two goroutines at once
	orderBuilder := builder.NewExchangeOrderBuilderImpl(c.chainID, nil)

	signed, err := orderBuilder.BuildSignedOrder(c.privateKey, data, contract)
	if err != nil {
		return nil, fmt.Errorf("sign order for token %s: %w", data.TokenId, err)
	}
	return signed, nil
}

// PostOrders submits a batch and returns one response per order, in submission order.
func (c *OrderClient) PostOrders(ctx context.Context, orders []PostOrder) (types.BatchOrderResponse, error) {
	batch := make(types.BatchOrderRequest, 0, len(orders))
	for _, o := range orders {
		batch = append(batch, c.submission(o.Order, o.OrderType))
	}

	var resp types.BatchOrderResponse
	if err := c.doJSON(ctx, http.MethodPost, ordersPath, batch, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("orders-posted",
		zap.Int("submitted", len(orders)),
		zap.Int("results", len(resp)))

	return resp, nil
}

// CancelAllOrders cancels every open order of the API key.
func (c *OrderClient) CancelAllOrders(ctx context.Context) (*types.CancelResponse, error) {
	var resp types.CancelResponse
	if err := c.doJSON(ctx, http.MethodDelete, cancelAllPath, nil, &resp); err != nil {
		return nil, err
	}

	c.logger.Info("orders-cancelled",
		zap.Int("canceled", len(resp.Canceled)),
		zap.Int("not-canceled", len(resp.NotCanceled)))

	return &resp, nil
}

// SellAtPrice places a GTC sell limit order, used to unwind a filled leg.
func (c *OrderClient) SellAtPrice(ctx context.Context, tokenID string, price, size decimal.Decimal, negRisk bool) (*types.OrderSubmissionResponse, error) {
	data, err := c.BuildOrder(OrderIntent{
		TokenID:   tokenID,
		Side:      model.SELL,
		Price:     price,
		Size:      size,
		OrderType: types.OrderTypeGTC,
		NegRisk:   negRisk,
	})
	if err != nil {
		return nil, fmt.Errorf("build sell order: %w", err)
	}

	signed, err := c.SignOrder(data, negRisk)
	if err != nil {
		return nil, err
	}

	var resp types.OrderSubmissionResponse
	if err := c.doJSON(ctx, http.MethodPost, orderPath, c.submission(signed, types.OrderTypeGTC), &resp); err != nil {
		return nil, err
	}

	c.logger.Info("sell-order-placed",
		zap.String("token-id", tokenID),
		zap.String("price", price.String()),
		zap.String("size", size.String()),
		zap.String("order-id", resp.OrderID),
		zap.Bool("success", resp.Success))

	return &resp, nil
}

// VerifyAuthentication lists the API keys visible to the configured credentials.
func (c *OrderClient) VerifyAuthentication(ctx context.Context) (*types.APIKeysResponse, error) {
	var resp types.APIKeysResponse
	if err := c.doJSON(ctx, http.MethodGet, apiKeysPath, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *OrderClient) submission(order *model.SignedOrder, orderType types.OrderType) types.OrderSubmissionRequest {
	// Note: "owner" is the API key, not the maker address
	return types.OrderSubmissionRequest{
		Order:     toSignedOrderJSON(order),
		Owner:     c.creds.Key,
		OrderType: orderType,
	}
}

func (c *OrderClient) doJSON(ctx context.Context, method, path string, payload, out any) (err error) {
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "error"
		}
		CLOBRequestsTotal.WithLabelValues(path, result).Inc()
		CLOBRequestDurationSeconds.WithLabelValues(path).Observe(time.Since(start).Seconds())
	}()

	if !c.creds.Complete() {
		return errors.New("clob api credentials are incomplete")
	}

	var body []byte
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// POLY_ADDRESS is the EOA, not the funder
	err = c.creds.ApplyL2Headers(req, c.signer.Hex(), c.now().Unix(), path, body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Endpoint: path, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func toSignedOrderJSON(order *model.SignedOrder) types.SignedOrderJSON {
	// Convert Side to string ("BUY" or "SELL")
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return types.SignedOrderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

// orderAmounts returns raw (6-decimal) maker and taker amounts.
// A BUY gives USDC (price*size, 4 dp) for shares (size, 2 dp); a SELL is the reverse.
func orderAmounts(side model.Side, price, size decimal.Decimal) (string, string) {
	shares := size.Truncate(2)
	notional := price.Mul(shares).Truncate(4)

	if side == model.SELL {
		return toRawAmount(shares), toRawAmount(notional)
	}
	return toRawAmount(notional), toRawAmount(shares)
}

func toRawAmount(d decimal.Decimal) string {
	return d.Shift(6).Truncate(0).String()
}
