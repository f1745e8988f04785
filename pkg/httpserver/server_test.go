package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-settle/internal/arbitrage"
	"github.com/mselser95/polymarket-settle/internal/execution"
	"github.com/mselser95/polymarket-settle/internal/merge"
	"github.com/mselser95/polymarket-settle/pkg/healthprobe"
	"github.com/mselser95/polymarket-settle/pkg/types"
)

const testConditionID = "0x0101010101010101010101010101010101010101010101010101010101010101"

type fakeMerger struct {
	result *merge.Result
	err    error
	got    common.Hash
}

func (f *fakeMerger) MergeMax(_ context.Context, conditionID common.Hash) (*merge.Result, error) {
	f.got = conditionID
	return f.result, f.err
}

type fakePairExecutor struct {
	result *execution.PairResult
	err    error
	opp    *arbitrage.Opportunity
	yesDir execution.Direction
	noDir  execution.Direction
}

func (f *fakePairExecutor) ExecutePair(
	_ context.Context,
	opp *arbitrage.Opportunity,
	yesDir, noDir execution.Direction,
) (*execution.PairResult, error) {
	f.opp, f.yesDir, f.noDir = opp, yesDir, noDir
	return f.result, f.err
}

func newTestServer(merger Merger, pairs PairExecutor) *Server {
	return New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		Merger:        merger,
		PairExecutor:  pairs,
	})
}

func serve(t *testing.T, s *Server, method, path, body string) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	resp := w.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	require.NotEmpty(t, errResp.Error)
	return errResp
}

func TestNew(t *testing.T) {
	logger := zap.NewNop()
	hc := healthprobe.New()

	server := New(&Config{Port: "8080", Logger: logger, HealthChecker: hc})
	require.NotNil(t, server)
	require.NotNil(t, server.server)
	assert.Equal(t, ":8080", server.server.Addr)
	assert.Equal(t, logger, server.logger)
	assert.Equal(t, hc, server.healthChecker)
	assert.Greater(t, server.server.WriteTimeout, apiTimeout)
}

func TestHealthEndpoint(t *testing.T) {
	resp := serve(t, newTestServer(nil, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name           string
		setReady       bool
		check          healthprobe.CheckFunc
		expectedStatus int
	}{
		{name: "ready-when-set", setReady: true, expectedStatus: http.StatusOK},
		{name: "not-ready-initially", setReady: false, expectedStatus: http.StatusServiceUnavailable},
		{
			name:           "failing-check",
			setReady:       true,
			check:          func(context.Context) error { return errors.New("rpc down") },
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := healthprobe.New()
			hc.SetReady(tt.setReady)
			if tt.check != nil {
				hc.AddCheck("rpc", tt.check)
			}

			server := New(&Config{Port: "0", Logger: zap.NewNop(), HealthChecker: hc})
			resp := serve(t, server, http.MethodGet, "/ready", "")
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	resp := serve(t, newTestServer(nil, nil), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotEmpty(t, body)
}

func TestAPIRoutes_NotMountedWithoutBackends(t *testing.T) {
	server := newTestServer(nil, nil)

	resp := serve(t, server, http.MethodPost, "/api/merge", `{"condition_id":"`+testConditionID+`"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = serve(t, server, http.MethodPost, "/api/pairs", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleMerge_Success(t *testing.T) {
	merger := &fakeMerger{result: &merge.Result{
		ConditionID: common.HexToHash(testConditionID),
		Wallet:      common.HexToAddress("0xf537a2b3159593a425e2fa8f5ba3bd3080d4a18a"),
		Path:        merge.KindDeployedMultisig,
		Amount:      big.NewInt(30_000_000),
		YesBalance:  big.NewInt(50_000_000),
		NoBalance:   big.NewInt(30_000_000),
		TxHash:      "0xabc",
	}}

	resp := serve(t, newTestServer(merger, nil), http.MethodPost, "/api/merge",
		`{"condition_id":"`+testConditionID+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, common.HexToHash(testConditionID), merger.got)

	var body MergeResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "deployed-multisig", body.Path)
	assert.Equal(t, "30000000", body.Amount)
	assert.Equal(t, "50000000", body.YesBalance)
	assert.Equal(t, "0xabc", body.TxHash)
}

func TestHandleMerge_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{name: "malformed-json", body: `{`, wantStatus: http.StatusBadRequest},
		{name: "unknown-field", body: `{"condition":"x"}`, wantStatus: http.StatusBadRequest},
		{name: "short-condition-id", body: `{"condition_id":"0x1234"}`, wantStatus: http.StatusBadRequest},
		{name: "non-hex-condition-id", body: `{"condition_id":"0x` + strings.Repeat("zz", 32) + `"}`, wantStatus: http.StatusBadRequest},
		{
			name:       "nothing-to-merge",
			err:        fmt.Errorf("%w: yes=0 no=5", merge.ErrNothingToMerge),
			wantStatus: http.StatusUnprocessableEntity,
		},
		{name: "proxy-mismatch", err: merge.ErrProxyMismatch, wantStatus: http.StatusConflict},
		{name: "missing-credentials", err: merge.ErrMissingRelayerCredentials, wantStatus: http.StatusPreconditionFailed},
		{
			name:       "submission-failed",
			err:        fmt.Errorf("%w: reverted", merge.ErrSubmission),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = `{"condition_id":"` + testConditionID + `"}`
			}

			resp := serve(t, newTestServer(&fakeMerger{err: tt.err}, nil), http.MethodPost, "/api/merge", body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			decodeError(t, resp)
		})
	}
}

func pairBody(yesPrice, noPrice string) string {
	return `{
		"market_id": "m1",
		"market_slug": "will-it-rain",
		"yes_token_id": "1001",
		"no_token_id": "1002",
		"yes_ask_price": "` + yesPrice + `",
		"yes_ask_size": "100",
		"no_ask_price": "` + noPrice + `",
		"no_ask_size": "100",
		"neg_risk": true,
		"yes_direction": "down",
		"no_direction": "↑"
	}`
}

func TestHandlePair_Success(t *testing.T) {
	pairs := &fakePairExecutor{result: &execution.PairResult{
		PairID:        "pair-1",
		OpportunityID: "opp-1",
		YesOrderID:    "0xyes",
		NoOrderID:     "0xno",
		YesPrice:      decimal.RequireFromString("0.41"),
		NoPrice:       decimal.RequireFromString("0.55"),
		YesSize:       decimal.NewFromInt(100),
		NoSize:        decimal.NewFromInt(100),
		YesFilled:     decimal.NewFromInt(100),
		NoFilled:      decimal.NewFromInt(40),
		OrderType:     types.OrderTypeGTD,
		Outcome:       execution.OutcomePartialFill,
		Success:       true,
	}}

	resp := serve(t, newTestServer(nil, pairs), http.MethodPost, "/api/pairs", pairBody("0.40", "0.55"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NotNil(t, pairs.opp)
	assert.Equal(t, "will-it-rain", pairs.opp.MarketSlug)
	assert.True(t, pairs.opp.NegRisk)
	assert.True(t, decimal.RequireFromString("0.40").Equal(pairs.opp.YesAskPrice))
	assert.Equal(t, execution.DirectionDown, pairs.yesDir)
	assert.Equal(t, execution.DirectionUp, pairs.noDir)

	var body PairResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pair-1", body.PairID)
	assert.Equal(t, "partial_fill", body.Outcome)
	assert.Equal(t, "GTD", body.OrderType)
	assert.True(t, decimal.NewFromInt(40).Equal(body.NoFilled))
}

func TestHandlePair_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
		wantCalled bool
	}{
		{name: "malformed-json", body: `[`, wantStatus: http.StatusBadRequest},
		{name: "invalid-opportunity", body: pairBody("1.20", "0.55"), wantStatus: http.StatusUnprocessableEntity},
		{
			name:       "minimum-notional",
			err:        fmt.Errorf("%w: YES leg 0.99", execution.ErrMinimumNotional),
			wantStatus: http.StatusUnprocessableEntity,
			wantCalled: true,
		},
		{
			name:       "venue-failure",
			err:        errors.New("post orders: 500"),
			wantStatus: http.StatusBadGateway,
			wantCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == "" {
				body = pairBody("0.40", "0.55")
			}

			pairs := &fakePairExecutor{err: tt.err}
			resp := serve(t, newTestServer(nil, pairs), http.MethodPost, "/api/pairs", body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalled, pairs.opp != nil)
			decodeError(t, resp)
		})
	}
}

func TestHandlePair_TotalFillFailure(t *testing.T) {
	pairs := &fakePairExecutor{err: &execution.FillFailureError{
		YesReason: "not enough balance",
		NoReason:  "no match",
	}}

	resp := serve(t, newTestServer(nil, pairs), http.MethodPost, "/api/pairs", pairBody("0.40", "0.55"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	errResp := decodeError(t, resp)
	assert.Equal(t, "not enough balance", errResp.YesReason)
	assert.Equal(t, "no match", errResp.NoReason)
}

func TestServer_MethodNotAllowed(t *testing.T) {
	resp := serve(t, newTestServer(&fakeMerger{}, nil), http.MethodGet, "/api/merge", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := newTestServer(nil, nil)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Shutdown(ctx))

	select {
	case err := <-serverDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}
