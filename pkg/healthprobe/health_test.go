package healthprobe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) (int, HealthResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	resp := w.Result()
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestNew(t *testing.T) {
	hc := New()

	require.NotNil(t, hc)
	assert.WithinDuration(t, time.Now(), hc.startTime, time.Second)
	assert.False(t, hc.ready.Load(), "should not be ready by default")
}

func TestHealth_AlwaysReturnsOK(t *testing.T) {
	for _, ready := range []bool{false, true} {
		hc := New()
		hc.SetReady(ready)
		hc.AddCheck("rpc", func(context.Context) error { return errors.New("down") })

		status, body := serve(t, hc.Health())
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, "healthy", body.Status)
		assert.NotEmpty(t, body.Uptime)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		ready      bool
		checks     map[string]CheckFunc
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "not-ready",
			ready:      false,
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
		},
		{
			name:       "ready-without-checks",
			ready:      true,
			wantStatus: http.StatusOK,
			wantBody:   "ready",
		},
		{
			name:  "ready-checks-pass",
			ready: true,
			checks: map[string]CheckFunc{
				"rpc":      func(context.Context) error { return nil },
				"database": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusOK,
			wantBody:   "ready",
			wantChecks: map[string]string{"rpc": "ok", "database": "ok"},
		},
		{
			name:  "one-check-fails",
			ready: true,
			checks: map[string]CheckFunc{
				"rpc":      func(context.Context) error { return errors.New("dial timeout") },
				"database": func(context.Context) error { return nil },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "not_ready",
			wantChecks: map[string]string{"rpc": "dial timeout", "database": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := New()
			hc.SetReady(tt.ready)
			for name, fn := range tt.checks {
				hc.AddCheck(name, fn)
			}

			status, body := serve(t, hc.Ready())
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body.Status)
			assert.Equal(t, tt.wantChecks, body.Checks)
		})
	}
}

func TestReady_CheckHasDeadline(t *testing.T) {
	hc := New()
	hc.SetReady(true)

	var hadDeadline bool
	hc.AddCheck("rpc", func(ctx context.Context) error {
		_, hadDeadline = ctx.Deadline()
		return nil
	})

	status, _ := serve(t, hc.Ready())
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, hadDeadline)
}
