package polyauth

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	zeroSecret = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
	goldenSig  = "ZwAdJKvoYRlEKDkNMwd5BuwNNtg93kNaR_oU2HrfVvc="
)

func TestSign(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "standard-base64", secret: zeroSecret, want: goldenSig},
		{name: "surrounding-whitespace", secret: "  " + zeroSecret + "\n", want: goldenSig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := Sign(tt.secret, 1000000, "test-sign", "/orders", []byte(`{"hash": "0x123"}`))
			require.NoError(t, err)
			assert.Equal(t, tt.want, sig)
		})
	}
}

func TestSign_Base64URLSecretMatchesStandard(t *testing.T) {
	std, err := Sign("++/AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", 1000000, "test-sign", "/orders", []byte(`{"hash": "0x123"}`))
	require.NoError(t, err)

	url, err := Sign("--_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=", 1000000, "test-sign", "/orders", []byte(`{"hash": "0x123"}`))
	require.NoError(t, err)

	assert.Equal(t, std, url)
}

func TestSign_MillisecondTimestamp(t *testing.T) {
	sig, err := Sign(zeroSecret, 1700000000000, http.MethodPost, "/submit", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "W8_fn6MPk4YJpiMUQYCemTKt1Q9TGWj9h4U7P_kwY3M=", sig)
}

func TestSign_OutputIsURLSafe(t *testing.T) {
	for ts := int64(0); ts < 50; ts++ {
		sig, err := Sign(zeroSecret, ts, http.MethodGet, "/x", nil)
		require.NoError(t, err)
		assert.NotContains(t, sig, "+")
		assert.NotContains(t, sig, "/")
	}
}

func TestSign_UndecodableSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{name: "single-character", secret: "A"},
		{name: "foreign-symbol", secret: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA$="},
		{name: "embedded-symbols", secret: "AAAAAAAAA^^AAAAAAAA<>AAAAA||AAAAAAAAAAAAAAAAAAAAA="},
		{name: "missing-padding", secret: "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Sign(tt.secret, 1, http.MethodGet, "/", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "decode base64 secret")
		})
	}
}

func TestApplyBuilderHeaders(t *testing.T) {
	creds := Credentials{Key: "builder-key", Secret: zeroSecret, Passphrase: "pass"}
	req, err := http.NewRequest(http.MethodPost, "https://relayer.example/submit", nil)
	require.NoError(t, err)

	require.NoError(t, creds.ApplyBuilderHeaders(req, 1700000000000, "/submit", []byte(`{}`)))

	assert.Equal(t, "builder-key", req.Header.Get(HeaderBuilderAPIKey))
	assert.Equal(t, "pass", req.Header.Get(HeaderBuilderPassphrase))
	assert.Equal(t, "1700000000000", req.Header.Get(HeaderBuilderTimestamp))
	assert.Equal(t, "W8_fn6MPk4YJpiMUQYCemTKt1Q9TGWj9h4U7P_kwY3M=", req.Header.Get(HeaderBuilderSignature))
}

func TestApplyL2Headers(t *testing.T) {
	creds := Credentials{Key: "k", Secret: zeroSecret, Passphrase: "p"}
	req, err := http.NewRequest("test-sign", "https://clob.example/orders", nil)
	require.NoError(t, err)

	require.NoError(t, creds.ApplyL2Headers(req, "0xabc", 1000000, "/orders", []byte(`{"hash": "0x123"}`)))

	assert.Equal(t, "0xabc", req.Header.Get(HeaderAddress))
	assert.Equal(t, goldenSig, req.Header.Get(HeaderSignature))
	assert.Equal(t, "1000000", req.Header.Get(HeaderTimestamp))
}

func TestCredentials(t *testing.T) {
	assert.False(t, Credentials{Key: "k", Secret: "s"}.Complete())
	assert.True(t, Credentials{Key: "k", Secret: "s", Passphrase: "p"}.Complete())

	s := Credentials{Key: "k", Secret: "top-secret", Passphrase: "hidden"}.String()
	assert.NotContains(t, s, "top-secret")
	assert.NotContains(t, s, "hidden")
}
