package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mselser95/polymarket-settle/internal/ctf"
	"github.com/mselser95/polymarket-settle/pkg/types"
)

const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

// TestRootCommand_Subcommands tests every command is registered
func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"merge", "execute-pair", "cancel-orders", "derive-proxy", "serve"}

	for _, name := range want {
		t.Run(name, func(t *testing.T) {
			found, _, err := rootCmd.Find([]string{name})
			if err != nil {
				t.Fatalf("find %s: %v", name, err)
			}
			if found.Name() != name {
				t.Errorf("expected command %s, got %s", name, found.Name())
			}
		})
	}
}

// TestCancelOrdersCommand_Flags tests command flags are defined
func TestCancelOrdersCommand_Flags(t *testing.T) {
	flag := cancelOrdersCmd.Flags().Lookup("dry-run")
	if flag == nil {
		t.Fatal("dry-run flag not defined")
	}

	if flag.DefValue != "false" {
		t.Errorf("expected dry-run default 'false', got '%s'", flag.DefValue)
	}
}

// TestServeCommand_Flags tests command flags are defined
func TestServeCommand_Flags(t *testing.T) {
	for _, name := range []string{"merge", "pairs"} {
		flag := serveCmd.Flags().Lookup(name)
		if flag == nil {
			t.Fatalf("%s flag not defined", name)
		}
		if flag.DefValue != "true" {
			t.Errorf("expected %s default 'true', got '%s'", name, flag.DefValue)
		}
	}
}

func TestServeCommand_NothingToServe(t *testing.T) {
	if err := serveCmd.Flags().Set("merge", "false"); err != nil {
		t.Fatal(err)
	}
	if err := serveCmd.Flags().Set("pairs", "false"); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = serveCmd.Flags().Set("merge", "true")
		_ = serveCmd.Flags().Set("pairs", "true")
	})

	err := runServe(serveCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "nothing to serve") {
		t.Errorf("expected nothing-to-serve error, got %v", err)
	}
}

func TestResolveOwner(t *testing.T) {
	keyOwner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

	tests := []struct {
		name       string
		ownerFlag  string
		privateKey string
		want       common.Address
		wantErr    bool
	}{
		{name: "from-key", privateKey: testPrivateKey, want: keyOwner},
		{
			name:       "flag-wins",
			ownerFlag:  "0x1111111111111111111111111111111111111111",
			privateKey: testPrivateKey,
			want:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
		},
		{name: "bad-flag", ownerFlag: "0x1234", wantErr: true},
		{name: "bad-key", privateKey: "0xnothex", wantErr: true},
		{name: "nothing", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveOwner(tt.ownerFlag, tt.privateKey)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %s", got.Hex())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want.Hex(), got.Hex())
			}
		})
	}
}

func TestRunDeriveProxy(t *testing.T) {
	owner := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	derived := ctf.DeriveProxyWallet(owner, ctf.ProxyFactoryAddress)

	tests := []struct {
		name       string
		configured string
		want       string
	}{
		{name: "matching", configured: derived.Hex(), want: "matches"},
		{name: "different", configured: "0x3333333333333333333333333333333333333333", want: "not the derived proxy"},
		{name: "unset", configured: "", want: derived.Hex()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POLYMARKET_PRIVATE_KEY", testPrivateKey)
			t.Setenv("POLYMARKET_PROXY_ADDRESS", tt.configured)

			var out bytes.Buffer
			deriveProxyCmd.SetOut(&out)
			t.Cleanup(func() { deriveProxyCmd.SetOut(nil) })

			if err := runDeriveProxy(deriveProxyCmd, nil); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := out.String()
			if !strings.Contains(got, "Proxy:   "+derived.Hex()) {
				t.Errorf("expected derived proxy in output, got:\n%s", got)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in output, got:\n%s", tt.want, got)
			}
		})
	}
}

func TestDisplayCancelResults(t *testing.T) {
	// prints only; must not panic on empty or partial results
	displayCancelResults(&types.CancelResponse{})
	displayCancelResults(&types.CancelResponse{
		Canceled:    []string{"0xa"},
		NotCanceled: map[string]string{"0xb": "order not found", "0xc": "already matched"},
	})
}
