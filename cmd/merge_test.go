package cmd

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// TestMergeCommand_Structure tests command is properly configured
func TestMergeCommand_Structure(t *testing.T) {
	if mergeCmd == nil {
		t.Fatal("mergeCmd is nil")
	}

	if mergeCmd.Use != "merge <condition-id>..." {
		t.Errorf("expected Use='merge <condition-id>...', got '%s'", mergeCmd.Use)
	}

	if mergeCmd.RunE == nil {
		t.Error("RunE function is nil")
	}

	if err := mergeCmd.Args(mergeCmd, nil); err == nil {
		t.Error("expected an error without condition ids")
	}
}

// TestMergeCommand_Flags tests command flags are defined
func TestMergeCommand_Flags(t *testing.T) {
	flag := mergeCmd.Flags().Lookup("try-anyway")
	if flag == nil {
		t.Fatal("try-anyway flag not defined")
	}

	if flag.DefValue != "false" {
		t.Errorf("expected try-anyway default 'false', got '%s'", flag.DefValue)
	}
}

func TestParseConditionIDs(t *testing.T) {
	full := "0x" + strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		args    []string
		want    []common.Hash
		wantErr bool
	}{
		{name: "prefixed", args: []string{full}, want: []common.Hash{common.HexToHash(full)}},
		{name: "unprefixed", args: []string{strings.Repeat("ab", 32)}, want: []common.Hash{common.HexToHash(full)}},
		{name: "whitespace", args: []string{"  " + full + "\n"}, want: []common.Hash{common.HexToHash(full)}},
		{
			name: "several",
			args: []string{full, "0x" + strings.Repeat("01", 32)},
			want: []common.Hash{common.HexToHash(full), common.HexToHash("0x" + strings.Repeat("01", 32))},
		},
		{name: "too-short", args: []string{"0x1234"}, wantErr: true},
		{name: "too-long", args: []string{full + "00"}, wantErr: true},
		{name: "not-hex", args: []string{"0x" + strings.Repeat("zz", 32)}, wantErr: true},
		{name: "odd-length", args: []string{"0x" + strings.Repeat("a", 63)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseConditionIDs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d ids, got %d", len(tt.want), len(got))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("id %d: expected %s, got %s", i, tt.want[i].Hex(), got[i].Hex())
				}
			}
		})
	}
}

func TestShort(t *testing.T) {
	if got := short("0x1234"); got != "0x1234" {
		t.Errorf("expected short string unchanged, got %s", got)
	}

	long := "0x" + strings.Repeat("ab", 32)
	if got := short(long); got != "0xababab...abab" {
		t.Errorf("unexpected shortened id %s", got)
	}
}

func TestFormatUSDC(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{amount: 0, want: "0.000000"},
		{amount: 1, want: "0.000001"},
		{amount: 12500000, want: "12.500000"},
	}

	for _, tt := range tests {
		if got := formatUSDC(big.NewInt(tt.amount)); got != tt.want {
			t.Errorf("formatUSDC(%d) = %s, want %s", tt.amount, got, tt.want)
		}
	}
}
