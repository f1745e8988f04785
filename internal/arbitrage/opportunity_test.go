package arbitrage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpportunity(t *testing.T) {
	opp := NewOpportunity(Params{
		MarketID:    "m1",
		MarketSlug:  "will-it-rain",
		YesTokenID:  "1",
		NoTokenID:   "2",
		YesAskPrice: decimal.RequireFromString("0.40"),
		YesAskSize:  decimal.NewFromInt(100),
		NoAskPrice:  decimal.RequireFromString("0.55"),
		NoAskSize:   decimal.NewFromInt(80),
		NegRisk:     true,
	})

	require.NotNil(t, opp)
	assert.Len(t, opp.ID, 36)
	assert.False(t, opp.DetectedAt.IsZero())
	assert.True(t, opp.NegRisk)
	assert.Equal(t, "0.95", opp.PriceSum().String())
	assert.Equal(t, "0.05", opp.ProfitMargin().String())
	assert.Equal(t, int64(500), opp.ProfitBPS())
	assert.Equal(t, "80", opp.AvailableSize().String())
}

func TestOpportunity_ProfitBPSNegative(t *testing.T) {
	opp := CreateTestOpportunity("m", "s")
	opp.NoAskPrice = decimal.RequireFromString("0.65")

	assert.Equal(t, int64(-500), opp.ProfitBPS())
}

func TestOpportunity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(o *Opportunity)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(o *Opportunity) {},
		},
		{
			name:    "missing-yes-token",
			mutate:  func(o *Opportunity) { o.YesTokenID = "" },
			wantErr: "missing token id",
		},
		{
			name:    "same-tokens",
			mutate:  func(o *Opportunity) { o.NoTokenID = o.YesTokenID },
			wantErr: "token ids are equal",
		},
		{
			name:    "zero-price",
			mutate:  func(o *Opportunity) { o.YesAskPrice = decimal.Zero },
			wantErr: "yes ask price",
		},
		{
			name:    "price-above-one",
			mutate:  func(o *Opportunity) { o.NoAskPrice = decimal.RequireFromString("1.01") },
			wantErr: "no ask price",
		},
		{
			name:   "price-exactly-one",
			mutate: func(o *Opportunity) { o.NoAskPrice = decimal.NewFromInt(1) },
		},
		{
			name:    "negative-size",
			mutate:  func(o *Opportunity) { o.NoAskSize = decimal.NewFromInt(-1) },
			wantErr: "no ask size",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opp := CreateTestOpportunity("m", "s")
			tt.mutate(opp)

			err := opp.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOpportunity)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAdmit(t *testing.T) {
	before := testutil.ToFloat64(OpportunitiesRejectedTotal.WithLabelValues("price"))

	bad := CreateTestOpportunity("m", "s")
	bad.YesAskPrice = decimal.Zero
	require.Error(t, Admit(bad, "test"))
	assert.InDelta(t, before+1, testutil.ToFloat64(OpportunitiesRejectedTotal.WithLabelValues("price")), 1e-9)

	received := testutil.ToFloat64(OpportunitiesReceivedTotal.WithLabelValues("test"))
	require.NoError(t, Admit(CreateTestOpportunity("m", "s"), "test"))
	assert.InDelta(t, received+1, testutil.ToFloat64(OpportunitiesReceivedTotal.WithLabelValues("test")), 1e-9)
}

func TestOpportunity_String(t *testing.T) {
	opp := CreateTestOpportunity("abc", "slug")

	s := opp.String()
	assert.Contains(t, s, "Opportunity[test-opp]")
	assert.Contains(t, s, "YES=0.4000")
	assert.Contains(t, s, "NO=0.5500")
	assert.Contains(t, s, "Profit=500bps")
}
