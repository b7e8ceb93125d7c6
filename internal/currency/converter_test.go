package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUSD(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"10.50", "USD", "10.5"},
		{"1295", "KES", "10"},
		{"93", "ZAR", "5"},
		{"1", "KES", "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.currency+"_"+tt.amount, func(t *testing.T) {
			got, err := ToUSD(decimal.RequireFromString(tt.amount), tt.currency)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestToUSDUnsupported(t *testing.T) {
	_, err := ToUSD(decimal.NewFromInt(1), "XYZ")
	assert.ErrorContains(t, err, "unsupported currency: XYZ")
}

func TestTotalUSD(t *testing.T) {
	total, unsupported := TotalUSD(map[string]decimal.Decimal{
		"USD": decimal.RequireFromString("2.50"),
		"KES": decimal.NewFromInt(259),
		"XYZ": decimal.NewFromInt(7),
		"ABC": decimal.NewFromInt(1),
	})
	assert.True(t, total.Equal(decimal.RequireFromString("4.5")), "got %s", total)
	assert.Equal(t, []string{"ABC", "XYZ"}, unsupported)
}
