package currency

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ratesPerUSD maps currency codes to the number of local currency units per 1 USD.
// These are approximate 2024 rates.
var ratesPerUSD = map[string]decimal.Decimal{
	"USD": decimal.NewFromInt(1),
	"EUR": decimal.RequireFromString("0.92"),
	"KES": decimal.RequireFromString("129.5"), // Kenyan Shilling
	"NGN": decimal.NewFromInt(1580),           // Nigerian Naira
	"ZAR": decimal.RequireFromString("18.6"),  // South African Rand
}

// usdPlaces is the precision of converted amounts.
const usdPlaces = 2

// ToUSD converts a local currency amount to USD.
func ToUSD(amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	rate, err := Rate(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.DivRound(rate, usdPlaces), nil
}

// Rate returns the exchange rate for a given currency (units per 1 USD).
func Rate(currency string) (decimal.Decimal, error) {
	rate, ok := ratesPerUSD[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("unsupported currency: %s", currency)
	}
	return rate, nil
}

// TotalUSD converts per-currency amounts and sums them. Currencies without a
// rate are left out of the total and returned sorted.
func TotalUSD(amounts map[string]decimal.Decimal) (decimal.Decimal, []string) {
	total := decimal.Zero
	var unsupported []string
	for cur, amt := range amounts {
		usd, err := ToUSD(amt, cur)
		if err != nil {
			unsupported = append(unsupported, cur)
			continue
		}
		total = total.Add(usd)
	}
	sort.Strings(unsupported)
	return total, unsupported
}
