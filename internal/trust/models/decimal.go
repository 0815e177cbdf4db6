package models

import "github.com/shopspring/decimal"

// NormalizeDecimal trims a fixed-precision NUMERIC representation
// ("12.5000000") to its canonical form ("12.5") so amounts round-trip
// byte-for-byte through the API. Unparseable input passes through untouched.
func NormalizeDecimal(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.String()
}
