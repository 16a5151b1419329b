package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFormatBRL(t *testing.T) {
	cases := map[string]string{
		"0":          "R$ 0,00",
		"5.5":        "R$ 5,50",
		"122.5":      "R$ 122,50",
		"1234.567":   "R$ 1.234,57",
		"1000000":    "R$ 1.000.000,00",
		"-45.1":      "-R$ 45,10",
		"-0.001":     "R$ 0,00",
		"999999.999": "R$ 1.000.000,00",
		"12345678.9": "R$ 12.345.678,90",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatBRL(decimal.RequireFromString(in)), in)
	}
}
