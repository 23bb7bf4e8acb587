package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"1.004", 100, true},
		{" 2.50 ", 250, true},
		{"€ 12,90", 1290, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if !tc.ok {
			assert.Error(t, err, "%q", tc.in)
			continue
		}
		if assert.NoError(t, err, "%q", tc.in) {
			assert.Equal(t, tc.out, got, "%q", tc.in)
		}
	}
}

func TestParseAmountAllowsZero(t *testing.T) {
	m, err := ParseAmount("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Cents)

	_, err = ParseAmount("-0.01")
	assert.Error(t, err, "negative amount")
}

func TestMoneyDecimalRoundTrip(t *testing.T) {
	m := Money{Cents: 123456}
	assert.Equal(t, "1234.56", m.Decimal().String())
	assert.Equal(t, m, MoneyFromDecimal(m.Decimal()))
	assert.Equal(t, int64(13), MoneyFromDecimal(decimal.RequireFromString("0.125")).Cents, "half away from zero")
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:      "€0,00",
		5:      "€0,05",
		123456: "€1234,56",
		-250:   "-€2,50",
	}
	for cents, want := range cases {
		assert.Equal(t, want, Money{Cents: cents}.String(), "%d cents", cents)
	}
}
