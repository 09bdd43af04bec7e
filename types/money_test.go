package types

import (
	"encoding/json"
	"testing"
)

func TestMoneyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		money    Money
		amount   int64
		currency string
		display  string
	}{
		{"USD", USD(500), 500, "usd", "$5.00"},
		{"EUR", EUR(1999), 1999, "eur", "€19.99"},
		{"GBP", GBP(9900), 9900, "gbp", "£99.00"},
		{"New", New(100, "JPY"), 100, "jpy", "¥100"},
		{"Zero USD", Zero("USD"), 0, "usd", "$0.00"},
		{"Zero EUR", Zero("EUR"), 0, "eur", "€0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.money.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", tt.money.Amount, tt.amount)
			}
			if tt.money.Currency != tt.currency {
				t.Errorf("Currency: got %s, want %s", tt.money.Currency, tt.currency)
			}
			if tt.money.String() != tt.display {
				t.Errorf("Display: got %s, want %s", tt.money.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return USD(100).Add(USD(200)) }, USD(300)},
		{"Subtract", func() Money { return USD(500).Subtract(USD(200)) }, USD(300)},
		{"Negate", func() Money { return USD(100).Negate() }, USD(-100)},
		{"Abs positive", func() Money { return USD(100).Abs() }, USD(100)},
		{"Abs negative", func() Money { return USD(-100).Abs() }, USD(100)},
		{"Fee 20%", func() Money { return USD(500).ApplyBasisPoints(2000) }, USD(100)},
		{"Fee truncates", func() Money { return USD(99).ApplyBasisPoints(2000) }, USD(19)},
		{"Fee zero bps", func() Money { return USD(500).ApplyBasisPoints(0) }, USD(0)},
		{"Debit is negated price", func() Money {
			return USD(500).Negate()
		}, USD(-500)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.op()
			if !got.Equal(tt.expected) {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyCurrencyMismatchPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on currency mismatch")
		}
	}()
	_ = USD(100).Add(EUR(100))
}

func TestMoneyComparison(t *testing.T) {
	if !USD(100).LessThan(USD(200)) {
		t.Error("LessThan: 100 < 200 expected")
	}
	if !USD(200).GreaterThan(USD(100)) {
		t.Error("GreaterThan: 200 > 100 expected")
	}
	if !USD(0).IsZero() || USD(1).IsZero() {
		t.Error("IsZero")
	}
	if !USD(1).IsPositive() || USD(-1).IsPositive() {
		t.Error("IsPositive")
	}
	if !USD(-1).IsNegative() {
		t.Error("IsNegative")
	}
	if !USD(100).SameCurrency(Zero("USD")) {
		t.Error("SameCurrency should be case-insensitive")
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(USD(500))
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Amount != 500 || decoded.Currency != "usd" || decoded.Display != "$5.00" {
		t.Errorf("unexpected JSON payload: %+v", decoded)
	}
}

func TestFormatMajor(t *testing.T) {
	tests := []struct {
		money Money
		want  string
	}{
		{USD(500), "5.00"},
		{USD(-500), "-5.00"},
		{USD(5), "0.05"},
		{New(100, "jpy"), "100"},
	}
	for _, tt := range tests {
		if got := tt.money.FormatMajor(); got != tt.want {
			t.Errorf("FormatMajor(%v): got %s, want %s", tt.money, got, tt.want)
		}
	}
}
