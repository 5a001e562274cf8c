package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestRateConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		byn     string
		rub     string
		markup  string
		wantErr bool
	}{
		{"defaults", "3.0", "90.0", "1.10", false},
		{"zero markup", "3.0", "90.0", "0", true},
		{"negative byn", "-1", "90.0", "1.10", true},
		{"zero rub", "3.0", "0", "1.10", true},
		{"custom valid", "3.01", "78.0", "1.05", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RateConfig{
				BynPerUsd: decimal.RequireFromString(tt.byn),
				RubPerUsd: decimal.RequireFromString(tt.rub),
				Markup:    decimal.RequireFromString(tt.markup),
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRate) {
				t.Errorf("Validate() error should wrap ErrInvalidRate, got %v", err)
			}
		})
	}
}

func TestRateConfig_FiatPerUsd(t *testing.T) {
	cfg := DefaultRateConfig()

	byn, err := cfg.FiatPerUsd(BYN)
	if err != nil {
		t.Fatalf("FiatPerUsd(BYN) failed: %v", err)
	}
	// 3.0 * 1.10 = 3.3
	if !byn.Equal(decimal.RequireFromString("3.3")) {
		t.Errorf("FiatPerUsd(BYN) = %s, want 3.3", byn)
	}

	if _, err := cfg.FiatPerUsd(BTC); err == nil {
		t.Error("FiatPerUsd(BTC) should fail")
	}
}

func TestPriceSnapshot_Price(t *testing.T) {
	snap := PriceSnapshot{
		BTC: decimal.RequireFromString("60000"),
		LTC: decimal.Zero,
	}

	if _, ok := snap.Price(BTC); !ok {
		t.Error("BTC price should be usable")
	}
	if _, ok := snap.Price(LTC); ok {
		t.Error("zero price must read as unknown")
	}
	if _, ok := snap.Price(XMR); ok {
		t.Error("absent price must read as unknown")
	}
	if snap.Complete() {
		t.Error("snapshot with unknown entries is not complete")
	}
}
