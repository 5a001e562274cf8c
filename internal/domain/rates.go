package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RateConfig holds the user-configured fiat rates and the markup multiplier.
// All three values are strictly positive; see Validate.
type RateConfig struct {
	BynPerUsd decimal.Decimal `json:"byn_per_usd"`
	RubPerUsd decimal.Decimal `json:"rub_per_usd"`
	Markup    decimal.Decimal `json:"markup"` // 1.10 = +10%
}

// DefaultRateConfig returns the rates used until the user saves their own.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		BynPerUsd: decimal.RequireFromString("3.0"),
		RubPerUsd: decimal.RequireFromString("90.0"),
		Markup:    decimal.RequireFromString("1.10"),
	}
}

// Validate checks that all three values are positive.
func (r RateConfig) Validate() error {
	if !r.BynPerUsd.IsPositive() {
		return fmt.Errorf("byn_per_usd %s: %w", r.BynPerUsd, ErrInvalidRate)
	}
	if !r.RubPerUsd.IsPositive() {
		return fmt.Errorf("rub_per_usd %s: %w", r.RubPerUsd, ErrInvalidRate)
	}
	if !r.Markup.IsPositive() {
		return fmt.Errorf("markup %s: %w", r.Markup, ErrInvalidRate)
	}
	return nil
}

// FiatPerUsd returns the markup-adjusted rate for a fiat symbol.
func (r RateConfig) FiatPerUsd(s Symbol) (decimal.Decimal, error) {
	switch s {
	case BYN:
		return r.BynPerUsd.Mul(r.Markup), nil
	case RUB:
		return r.RubPerUsd.Mul(r.Markup), nil
	default:
		return decimal.Zero, fmt.Errorf("%s is not a fiat symbol: %w", s, ErrUnknownSymbol)
	}
}
