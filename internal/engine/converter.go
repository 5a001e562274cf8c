// Package engine implements the pure conversion math of the application.
// All conversions route through an implicit USD pivot: crypto amounts are
// priced in USD, fiat amounts divide out the markup-adjusted exchange rate.
package engine

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// ParseAmount parses free-form field text into a decimal amount.
// A comma decimal separator is accepted. ok is false for empty or
// unparseable text, which the caller treats as "no active amount".
func ParseAmount(text string) (decimal.Decimal, bool) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))
	if text == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return v, true
}

// Convert derives all five outputs plus the USD pivot from one edited field.
// It is pure: no I/O, no mutation of its inputs, deterministic.
//
// Outputs that cannot be computed (unparseable text, missing price) come back
// unavailable rather than zero; a single missing price only knocks out the
// outputs that depend on it.
func Convert(active domain.Symbol, text string, prices domain.PriceSnapshot, rates domain.RateConfig) domain.ConversionResult {
	amount, ok := ParseAmount(text)
	if !ok || !active.Valid() {
		return domain.EmptyResult()
	}

	result := domain.EmptyResult()
	result.Amounts[active] = domain.AvailableAmount(amount)

	// Step 1: pivot the active amount to USD.
	usd := domain.Unavailable
	if active.IsCrypto() {
		if price, ok := prices.Price(active); ok {
			usd = domain.AvailableAmount(price.Mul(amount))
		}
	} else {
		// Fiat rates are validated positive, so the division is safe.
		perUsd, err := rates.FiatPerUsd(active)
		if err == nil && perUsd.IsPositive() {
			usd = domain.AvailableAmount(amount.Div(perUsd))
		}
	}
	result.USD = usd
	if !usd.Available {
		return result
	}

	// Step 2: fan the USD pivot out to every other field.
	for _, s := range domain.AllSymbols {
		if s == active {
			continue
		}
		if s.IsCrypto() {
			price, ok := prices.Price(s)
			if !ok {
				continue // stays unavailable
			}
			result.Amounts[s] = domain.AvailableAmount(usd.Value.Div(price))
		} else {
			perUsd, err := rates.FiatPerUsd(s)
			if err != nil {
				continue
			}
			result.Amounts[s] = domain.AvailableAmount(usd.Value.Mul(perUsd))
		}
	}

	return result
}
