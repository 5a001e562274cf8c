package domain

import "github.com/shopspring/decimal"

// Placeholder is rendered for outputs that cannot be computed.
const Placeholder = "—"

// Amount is a single conversion output. Unavailable amounts (no active input,
// missing price) carry Available=false and render as Placeholder, never as zero.
type Amount struct {
	Value     decimal.Decimal `json:"value"`
	Available bool            `json:"available"`
}

// Unavailable is the zero-value output for a field that cannot be computed.
var Unavailable = Amount{}

// AvailableAmount wraps a computed value.
func AvailableAmount(v decimal.Decimal) Amount {
	return Amount{Value: v, Available: true}
}

// Format renders the amount with the given number of fraction digits,
// or Placeholder when the amount is unavailable.
func (a Amount) Format(digits int32) string {
	if !a.Available {
		return Placeholder
	}
	return a.Value.StringFixed(digits)
}

// ConversionResult holds one output per currency plus the implicit USD pivot.
// The field matching the active input mirrors the entered amount.
type ConversionResult struct {
	Amounts map[Symbol]Amount `json:"amounts"`
	USD     Amount            `json:"usd"`
}

// EmptyResult returns a result with every output unavailable, used when there
// is no active amount.
func EmptyResult() ConversionResult {
	out := ConversionResult{Amounts: make(map[Symbol]Amount, len(AllSymbols))}
	for _, s := range AllSymbols {
		out.Amounts[s] = Unavailable
	}
	return out
}

// Display renders every output with its symbol's precision.
func (r ConversionResult) Display() map[Symbol]string {
	out := make(map[Symbol]string, len(r.Amounts))
	for s, a := range r.Amounts {
		out[s] = a.Format(s.FractionDigits())
	}
	return out
}
