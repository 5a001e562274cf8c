package domain

import "github.com/shopspring/decimal"

// PriceSnapshot maps tracked coins to their USD unit price.
// A missing entry means the price is unknown; it must never be read as zero.
type PriceSnapshot map[Symbol]decimal.Decimal

// Price returns the USD price for a coin. A zero or negative stored value is
// treated as unknown so that stale sentinel writes cannot poison conversions.
func (p PriceSnapshot) Price(s Symbol) (decimal.Decimal, bool) {
	v, ok := p[s]
	if !ok || !v.IsPositive() {
		return decimal.Zero, false
	}
	return v, true
}

// Complete reports whether all three tracked coins have a usable price.
func (p PriceSnapshot) Complete() bool {
	for _, s := range CryptoSymbols {
		if _, ok := p.Price(s); !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy. Snapshots are published whole so readers
// never observe a half-updated map.
func (p PriceSnapshot) Clone() PriceSnapshot {
	if p == nil {
		return nil
	}
	out := make(PriceSnapshot, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
