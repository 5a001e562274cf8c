package domain

// Symbol identifies one of the five supported currencies.
type Symbol string

const (
	BTC Symbol = "BTC"
	LTC Symbol = "LTC"
	XMR Symbol = "XMR"
	BYN Symbol = "BYN"
	RUB Symbol = "RUB"
)

// CryptoSymbols lists the tracked coins in display order.
var CryptoSymbols = []Symbol{BTC, LTC, XMR}

// AllSymbols lists every input field in display order.
var AllSymbols = []Symbol{BTC, LTC, XMR, BYN, RUB}

// IsCrypto reports whether s is one of the tracked coins.
func (s Symbol) IsCrypto() bool {
	return s == BTC || s == LTC || s == XMR
}

// IsFiat reports whether s is one of the fiat currencies.
func (s Symbol) IsFiat() bool {
	return s == BYN || s == RUB
}

// Valid reports whether s is one of the five supported symbols.
func (s Symbol) Valid() bool {
	return s.IsCrypto() || s.IsFiat()
}

// FractionDigits returns the display precision for amounts of this symbol.
// BTC keeps satoshi-level precision, the other coins six digits, fiat two.
func (s Symbol) FractionDigits() int32 {
	switch s {
	case BTC:
		return 8
	case LTC, XMR:
		return 6
	default:
		return 2
	}
}
