// Package storage persists the small key-value state of the application:
// user-configured fiat rates, the markup multiplier, the last-known-good
// price cache, and the timestamp of the last successful refresh.
package storage

import (
	"context"
	"time"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

// Storage keys. Values are stored as decimal strings to avoid the rounding
// drift of binary floats.
const (
	keyBynPerUsd   = "rate_byn_per_usd"
	keyRubPerUsd   = "rate_rub_per_usd"
	keyMarkup      = "markup_multiplier"
	keyLastSuccess = "last_success_epoch"

	keyPriceBTC = "price_btc_usd"
	keyPriceLTC = "price_ltc_usd"
	keyPriceXMR = "price_xmr_usd"
)

func priceKey(s domain.Symbol) string {
	switch s {
	case domain.BTC:
		return keyPriceBTC
	case domain.LTC:
		return keyPriceLTC
	case domain.XMR:
		return keyPriceXMR
	default:
		return ""
	}
}

// RateStore is the persistence boundary. Implementations survive process
// restarts (sqlite, redis); the in-memory one backs tests and degraded runs
// when no durable backend can be opened.
//
// All failures are recoverable by design: callers fall back to defaults or
// in-memory state rather than crash.
type RateStore interface {
	// LoadRates returns persisted rates, or the documented defaults when
	// nothing has been saved yet.
	LoadRates(ctx context.Context) (domain.RateConfig, error)

	// SaveRates validates positivity of all three fields before persisting.
	// Invalid configs are rejected and the prior values remain.
	SaveRates(ctx context.Context, rates domain.RateConfig) error

	// LoadCachedPrices returns the last-known-good price cache, possibly
	// empty or partial.
	LoadCachedPrices(ctx context.Context) (domain.PriceSnapshot, error)

	// SaveCachedPrices overwrites the price cache with a fresh snapshot.
	SaveCachedPrices(ctx context.Context, prices domain.PriceSnapshot) error

	// LoadLastSuccess returns the time of the last successful fetch.
	// ok is false when no fetch has ever succeeded.
	LoadLastSuccess(ctx context.Context) (time.Time, bool, error)

	// SaveLastSuccess records the time of a successful fetch.
	SaveLastSuccess(ctx context.Context, ts time.Time) error

	// Close releases the backend.
	Close() error
}
