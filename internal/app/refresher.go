package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
	"github.com/vv-aa-ss/CyrrencyConverter/internal/storage"
)

// PriceFetcher is anything that can fetch a complete price snapshot.
type PriceFetcher interface {
	FetchPrices(ctx context.Context) (domain.PriceSnapshot, error)
}

// UpdateKind discriminates refresh-cycle outcomes pushed to subscribers.
type UpdateKind string

const (
	// PricesUpdated carries a fresh snapshot after a successful fetch.
	PricesUpdated UpdateKind = "prices_updated"
	// RefreshFailed signals one failed cycle; display falls back to cache.
	RefreshFailed UpdateKind = "refresh_failed"
	// ElapsedTick carries "seconds since last success" once per second.
	ElapsedTick UpdateKind = "elapsed_tick"
)

// Update is one message on a subscriber channel.
type Update struct {
	Kind       UpdateKind           `json:"kind"`
	Prices     domain.PriceSnapshot `json:"prices,omitempty"`
	Message    string               `json:"message,omitempty"`
	ElapsedSec int64                `json:"elapsed_sec"`
	HasElapsed bool                 `json:"has_elapsed"`
}

// Refresher runs the background price refresh loop and owns the shared
// mutable state read by the conversion path: the live price snapshot, the
// last-success timestamp, and the current rate config.
//
// One goroutine runs fetch cycles (immediately at start, then on a fixed
// interval regardless of outcome; the interval doubles as the retry policy).
// A second, independent goroutine ticks once per second recomputing the
// elapsed time; it keeps running while a fetch is in flight. Both stop
// deterministically on Stop.
type Refresher struct {
	fetcher  PriceFetcher
	store    storage.RateStore
	interval time.Duration
	tick     time.Duration

	mu          sync.RWMutex
	snapshot    domain.PriceSnapshot
	rates       domain.RateConfig
	lastSuccess time.Time
	hasSuccess  bool

	kick chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan Update
	nextSub int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher polling at the given interval.
func NewRefresher(fetcher PriceFetcher, store storage.RateStore, interval time.Duration) *Refresher {
	return &Refresher{
		fetcher:  fetcher,
		store:    store,
		interval: interval,
		tick:     time.Second,
		snapshot: make(domain.PriceSnapshot),
		rates:    domain.DefaultRateConfig(),
		kick:     make(chan struct{}, 1),
		subs:     make(map[int]chan Update),
	}
}

// Start loads persisted state and launches the two loops.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	// Seed in-memory state from the store so the UI has numbers before the
	// first fetch completes. Persistence failures are non-fatal.
	if rates, err := r.store.LoadRates(ctx); err != nil {
		slog.Warn("Failed to load persisted rates, using defaults", slog.Any("error", err))
	} else {
		r.rates = rates
	}
	if cached, err := r.store.LoadCachedPrices(ctx); err != nil {
		slog.Warn("Failed to load cached prices", slog.Any("error", err))
	} else if len(cached) > 0 {
		r.snapshot = cached
	}
	if ts, ok, err := r.store.LoadLastSuccess(ctx); err != nil {
		slog.Warn("Failed to load last success timestamp", slog.Any("error", err))
	} else if ok {
		r.lastSuccess, r.hasSuccess = ts, true
	}

	r.wg.Add(2)
	go r.refreshLoop(ctx)
	go r.tickLoop(ctx)

	return nil
}

// Stop cancels both loops and waits for them to exit.
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
	}
}

// refreshLoop is the only writer of the price snapshot and last-success
// state. Manual triggers share the same loop, so at most one fetch cycle is
// ever in flight.
func (r *Refresher) refreshLoop(ctx context.Context) {
	defer r.wg.Done()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Refresh loop panic recovered", slog.Any("panic", rec))
		}
	}()

	r.refreshOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Price refresh loop stopped")
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		case <-r.kick:
			r.refreshOnce(ctx)
		}
	}
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	fresh, err := r.fetcher.FetchPrices(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Warn("Price fetch failed, falling back to cache", slog.Any("error", err))

		// Last-success time is deliberately not touched on failure.
		cached, loadErr := r.store.LoadCachedPrices(ctx)
		if loadErr != nil {
			slog.Warn("Failed to reload price cache", slog.Any("error", loadErr))
		}
		r.mu.Lock()
		if len(cached) > 0 {
			r.snapshot = cached
		} // empty cache: keep whatever snapshot is already in memory
		r.mu.Unlock()

		r.broadcast(Update{Kind: RefreshFailed, Message: "failed to refresh rates"})
		return
	}

	now := time.Now()
	r.mu.Lock()
	r.snapshot = fresh
	r.lastSuccess = now
	r.hasSuccess = true
	r.mu.Unlock()

	if err := r.store.SaveCachedPrices(ctx, fresh); err != nil {
		slog.Warn("Failed to persist price cache", slog.Any("error", err))
	}
	if err := r.store.SaveLastSuccess(ctx, now); err != nil {
		slog.Warn("Failed to persist last success timestamp", slog.Any("error", err))
	}

	slog.Info("Prices updated",
		slog.String("btc", displayPrice(fresh, domain.BTC)),
		slog.String("ltc", displayPrice(fresh, domain.LTC)),
		slog.String("xmr", displayPrice(fresh, domain.XMR)),
	)
	r.broadcast(Update{Kind: PricesUpdated, Prices: fresh})
}

func displayPrice(p domain.PriceSnapshot, s domain.Symbol) string {
	v, ok := p.Price(s)
	if !ok {
		return domain.Placeholder
	}
	return v.StringFixed(2)
}

// tickLoop publishes the elapsed-time display value once per second.
// It never touches fetch scheduling.
func (r *Refresher) tickLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed, ok := r.Elapsed()
			r.broadcast(Update{Kind: ElapsedTick, ElapsedSec: elapsed, HasElapsed: ok})
		}
	}
}

// TriggerRefresh requests an immediate fetch cycle. Returns false when a
// trigger is already pending.
func (r *Refresher) TriggerRefresh() bool {
	select {
	case r.kick <- struct{}{}:
		return true
	default:
		return false
	}
}

// Snapshot returns the current price snapshot as an independent copy.
func (r *Refresher) Snapshot() domain.PriceSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Clone()
}

// Rates returns the current rate config.
func (r *Refresher) Rates() domain.RateConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rates
}

// SetRates validates, persists, and applies a new rate config. On a
// validation or persistence failure the prior values remain in effect.
func (r *Refresher) SetRates(ctx context.Context, rates domain.RateConfig) error {
	if err := rates.Validate(); err != nil {
		return err
	}
	if err := r.store.SaveRates(ctx, rates); err != nil {
		return fmt.Errorf("persist rates: %w", err)
	}
	r.mu.Lock()
	r.rates = rates
	r.mu.Unlock()
	return nil
}

// LastSuccess returns the time of the last successful fetch.
func (r *Refresher) LastSuccess() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSuccess, r.hasSuccess
}

// Elapsed returns whole seconds since the last successful fetch.
func (r *Refresher) Elapsed() (int64, bool) {
	ts, ok := r.LastSuccess()
	if !ok {
		return 0, false
	}
	return int64(time.Since(ts) / time.Second), true
}

// Subscribe registers a listener for refresh-cycle outcomes and elapsed
// ticks. The returned func unsubscribes; slow listeners drop messages
// instead of blocking the loops.
func (r *Refresher) Subscribe() (<-chan Update, func()) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan Update, 16)
	r.subs[id] = ch

	return ch, func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

func (r *Refresher) broadcast(u Update) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for _, ch := range r.subs {
		// Each subscriber gets its own snapshot copy; a consumer mutating
		// its map must not bleed into the others.
		msg := u
		msg.Prices = u.Prices.Clone()
		select {
		case ch <- msg:
		default:
		}
	}
}

// ElapsedLabel renders the footer text for the last-update display.
func ElapsedLabel(elapsedSec int64, ok bool) string {
	if !ok {
		return "rates not updated yet"
	}
	switch {
	case elapsedSec < 60:
		return fmt.Sprintf("updated %d sec ago", elapsedSec)
	case elapsedSec < 3600:
		return fmt.Sprintf("updated %d min ago", elapsedSec/60)
	case elapsedSec < 86400:
		return fmt.Sprintf("updated %d h ago", elapsedSec/3600)
	default:
		return fmt.Sprintf("updated %d d ago", elapsedSec/86400)
	}
}
