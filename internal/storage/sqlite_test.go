package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vv-aa-ss/CyrrencyConverter/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RatesDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rates, err := store.LoadRates(ctx)
	if err != nil {
		t.Fatalf("LoadRates failed: %v", err)
	}

	want := domain.DefaultRateConfig()
	if !rates.BynPerUsd.Equal(want.BynPerUsd) || !rates.RubPerUsd.Equal(want.RubPerUsd) || !rates.Markup.Equal(want.Markup) {
		t.Errorf("fresh store returned %+v, want defaults %+v", rates, want)
	}
}

func TestSQLiteStore_SaveAndLoadRates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved := domain.RateConfig{
		BynPerUsd: decimal.RequireFromString("3.01"),
		RubPerUsd: decimal.RequireFromString("78.0"),
		Markup:    decimal.RequireFromString("1.05"),
	}
	if err := store.SaveRates(ctx, saved); err != nil {
		t.Fatalf("SaveRates failed: %v", err)
	}

	loaded, err := store.LoadRates(ctx)
	if err != nil {
		t.Fatalf("LoadRates failed: %v", err)
	}
	if !loaded.BynPerUsd.Equal(saved.BynPerUsd) || !loaded.RubPerUsd.Equal(saved.RubPerUsd) || !loaded.Markup.Equal(saved.Markup) {
		t.Errorf("loaded %+v, want %+v", loaded, saved)
	}
}

func TestSQLiteStore_SaveRatesRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	good := domain.RateConfig{
		BynPerUsd: decimal.RequireFromString("3.0"),
		RubPerUsd: decimal.RequireFromString("90.0"),
		Markup:    decimal.RequireFromString("1.10"),
	}
	if err := store.SaveRates(ctx, good); err != nil {
		t.Fatalf("SaveRates failed: %v", err)
	}

	bad := good
	bad.Markup = decimal.Zero
	if err := store.SaveRates(ctx, bad); err == nil {
		t.Fatal("SaveRates should reject markup=0")
	}

	bad = good
	bad.BynPerUsd = decimal.RequireFromString("-1")
	if err := store.SaveRates(ctx, bad); err == nil {
		t.Fatal("SaveRates should reject byn=-1")
	}

	// Previously persisted values must be untouched.
	loaded, err := store.LoadRates(ctx)
	if err != nil {
		t.Fatalf("LoadRates failed: %v", err)
	}
	if !loaded.Markup.Equal(good.Markup) || !loaded.BynPerUsd.Equal(good.BynPerUsd) {
		t.Errorf("rejected save changed persisted rates: %+v", loaded)
	}
}

func TestSQLiteStore_PriceCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	empty, err := store.LoadCachedPrices(ctx)
	if err != nil {
		t.Fatalf("LoadCachedPrices failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("fresh store cache should be empty, got %d entries", len(empty))
	}

	snap := domain.PriceSnapshot{
		domain.BTC: decimal.RequireFromString("58000"),
		domain.LTC: decimal.RequireFromString("75.5"),
	}
	if err := store.SaveCachedPrices(ctx, snap); err != nil {
		t.Fatalf("SaveCachedPrices failed: %v", err)
	}

	loaded, err := store.LoadCachedPrices(ctx)
	if err != nil {
		t.Fatalf("LoadCachedPrices failed: %v", err)
	}
	if got, ok := loaded.Price(domain.BTC); !ok || !got.Equal(snap[domain.BTC]) {
		t.Errorf("BTC cache = %s (%v), want 58000", got, ok)
	}
	if _, ok := loaded.Price(domain.XMR); ok {
		t.Error("XMR was never cached, should be absent")
	}
}

func TestSQLiteStore_LastSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LoadLastSuccess(ctx); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v, want no timestamp", ok, err)
	}

	ts := time.Now().Truncate(time.Millisecond)
	if err := store.SaveLastSuccess(ctx, ts); err != nil {
		t.Fatalf("SaveLastSuccess failed: %v", err)
	}

	loaded, ok, err := store.LoadLastSuccess(ctx)
	if err != nil || !ok {
		t.Fatalf("LoadLastSuccess: ok=%v err=%v", ok, err)
	}
	if !loaded.Equal(ts) {
		t.Errorf("loaded %v, want %v", loaded, ts)
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	saved := domain.RateConfig{
		BynPerUsd: decimal.RequireFromString("3.25"),
		RubPerUsd: decimal.RequireFromString("95"),
		Markup:    decimal.RequireFromString("1.2"),
	}
	if err := store.SaveRates(ctx, saved); err != nil {
		t.Fatalf("SaveRates failed: %v", err)
	}
	store.Close()

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	loaded, err := reopened.LoadRates(ctx)
	if err != nil {
		t.Fatalf("LoadRates failed: %v", err)
	}
	if !loaded.BynPerUsd.Equal(saved.BynPerUsd) {
		t.Errorf("rates did not survive reopen: %+v", loaded)
	}
}
